package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"circletel_billing/internal/domain/entities"
)

func (s *Store) GetByID(ctx context.Context, id string) (entities.Invoice, error) {
	return s.oneInvoice(ctx, "SELECT doc FROM invoices WHERE id = $1", id)
}

func (s *Store) GetByServicePeriod(ctx context.Context, serviceID, period string) (entities.Invoice, error) {
	return s.oneInvoice(ctx, "SELECT doc FROM invoices WHERE service_id = $1 AND billing_period = $2", serviceID, period)
}

func (s *Store) oneInvoice(ctx context.Context, query string, args ...interface{}) (entities.Invoice, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Invoice{}, nil
	}
	if err != nil {
		return entities.Invoice{}, errors.Wrap(mapError(err), "get invoice")
	}
	return decodeDoc[entities.Invoice](raw, "invoice")
}

func (s *Store) List(ctx context.Context, f entities.InvoiceFilter) ([]entities.Invoice, error) {
	query, args := invoiceListQuery(f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list invoices")
	}
	return collectDocs[entities.Invoice](rows, "invoice")
}

// invoiceListQuery renders the filter as a parameterised query, newest first.
func invoiceListQuery(f entities.InvoiceFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = "+arg(f.CustomerID))
	}
	if f.ServiceID != "" {
		where = append(where, "service_id = "+arg(f.ServiceID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.DueBefore != nil {
		where = append(where, "due_date < "+arg(*f.DueBefore))
	}

	var b strings.Builder
	b.WriteString("SELECT doc FROM invoices")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	return b.String(), args
}
