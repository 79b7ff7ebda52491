// Package postgres stores the billing core in PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

//go:embed schema.sql
var schema string

// Migrate creates the billing tables when they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return errors.Wrap(err, "apply billing schema")
}

// Store implements the billing repositories and unit of work over one pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var (
	_ interfaces.IInvoiceRepository    = (*Store)(nil)
	_ interfaces.IAuditLogRepository   = (*Store)(nil)
	_ interfaces.IUnitOfWork           = (*Store)(nil)
	_ interfaces.IBillingRunRepository = (*Store)(nil)
	_ interfaces.IServiceDirectory     = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{pool: pool, log: logger.OrNop(log).Named("postgres")}
}

// Transactions returns the payment transaction repository backed by the same pool.
func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{pool: s.pool}
}

// Constraint names from schema.sql.
const (
	constraintInvoicePeriod  = "invoices_service_period_key"
	constraintInvoiceNumber  = "invoices_number_key"
	constraintTransactionRef = "payment_transactions_provider_ref_key"
)

// mapError turns postgres failures into the store errors the use cases branch on.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case constraintInvoicePeriod:
			return entities.ErrDuplicateInvoice
		case constraintTransactionRef:
			return entities.ErrDuplicateTransaction
		case constraintInvoiceNumber:
			return errors.Wrap(entities.ErrVersionConflict, "invoice number taken")
		}
		return errors.Wrap(entities.ErrConflict, pgErr.Message)
	case "40001", "40P01":
		return errors.Wrap(entities.ErrVersionConflict, pgErr.Message)
	case "57014", "08000", "08003", "08006":
		return errors.Wrap(entities.ErrTransient, pgErr.Message)
	}
	return err
}

func decodeDoc[T any](raw []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.Wrapf(err, "decode %s", what)
	}
	return v, nil
}

// collectDocs scans single-column doc rows into entities.
func collectDocs[T any](rows pgx.Rows, what string) ([]T, error) {
	raws, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", what)
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := decodeDoc[T](raw, what)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
