package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"circletel_billing/internal/domain/entities"
)

// Commit applies the ChangeSet in one database transaction. The invoice number comes from
// invoice_sequences inside that transaction, so a rollback also gives the number back.
func (s *Store) Commit(ctx context.Context, cs entities.ChangeSet) (entities.CommitResult, error) {
	if cs.Empty() {
		return entities.CommitResult{}, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return entities.CommitResult{}, errors.Wrap(mapError(err), "begin commit")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	var res entities.CommitResult

	if w := cs.Invoice; w != nil {
		if w.AssignNumber && w.Invoice.InvoiceNumber == "" {
			year := now.Year()
			if w.Invoice.SentAt != nil {
				year = w.Invoice.SentAt.UTC().Year()
			}
			seq, err := nextInvoiceSequence(ctx, tx, year)
			if err != nil {
				return entities.CommitResult{}, err
			}
			if err := cs.ApplyInvoiceNumber(entities.FormatInvoiceNumber(year, seq)); err != nil {
				return entities.CommitResult{}, err
			}
		}
		inv, err := writeInvoice(ctx, tx, *w)
		if err != nil {
			return entities.CommitResult{}, err
		}
		res.Invoice = &inv
	}

	for _, w := range cs.Transactions {
		t, err := writeTransaction(ctx, tx, w)
		if err != nil {
			return entities.CommitResult{}, err
		}
		res.Transactions = append(res.Transactions, t)
	}

	for _, e := range cs.Audit {
		if e.ID == "" {
			e.ID = ulid.Make().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		doc, err := json.Marshal(e)
		if err != nil {
			return entities.CommitResult{}, errors.Wrap(err, "marshal audit entry")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_logs (id, resource_type, resource_id, action, actor, doc, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, string(e.ResourceType), e.ResourceID, e.Action, e.Actor, doc, e.CreatedAt)
		if err != nil {
			return entities.CommitResult{}, errors.Wrap(mapError(err), "insert audit entry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return entities.CommitResult{}, errors.Wrap(mapError(err), "commit")
	}
	return res, nil
}

// nextInvoiceSequence increments the year's counter. The row lock serialises concurrent senders.
func nextInvoiceSequence(ctx context.Context, tx pgx.Tx, year int) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, year).Scan(&seq)
	if err != nil {
		return 0, errors.Wrapf(mapError(err), "claim invoice number for %d", year)
	}
	return seq, nil
}

func writeInvoice(ctx context.Context, tx pgx.Tx, w entities.InvoiceWrite) (entities.Invoice, error) {
	inv := w.Invoice
	inv.LineItems = append([]entities.LineItem(nil), inv.LineItems...)
	if w.Create {
		inv.Version = 1
	} else {
		inv.Version = w.ExpectedVersion + 1
	}
	doc, err := json.Marshal(inv)
	if err != nil {
		return entities.Invoice{}, errors.Wrap(err, "marshal invoice")
	}

	if w.Create {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoices (id, invoice_number, customer_id, service_id, billing_period, status, due_date, version, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, inv.ID, nullable(inv.InvoiceNumber), inv.CustomerID, nullable(inv.ServiceID), nullable(inv.BillingPeriod),
			string(inv.Status), nullableTime(inv.DueDate), inv.Version, doc, inv.CreatedAt, inv.UpdatedAt)
		if err != nil {
			return entities.Invoice{}, mapError(err)
		}
		return inv, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_number = $3, status = $4, due_date = $5, version = $6, doc = $7, updated_at = $8
		WHERE id = $1 AND version = $2
	`, inv.ID, w.ExpectedVersion, nullable(inv.InvoiceNumber), string(inv.Status), nullableTime(inv.DueDate),
		inv.Version, doc, inv.UpdatedAt)
	if err != nil {
		return entities.Invoice{}, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return entities.Invoice{}, missingOrStale(ctx, tx, "invoices", inv.ID)
	}
	return inv, nil
}

func writeTransaction(ctx context.Context, tx pgx.Tx, w entities.TransactionWrite) (entities.PaymentTransaction, error) {
	t := w.Transaction
	if w.Create {
		t.Version = 1
	} else {
		t.Version = w.ExpectedVersion + 1
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return entities.PaymentTransaction{}, errors.Wrap(err, "marshal payment transaction")
	}

	if w.Create {
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_transactions (id, invoice_id, provider, provider_reference, kind, status, version, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, t.ID, t.InvoiceID, string(t.Provider), t.ProviderReference, string(t.Kind), string(t.Status),
			t.Version, doc, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return entities.PaymentTransaction{}, mapError(err)
		}
		return t, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $3, version = $4, doc = $5, updated_at = $6
		WHERE id = $1 AND version = $2
	`, t.ID, w.ExpectedVersion, string(t.Status), t.Version, doc, t.UpdatedAt)
	if err != nil {
		return entities.PaymentTransaction{}, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return entities.PaymentTransaction{}, missingOrStale(ctx, tx, "payment_transactions", t.ID)
	}
	return t, nil
}

// missingOrStale explains an update that matched no row.
func missingOrStale(ctx context.Context, tx pgx.Tx, table, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return errors.Wrapf(entities.ErrNotFound, "%s %s", table, id)
	}
	return entities.ErrVersionConflict
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
