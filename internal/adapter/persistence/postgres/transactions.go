package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

// TransactionRepository reads payment_transactions.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.IPaymentTransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (entities.PaymentTransaction, error) {
	return r.one(ctx, "SELECT doc FROM payment_transactions WHERE id = $1", id)
}

func (r *TransactionRepository) GetByProviderReference(ctx context.Context, provider entities.ProviderType, reference string) (entities.PaymentTransaction, error) {
	return r.one(ctx, "SELECT doc FROM payment_transactions WHERE provider = $1 AND provider_reference = $2", string(provider), reference)
}

func (r *TransactionRepository) one(ctx context.Context, query string, args ...interface{}) (entities.PaymentTransaction, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.PaymentTransaction{}, nil
	}
	if err != nil {
		return entities.PaymentTransaction{}, errors.Wrap(mapError(err), "get payment transaction")
	}
	return decodeDoc[entities.PaymentTransaction](raw, "payment transaction")
}

func (r *TransactionRepository) ListByInvoiceID(ctx context.Context, invoiceID string) ([]entities.PaymentTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM payment_transactions
		WHERE invoice_id = $1
		ORDER BY created_at, id
	`, invoiceID)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list payment transactions")
	}
	return collectDocs[entities.PaymentTransaction](rows, "payment transaction")
}

func (r *TransactionRepository) ListStale(ctx context.Context, statuses []entities.TransactionStatus, olderThan time.Time, limit int) ([]entities.PaymentTransaction, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM payment_transactions
		WHERE kind = $1 AND status = ANY($2) AND updated_at < $3
		ORDER BY updated_at
		LIMIT $4
	`, string(entities.TransactionKindPayment), names, olderThan, limit)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list stale payment transactions")
	}
	return collectDocs[entities.PaymentTransaction](rows, "payment transaction")
}
