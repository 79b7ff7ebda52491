package memory

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

// TransactionRepository reads payment transactions out of a Store.
type TransactionRepository struct {
	s *Store
}

var _ interfaces.IPaymentTransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) GetByID(_ context.Context, id string) (entities.PaymentTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.transactions[id], nil
}

func (r *TransactionRepository) GetByProviderReference(_ context.Context, provider entities.ProviderType, reference string) (entities.PaymentTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.txByRef[refKey(provider, reference)]
	if !ok {
		return entities.PaymentTransaction{}, nil
	}
	return r.s.transactions[id], nil
}

func (r *TransactionRepository) ListByInvoiceID(_ context.Context, invoiceID string) ([]entities.PaymentTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := lo.Filter(lo.Values(r.s.transactions), func(tx entities.PaymentTransaction, _ int) bool {
		return tx.InvoiceID == invoiceID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *TransactionRepository) ListStale(_ context.Context, statuses []entities.TransactionStatus, olderThan time.Time, limit int) ([]entities.PaymentTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := lo.Filter(lo.Values(r.s.transactions), func(tx entities.PaymentTransaction, _ int) bool {
		return tx.Kind == entities.TransactionKindPayment && lo.Contains(statuses, tx.Status) && tx.UpdatedAt.Before(olderThan)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
