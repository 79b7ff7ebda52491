// Package memory is an in-process store used by tests and the local "memory" driver.
// It enforces the same uniqueness, version and numbering rules as the database backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

type Store struct {
	mu sync.RWMutex

	invoices     map[string]entities.Invoice
	invoiceByKey map[string]string
	transactions map[string]entities.PaymentTransaction
	txByRef      map[string]string
	audit        []entities.AuditLogEntry
	sequences    map[int]int
	runs         []entities.BillingRun
	services     map[string]entities.Service

	now func() time.Time
}

var (
	_ interfaces.IInvoiceRepository    = (*Store)(nil)
	_ interfaces.IAuditLogRepository   = (*Store)(nil)
	_ interfaces.IUnitOfWork           = (*Store)(nil)
	_ interfaces.IBillingRunRepository = (*Store)(nil)
	_ interfaces.IServiceDirectory     = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		invoices:     map[string]entities.Invoice{},
		invoiceByKey: map[string]string{},
		transactions: map[string]entities.PaymentTransaction{},
		txByRef:      map[string]string{},
		sequences:    map[int]int{},
		services:     map[string]entities.Service{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func periodKey(serviceID, period string) string { return serviceID + "#" + period }

func refKey(provider entities.ProviderType, ref string) string { return string(provider) + "#" + ref }

// Commit validates every write first and only then applies them, so a failed commit changes nothing.
func (s *Store) Commit(ctx context.Context, cs entities.ChangeSet) (entities.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(cs); err != nil {
		return entities.CommitResult{}, err
	}

	var res entities.CommitResult
	if w := cs.Invoice; w != nil {
		if w.AssignNumber && w.Invoice.InvoiceNumber == "" {
			year := s.numberingYear(w.Invoice)
			s.sequences[year]++
			if err := cs.ApplyInvoiceNumber(entities.FormatInvoiceNumber(year, s.sequences[year])); err != nil {
				s.sequences[year]--
				return entities.CommitResult{}, err
			}
		}
		inv := cloneInvoice(w.Invoice)
		if w.Create {
			inv.Version = 1
			if inv.ServiceID != "" && inv.BillingPeriod != "" {
				s.invoiceByKey[periodKey(inv.ServiceID, inv.BillingPeriod)] = inv.ID
			}
		} else {
			inv.Version = w.ExpectedVersion + 1
		}
		s.invoices[inv.ID] = inv
		out := cloneInvoice(inv)
		res.Invoice = &out
	}

	for _, w := range cs.Transactions {
		tx := w.Transaction
		if w.Create {
			tx.Version = 1
			s.txByRef[refKey(tx.Provider, tx.ProviderReference)] = tx.ID
		} else {
			tx.Version = w.ExpectedVersion + 1
		}
		s.transactions[tx.ID] = tx
		res.Transactions = append(res.Transactions, tx)
	}

	for _, e := range cs.Audit {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now()
		}
		s.audit = append(s.audit, e)
	}
	return res, nil
}

func (s *Store) check(cs entities.ChangeSet) error {
	if w := cs.Invoice; w != nil {
		stored, exists := s.invoices[w.Invoice.ID]
		if w.Create {
			if exists {
				return entities.ErrConflict
			}
			if w.Invoice.ServiceID != "" && w.Invoice.BillingPeriod != "" {
				if _, dup := s.invoiceByKey[periodKey(w.Invoice.ServiceID, w.Invoice.BillingPeriod)]; dup {
					return entities.ErrDuplicateInvoice
				}
			}
		} else {
			if !exists {
				return entities.ErrNotFound
			}
			if stored.Version != w.ExpectedVersion {
				return entities.ErrVersionConflict
			}
		}
	}

	seen := map[string]bool{}
	for _, w := range cs.Transactions {
		tx := w.Transaction
		stored, exists := s.transactions[tx.ID]
		if w.Create {
			key := refKey(tx.Provider, tx.ProviderReference)
			if _, dup := s.txByRef[key]; dup || seen[key] {
				return entities.ErrDuplicateTransaction
			}
			if exists {
				return entities.ErrConflict
			}
			seen[key] = true
			continue
		}
		if !exists {
			return entities.ErrNotFound
		}
		if stored.Version != w.ExpectedVersion {
			return entities.ErrVersionConflict
		}
	}
	return nil
}

func (s *Store) numberingYear(inv entities.Invoice) int {
	if inv.SentAt != nil {
		return inv.SentAt.UTC().Year()
	}
	return s.now().Year()
}

func (s *Store) GetByID(_ context.Context, id string) (entities.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return entities.Invoice{}, nil
	}
	return cloneInvoice(inv), nil
}

func (s *Store) GetByServicePeriod(_ context.Context, serviceID, period string) (entities.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.invoiceByKey[periodKey(serviceID, period)]
	if !ok {
		return entities.Invoice{}, nil
	}
	return cloneInvoice(s.invoices[id]), nil
}

func (s *Store) List(_ context.Context, f entities.InvoiceFilter) ([]entities.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.FilterMap(lo.Values(s.invoices), func(inv entities.Invoice, _ int) (entities.Invoice, bool) {
		if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
			return inv, false
		}
		if f.ServiceID != "" && inv.ServiceID != f.ServiceID {
			return inv, false
		}
		if f.Status != "" && inv.Status != f.Status {
			return inv, false
		}
		if f.DueBefore != nil && !inv.DueDate.Before(*f.DueBefore) {
			return inv, false
		}
		return cloneInvoice(inv), true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Transactions returns the payment transaction repository view of the store.
// Both repositories share GetByID, so the transaction one lives on a thin wrapper.
func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (s *Store) ListByResource(_ context.Context, resourceType entities.ResourceType, resourceID string) ([]entities.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.audit, func(e entities.AuditLogEntry, _ int) bool {
		return e.ResourceType == resourceType && e.ResourceID == resourceID
	}), nil
}

func (s *Store) Save(_ context.Context, run entities.BillingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]entities.BillingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.BillingRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutService seeds the service directory.
func (s *Store) PutService(svc entities.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

// ListBillableServices returns active services for the billing day. A service ID filter
// returns that service whatever its status so eligibility is reported per service.
func (s *Store) ListBillableServices(_ context.Context, f entities.ServiceFilter) ([]entities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Filter(lo.Values(s.services), func(svc entities.Service, _ int) bool {
		if f.ServiceID != "" {
			return svc.ID == f.ServiceID
		}
		if svc.Status != entities.ServiceStatusActive {
			return false
		}
		if f.BillingDay != 0 && svc.BillingDay != f.BillingDay {
			return false
		}
		return f.CustomerID == "" || svc.CustomerID == f.CustomerID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetService(_ context.Context, id string) (entities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services[id], nil
}

// AuditCount is a test helper.
func (s *Store) AuditCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audit)
}

// InvoiceCount is a test helper.
func (s *Store) InvoiceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices)
}

func cloneInvoice(inv entities.Invoice) entities.Invoice {
	inv.LineItems = append([]entities.LineItem(nil), inv.LineItems...)
	return inv
}
