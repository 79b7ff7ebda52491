package interfaces

import (
	"context"
	"time"

	"circletel_billing/internal/domain/entities"
)

//go:generate mockgen -source=repository_interfaces.go -destination=mocks/repository_interfaces_mock.go -package=mock_interfaces

// IInvoiceRepository reads invoices. Lookups of a missing invoice return the zero value and no error.
type IInvoiceRepository interface {
	GetByID(ctx context.Context, id string) (entities.Invoice, error)
	GetByServicePeriod(ctx context.Context, serviceID, period string) (entities.Invoice, error)
	List(ctx context.Context, filter entities.InvoiceFilter) ([]entities.Invoice, error)
}

// IPaymentTransactionRepository reads payment transactions. Missing rows return the zero value.
type IPaymentTransactionRepository interface {
	GetByID(ctx context.Context, id string) (entities.PaymentTransaction, error)
	GetByProviderReference(ctx context.Context, provider entities.ProviderType, reference string) (entities.PaymentTransaction, error)
	ListByInvoiceID(ctx context.Context, invoiceID string) ([]entities.PaymentTransaction, error)
	// ListStale returns payment transactions still in one of statuses whose last update is before olderThan.
	ListStale(ctx context.Context, statuses []entities.TransactionStatus, olderThan time.Time, limit int) ([]entities.PaymentTransaction, error)
}

// IAuditLogRepository reads the audit trail. Entries are only ever written through IUnitOfWork.
type IAuditLogRepository interface {
	ListByResource(ctx context.Context, resourceType entities.ResourceType, resourceID string) ([]entities.AuditLogEntry, error)
}

// IUnitOfWork applies a ChangeSet atomically.
//
// Implementations must return entities.ErrDuplicateInvoice when a created invoice collides on
// (service_id, billing_period), entities.ErrDuplicateTransaction on (provider, provider_reference),
// and entities.ErrVersionConflict when an ExpectedVersion no longer matches.
type IUnitOfWork interface {
	Commit(ctx context.Context, cs entities.ChangeSet) (entities.CommitResult, error)
}

// IBillingRunRepository keeps the operator-facing record of billing runs.
type IBillingRunRepository interface {
	Save(ctx context.Context, run entities.BillingRun) error
	ListRecent(ctx context.Context, limit int) ([]entities.BillingRun, error)
}

// IServiceDirectory reads billable services from the customer/service store.
type IServiceDirectory interface {
	ListBillableServices(ctx context.Context, filter entities.ServiceFilter) ([]entities.Service, error)
	// GetService returns the zero value when the service does not exist.
	GetService(ctx context.Context, id string) (entities.Service, error)
}
