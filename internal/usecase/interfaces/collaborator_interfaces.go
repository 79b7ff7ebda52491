package interfaces

import (
	"context"

	"circletel_billing/internal/domain/entities"
)

//go:generate mockgen -source=collaborator_interfaces.go -destination=mocks/collaborator_interfaces_mock.go -package=mock_interfaces

// InvoiceNotification is the payload handed to the notification service.
type InvoiceNotification struct {
	Invoice       entities.Invoice `json:"invoice"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email"`
	CustomerPhone string           `json:"customer_phone,omitempty"`
	PaymentURL    string           `json:"payment_url,omitempty"`
}

// INotifier delivers a sent invoice to the customer. Best-effort.
type INotifier interface {
	SendInvoice(ctx context.Context, n InvoiceNotification) (delivered bool, err error)
}

// IPDFGenerator renders an invoice and returns where the document lives. Best-effort.
type IPDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, inv entities.Invoice) (url string, err error)
}

// ICRMSync pushes an invoice to the external CRM. Fire-and-forget.
type ICRMSync interface {
	SyncInvoice(ctx context.Context, inv entities.Invoice, svc entities.Service) (synced bool, err error)
}

// IEventPublisher emits invoice lifecycle events for downstream consumers.
type IEventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// IAlerter surfaces integrity problems for manual review.
type IAlerter interface {
	Alert(ctx context.Context, err error, details map[string]interface{})
}
