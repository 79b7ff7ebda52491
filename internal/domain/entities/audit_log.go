package entities

import (
	"encoding/json"
	"time"
)

const ActorSystem = "system"

// Audit actions.
const (
	AuditInvoiceCreated     = "invoice.created"
	AuditInvoiceSent        = "invoice.sent"
	AuditInvoiceVoided      = "invoice.voided"
	AuditInvoiceCancelled   = "invoice.cancelled"
	AuditInvoicePayment     = "invoice.payment_applied"
	AuditInvoiceOverdue     = "invoice.overdue"
	AuditInvoiceRefunded    = "invoice.refunded"
	AuditInvoicePDFAttached = "invoice.pdf_attached"

	AuditTransactionInitiated = "payment_transaction.initiated"
	AuditTransactionPending   = "payment_transaction.pending"
	AuditTransactionCompleted = "payment_transaction.completed"
	AuditTransactionFailed    = "payment_transaction.failed"
	AuditTransactionRefunded  = "payment_transaction.refunded"
	AuditTransactionFlagged   = "payment_transaction.flagged"
)

type ResourceType string

const (
	ResourceInvoice     ResourceType = "invoice"
	ResourceTransaction ResourceType = "payment_transaction"
)

// AuditLogEntry is an append-only record of one state change.
type AuditLogEntry struct {
	ID           string          `json:"id"`
	Actor        string          `json:"actor"`
	Action       string          `json:"action"`
	ResourceType ResourceType    `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
