package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

type InitiatePaymentRequest struct {
	InvoiceID string
	// Provider defaults to the registry's default gateway.
	Provider entities.ProviderType
	// AmountCents defaults to the invoice's amount due.
	AmountCents money.Cents
}

type InitiatePaymentResult struct {
	Transaction entities.PaymentTransaction `json:"transaction"`
	PaymentURL  string                      `json:"payment_url"`
	FormFields  map[string]string           `json:"form_fields,omitempty"`
}

type IPaymentUseCase interface {
	Initiate(ctx context.Context, req InitiatePaymentRequest) (InitiatePaymentResult, error)
	Sync(ctx context.Context, transactionID string) (ReconcileResult, error)
	ListForInvoice(ctx context.Context, invoiceID string) ([]entities.PaymentTransaction, error)
	GetTransaction(ctx context.Context, id string) (entities.PaymentTransaction, error)
}

type PaymentUseCase struct {
	invoices     interfaces.IInvoiceRepository
	transactions interfaces.IPaymentTransactionRepository
	uow          interfaces.IUnitOfWork
	services     interfaces.IServiceDirectory
	providers    interfaces.IPaymentProviderRegistry
	reconciler   IWebhookReconciliationUseCase
	log          *logger.Logger
	now          func() time.Time
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

func NewPaymentUseCase(
	invoices interfaces.IInvoiceRepository,
	transactions interfaces.IPaymentTransactionRepository,
	uow interfaces.IUnitOfWork,
	services interfaces.IServiceDirectory,
	providers interfaces.IPaymentProviderRegistry,
	reconciler IWebhookReconciliationUseCase,
	log *logger.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		invoices:     invoices,
		transactions: transactions,
		uow:          uow,
		services:     services,
		providers:    providers,
		reconciler:   reconciler,
		log:          logger.OrNop(log).Named("payments"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Initiate asks a gateway for a hosted payment page and records the attempt as an initiated
// transaction. The invoice itself is not touched until the gateway confirms.
func (u *PaymentUseCase) Initiate(ctx context.Context, req InitiatePaymentRequest) (InitiatePaymentResult, error) {
	invoiceID := strings.TrimSpace(req.InvoiceID)
	if invoiceID == "" {
		return InitiatePaymentResult{}, entities.Validationf("invoice_id is required")
	}
	inv, err := u.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return InitiatePaymentResult{}, errors.Wrap(err, "load invoice")
	}
	if inv.ID == "" {
		return InitiatePaymentResult{}, errors.Wrapf(entities.ErrNotFound, "invoice %s", invoiceID)
	}
	if !inv.Status.IsPayable() || inv.AmountDue() <= 0 {
		return InitiatePaymentResult{}, errors.Wrapf(entities.ErrInvoiceNotPayable, "invoice %s is %s with %d due", inv.ID, inv.Status, inv.AmountDue())
	}

	amount := req.AmountCents
	if amount == 0 {
		amount = inv.AmountDue()
	}
	if amount < 0 {
		return InitiatePaymentResult{}, entities.Validationf("amount must be positive")
	}
	if amount > inv.AmountDue() {
		return InitiatePaymentResult{}, entities.Validationf("amount %s exceeds amount due %s",
			money.Format(amount, inv.Currency), money.Format(inv.AmountDue(), inv.Currency))
	}

	name := req.Provider
	if name == "" {
		name = u.providers.Default()
	}
	p, err := u.providers.Get(name)
	if err != nil {
		return InitiatePaymentResult{}, err
	}

	init := interfaces.PaymentInitiation{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Description:   fmt.Sprintf("CircleTel invoice %s", inv.InvoiceNumber),
		AmountCents:   amount,
		Currency:      inv.Currency,
	}
	if u.services != nil && inv.ServiceID != "" {
		svc, err := u.services.GetService(ctx, inv.ServiceID)
		if err != nil {
			u.log.Warnw("[payment][usecase] customer lookup failed", "invoice_id", inv.ID, "service_id", inv.ServiceID, "err", err)
		}
		init.CustomerName = svc.CustomerName
		init.CustomerEmail = svc.CustomerEmail
	}

	u.log.Infow("[payment][usecase] initiating payment", "invoice_id", inv.ID, "provider", name, "amount_cents", amount)
	started, err := p.InitiatePayment(ctx, init)
	if err != nil {
		u.log.Errorw("[payment][usecase] gateway initiation failed", "invoice_id", inv.ID, "provider", name, "err", err)
		return InitiatePaymentResult{}, entities.External(fmt.Sprintf("initiate %s payment", name), err)
	}
	if strings.TrimSpace(started.ProviderReference) == "" {
		return InitiatePaymentResult{}, entities.External(fmt.Sprintf("initiate %s payment", name), errors.New("gateway returned no reference"))
	}

	now := u.now()
	tx := entities.PaymentTransaction{
		ID:                uuid.NewString(),
		InvoiceID:         inv.ID,
		Provider:          p.Name(),
		ProviderReference: started.ProviderReference,
		Kind:              entities.TransactionKindPayment,
		AmountCents:       amount,
		Currency:          inv.Currency,
		Status:            entities.TransactionInitiated,
		PaymentURL:        started.PaymentURL,
		InitiatedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	res, err := u.uow.Commit(ctx, entities.ChangeSet{
		Transactions: []entities.TransactionWrite{{Transaction: tx, Create: true}},
		Audit:        []entities.AuditLogEntry{transactionAudit(ctx, now, entities.AuditTransactionInitiated, nil, tx, "")},
	})
	if err != nil {
		return InitiatePaymentResult{}, errors.Wrap(err, "record payment transaction")
	}
	if len(res.Transactions) > 0 {
		tx = res.Transactions[0]
	}
	u.log.Infow("[payment][usecase] payment initiated", "invoice_id", inv.ID, "transaction_id", tx.ID, "reference", tx.ProviderReference)
	return InitiatePaymentResult{Transaction: tx, PaymentURL: started.PaymentURL, FormFields: started.FormFields}, nil
}

// Sync polls the gateway for a transaction and applies the answer like a webhook would.
func (u *PaymentUseCase) Sync(ctx context.Context, transactionID string) (ReconcileResult, error) {
	tx, err := u.GetTransaction(ctx, transactionID)
	if err != nil {
		return ReconcileResult{}, err
	}
	p, err := u.providers.Get(tx.Provider)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !p.Capabilities().StatusQueries {
		return ReconcileResult{}, errors.Wrapf(entities.ErrNotSupported, "%s does not support status queries", tx.Provider)
	}

	result, err := p.QueryStatus(ctx, tx.ProviderReference)
	if err != nil {
		return ReconcileResult{}, entities.External(fmt.Sprintf("query %s status", tx.Provider), err)
	}
	if result.Provider == "" {
		result.Provider = tx.Provider
	}
	if result.ProviderReference == "" {
		result.ProviderReference = tx.ProviderReference
	}
	return u.reconciler.Apply(ctx, result)
}

func (u *PaymentUseCase) ListForInvoice(ctx context.Context, invoiceID string) ([]entities.PaymentTransaction, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, entities.Validationf("invoice_id is required")
	}
	inv, err := u.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.ID == "" {
		return nil, errors.Wrapf(entities.ErrNotFound, "invoice %s", invoiceID)
	}
	return u.transactions.ListByInvoiceID(ctx, invoiceID)
}

func (u *PaymentUseCase) GetTransaction(ctx context.Context, id string) (entities.PaymentTransaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.PaymentTransaction{}, entities.Validationf("transaction_id is required")
	}
	tx, err := u.transactions.GetByID(ctx, id)
	if err != nil {
		return entities.PaymentTransaction{}, err
	}
	if tx.ID == "" {
		return entities.PaymentTransaction{}, errors.Wrapf(entities.ErrNotFound, "payment transaction %s", id)
	}
	return tx, nil
}
