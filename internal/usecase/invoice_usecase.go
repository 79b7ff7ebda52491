package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

type SendOptions struct {
	// InitiatePayment creates a hosted payment link after the invoice is sent.
	InitiatePayment bool
	Provider        entities.ProviderType
}

// SendInvoiceResult reports the committed send plus the outcome of each best-effort step.
type SendInvoiceResult struct {
	Invoice               entities.Invoice `json:"invoice"`
	PDFGenerated          bool             `json:"pdf_generated"`
	NotificationDelivered bool             `json:"notification_delivered"`
	PaymentURL            string           `json:"payment_url,omitempty"`
	Errors                []string         `json:"errors,omitempty"`
}

type RefundRequest struct {
	Reason string
	// Manual records refunds paid out of band instead of calling the gateway.
	Manual bool
}

type RefundInvoiceResult struct {
	Invoice entities.Invoice              `json:"invoice"`
	Refunds []entities.PaymentTransaction `json:"refunds"`
}

type SweepResult struct {
	Checked    int      `json:"checked"`
	Marked     int      `json:"marked"`
	InvoiceIDs []string `json:"invoice_ids,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

type IInvoiceUseCase interface {
	Generate(ctx context.Context, req GenerateInvoiceRequest) (GenerateInvoiceResult, error)
	GetByID(ctx context.Context, id string) (entities.Invoice, error)
	List(ctx context.Context, filter entities.InvoiceFilter) ([]entities.Invoice, error)
	Send(ctx context.Context, id string, opts SendOptions) (SendInvoiceResult, error)
	Void(ctx context.Context, id, reason string) (entities.Invoice, error)
	Cancel(ctx context.Context, id, reason string) (entities.Invoice, error)
	Refund(ctx context.Context, id string, req RefundRequest) (RefundInvoiceResult, error)
	SweepOverdue(ctx context.Context, now time.Time) (SweepResult, error)
	AuditTrail(ctx context.Context, id string) ([]entities.AuditLogEntry, error)
}

// InvoiceCollaborators are the best-effort services around a send. Any of them may be nil.
type InvoiceCollaborators struct {
	PDF      interfaces.IPDFGenerator
	Notifier interfaces.INotifier
	Events   interfaces.IEventPublisher
	Payments IPaymentUseCase
}

type InvoiceUseCase struct {
	invoices     interfaces.IInvoiceRepository
	transactions interfaces.IPaymentTransactionRepository
	audit        interfaces.IAuditLogRepository
	uow          interfaces.IUnitOfWork
	services     interfaces.IServiceDirectory
	providers    interfaces.IPaymentProviderRegistry
	generator    IInvoiceGenerator
	collab       InvoiceCollaborators
	retries      uint64
	log          *logger.Logger
	now          func() time.Time
}

var _ IInvoiceUseCase = (*InvoiceUseCase)(nil)

func NewInvoiceUseCase(
	invoices interfaces.IInvoiceRepository,
	transactions interfaces.IPaymentTransactionRepository,
	audit interfaces.IAuditLogRepository,
	uow interfaces.IUnitOfWork,
	services interfaces.IServiceDirectory,
	providers interfaces.IPaymentProviderRegistry,
	generator IInvoiceGenerator,
	collab InvoiceCollaborators,
	log *logger.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		invoices:     invoices,
		transactions: transactions,
		audit:        audit,
		uow:          uow,
		services:     services,
		providers:    providers,
		generator:    generator,
		collab:       collab,
		retries:      defaultConflictRetries,
		log:          logger.OrNop(log).Named("invoices"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithConflictRetries overrides how many times a lost version race is retried.
func (u *InvoiceUseCase) WithConflictRetries(n uint64) *InvoiceUseCase {
	u.retries = n
	return u
}

func (u *InvoiceUseCase) Generate(ctx context.Context, req GenerateInvoiceRequest) (GenerateInvoiceResult, error) {
	return u.generator.Generate(ctx, req)
}

func (u *InvoiceUseCase) GetByID(ctx context.Context, id string) (entities.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Invoice{}, entities.Validationf("invoice id is required")
	}
	inv, err := u.invoices.GetByID(ctx, id)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.ID == "" {
		return entities.Invoice{}, errors.Wrapf(entities.ErrNotFound, "invoice %s", id)
	}
	return inv, nil
}

func (u *InvoiceUseCase) List(ctx context.Context, filter entities.InvoiceFilter) ([]entities.Invoice, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, entities.Validationf("unknown invoice status %q", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return u.invoices.List(ctx, filter)
}

// Send locks the draft, claims its number and then runs the best-effort steps. Only the commit
// can fail the call; PDF, payment link and notification problems are reported in the result.
func (u *InvoiceUseCase) Send(ctx context.Context, id string, opts SendOptions) (SendInvoiceResult, error) {
	sent, err := u.transition(ctx, id, entities.AuditInvoiceSent, "", true, func(inv *entities.Invoice, now time.Time) error {
		return inv.MarkSent(now)
	})
	if err != nil {
		return SendInvoiceResult{}, err
	}
	u.log.Infow("[billing][invoice] invoice sent", "invoice_id", sent.ID, "invoice_number", sent.InvoiceNumber)

	res := SendInvoiceResult{Invoice: sent}
	if u.collab.PDF != nil {
		if url, err := u.collab.PDF.GenerateInvoicePDF(ctx, sent); err != nil {
			u.log.Warnw("[billing][invoice] pdf generation failed", "invoice_id", sent.ID, "err", err)
			res.Errors = append(res.Errors, "pdf: "+err.Error())
		} else if url != "" {
			attached, err := u.attachPDF(ctx, sent.ID, url)
			if err != nil {
				u.log.Warnw("[billing][invoice] pdf attach failed", "invoice_id", sent.ID, "err", err)
				res.Errors = append(res.Errors, "pdf: "+err.Error())
			} else {
				res.Invoice = attached
				res.PDFGenerated = true
			}
		}
	}

	if opts.InitiatePayment && u.collab.Payments != nil {
		started, err := u.collab.Payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: sent.ID, Provider: opts.Provider})
		if err != nil {
			u.log.Warnw("[billing][invoice] payment link failed", "invoice_id", sent.ID, "err", err)
			res.Errors = append(res.Errors, "payment_link: "+err.Error())
		} else {
			res.PaymentURL = started.PaymentURL
		}
	}

	if u.collab.Notifier != nil {
		n := interfaces.InvoiceNotification{Invoice: res.Invoice, PaymentURL: res.PaymentURL}
		if u.services != nil && sent.ServiceID != "" {
			if svc, err := u.services.GetService(ctx, sent.ServiceID); err == nil {
				n.CustomerName, n.CustomerEmail, n.CustomerPhone = svc.CustomerName, svc.CustomerEmail, svc.CustomerPhone
			}
		}
		delivered, err := u.collab.Notifier.SendInvoice(ctx, n)
		if err != nil {
			u.log.Warnw("[billing][invoice] notification failed", "invoice_id", sent.ID, "err", err)
			res.Errors = append(res.Errors, "notification: "+err.Error())
		}
		res.NotificationDelivered = delivered
	}

	u.publish(ctx, entities.AuditInvoiceSent, res.Invoice)
	return res, nil
}

func (u *InvoiceUseCase) attachPDF(ctx context.Context, id, url string) (entities.Invoice, error) {
	var out entities.Invoice
	err := retryOnConflict(ctx, u.retries, func() error {
		inv, err := u.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := u.now()
		before := inv
		inv.PDFURL = url
		inv.UpdatedAt = now
		res, err := u.uow.Commit(ctx, entities.ChangeSet{
			Invoice: &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: before.Version},
			Audit:   []entities.AuditLogEntry{invoiceAudit(ctx, now, entities.AuditInvoicePDFAttached, &before, inv, "")},
		})
		if err != nil {
			return err
		}
		out = *res.Invoice
		return nil
	})
	return out, err
}

func (u *InvoiceUseCase) Void(ctx context.Context, id, reason string) (entities.Invoice, error) {
	inv, err := u.transition(ctx, id, entities.AuditInvoiceVoided, reason, false, func(inv *entities.Invoice, now time.Time) error {
		return inv.Void(now, reason)
	})
	if err != nil {
		return entities.Invoice{}, err
	}
	u.publish(ctx, entities.AuditInvoiceVoided, inv)
	return inv, nil
}

func (u *InvoiceUseCase) Cancel(ctx context.Context, id, reason string) (entities.Invoice, error) {
	inv, err := u.transition(ctx, id, entities.AuditInvoiceCancelled, reason, false, func(inv *entities.Invoice, now time.Time) error {
		return inv.Cancel(now, reason)
	})
	if err != nil {
		return entities.Invoice{}, err
	}
	u.publish(ctx, entities.AuditInvoiceCancelled, inv)
	return inv, nil
}

// transition re-reads the invoice, applies fn and commits it with one audit entry, retrying
// when another writer got there first.
func (u *InvoiceUseCase) transition(ctx context.Context, id, action, reason string, assignNumber bool, fn func(*entities.Invoice, time.Time) error) (entities.Invoice, error) {
	var out entities.Invoice
	err := retryOnConflict(ctx, u.retries, func() error {
		inv, err := u.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := u.now()
		before := inv
		if err := fn(&inv, now); err != nil {
			return err
		}
		res, err := u.uow.Commit(ctx, entities.ChangeSet{
			Invoice: &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: before.Version, AssignNumber: assignNumber},
			Audit:   []entities.AuditLogEntry{invoiceAudit(ctx, now, action, &before, inv, strings.TrimSpace(reason))},
		})
		if err != nil {
			return err
		}
		out = *res.Invoice
		return nil
	})
	if err != nil {
		u.log.Infow("[billing][invoice] transition rejected", "invoice_id", id, "action", action, "err", err)
		return entities.Invoice{}, err
	}
	return out, nil
}

// Refund returns every settled payment through a compensating negative transaction and closes
// the invoice as refunded. Gateway refunds run first; the invoice only changes once all succeed.
func (u *InvoiceUseCase) Refund(ctx context.Context, id string, req RefundRequest) (RefundInvoiceResult, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return RefundInvoiceResult{}, entities.Validationf("refund reason is required")
	}
	inv, err := u.GetByID(ctx, id)
	if err != nil {
		return RefundInvoiceResult{}, err
	}
	probe := inv
	if err := probe.MarkRefunded(u.now()); err != nil {
		return RefundInvoiceResult{}, err
	}

	txs, err := u.transactions.ListByInvoiceID(ctx, inv.ID)
	if err != nil {
		return RefundInvoiceResult{}, errors.Wrap(err, "load transactions")
	}
	settled := lo.Filter(txs, func(tx entities.PaymentTransaction, _ int) bool {
		return tx.Kind == entities.TransactionKindPayment && tx.Status == entities.TransactionCompleted
	})
	if len(settled) == 0 {
		return RefundInvoiceResult{}, entities.Validationf("invoice %s has no completed payments to refund", inv.ID)
	}

	gatewayRefs := map[string]interfaces.RefundResult{}
	if !req.Manual {
		for _, tx := range settled {
			p, err := u.providers.Get(tx.Provider)
			if err != nil {
				return RefundInvoiceResult{}, err
			}
			if !p.Capabilities().Refunds {
				return RefundInvoiceResult{}, errors.Wrapf(entities.ErrNotSupported,
					"%s does not support refunds; record a manual refund instead", tx.Provider)
			}
			refunded, err := p.Refund(ctx, tx.ProviderReference, tx.AmountCents)
			if err != nil {
				u.log.Errorw("[billing][invoice] gateway refund failed", "invoice_id", inv.ID, "transaction_id", tx.ID,
					"refunded_so_far", len(gatewayRefs), "err", err)
				return RefundInvoiceResult{}, entities.External("refund "+string(tx.Provider)+" payment", err)
			}
			gatewayRefs[tx.ID] = refunded
		}
	}

	var out RefundInvoiceResult
	err = retryOnConflict(ctx, u.retries, func() error {
		current, err := u.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := u.now()
		before := current
		if err := current.MarkRefunded(now); err != nil {
			return err
		}
		cs := entities.ChangeSet{
			Invoice: &entities.InvoiceWrite{Invoice: current, ExpectedVersion: before.Version},
			Audit:   []entities.AuditLogEntry{invoiceAudit(ctx, now, entities.AuditInvoiceRefunded, &before, current, reason)},
		}
		for _, orig := range settled {
			latest, err := u.transactions.GetByID(ctx, orig.ID)
			if err != nil {
				return err
			}
			txBefore := latest
			if err := latest.MoveTo(entities.TransactionRefunded, now); err != nil {
				return err
			}
			cs.Transactions = append(cs.Transactions, entities.TransactionWrite{Transaction: latest, ExpectedVersion: txBefore.Version})
			cs.Audit = append(cs.Audit, transactionAudit(ctx, now, entities.AuditTransactionRefunded, &txBefore, latest, reason))

			refund := compensatingTransaction(latest, gatewayRefs[latest.ID], now)
			cs.Transactions = append(cs.Transactions, entities.TransactionWrite{Transaction: refund, Create: true})
			cs.Audit = append(cs.Audit, transactionAudit(ctx, now, entities.AuditTransactionRefunded, nil, refund, reason))
		}
		res, err := u.uow.Commit(ctx, cs)
		if err != nil {
			return err
		}
		out = RefundInvoiceResult{
			Invoice: *res.Invoice,
			Refunds: lo.Filter(res.Transactions, func(tx entities.PaymentTransaction, _ int) bool {
				return tx.Kind == entities.TransactionKindRefund
			}),
		}
		return nil
	})
	if err != nil {
		if len(gatewayRefs) > 0 {
			u.log.Errorw("[billing][invoice] gateway refunded but commit failed", "invoice_id", inv.ID,
				"refunds", len(gatewayRefs), "err", err)
		}
		return RefundInvoiceResult{}, err
	}
	u.log.Infow("[billing][invoice] invoice refunded", "invoice_id", inv.ID, "refunds", len(out.Refunds), "manual", req.Manual)
	u.publish(ctx, entities.AuditInvoiceRefunded, out.Invoice)
	return out, nil
}

func compensatingTransaction(orig entities.PaymentTransaction, gw interfaces.RefundResult, now time.Time) entities.PaymentTransaction {
	ref := gw.ProviderReference
	if ref == "" || ref == orig.ProviderReference {
		ref = orig.ProviderReference + "-R"
	}
	status := gw.Status
	if status == "" || status == entities.TransactionRefunded {
		status = entities.TransactionCompleted
	}
	amount := gw.AmountCents
	if amount == 0 {
		amount = orig.AmountCents
	}
	refund := entities.PaymentTransaction{
		ID:                uuid.NewString(),
		InvoiceID:         orig.InvoiceID,
		Provider:          orig.Provider,
		ProviderReference: ref,
		Kind:              entities.TransactionKindRefund,
		AmountCents:       -amount.Abs(),
		Currency:          orig.Currency,
		Status:            status,
		InitiatedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if status == entities.TransactionCompleted {
		refund.CompletedAt = &now
	}
	return refund
}

// SweepOverdue persists the overdue state for sent and partial invoices past their due date.
func (u *InvoiceUseCase) SweepOverdue(ctx context.Context, now time.Time) (SweepResult, error) {
	if now.IsZero() {
		now = u.now()
	}
	cutoff := now.UTC()
	var res SweepResult
	for _, status := range []entities.InvoiceStatus{entities.InvoiceStatusSent, entities.InvoiceStatusPartial} {
		list, err := u.invoices.List(ctx, entities.InvoiceFilter{Status: status, DueBefore: &cutoff})
		if err != nil {
			return res, errors.Wrapf(err, "list %s invoices", status)
		}
		for _, inv := range list {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			res.Checked++
			if inv.EffectiveStatus(now) != entities.InvoiceStatusOverdue {
				continue
			}
			_, err := u.transition(ctx, inv.ID, entities.AuditInvoiceOverdue, "", false, func(i *entities.Invoice, _ time.Time) error {
				return i.MarkOverdue(now)
			})
			switch {
			case err == nil:
				res.Marked++
				res.InvoiceIDs = append(res.InvoiceIDs, inv.ID)
			case errors.Is(err, entities.ErrInvalidStateTransition):
				// paid or refunded since it was listed
			default:
				res.Errors = append(res.Errors, inv.ID+": "+err.Error())
			}
		}
	}
	u.log.Infow("[billing][invoice] overdue sweep finished", "checked", res.Checked, "marked", res.Marked, "errors", len(res.Errors))
	return res, nil
}

// AuditTrail returns the invoice's entries and those of its payment transactions, oldest first.
func (u *InvoiceUseCase) AuditTrail(ctx context.Context, id string) ([]entities.AuditLogEntry, error) {
	inv, err := u.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := u.audit.ListByResource(ctx, entities.ResourceInvoice, inv.ID)
	if err != nil {
		return nil, err
	}
	txs, err := u.transactions.ListByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		more, err := u.audit.ListByResource(ctx, entities.ResourceTransaction, tx.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, more...)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (u *InvoiceUseCase) publish(ctx context.Context, event string, inv entities.Invoice) {
	if u.collab.Events == nil {
		return
	}
	payload := map[string]interface{}{
		"event":      event,
		"invoice":    inv,
		"actor":      ActorFrom(ctx),
		"emitted_at": u.now(),
	}
	if err := u.collab.Events.Publish(ctx, inv.ID, payload); err != nil {
		u.log.Warnw("[billing][invoice] event publish failed", "invoice_id", inv.ID, "event", event, "err", err)
	}
}
