package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// ReconcileOutcome says what a gateway result did to the stored state.
type ReconcileOutcome string

const (
	OutcomeApplied       ReconcileOutcome = "applied"
	OutcomeDuplicate     ReconcileOutcome = "duplicate"
	OutcomeIgnored       ReconcileOutcome = "ignored"
	OutcomeMarkedPending ReconcileOutcome = "marked_pending"
	OutcomeMarkedFailed  ReconcileOutcome = "marked_failed"
	OutcomeFlagged       ReconcileOutcome = "flagged"
)

type ReconcileResult struct {
	Outcome           ReconcileOutcome            `json:"outcome"`
	TransactionID     string                      `json:"transaction_id,omitempty"`
	TransactionStatus entities.TransactionStatus  `json:"transaction_status,omitempty"`
	InvoiceID         string                      `json:"invoice_id,omitempty"`
	InvoiceStatus     entities.InvoiceStatus      `json:"invoice_status,omitempty"`
	Flag              entities.ReconciliationFlag `json:"flag,omitempty"`
}

type IWebhookReconciliationUseCase interface {
	HandleWebhook(ctx context.Context, provider string, payload []byte, headers map[string]string) (ReconcileResult, error)
	Apply(ctx context.Context, result entities.CanonicalPaymentResult) (ReconcileResult, error)
}

type WebhookReconciliationUseCase struct {
	invoices     interfaces.IInvoiceRepository
	transactions interfaces.IPaymentTransactionRepository
	uow          interfaces.IUnitOfWork
	providers    interfaces.IPaymentProviderRegistry
	alerter      interfaces.IAlerter
	retries      uint64
	log          *logger.Logger
	now          func() time.Time
}

var _ IWebhookReconciliationUseCase = (*WebhookReconciliationUseCase)(nil)

func NewWebhookReconciliationUseCase(
	invoices interfaces.IInvoiceRepository,
	transactions interfaces.IPaymentTransactionRepository,
	uow interfaces.IUnitOfWork,
	providers interfaces.IPaymentProviderRegistry,
	alerter interfaces.IAlerter,
	log *logger.Logger,
) *WebhookReconciliationUseCase {
	return &WebhookReconciliationUseCase{
		invoices:     invoices,
		transactions: transactions,
		uow:          uow,
		providers:    providers,
		alerter:      alerter,
		retries:      defaultConflictRetries,
		log:          logger.OrNop(log).Named("reconciliation"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithConflictRetries overrides how many times a lost version race is retried.
func (u *WebhookReconciliationUseCase) WithConflictRetries(n uint64) *WebhookReconciliationUseCase {
	u.retries = n
	return u
}

// HandleWebhook verifies, parses and applies one gateway callback. Nothing is read or written
// before the signature has been checked.
func (u *WebhookReconciliationUseCase) HandleWebhook(ctx context.Context, provider string, payload []byte, headers map[string]string) (ReconcileResult, error) {
	name := entities.ProviderType(strings.ToLower(strings.TrimSpace(provider)))
	p, err := u.providers.Get(name)
	if err != nil {
		return ReconcileResult{}, err
	}

	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	if !p.VerifyWebhookSignature(payload, lowered) {
		u.log.Warnw("[payment][webhook] signature rejected", "provider", name, "payload_len", len(payload))
		return ReconcileResult{}, errors.Wrapf(entities.ErrInvalidSignature, "provider %s", name)
	}

	result, err := p.ParseWebhook(ctx, payload)
	if err != nil {
		u.log.Warnw("[payment][webhook] parse failed", "provider", name, "err", err)
		if entities.Classify(err) == entities.ClassFatal {
			return ReconcileResult{}, entities.Validationf("parse %s webhook: %v", name, err)
		}
		return ReconcileResult{}, err
	}
	if result.Provider == "" {
		result.Provider = name
	}
	if len(result.Raw) == 0 {
		result.Raw = rawPayload(payload)
	}
	return u.Apply(ctx, result)
}

// Apply moves the transaction forward according to a canonical gateway result. Webhooks and
// status polls share it, so redelivery and polling after a webhook are both no-ops.
func (u *WebhookReconciliationUseCase) Apply(ctx context.Context, result entities.CanonicalPaymentResult) (ReconcileResult, error) {
	ref := strings.TrimSpace(result.ProviderReference)
	if ref == "" {
		return ReconcileResult{}, entities.Validationf("provider reference is required")
	}

	var out ReconcileResult
	err := retryOnConflict(ctx, u.retries, func() error {
		var err error
		out, err = u.apply(ctx, result, ref)
		return err
	})
	if err != nil {
		if entities.Classify(err) == entities.ClassIntegrity {
			u.alert(ctx, err, result, out)
		}
		return out, err
	}
	u.log.Infow("[payment][reconcile] result applied", "provider", result.Provider, "reference", ref,
		"outcome", out.Outcome, "transaction_id", out.TransactionID, "invoice_status", out.InvoiceStatus)
	return out, nil
}

func (u *WebhookReconciliationUseCase) apply(ctx context.Context, result entities.CanonicalPaymentResult, ref string) (ReconcileResult, error) {
	tx, err := u.transactions.GetByProviderReference(ctx, result.Provider, ref)
	if err != nil {
		return ReconcileResult{}, errors.Wrap(err, "load transaction")
	}
	if tx.ID == "" {
		return ReconcileResult{}, errors.Wrapf(entities.ErrUnknownTransaction, "provider %s reference %s", result.Provider, ref)
	}
	out := ReconcileResult{TransactionID: tx.ID, TransactionStatus: tx.Status, InvoiceID: tx.InvoiceID}

	switch {
	case result.Status == entities.TransactionInitiated || result.Status == entities.TransactionRefunded:
		out.Outcome = OutcomeIgnored
		return out, nil

	case tx.Status == entities.TransactionCompleted && result.Status == entities.TransactionCompleted:
		out.Outcome = OutcomeDuplicate
		return u.withInvoiceStatus(ctx, out)

	case tx.Status == entities.TransactionFailed && result.Status == entities.TransactionCompleted:
		return u.flag(ctx, tx, out, entities.FlagCompletedAfterFailure, result,
			errors.Wrapf(entities.ErrCompletedAfterFailure, "transaction %s", tx.ID))

	case tx.Status.IsFinal():
		out.Outcome = OutcomeIgnored
		return out, nil

	case result.Status == entities.TransactionPending:
		if tx.Status == entities.TransactionPending {
			out.Outcome = OutcomeDuplicate
			return out, nil
		}
		return u.moveTransaction(ctx, tx, out, result, entities.TransactionPending, entities.AuditTransactionPending, OutcomeMarkedPending)

	case result.Status == entities.TransactionFailed:
		return u.moveTransaction(ctx, tx, out, result, entities.TransactionFailed, entities.AuditTransactionFailed, OutcomeMarkedFailed)

	case result.Status == entities.TransactionCompleted:
		return u.complete(ctx, tx, out, result)
	}
	return out, entities.Validationf("unsupported gateway status %q", result.Status)
}

func (u *WebhookReconciliationUseCase) complete(ctx context.Context, tx entities.PaymentTransaction, out ReconcileResult, result entities.CanonicalPaymentResult) (ReconcileResult, error) {
	inv, err := u.invoices.GetByID(ctx, tx.InvoiceID)
	if err != nil {
		return out, errors.Wrap(err, "load invoice")
	}
	if inv.ID == "" {
		return out, errors.Wrapf(entities.ErrNotFound, "invoice %s for transaction %s", tx.InvoiceID, tx.ID)
	}
	out.InvoiceStatus = inv.Status

	switch {
	case result.AmountCents != tx.AmountCents:
		return u.flag(ctx, tx, out, entities.FlagAmountMismatch, result, errors.Wrapf(entities.ErrAmountMismatch,
			"transaction %s expected %d got %d", tx.ID, tx.AmountCents, result.AmountCents))
	case !inv.Status.IsPayable():
		return u.flag(ctx, tx, out, entities.FlagInvoiceNotPayable, result, errors.Wrapf(entities.ErrInvoiceNotPayable,
			"invoice %s is %s", inv.ID, inv.Status))
	case result.AmountCents > inv.AmountDue():
		return u.flag(ctx, tx, out, entities.FlagOverpayment, result, errors.Wrapf(entities.ErrOverpayment,
			"invoice %s due %d got %d", inv.ID, inv.AmountDue(), result.AmountCents))
	}

	now := u.now()
	txBefore, invBefore := tx, inv
	if err := tx.MoveTo(entities.TransactionCompleted, now); err != nil {
		return out, err
	}
	if !result.OccurredAt.IsZero() {
		occurred := result.OccurredAt.UTC()
		tx.CompletedAt = &occurred
	}
	tx.RawPayload = result.Raw
	var resolution string
	if prev := tx.ResolveFlag(); prev != "" {
		resolution = "resolves " + string(prev) + " flag"
	}
	if err := inv.ApplyPayment(result.AmountCents, now); err != nil {
		return out, err
	}

	res, err := u.uow.Commit(ctx, entities.ChangeSet{
		Invoice:      &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: invBefore.Version},
		Transactions: []entities.TransactionWrite{{Transaction: tx, ExpectedVersion: txBefore.Version}},
		Audit: []entities.AuditLogEntry{
			transactionAudit(ctx, now, entities.AuditTransactionCompleted, &txBefore, tx, resolution),
			invoiceAudit(ctx, now, entities.AuditInvoicePayment, &invBefore, inv, ""),
		},
	})
	if err != nil {
		return out, err
	}
	out.Outcome = OutcomeApplied
	out.TransactionStatus = entities.TransactionCompleted
	out.InvoiceStatus = res.Invoice.Status
	return out, nil
}

func (u *WebhookReconciliationUseCase) moveTransaction(ctx context.Context, tx entities.PaymentTransaction, out ReconcileResult, result entities.CanonicalPaymentResult, next entities.TransactionStatus, action string, outcome ReconcileOutcome) (ReconcileResult, error) {
	now := u.now()
	before := tx
	if err := tx.MoveTo(next, now); err != nil {
		return out, err
	}
	if next == entities.TransactionFailed {
		tx.FailureReason = result.FailureReason
	}
	if len(result.Raw) > 0 {
		tx.RawPayload = result.Raw
	}
	if _, err := u.uow.Commit(ctx, entities.ChangeSet{
		Transactions: []entities.TransactionWrite{{Transaction: tx, ExpectedVersion: before.Version}},
		Audit:        []entities.AuditLogEntry{transactionAudit(ctx, now, action, &before, tx, result.FailureReason)},
	}); err != nil {
		return out, err
	}
	out.Outcome = outcome
	out.TransactionStatus = next
	return u.withInvoiceStatus(ctx, out)
}

// flag records the integrity problem on the transaction once and returns cause. The transaction
// status and the invoice are left as they were.
func (u *WebhookReconciliationUseCase) flag(ctx context.Context, tx entities.PaymentTransaction, out ReconcileResult, flag entities.ReconciliationFlag, result entities.CanonicalPaymentResult, cause error) (ReconcileResult, error) {
	out.Outcome = OutcomeFlagged
	out.Flag = flag
	if tx.Flag == flag && tx.FlaggedCents == result.AmountCents {
		return out, cause
	}

	now := u.now()
	before := tx
	tx.FlagForReview(flag, result.AmountCents, now)
	if _, err := u.uow.Commit(ctx, entities.ChangeSet{
		Transactions: []entities.TransactionWrite{{Transaction: tx, ExpectedVersion: before.Version}},
		Audit:        []entities.AuditLogEntry{transactionAudit(ctx, now, entities.AuditTransactionFlagged, &before, tx, cause.Error())},
	}); err != nil {
		if errors.Is(err, entities.ErrVersionConflict) {
			return out, err
		}
		u.log.Errorw("[payment][reconcile] failed to persist review flag", "transaction_id", tx.ID, "flag", flag, "err", err)
	}
	u.log.Warnw("[payment][reconcile] transaction flagged for review", "transaction_id", tx.ID, "flag", flag,
		"amount_cents", result.AmountCents, "expected_cents", tx.AmountCents)
	return out, cause
}

func (u *WebhookReconciliationUseCase) withInvoiceStatus(ctx context.Context, out ReconcileResult) (ReconcileResult, error) {
	inv, err := u.invoices.GetByID(ctx, out.InvoiceID)
	if err != nil {
		return out, errors.Wrap(err, "load invoice")
	}
	out.InvoiceStatus = inv.Status
	return out, nil
}

func (u *WebhookReconciliationUseCase) alert(ctx context.Context, err error, result entities.CanonicalPaymentResult, out ReconcileResult) {
	u.log.Errorw("[payment][reconcile] integrity error", "provider", result.Provider, "reference", result.ProviderReference,
		"amount_cents", result.AmountCents, "status", result.Status, "err", err)
	if u.alerter == nil {
		return
	}
	u.alerter.Alert(ctx, err, map[string]interface{}{
		"provider":       string(result.Provider),
		"reference":      result.ProviderReference,
		"amount_cents":   int64(result.AmountCents),
		"gateway_status": string(result.Status),
		"transaction_id": out.TransactionID,
		"invoice_id":     out.InvoiceID,
		"flag":           string(out.Flag),
	})
}

// rawPayload keeps JSON payloads as they arrived and stores anything else as a JSON string.
func rawPayload(payload []byte) json.RawMessage {
	if len(payload) == 0 {
		return nil
	}
	if json.Valid(payload) {
		return append(json.RawMessage(nil), payload...)
	}
	return snapshot(string(payload))
}
