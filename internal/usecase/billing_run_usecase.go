package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// Per-service error codes reported in a billing run.
const (
	ErrorCodeDuplicateInvoice   = "DUPLICATE_INVOICE"
	ErrorCodeServiceNotEligible = "SERVICE_NOT_ELIGIBLE"
	ErrorCodeTimeout            = "TIMEOUT"
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)

type BillingRunSettings struct {
	Workers        int
	ServiceTimeout time.Duration
	// AutoSend sends each new invoice straight away; PaymentLink and CRMSync follow it.
	AutoSend    bool
	PaymentLink bool
	CRMSync     bool
}

type IBillingRunUseCase interface {
	Run(ctx context.Context, req entities.BillingRunRequest) (entities.BillingRun, error)
	ListRecent(ctx context.Context, limit int) ([]entities.BillingRun, error)
}

type BillingRunUseCase struct {
	services  interfaces.IServiceDirectory
	generator IInvoiceGenerator
	invoices  IInvoiceUseCase
	crm       interfaces.ICRMSync
	runs      interfaces.IBillingRunRepository
	settings  BillingRunSettings
	log       *logger.Logger
	now       func() time.Time
}

var _ IBillingRunUseCase = (*BillingRunUseCase)(nil)

func NewBillingRunUseCase(
	services interfaces.IServiceDirectory,
	generator IInvoiceGenerator,
	invoices IInvoiceUseCase,
	crm interfaces.ICRMSync,
	runs interfaces.IBillingRunRepository,
	settings BillingRunSettings,
	log *logger.Logger,
) *BillingRunUseCase {
	if settings.Workers <= 0 {
		settings.Workers = 4
	}
	if settings.ServiceTimeout <= 0 {
		settings.ServiceTimeout = 12 * time.Second
	}
	return &BillingRunUseCase{
		services:  services,
		generator: generator,
		invoices:  invoices,
		crm:       crm,
		runs:      runs,
		settings:  settings,
		log:       logger.OrNop(log).Named("billing-run"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run bills every matching service independently. A failure for one service is recorded in its
// result and never stops or rolls back the others; re-running a period only retries the failures
// because already-billed services hit the duplicate guard.
func (u *BillingRunUseCase) Run(ctx context.Context, req entities.BillingRunRequest) (entities.BillingRun, error) {
	if !entities.ValidBillingDay(req.BillingDay) {
		return entities.BillingRun{}, entities.Validationf("billing_day must be between 1 and 28, got %d", req.BillingDay)
	}
	started := u.now()
	period := strings.TrimSpace(req.Period)
	if period == "" {
		period = entities.BillingPeriodOf(started)
	}
	if _, _, err := entities.ParseBillingPeriod(period); err != nil {
		return entities.BillingRun{}, err
	}
	ctx = WithActor(ctx, req.Actor)

	services, err := u.services.ListBillableServices(ctx, entities.ServiceFilter{
		BillingDay: req.BillingDay,
		CustomerID: strings.TrimSpace(req.CustomerID),
		ServiceID:  strings.TrimSpace(req.ServiceID),
	})
	if err != nil {
		return entities.BillingRun{}, errors.Wrap(err, "list billable services")
	}

	run := entities.BillingRun{
		RunID:       ulid.Make().String(),
		BillingDay:  req.BillingDay,
		Period:      period,
		DryRun:      req.DryRun,
		TriggeredBy: ActorFrom(ctx),
		StartedAt:   started,
		Results:     make([]entities.ServiceBillingResult, len(services)),
	}
	u.log.Infow("[billing][run] started", "run_id", run.RunID, "billing_day", req.BillingDay, "period", period,
		"services", len(services), "dry_run", req.DryRun)

	p := pool.New().WithMaxGoroutines(u.settings.Workers)
	for i, svc := range services {
		i, svc := i, svc
		p.Go(func() {
			run.Results[i] = u.billService(ctx, svc, period, req)
		})
	}
	p.Wait()

	run.FinishedAt = u.now()
	run.Summarise()
	u.log.Infow("[billing][run] finished", "run_id", run.RunID, "successful", run.Summary.Successful,
		"failed", run.Summary.Failed, "skipped", run.Summary.Skipped)

	if !req.DryRun && u.runs != nil {
		if err := u.runs.Save(ctx, run); err != nil {
			u.log.Warnw("[billing][run] failed to record run", "run_id", run.RunID, "err", err)
		}
	}
	return run, nil
}

func (u *BillingRunUseCase) billService(ctx context.Context, svc entities.Service, period string, req entities.BillingRunRequest) (res entities.ServiceBillingResult) {
	res = entities.ServiceBillingResult{ServiceID: svc.ID, CustomerID: svc.CustomerID}
	defer func() {
		if r := recover(); r != nil {
			u.log.Errorw("[billing][run] service panicked", "service_id", svc.ID, "panic", r)
			res.Success = false
			res.ErrorCode = ErrorCodeInternal
			res.Errors = append(res.Errors, fmt.Sprintf("panic: %v", r))
		}
	}()

	gctx, cancel := context.WithTimeout(ctx, u.settings.ServiceTimeout)
	gen, err := u.generator.GenerateForService(gctx, svc, period, req.DryRun)
	cancel()
	if err != nil {
		res.ErrorCode = errorCode(err)
		res.Errors = []string{err.Error()}
		u.log.Infow("[billing][run] service failed", "service_id", svc.ID, "code", res.ErrorCode, "err", err)
		return res
	}

	res.Success = true
	res.TotalCents = gen.Invoice.TotalCents
	switch {
	case gen.Skipped:
		res.Skipped = true
		res.SkipReason = gen.SkipReason
		return res
	case req.DryRun:
		preview := gen.Invoice
		res.Preview = &preview
		return res
	}
	res.InvoiceID = gen.Invoice.ID

	sctx, cancel := context.WithTimeout(ctx, u.settings.ServiceTimeout)
	defer cancel()

	invoice := gen.Invoice
	if u.settings.AutoSend && !req.SkipSend && u.invoices != nil {
		sent, err := u.invoices.Send(sctx, gen.Invoice.ID, SendOptions{InitiatePayment: u.settings.PaymentLink && !req.SkipPaymentLink})
		if err != nil {
			res.Errors = append(res.Errors, "send: "+err.Error())
		} else {
			invoice = sent.Invoice
			res.Sent = true
			res.InvoiceNumber = sent.Invoice.InvoiceNumber
			res.NotificationDelivered = sent.NotificationDelivered
			res.PaymentURL = sent.PaymentURL
			res.Errors = append(res.Errors, sent.Errors...)
		}
	}

	if u.settings.CRMSync && !req.SkipCRMSync && u.crm != nil {
		synced, err := u.crm.SyncInvoice(sctx, invoice, svc)
		if err != nil {
			u.log.Warnw("[billing][run] crm sync failed", "service_id", svc.ID, "invoice_id", invoice.ID, "err", err)
			res.Errors = append(res.Errors, "crm: "+err.Error())
		}
		res.CRMSynced = synced
	}
	return res
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, entities.ErrDuplicateInvoice):
		return ErrorCodeDuplicateInvoice
	case errors.Is(err, entities.ErrServiceNotEligible):
		return ErrorCodeServiceNotEligible
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	case errors.Is(err, entities.ErrValidation):
		return ErrorCodeValidation
	}
	return ErrorCodeInternal
}

func (u *BillingRunUseCase) ListRecent(ctx context.Context, limit int) ([]entities.BillingRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.runs.ListRecent(ctx, limit)
}
