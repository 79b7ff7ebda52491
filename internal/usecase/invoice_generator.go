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

// GeneratorSettings are the billing defaults applied when a service does not override them.
type GeneratorSettings struct {
	TaxRate  money.Rate
	DueDays  int
	Currency string
}

type GenerateInvoiceRequest struct {
	ServiceID string
	Period    string
	DryRun    bool
}

// GenerateInvoiceResult carries either the draft (persisted unless DryRun) or a skip.
type GenerateInvoiceResult struct {
	Invoice    entities.Invoice
	Skipped    bool
	SkipReason string
	DryRun     bool
}

type IInvoiceGenerator interface {
	Generate(ctx context.Context, req GenerateInvoiceRequest) (GenerateInvoiceResult, error)
	GenerateForService(ctx context.Context, svc entities.Service, period string, dryRun bool) (GenerateInvoiceResult, error)
}

type InvoiceGenerator struct {
	invoices interfaces.IInvoiceRepository
	uow      interfaces.IUnitOfWork
	services interfaces.IServiceDirectory
	settings GeneratorSettings
	log      *logger.Logger
	now      func() time.Time
}

var _ IInvoiceGenerator = (*InvoiceGenerator)(nil)

func NewInvoiceGenerator(invoices interfaces.IInvoiceRepository, uow interfaces.IUnitOfWork, services interfaces.IServiceDirectory, settings GeneratorSettings, log *logger.Logger) *InvoiceGenerator {
	if settings.Currency == "" {
		settings.Currency = "ZAR"
	}
	return &InvoiceGenerator{
		invoices: invoices,
		uow:      uow,
		services: services,
		settings: settings,
		log:      logger.OrNop(log).Named("invoice-generator"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *InvoiceGenerator) Generate(ctx context.Context, req GenerateInvoiceRequest) (GenerateInvoiceResult, error) {
	serviceID := strings.TrimSpace(req.ServiceID)
	if serviceID == "" {
		return GenerateInvoiceResult{}, entities.Validationf("service_id is required")
	}
	svc, err := g.services.GetService(ctx, serviceID)
	if err != nil {
		return GenerateInvoiceResult{}, errors.Wrapf(err, "load service %s", serviceID)
	}
	if svc.ID == "" {
		return GenerateInvoiceResult{}, errors.Wrapf(entities.ErrNotFound, "service %s", serviceID)
	}
	return g.GenerateForService(ctx, svc, req.Period, req.DryRun)
}

// GenerateForService builds the draft for one service and period. A zero total is reported as
// skipped rather than failed.
func (g *InvoiceGenerator) GenerateForService(ctx context.Context, svc entities.Service, period string, dryRun bool) (GenerateInvoiceResult, error) {
	if strings.TrimSpace(period) == "" {
		period = entities.BillingPeriodOf(g.now())
	}
	periodStart, periodEnd, err := entities.ParseBillingPeriod(period)
	if err != nil {
		return GenerateInvoiceResult{}, err
	}
	period = entities.BillingPeriodOf(periodStart)

	if err := checkEligible(svc, periodEnd); err != nil {
		g.log.Infow("[billing][generator] service not eligible", "service_id", svc.ID, "status", svc.Status, "err", err)
		return GenerateInvoiceResult{}, err
	}

	existing, err := g.invoices.GetByServicePeriod(ctx, svc.ID, period)
	if err != nil {
		return GenerateInvoiceResult{}, errors.Wrap(err, "duplicate check")
	}
	if existing.ID != "" {
		return GenerateInvoiceResult{Invoice: existing}, errors.Wrapf(entities.ErrDuplicateInvoice,
			"service %s period %s already has invoice %s", svc.ID, period, existing.ID)
	}

	now := g.now()
	issue := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	currency := svc.Currency
	if currency == "" {
		currency = g.settings.Currency
	}
	rate := g.settings.TaxRate
	if svc.TaxRate != nil {
		rate = *svc.TaxRate
	}

	inv := entities.Invoice{
		ID:            uuid.NewString(),
		CustomerID:    svc.CustomerID,
		ServiceID:     svc.ID,
		BillingPeriod: period,
		InvoiceType:   entities.InvoiceTypeRecurring,
		Status:        entities.InvoiceStatusDraft,
		TaxRate:       rate,
		Currency:      currency,
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, g.settings.DueDays),
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	lines, prorated := buildLineItems(svc, period, periodStart, periodEnd)
	if prorated {
		inv.InvoiceType = entities.InvoiceTypeProRata
	}
	for _, li := range lines {
		if err := inv.AddLineItem(li); err != nil {
			return GenerateInvoiceResult{}, err
		}
	}

	if inv.TotalCents <= 0 {
		g.log.Infow("[billing][generator] nothing to bill", "service_id", svc.ID, "period", period, "total_cents", inv.TotalCents)
		return GenerateInvoiceResult{Invoice: inv, Skipped: true, SkipReason: entities.ErrNoBillableAmount.Error(), DryRun: dryRun}, nil
	}
	if dryRun {
		return GenerateInvoiceResult{Invoice: inv, DryRun: true}, nil
	}

	res, err := g.uow.Commit(ctx, entities.ChangeSet{
		Invoice: &entities.InvoiceWrite{Invoice: inv, Create: true},
		Audit:   []entities.AuditLogEntry{invoiceAudit(ctx, now, entities.AuditInvoiceCreated, nil, inv, "")},
	})
	if err != nil {
		if errors.Is(err, entities.ErrDuplicateInvoice) {
			return GenerateInvoiceResult{}, errors.Wrapf(err, "service %s period %s", svc.ID, period)
		}
		return GenerateInvoiceResult{}, errors.Wrap(err, "persist draft invoice")
	}
	g.log.Infow("[billing][generator] draft created", "invoice_id", res.Invoice.ID, "service_id", svc.ID,
		"period", period, "total_cents", res.Invoice.TotalCents)
	return GenerateInvoiceResult{Invoice: *res.Invoice}, nil
}

func checkEligible(svc entities.Service, periodEnd time.Time) error {
	if svc.Status != entities.ServiceStatusActive {
		return errors.Wrapf(entities.ErrServiceNotEligible, "service %s is %s", svc.ID, svc.Status)
	}
	if !svc.HasBillingConfig() {
		return errors.Wrapf(entities.ErrServiceNotEligible, "service %s has no billing configuration", svc.ID)
	}
	if !svc.ActivationDate.IsZero() && dateOnly(svc.ActivationDate).After(periodEnd) {
		return errors.Wrapf(entities.ErrServiceNotEligible, "service %s activates after the period", svc.ID)
	}
	return nil
}

// buildLineItems returns the period's charges. The recurring fee is pro-rated by day when billing
// starts after the first of the month, either through activation or the end of a free trial.
func buildLineItems(svc entities.Service, period string, periodStart, periodEnd time.Time) ([]entities.LineItem, bool) {
	var lines []entities.LineItem
	prorated := false

	billableFrom := periodStart
	if a := dateOnly(svc.ActivationDate); !svc.ActivationDate.IsZero() && a.After(billableFrom) {
		billableFrom = a
	}
	if svc.TrialEndsAt != nil {
		if t := dateOnly(*svc.TrialEndsAt).AddDate(0, 0, 1); t.After(billableFrom) {
			billableFrom = t
		}
	}

	periodDays := periodEnd.Day()
	usedDays := int(periodEnd.Sub(billableFrom).Hours()/24) + 1
	switch {
	case svc.MonthlyPriceCents == 0 || usedDays <= 0:
	case usedDays >= periodDays:
		lines = append(lines, entities.LineItem{
			Description:    fmt.Sprintf("%s - %s", svc.PackageName, periodStart.Format("January 2006")),
			Type:           entities.LineItemRecurring,
			Quantity:       1,
			UnitPriceCents: svc.MonthlyPriceCents,
		})
	default:
		amount := money.Prorate(svc.MonthlyPriceCents, usedDays, periodDays)
		if amount > 0 {
			prorated = true
			lines = append(lines, entities.LineItem{
				Description: fmt.Sprintf("%s - Pro-rata %s to %s (%d/%d days)", svc.PackageName,
					billableFrom.Format("2 Jan"), periodEnd.Format("2 Jan 2006"), usedDays, periodDays),
				Type:           entities.LineItemProRata,
				Quantity:       1,
				UnitPriceCents: amount,
			})
		}
	}

	for _, c := range svc.PendingCharges {
		if c.AmountCents == 0 || !c.DueIn(period, svc.ActivationDate) {
			continue
		}
		qty := c.Quantity
		if qty <= 0 {
			qty = 1
		}
		typ := c.Type
		if typ == "" {
			typ = entities.LineItemInstallation
		}
		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			desc = fmt.Sprintf("%s - %s fee", svc.PackageName, typ)
		}
		lines = append(lines, entities.LineItem{
			Description:    desc,
			Type:           typ,
			Quantity:       qty,
			UnitPriceCents: c.AmountCents,
		})
	}
	return lines, prorated
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
