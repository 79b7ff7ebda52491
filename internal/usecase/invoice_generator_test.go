package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"circletel_billing/internal/adapter/persistence/memory"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	mock_interfaces "circletel_billing/internal/usecase/interfaces/mocks"
)

func TestInvoiceGenerator_RecurringMonth(t *testing.T) {
	store := memory.NewStore()
	store.PutService(fibreService("svc-1"))
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	require.False(t, res.Skipped)

	inv := res.Invoice
	assert.Equal(t, entities.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, entities.InvoiceTypeRecurring, inv.InvoiceType)
	assert.Equal(t, money.Cents(50000), inv.SubtotalCents)
	assert.Equal(t, money.Cents(7500), inv.TaxCents)
	assert.Equal(t, money.Cents(57500), inv.TotalCents)
	assert.Empty(t, inv.InvoiceNumber)
	assert.Equal(t, int64(1), inv.Version)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "HomeFibre 50Mbps - February 2026", inv.LineItems[0].Description)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)

	trail, err := store.ListByResource(context.Background(), entities.ResourceInvoice, inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entities.AuditInvoiceCreated, trail[0].Action)
	assert.Equal(t, entities.ActorSystem, trail[0].Actor)
}

func TestInvoiceGenerator_DuplicatePeriod(t *testing.T) {
	store := memory.NewStore()
	store.PutService(fibreService("svc-1"))
	g := newTestGenerator(store)
	ctx := context.Background()

	_, err := g.Generate(ctx, GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)

	_, err = g.Generate(ctx, GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	assert.ErrorIs(t, err, entities.ErrDuplicateInvoice)
	assert.Equal(t, 1, store.InvoiceCount())
}

func TestInvoiceGenerator_DryRunDoesNotPersist(t *testing.T) {
	store := memory.NewStore()
	store.PutService(fibreService("svc-1"))
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02", DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, money.Cents(57500), res.Invoice.TotalCents)
	assert.Equal(t, 0, store.InvoiceCount())
	assert.Equal(t, 0, store.AuditCount())
}

func TestInvoiceGenerator_FirstPeriodProRataWithInstallation(t *testing.T) {
	store := memory.NewStore()
	svc := fibreService("svc-1")
	svc.ActivationDate = time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	svc.PendingCharges = []entities.OneOffCharge{
		{ID: "chg-1", Description: "Professional installation", Type: entities.LineItemInstallation, AmountCents: 99900},
		{ID: "chg-2", Description: "Router", Type: entities.LineItemHardware, AmountCents: 120000, Period: "2026-03"},
	}
	store.PutService(svc)
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)

	inv := res.Invoice
	assert.Equal(t, entities.InvoiceTypeProRata, inv.InvoiceType)
	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, entities.LineItemProRata, inv.LineItems[0].Type)
	assert.Equal(t, money.Cents(25000), inv.LineItems[0].LineTotalCents)
	assert.Equal(t, entities.LineItemInstallation, inv.LineItems[1].Type)
	assert.Equal(t, money.Cents(124900), inv.SubtotalCents)
	assert.Equal(t, money.Cents(18735), inv.TaxCents)
	assert.Equal(t, money.Cents(143635), inv.TotalCents)
}

func TestInvoiceGenerator_FreeTrialIsSkipped(t *testing.T) {
	store := memory.NewStore()
	svc := fibreService("svc-1")
	trialEnd := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	svc.TrialEndsAt = &trialEnd
	store.PutService(svc)
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, entities.ErrNoBillableAmount.Error(), res.SkipReason)
	assert.Equal(t, 0, store.InvoiceCount())
}

func TestInvoiceGenerator_CreditOutweighingChargesIsSkipped(t *testing.T) {
	store := memory.NewStore()
	svc := fibreService("svc-1")
	svc.MonthlyPriceCents = 0
	svc.PendingCharges = []entities.OneOffCharge{
		{ID: "adj-1", Description: "Goodwill credit", Type: entities.LineItemAdjustment, AmountCents: -10000, Quantity: 1, Period: "2026-02"},
	}
	store.PutService(svc)
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, entities.ErrNoBillableAmount.Error(), res.SkipReason)
	assert.Equal(t, 0, store.InvoiceCount())

	svc.MonthlyPriceCents = 50000
	svc.PendingCharges[0].AmountCents = -60000
	store.PutService(svc)

	res, err = g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, store.InvoiceCount())

	svc.PendingCharges[0].AmountCents = -10000
	store.PutService(svc)

	res, err = g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, money.Cents(46000), res.Invoice.TotalCents)
	assert.Equal(t, 1, store.InvoiceCount())
}

func TestInvoiceGenerator_TaxOverride(t *testing.T) {
	store := memory.NewStore()
	svc := fibreService("svc-1")
	zero := money.Rate(0)
	svc.TaxRate = &zero
	store.PutService(svc)
	g := newTestGenerator(store)

	res, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), res.Invoice.TaxCents)
	assert.Equal(t, money.Cents(50000), res.Invoice.TotalCents)
}

func TestInvoiceGenerator_Eligibility(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*entities.Service)
	}{
		{"suspended", func(s *entities.Service) { s.Status = entities.ServiceStatusSuspended }},
		{"cancelled", func(s *entities.Service) { s.Status = entities.ServiceStatusCancelled }},
		{"no billing day", func(s *entities.Service) { s.BillingDay = 0 }},
		{"activates later", func(s *entities.Service) { s.ActivationDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			svc := fibreService("svc-1")
			tc.mutate(&svc)
			store.PutService(svc)
			g := newTestGenerator(store)

			_, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
			assert.ErrorIs(t, err, entities.ErrServiceNotEligible)
			assert.Equal(t, entities.ClassValidation, entities.Classify(err))
		})
	}
}

func TestInvoiceGenerator_Validation(t *testing.T) {
	store := memory.NewStore()
	store.PutService(fibreService("svc-1"))
	g := newTestGenerator(store)
	ctx := context.Background()

	_, err := g.Generate(ctx, GenerateInvoiceRequest{ServiceID: " "})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = g.Generate(ctx, GenerateInvoiceRequest{ServiceID: "svc-1", Period: "02/2026"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = g.Generate(ctx, GenerateInvoiceRequest{ServiceID: "missing", Period: "2026-02"})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestInvoiceGenerator_StoreRaceSurfacesDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	invoices := mock_interfaces.NewMockIInvoiceRepository(ctrl)
	uow := mock_interfaces.NewMockIUnitOfWork(ctrl)
	services := mock_interfaces.NewMockIServiceDirectory(ctrl)

	g := NewInvoiceGenerator(invoices, uow, services, GeneratorSettings{TaxRate: money.DefaultVAT}, nil)
	g.now = clockAt(fixedNow)

	services.EXPECT().GetService(gomock.Any(), "svc-1").Return(fibreService("svc-1"), nil)
	invoices.EXPECT().GetByServicePeriod(gomock.Any(), "svc-1", "2026-02").Return(entities.Invoice{}, nil)
	uow.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(entities.CommitResult{}, entities.ErrDuplicateInvoice)

	_, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	assert.ErrorIs(t, err, entities.ErrDuplicateInvoice)
}

func TestInvoiceGenerator_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	invoices := mock_interfaces.NewMockIInvoiceRepository(ctrl)
	services := mock_interfaces.NewMockIServiceDirectory(ctrl)

	g := NewInvoiceGenerator(invoices, nil, services, GeneratorSettings{}, nil)
	services.EXPECT().GetService(gomock.Any(), "svc-1").Return(fibreService("svc-1"), nil)
	invoices.EXPECT().GetByServicePeriod(gomock.Any(), "svc-1", "2026-02").Return(entities.Invoice{}, errors.New("db down"))

	_, err := g.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-02"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
