package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
)

func TestFromInvoice_UsesEffectiveStatus(t *testing.T) {
	due := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	inv := entities.Invoice{
		ID: "inv-1", CustomerID: "cust-1", Status: entities.InvoiceStatusSent, Currency: "ZAR",
		TotalCents: 57500, PaidCents: 7500, DueDate: due,
		LineItems: []entities.LineItem{{Description: "HomeFibre", Type: entities.LineItemRecurring, Quantity: 1, UnitPriceCents: 50000, LineTotalCents: 50000}},
	}

	before := FromInvoice(inv, due)
	assert.Equal(t, "sent", before.Status)

	after := FromInvoice(inv, due.AddDate(0, 0, 3))
	assert.Equal(t, "overdue", after.Status)
	assert.Equal(t, "sent", after.StoredStatus)
	assert.EqualValues(t, 50000, after.DueCents)
	assert.Equal(t, "R500.00", after.AmountDue)
	assert.Equal(t, "R575.00", after.Total)
	assert.Len(t, after.LineItems, 1)
	assert.Equal(t, "R500.00", after.LineItems[0].LineTotal)
}

func TestFromGenerateResult_Skipped(t *testing.T) {
	out := FromGenerateResult(usecase.GenerateInvoiceResult{Skipped: true, SkipReason: "already invoiced"}, time.Now())
	assert.Nil(t, out.Invoice)
	assert.True(t, out.Skipped)
}

func TestFromBillingRuns_DropsResults(t *testing.T) {
	start := time.Date(2026, 3, 25, 2, 0, 0, 0, time.UTC)
	runs := []entities.BillingRun{{
		RunID: "run-1", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []entities.ServiceBillingResult{{ServiceID: "svc-1", Success: true}},
	}}
	out := FromBillingRuns(runs)
	assert.Len(t, out, 1)
	assert.Nil(t, out[0].Results)
	assert.EqualValues(t, 1500, out[0].DurationMS)

	assert.Len(t, FromBillingRun(runs[0]).Results, 1)
}

func TestFromSweepResult_NeverNullIDs(t *testing.T) {
	assert.Equal(t, []string{}, FromSweepResult(usecase.SweepResult{Checked: 3}).InvoiceIDs)
}
