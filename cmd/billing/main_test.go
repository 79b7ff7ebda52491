package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circletel_billing/internal/app"
	"circletel_billing/internal/config"
	"circletel_billing/internal/logger"
)

func memorySetup(ctx context.Context) (*app.Container, *logger.Logger, error) {
	cfg := &config.Configuration{
		Store:    config.StoreConfig{Driver: "memory"},
		Billing:  config.BillingConfig{TaxRate: "15", Currency: "ZAR", Workers: 1, ServiceSource: "memory"},
		Payments: config.PaymentsConfig{DefaultProvider: "netcash", Mock: true},
	}
	log := logger.NewNop()
	c, err := app.New(ctx, cfg, log)
	return c, log, err
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(memorySetup)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCmd_RequiresBillingDay(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "billing-day")
}

func TestRunCmd_RejectsDayOutsideRange(t *testing.T) {
	_, err := execute(t, "run", "--billing-day", "30")
	assert.ErrorContains(t, err, "between 1 and 28")
}

func TestRunCmd_PrintsRun(t *testing.T) {
	out, err := execute(t, "run", "--billing-day", "1", "--period", "2026-03", "--dry-run")
	require.NoError(t, err)

	var run map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "2026-03", run["period"])
	assert.Equal(t, true, run["dry_run"])
	assert.Equal(t, "system", run["triggered_by"])
}

func TestSweepOverdueCmd(t *testing.T) {
	out, err := execute(t, "sweep-overdue", "--as-of", "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, `"checked": 0`)

	_, err = execute(t, "sweep-overdue", "--as-of", "10/03/2026")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestReconcileCmd(t *testing.T) {
	out, err := execute(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, `"checked": 0`)
}
