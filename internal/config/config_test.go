package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dynamodb", cfg.Store.Driver)
	assert.Equal(t, "15", cfg.Billing.TaxRate)
	assert.Equal(t, 12*time.Second, cfg.Billing.ServiceTimeout)
	assert.Equal(t, "netcash", cfg.Payments.DefaultProvider)
	assert.Equal(t, 100, cfg.Webhooks.RateLimitPerMinute)
	assert.Equal(t, "https://paynow.netcash.co.za/site/paynow.aspx", cfg.NetCash.PaymentURL)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DYNAMODB_ENDPOINT", "http://dynamodb:8000")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PAYMENT_GATEWAY_MOCK", "true")
	t.Setenv("BILLING_WORKERS", "8")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://dynamodb:8000", cfg.DynamoDB.Endpoint)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.True(t, cfg.Payments.Mock)
	assert.Equal(t, 8, cfg.Billing.Workers)
}

func TestNewConfig_RejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := NewConfig()
	require.Error(t, err)
}
