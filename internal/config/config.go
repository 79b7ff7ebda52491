package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Logging       LoggingConfig       `mapstructure:"logging" validate:"required"`
	Store         StoreConfig         `mapstructure:"store" validate:"required"`
	AWS           AWSConfig           `mapstructure:"aws"`
	DynamoDB      DynamoDBConfig      `mapstructure:"dynamodb"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Supabase      SupabaseConfig      `mapstructure:"supabase"`
	Billing       BillingConfig       `mapstructure:"billing" validate:"required"`
	Payments      PaymentsConfig      `mapstructure:"payments" validate:"required"`
	NetCash       NetCashConfig       `mapstructure:"netcash"`
	MercadoPago   MercadoPagoConfig   `mapstructure:"mercadopago"`
	ZohoCRM       ZohoCRMConfig       `mapstructure:"zoho_crm"`
	PDF           PDFConfig           `mapstructure:"pdf"`
	S3            S3Config            `mapstructure:"s3"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Events        EventsConfig        `mapstructure:"events"`
	Sentry        SentryConfig        `mapstructure:"sentry"`
	Webhooks      WebhooksConfig      `mapstructure:"webhooks" validate:"required"`
	Reconciler    ReconcilerConfig    `mapstructure:"reconciler"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig picks the backend behind the repositories.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=dynamodb postgres memory"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type DynamoDBConfig struct {
	Endpoint          string `mapstructure:"endpoint"`
	InvoicesTable     string `mapstructure:"invoices_table"`
	TransactionsTable string `mapstructure:"transactions_table"`
	AuditTable        string `mapstructure:"audit_table"`
	UniquesTable      string `mapstructure:"uniques_table"`
	SequencesTable    string `mapstructure:"sequences_table"`
	BillingRunsTable  string `mapstructure:"billing_runs_table"`
	ServicesTable     string `mapstructure:"services_table"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

type BillingConfig struct {
	TaxRate        string        `mapstructure:"tax_rate" validate:"required"`
	DueDays        int           `mapstructure:"due_days" validate:"min=0"`
	Currency       string        `mapstructure:"currency" validate:"required,len=3"`
	Workers        int           `mapstructure:"workers" validate:"min=1"`
	ServiceTimeout time.Duration `mapstructure:"service_timeout"`
	// ServiceSource is where billable services are read from. Empty means the store itself.
	ServiceSource   string `mapstructure:"service_source" validate:"omitempty,oneof=supabase postgres dynamodb memory"`
	AutoSend        bool   `mapstructure:"auto_send"`
	PaymentLink     bool   `mapstructure:"payment_link"`
	CRMSync         bool   `mapstructure:"crm_sync"`
	ConflictRetries uint64 `mapstructure:"conflict_retries"`
}

type PaymentsConfig struct {
	DefaultProvider string `mapstructure:"default_provider" validate:"required,oneof=netcash mercadopago zoho_billing"`
	Mock            bool   `mapstructure:"mock"`
}

type NetCashConfig struct {
	ServiceKey    string `mapstructure:"service_key"`
	PCIVaultKey   string `mapstructure:"pci_vault_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	PaymentURL    string `mapstructure:"payment_url"`
	ReturnURL     string `mapstructure:"return_url"`
	CancelURL     string `mapstructure:"cancel_url"`
	NotifyURL     string `mapstructure:"notify_url"`
}

type MercadoPagoConfig struct {
	AccessToken     string `mapstructure:"access_token"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	NotificationURL string `mapstructure:"notification_url"`
}

type ZohoCRMConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AccessToken    string        `mapstructure:"access_token"`
	OrganizationID string        `mapstructure:"organization_id"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type PDFConfig struct {
	RendererURL string        `mapstructure:"renderer_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

type NotificationsConfig struct {
	RabbitMQURL string `mapstructure:"rabbitmq_url"`
	Queue       string `mapstructure:"queue"`
}

type EventsConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	Topic        string   `mapstructure:"topic"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type WebhooksConfig struct {
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"min=1"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type ReconcilerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	BatchSize  int           `mapstructure:"batch_size"`
}

// NewConfig loads configuration from config.yaml (optional) and the environment.
// Keys map to env vars by upper-casing and replacing dots, e.g. dynamodb.endpoint -> DYNAMODB_ENDPOINT.
func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/circletel-billing")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindAliases(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Configuration) Validate() error {
	return validator.New().Struct(c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("logging.level", "info")
	v.SetDefault("store.driver", "dynamodb")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "local")
	v.SetDefault("aws.secret_access_key", "local")

	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.invoices_table", "invoices")
	v.SetDefault("dynamodb.transactions_table", "payment_transactions")
	v.SetDefault("dynamodb.audit_table", "audit_logs")
	v.SetDefault("dynamodb.uniques_table", "billing_uniques")
	v.SetDefault("dynamodb.sequences_table", "invoice_sequences")
	v.SetDefault("dynamodb.billing_runs_table", "billing_runs")
	v.SetDefault("dynamodb.services_table", "services")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")

	v.SetDefault("billing.tax_rate", "15")
	v.SetDefault("billing.due_days", 0)
	v.SetDefault("billing.currency", "ZAR")
	v.SetDefault("billing.workers", 4)
	v.SetDefault("billing.service_timeout", 12*time.Second)
	v.SetDefault("billing.service_source", "")
	v.SetDefault("billing.auto_send", true)
	v.SetDefault("billing.payment_link", true)
	v.SetDefault("billing.crm_sync", true)
	v.SetDefault("billing.conflict_retries", 3)

	v.SetDefault("payments.default_provider", "netcash")
	v.SetDefault("payments.mock", false)

	v.SetDefault("netcash.service_key", "")
	v.SetDefault("netcash.pci_vault_key", "")
	v.SetDefault("netcash.webhook_secret", "")
	v.SetDefault("netcash.payment_url", "https://paynow.netcash.co.za/site/paynow.aspx")
	v.SetDefault("netcash.return_url", "")
	v.SetDefault("netcash.cancel_url", "")
	v.SetDefault("netcash.notify_url", "")

	v.SetDefault("mercadopago.access_token", "")
	v.SetDefault("mercadopago.webhook_secret", "")
	v.SetDefault("mercadopago.notification_url", "")

	v.SetDefault("zoho_crm.base_url", "https://www.zohoapis.com/billing/v1")
	v.SetDefault("zoho_crm.access_token", "")
	v.SetDefault("zoho_crm.organization_id", "")
	v.SetDefault("zoho_crm.timeout", 10*time.Second)

	v.SetDefault("pdf.renderer_url", "")
	v.SetDefault("pdf.timeout", 20*time.Second)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "af-south-1")
	v.SetDefault("s3.key_prefix", "invoices")
	v.SetDefault("s3.presign_expiry", 7*24*time.Hour)

	v.SetDefault("notifications.rabbitmq_url", "")
	v.SetDefault("notifications.queue", "invoice-notifications")

	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.topic", "billing.invoice-events")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")

	v.SetDefault("webhooks.rate_limit_per_minute", 100)
	v.SetDefault("webhooks.timeout", 12*time.Second)

	v.SetDefault("reconciler.enabled", false)
	v.SetDefault("reconciler.interval", 15*time.Minute)
	v.SetDefault("reconciler.stale_after", 30*time.Minute)
	v.SetDefault("reconciler.batch_size", 100)
}

// bindAliases keeps the env names older deployments already export.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("postgres.dsn", "POSTGRES_DSN", "DATABASE_URL")
	_ = v.BindEnv("payments.mock", "PAYMENTS_MOCK", "PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK")
	_ = v.BindEnv("dynamodb.invoices_table", "DYNAMODB_INVOICES_TABLE", "INVOICES_TABLE")
	_ = v.BindEnv("dynamodb.transactions_table", "DYNAMODB_TRANSACTIONS_TABLE", "PAYMENTS_TABLE")
	_ = v.BindEnv("supabase.url", "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	_ = v.BindEnv("supabase.service_key", "SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = v.BindEnv("netcash.service_key", "NETCASH_SERVICE_KEY")
	_ = v.BindEnv("netcash.webhook_secret", "NETCASH_WEBHOOK_SECRET")
}
