// Package app assembles the billing service from configuration. Both the HTTP API and the
// billing CLI build their dependencies here.
package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"circletel_billing/internal/adapter/http/handlers"
	"circletel_billing/internal/adapter/http/middleware"
	"circletel_billing/internal/adapter/http/routes"
	"circletel_billing/internal/adapter/persistence/memory"
	"circletel_billing/internal/adapter/persistence/postgres"
	"circletel_billing/internal/adapter/persistence/repository"
	"circletel_billing/internal/adapter/persistence/supabase"
	"circletel_billing/internal/config"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/infrastructure/alerting"
	"circletel_billing/internal/infrastructure/crm"
	"circletel_billing/internal/infrastructure/database"
	"circletel_billing/internal/infrastructure/documents"
	"circletel_billing/internal/infrastructure/events"
	"circletel_billing/internal/infrastructure/notification"
	"circletel_billing/internal/infrastructure/payments"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase"
	"circletel_billing/internal/usecase/interfaces"
)

const sentryFlushTimeout = 2 * time.Second

// storage is one backend's view of every repository the use cases need.
type storage struct {
	invoices     interfaces.IInvoiceRepository
	transactions interfaces.IPaymentTransactionRepository
	audit        interfaces.IAuditLogRepository
	uow          interfaces.IUnitOfWork
	runs         interfaces.IBillingRunRepository
	services     interfaces.IServiceDirectory
}

// Container holds the wired use cases plus whatever has to be released on shutdown.
type Container struct {
	Config      *config.Configuration
	Registry    *payments.Registry
	Invoices    *usecase.InvoiceUseCase
	Payments    *usecase.PaymentUseCase
	Webhooks    *usecase.WebhookReconciliationUseCase
	BillingRuns *usecase.BillingRunUseCase
	PaymentSync *usecase.PaymentSyncUseCase

	memory  *memory.Store
	closers []func()
	log     *logger.Logger
}

// New connects the configured store and collaborators and builds the use cases on top of them.
// Optional collaborators that are not configured fall back to log-only implementations.
func New(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (*Container, error) {
	log = logger.OrNop(log)
	c := &Container{Config: cfg, log: log.Named("app")}

	taxRate, err := money.ParseRate(cfg.Billing.TaxRate)
	if err != nil {
		return nil, errors.Wrapf(err, "billing.tax_rate %q", cfg.Billing.TaxRate)
	}

	store, err := c.openStorage(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Registry = registry

	alerter := c.buildAlerter(cfg, log)
	publisher := c.buildPublisher(cfg, log)
	notifier := c.buildNotifier(cfg, log)
	pdf, err := c.buildPDFGenerator(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Webhooks = usecase.NewWebhookReconciliationUseCase(store.invoices, store.transactions, store.uow, registry, alerter, log).
		WithConflictRetries(cfg.Billing.ConflictRetries)
	c.Payments = usecase.NewPaymentUseCase(store.invoices, store.transactions, store.uow, store.services, registry, c.Webhooks, log)

	generator := usecase.NewInvoiceGenerator(store.invoices, store.uow, store.services, usecase.GeneratorSettings{
		TaxRate:  taxRate,
		DueDays:  cfg.Billing.DueDays,
		Currency: cfg.Billing.Currency,
	}, log)

	c.Invoices = usecase.NewInvoiceUseCase(store.invoices, store.transactions, store.audit, store.uow, store.services, registry, generator,
		usecase.InvoiceCollaborators{PDF: pdf, Notifier: notifier, Events: publisher, Payments: c.Payments}, log).
		WithConflictRetries(cfg.Billing.ConflictRetries)

	c.BillingRuns = usecase.NewBillingRunUseCase(store.services, generator, c.Invoices, buildCRMSync(cfg, log), store.runs, usecase.BillingRunSettings{
		Workers:        cfg.Billing.Workers,
		ServiceTimeout: cfg.Billing.ServiceTimeout,
		AutoSend:       cfg.Billing.AutoSend,
		PaymentLink:    cfg.Billing.PaymentLink,
		CRMSync:        cfg.Billing.CRMSync,
	}, log)

	c.PaymentSync = usecase.NewPaymentSyncUseCase(store.transactions, registry, c.Payments, usecase.PaymentSyncSettings{
		Interval:   cfg.Reconciler.Interval,
		StaleAfter: cfg.Reconciler.StaleAfter,
		BatchSize:  cfg.Reconciler.BatchSize,
		Workers:    cfg.Billing.Workers,
	}, log)

	c.log.Infow("[app] billing service wired",
		"store", cfg.Store.Driver,
		"service_source", cfg.Billing.ServiceSource,
		"providers", registry.Names(),
		"default_provider", registry.Default(),
	)
	return c, nil
}

// Handlers builds the HTTP handlers over the wired use cases.
func (c *Container) Handlers() routes.Handlers {
	return routes.Handlers{
		Invoices:    handlers.NewInvoiceHandler(c.Invoices, c.log),
		Payments:    handlers.NewPaymentHandler(c.Payments, c.log),
		BillingRuns: handlers.NewBillingRunHandler(c.BillingRuns, c.log),
		Webhooks:    handlers.NewWebhookHandler(c.Webhooks, c.log),
		WebhookLimiter: middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			Requests: c.Config.Webhooks.RateLimitPerMinute,
			Window:   time.Minute,
		}, c.log),
	}
}

// Close releases connections in reverse order of opening. Safe to call more than once.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

func (c *Container) openStorage(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (storage, error) {
	var st storage
	switch cfg.Store.Driver {
	case "dynamodb":
		ddb, err := database.ConnectDynamoDB(ctx, cfg)
		if err != nil {
			return st, err
		}
		tables := repository.Tables{
			Invoices:     cfg.DynamoDB.InvoicesTable,
			Transactions: cfg.DynamoDB.TransactionsTable,
			Audit:        cfg.DynamoDB.AuditTable,
			Uniques:      cfg.DynamoDB.UniquesTable,
			Sequences:    cfg.DynamoDB.SequencesTable,
			BillingRuns:  cfg.DynamoDB.BillingRunsTable,
			Services:     cfg.DynamoDB.ServicesTable,
		}
		st = storage{
			invoices:     repository.NewInvoiceDynamoRepository(ddb, tables),
			transactions: repository.NewPaymentTransactionDynamoRepository(ddb, tables),
			audit:        repository.NewAuditLogDynamoRepository(ddb, tables),
			uow:          repository.NewDynamoUnitOfWork(ddb, tables, log),
			runs:         repository.NewBillingRunDynamoRepository(ddb, tables),
			services:     repository.NewServiceDynamoDirectory(ddb, tables),
		}
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return st, err
		}
		c.onClose(pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return st, err
		}
		st = postgresStorage(pool, log)
	case "memory":
		c.memory = memory.NewStore()
		st = storage{
			invoices:     c.memory,
			transactions: c.memory.Transactions(),
			audit:        c.memory,
			uow:          c.memory,
			runs:         c.memory,
			services:     c.memory,
		}
		log.Warnw("[app] memory store in use, nothing survives a restart")
	default:
		return st, errors.Newf("unknown store.driver %q", cfg.Store.Driver)
	}

	switch cfg.Billing.ServiceSource {
	case "", cfg.Store.Driver:
	case "supabase":
		dir, err := supabase.NewServiceDirectory(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Billing.Currency, log)
		if err != nil {
			return st, errors.Wrap(err, "billing.service_source supabase")
		}
		st.services = dir
	default:
		return st, errors.Newf("billing.service_source %q needs store.driver %q", cfg.Billing.ServiceSource, cfg.Billing.ServiceSource)
	}
	return st, nil
}

func postgresStorage(pool *pgxpool.Pool, log *logger.Logger) storage {
	pg := postgres.NewStore(pool, log)
	return storage{
		invoices:     pg,
		transactions: pg.Transactions(),
		audit:        pg,
		uow:          pg,
		runs:         pg,
		services:     pg,
	}
}

// buildRegistry registers every gateway that is configured. With payments.mock each name gets
// a mock provider so the whole flow runs without gateway credentials.
func buildRegistry(cfg *config.Configuration, log *logger.Logger) (*payments.Registry, error) {
	def := entities.ProviderType(cfg.Payments.DefaultProvider)
	if cfg.Payments.Mock {
		return payments.NewRegistry(def,
			payments.NewMockProvider(entities.ProviderNetCash, cfg.NetCash.WebhookSecret, log),
			payments.NewMockProvider(entities.ProviderMercadoPago, cfg.MercadoPago.WebhookSecret, log),
			payments.NewMockProvider(entities.ProviderZohoBilling, "", log),
		), nil
	}

	registry := payments.NewRegistry(def,
		payments.NewNetCashProvider(payments.NetCashSettings{
			ServiceKey:    cfg.NetCash.ServiceKey,
			PCIVaultKey:   cfg.NetCash.PCIVaultKey,
			WebhookSecret: cfg.NetCash.WebhookSecret,
			PaymentURL:    cfg.NetCash.PaymentURL,
			ReturnURL:     cfg.NetCash.ReturnURL,
			CancelURL:     cfg.NetCash.CancelURL,
			NotifyURL:     cfg.NetCash.NotifyURL,
		}, log),
		payments.ZohoBillingProvider{},
	)

	mp, err := payments.NewMercadoPagoGateway(payments.MercadoPagoSettings{
		AccessToken:     cfg.MercadoPago.AccessToken,
		WebhookSecret:   cfg.MercadoPago.WebhookSecret,
		NotificationURL: cfg.MercadoPago.NotificationURL,
	}, log)
	switch {
	case err == nil:
		registry.Register(mp)
	case errors.Is(err, payments.ErrMissingMercadoPagoAccessToken) && def != entities.ProviderMercadoPago:
		log.Warnw("[app] mercadopago disabled", "reason", err.Error())
	default:
		return nil, errors.Wrap(err, "mercadopago gateway")
	}
	return registry, nil
}

func (c *Container) buildAlerter(cfg *config.Configuration, log *logger.Logger) interfaces.IAlerter {
	if cfg.Sentry.DSN == "" {
		return alerting.NewLogAlerter(log)
	}
	a, err := alerting.NewSentryAlerter(cfg.Sentry.DSN, cfg.Sentry.Environment, log)
	if err != nil {
		log.Errorw("[app] sentry unavailable, alerts go to the log", "err", err)
		return alerting.NewLogAlerter(log)
	}
	c.onClose(func() { a.Flush(sentryFlushTimeout) })
	return a
}

func (c *Container) buildPublisher(cfg *config.Configuration, log *logger.Logger) interfaces.IEventPublisher {
	if len(cfg.Events.KafkaBrokers) == 0 {
		return events.NewLogPublisher(log)
	}
	p := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, log)
	c.onClose(func() {
		if err := p.Close(); err != nil {
			log.Warnw("[app] closing kafka writer", "err", err)
		}
	})
	return p
}

func (c *Container) buildNotifier(cfg *config.Configuration, log *logger.Logger) interfaces.INotifier {
	if cfg.Notifications.RabbitMQURL == "" {
		return notification.NewLogNotifier(log)
	}
	n, err := notification.NewRabbitMQNotifier(cfg.Notifications.RabbitMQURL, cfg.Notifications.Queue, log)
	if err != nil {
		log.Errorw("[app] rabbitmq unavailable, notifications go to the log", "err", err)
		return notification.NewLogNotifier(log)
	}
	c.onClose(func() {
		if err := n.Close(); err != nil {
			log.Warnw("[app] closing rabbitmq channel", "err", err)
		}
	})
	return n
}

// buildPDFGenerator returns nil when rendering is not configured; sending then skips the PDF.
func (c *Container) buildPDFGenerator(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (interfaces.IPDFGenerator, error) {
	if cfg.PDF.RendererURL == "" || !cfg.S3.Enabled {
		return nil, nil
	}
	awsCfg, err := database.NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, errors.Wrap(err, "aws config for invoice documents")
	}
	if cfg.S3.Region != "" {
		awsCfg.Region = cfg.S3.Region
	}
	store := documents.NewS3Store(awsCfg, cfg.S3.Bucket, cfg.S3.PresignExpiry)
	return documents.NewPDFGenerator(documents.PDFSettings{
		RendererURL: cfg.PDF.RendererURL,
		Timeout:     cfg.PDF.Timeout,
		KeyPrefix:   cfg.S3.KeyPrefix,
	}, store, log), nil
}

// buildCRMSync returns nil without a Zoho token; billing runs then skip the CRM step.
func buildCRMSync(cfg *config.Configuration, log *logger.Logger) interfaces.ICRMSync {
	if cfg.ZohoCRM.AccessToken == "" {
		return nil
	}
	return crm.NewZohoBillingSync(crm.ZohoSettings{
		BaseURL:        cfg.ZohoCRM.BaseURL,
		AccessToken:    cfg.ZohoCRM.AccessToken,
		OrganizationID: cfg.ZohoCRM.OrganizationID,
		Timeout:        cfg.ZohoCRM.Timeout,
	}, log)
}
