package alerting

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// LogAlerter writes integrity problems to the error log for manual review.
type LogAlerter struct {
	log *logger.Logger
}

var _ interfaces.IAlerter = (*LogAlerter)(nil)

func NewLogAlerter(log *logger.Logger) *LogAlerter {
	return &LogAlerter{log: logger.OrNop(log).Named("alerts")}
}

func (a *LogAlerter) Alert(_ context.Context, err error, details map[string]interface{}) {
	kv := make([]interface{}, 0, 2*len(details)+4)
	kv = append(kv, "err", err, "class", entities.Classify(err))
	for k, v := range details {
		kv = append(kv, k, v)
	}
	a.log.Errorw("[alert] manual review required", kv...)
}

// SentryAlerter reports integrity problems to Sentry and also logs them.
type SentryAlerter struct {
	hub *sentry.Hub
	log *LogAlerter
}

var _ interfaces.IAlerter = (*SentryAlerter)(nil)

// NewSentryAlerter initialises the Sentry client for dsn.
func NewSentryAlerter(dsn, environment string, log *logger.Logger) (*SentryAlerter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	return &SentryAlerter{hub: sentry.NewHub(client, sentry.NewScope()), log: NewLogAlerter(log)}, nil
}

// NewSentryAlerterWithHub allows injecting a hub, e.g. one backed by a test transport.
func NewSentryAlerterWithHub(hub *sentry.Hub, log *logger.Logger) *SentryAlerter {
	return &SentryAlerter{hub: hub, log: NewLogAlerter(log)}
}

func (a *SentryAlerter) Alert(ctx context.Context, err error, details map[string]interface{}) {
	a.log.Alert(ctx, err, details)
	a.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_class", string(entities.Classify(err)))
		scope.SetLevel(sentry.LevelError)
		scope.SetContext("reconciliation", sentry.Context(details))
		a.hub.CaptureException(err)
	})
}

// Flush waits for queued events before shutdown.
func (a *SentryAlerter) Flush(timeout time.Duration) bool {
	return a.hub.Flush(timeout)
}
