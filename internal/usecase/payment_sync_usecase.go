package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

type PaymentSyncSettings struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	Workers    int
}

// SyncReport summarises one pass over stale transactions.
type SyncReport struct {
	Checked   int      `json:"checked"`
	Changed   int      `json:"changed"`
	Unchanged int      `json:"unchanged"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type IPaymentSyncUseCase interface {
	SyncStale(ctx context.Context) (SyncReport, error)
	Run(ctx context.Context)
}

// PaymentSyncUseCase polls gateways for transactions whose webhook never arrived.
type PaymentSyncUseCase struct {
	transactions interfaces.IPaymentTransactionRepository
	providers    interfaces.IPaymentProviderRegistry
	payments     IPaymentUseCase
	settings     PaymentSyncSettings
	log          *logger.Logger
	now          func() time.Time
}

var _ IPaymentSyncUseCase = (*PaymentSyncUseCase)(nil)

func NewPaymentSyncUseCase(transactions interfaces.IPaymentTransactionRepository, providers interfaces.IPaymentProviderRegistry, payments IPaymentUseCase, settings PaymentSyncSettings, log *logger.Logger) *PaymentSyncUseCase {
	if settings.Interval <= 0 {
		settings.Interval = 15 * time.Minute
	}
	if settings.StaleAfter <= 0 {
		settings.StaleAfter = 30 * time.Minute
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}
	if settings.Workers <= 0 {
		settings.Workers = 4
	}
	return &PaymentSyncUseCase{
		transactions: transactions,
		providers:    providers,
		payments:     payments,
		settings:     settings,
		log:          logger.OrNop(log).Named("payment-sync"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (u *PaymentSyncUseCase) SyncStale(ctx context.Context) (SyncReport, error) {
	cutoff := u.now().Add(-u.settings.StaleAfter)
	stale, err := u.transactions.ListStale(ctx, []entities.TransactionStatus{entities.TransactionInitiated, entities.TransactionPending}, cutoff, u.settings.BatchSize)
	if err != nil {
		return SyncReport{}, err
	}

	var (
		mu        sync.Mutex
		report    SyncReport
		queryable = map[entities.ProviderType]bool{}
	)
	for _, tx := range stale {
		if _, seen := queryable[tx.Provider]; seen {
			continue
		}
		p, err := u.providers.Get(tx.Provider)
		queryable[tx.Provider] = err == nil && p.Capabilities().StatusQueries
	}

	p := pool.New().WithMaxGoroutines(u.settings.Workers)
	for _, tx := range stale {
		tx := tx
		report.Checked++
		if !queryable[tx.Provider] {
			report.Skipped++
			continue
		}
		p.Go(func() {
			res, err := u.syncOne(ctx, tx)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", tx.ID, err))
			case res.Outcome == OutcomeDuplicate || res.Outcome == OutcomeIgnored:
				report.Unchanged++
			default:
				report.Changed++
			}
		})
	}
	p.Wait()

	u.log.Infow("[payment][sync] pass finished", "checked", report.Checked, "changed", report.Changed,
		"unchanged", report.Unchanged, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (u *PaymentSyncUseCase) syncOne(ctx context.Context, tx entities.PaymentTransaction) (res ReconcileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic syncing transaction %s: %v", tx.ID, r)
		}
	}()
	return u.payments.Sync(ctx, tx.ID)
}

// Run polls on the configured interval until ctx is cancelled.
func (u *PaymentSyncUseCase) Run(ctx context.Context) {
	ticker := time.NewTicker(u.settings.Interval)
	defer ticker.Stop()
	u.log.Infow("[payment][sync] worker started", "interval", u.settings.Interval, "stale_after", u.settings.StaleAfter)
	for {
		select {
		case <-ctx.Done():
			u.log.Infow("[payment][sync] worker stopped")
			return
		case <-ticker.C:
			if _, err := u.SyncStale(ctx); err != nil {
				u.log.Errorw("[payment][sync] pass failed", "err", err)
			}
		}
	}
}
