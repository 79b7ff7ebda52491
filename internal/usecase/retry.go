package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
)

const defaultConflictRetries uint64 = 3

// retryOnConflict re-runs op while it loses optimistic version races.
// op must re-read the rows it writes; any other error stops the loop.
func retryOnConflict(ctx context.Context, retries uint64, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, entities.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
}
