package storage

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// StartupRetry controls how long a backend keeps trying to reach its store
// while the process starts
type StartupRetry struct {
	Attempts uint64
	Interval time.Duration
}

// DefaultStartupRetry returns the retry policy used when none is configured
func DefaultStartupRetry() StartupRetry {
	return StartupRetry{Attempts: 10, Interval: time.Second}
}

// WaitUntilAvailable calls ping until it succeeds or the attempts run out.
// It is only meant for process startup; request paths never retry.
func WaitUntilAvailable(ctx context.Context, policy StartupRetry, ping func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(policy.Attempts, retry.NewConstant(policy.Interval))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
