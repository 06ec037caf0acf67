package runner

import (
	"context"
	"time"

	"forwarder/internal/clients/loganalytics"
	"forwarder/internal/clock"
	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// RetryPolicy bounds how often and how patiently a query is retried
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   int
}

// DefaultRetryPolicy makes three attempts, waiting 2s then 4s between them
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Retrier runs a query with bounded exponential backoff. Only transient
// query errors are retried; anything else is returned on first occurrence.
type Retrier struct {
	executor loganalytics.QueryInterface
	policy   RetryPolicy
	clock    clock.Clock
	logger   *logging.Logger
}

func NewRetrier(executor loganalytics.QueryInterface, policy RetryPolicy, clk clock.Clock, logger *logging.Logger) *Retrier {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger("retry")
	}
	return &Retrier{
		executor: executor,
		policy:   policy.normalized(),
		clock:    clk,
		logger:   logger,
	}
}

// Do runs query, retrying transient failures. When every attempt fails the
// last transient error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, query string) (*loganalytics.Result, error) {
	delay := r.policy.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := r.executor.Query(ctx, query)
		if err == nil {
			return result, nil
		}
		if !errors.IsTransient(err) {
			return nil, err
		}

		r.logger.Warn("Retry attempt %d failed: %v", attempt, err)

		if attempt >= r.policy.MaxAttempts {
			r.logger.Error("Max retry attempts reached.")
			return nil, err
		}

		if attempt > 1 {
			delay *= time.Duration(r.policy.Multiplier)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.clock.After(delay):
		}
	}
}
