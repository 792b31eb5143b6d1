// Package retry runs an operation again after a backoff when it fails.
package retry

import (
	"context"
	"time"

	"github.com/peercoin/warnd/ulogger"
)

type SetOptions struct {
	RetryCount          int
	BackoffMultiplier   int
	BackoffDurationType time.Duration
	ExponentialBackoff  bool
	BackoffFactor       float64
	MaxBackoff          time.Duration
	Message             string
	RetryIf             func(error) bool
}

type Options func(s *SetOptions)

func NewSetOptions(opts ...Options) *SetOptions {
	s := &SetOptions{
		RetryCount:          3,
		BackoffMultiplier:   2,
		BackoffDurationType: time.Second,
		BackoffFactor:       2.0,
		MaxBackoff:          30 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithRetryCount sets the total number of attempts, at least one is always made.
func WithRetryCount(retryCount int) Options {
	return func(s *SetOptions) {
		s.RetryCount = retryCount
	}
}

func WithBackoffMultiplier(backoffMultiplier int) Options {
	return func(s *SetOptions) {
		s.BackoffMultiplier = backoffMultiplier
	}
}

func WithBackoffDurationType(backoffDurationType time.Duration) Options {
	return func(s *SetOptions) {
		s.BackoffDurationType = backoffDurationType
	}
}

// WithExponentialBackoff switches from linear backoff to doubling, see WithBackoffFactor and WithMaxBackoff.
func WithExponentialBackoff() Options {
	return func(s *SetOptions) {
		s.ExponentialBackoff = true
	}
}

func WithBackoffFactor(factor float64) Options {
	return func(s *SetOptions) {
		s.BackoffFactor = factor
	}
}

func WithMaxBackoff(maxBackoff time.Duration) Options {
	return func(s *SetOptions) {
		s.MaxBackoff = maxBackoff
	}
}

func WithMessage(message string) Options {
	return func(s *SetOptions) {
		s.Message = message
	}
}

// WithRetryIf limits retries to errors for which fn returns true. Other
// errors are returned immediately.
func WithRetryIf(fn func(error) bool) Options {
	return func(s *SetOptions) {
		s.RetryIf = fn
	}
}

// Retry calls f until it succeeds, the attempts are used up, f returns an
// error RetryIf rejects, or ctx is done. The last result and error are returned.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Options) (T, error) {
	s := NewSetOptions(opts...)

	var (
		result T
		err    error
	)

	backoff := s.BackoffDurationType

	for i := 0; i < max(s.RetryCount, 1); i++ {
		if i > 0 {
			var sleepErr error

			if s.ExponentialBackoff {
				sleepErr = sleepFunc(ctx, backoff)
				backoff = CappedExponentialBackoff(backoff, s.BackoffFactor, s.MaxBackoff)
			} else {
				sleepErr = BackoffAndSleep(ctx, i-1, s.BackoffMultiplier, s.BackoffDurationType)
			}

			if sleepErr != nil {
				return result, sleepErr
			}
		}

		result, err = f()
		if err == nil {
			return result, nil
		}

		if s.RetryIf != nil && !s.RetryIf(err) {
			return result, err
		}

		if i+1 < s.RetryCount {
			logger.Warnf("%s (attempt %d of %d): %v", s.Message, i+1, s.RetryCount, err)
		}
	}

	return result, err
}
