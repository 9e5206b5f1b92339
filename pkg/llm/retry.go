package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the worst-case latency of a model call.
type RetryPolicy struct {
	Timeout         time.Duration // overall deadline, 0 = none
	MaxRetries      uint          // retries after the first attempt
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
	}
}

// RetryNotify is invoked before each backoff sleep.
type RetryNotify func(err error, wait time.Duration)

type retryingProvider struct {
	next   LLMProvider
	policy RetryPolicy
	notify RetryNotify
}

// Ensure retryingProvider implements LLMProvider
var _ LLMProvider = &retryingProvider{}

// WithRetry wraps next with a deadline and bounded exponential retry for
// retriable error classes only.
func WithRetry(next LLMProvider, policy RetryPolicy, notify RetryNotify) LLMProvider {
	return &retryingProvider{
		next:   next,
		policy: policy,
		notify: notify,
	}
}

func (p *retryingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	parent := ctx
	if p.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.policy.Timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	if p.policy.InitialInterval > 0 {
		b.InitialInterval = p.policy.InitialInterval
	}
	if p.policy.MaxInterval > 0 {
		b.MaxInterval = p.policy.MaxInterval
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.policy.MaxRetries + 1),
		backoff.WithMaxElapsedTime(p.policy.Timeout),
	}
	if p.notify != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(backoff.Notify(p.notify)))
	}

	reply, err := backoff.Retry(ctx, func() (string, error) {
		reply, err := p.next.Chat(ctx, history, options...)
		if err == nil {
			return reply, nil
		}
		if !IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}, retryOpts...)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		// A cancelled caller is not an upstream timeout.
		if parent.Err() == nil && isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", err
	}

	return reply, nil
}
