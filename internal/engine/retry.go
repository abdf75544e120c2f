package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior for model calls.
type RetryPolicy struct {
	MaxRetries   int           // Maximum number of retry attempts (0 = no retries)
	InitialDelay time.Duration // Initial delay before first retry
	MaxDelay     time.Duration // Maximum delay cap
	Multiplier   float64       // Exponential backoff multiplier (e.g., 2.0)
	Jitter       bool          // Whether to add random jitter to delays
}

// DefaultRetryPolicy returns the policy used for model calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithPolicy executes a function with retry logic based on the policy.
// Returns the result on success, or the last error if all retries are exhausted.
func RetryWithPolicy[T any](
	ctx context.Context,
	policy RetryPolicy,
	fn RetryableFunc[T],
	classifyError func(error) RetryClass,
	onRetry func(attempt int, delay time.Duration, err error),
) (T, error) {
	var zero T

	attempt := 0
	for {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		class := classifyError(err)
		if class == RetryClassNonRetryable {
			return zero, err
		}

		if attempt >= policy.MaxRetries {
			if attempt == 0 {
				return zero, err
			}
			return zero, &RetryExhaustedError{Err: err, Attempts: attempt + 1}
		}

		// "maybe" errors get at most one retry
		if class == RetryClassMaybe && attempt >= 1 {
			return zero, &RetryExhaustedError{Err: err, Attempts: attempt + 1, Guarded: true}
		}

		delay := calculateDelay(policy, attempt, err)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}

		attempt++
	}
}

// calculateDelay computes the delay for a retry attempt.
func calculateDelay(policy RetryPolicy, attempt int, err error) time.Duration {
	if retryAfter := RetryAfter(err); retryAfter > 0 {
		if retryAfter > policy.MaxDelay {
			return policy.MaxDelay
		}
		return retryAfter
	}

	// Exponential backoff: initialDelay * (multiplier ^ attempt)
	delay := float64(policy.InitialDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	if policy.Jitter {
		delay += rand.Float64() * 0.2 * delay // 0-20% jitter
	}

	return time.Duration(delay)
}

// RetryingClient decorates an LLMClient with RetryWithPolicy.
type RetryingClient struct {
	Next    LLMClient
	Policy  RetryPolicy
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (c *RetryingClient) Chat(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (LLMResponse, error) {
	return RetryWithPolicy(
		ctx,
		c.Policy,
		func(ctx context.Context) (LLMResponse, error) {
			return c.Next.Chat(ctx, model, messages, toolSchemas, opts)
		},
		ClassifyLLMError,
		c.OnRetry,
	)
}
