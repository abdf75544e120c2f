package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		err  error
		want RetryClass
	}{
		{errors.New("status 429: rate limit"), RetryClassRetryable},
		{errors.New("503 service unavailable"), RetryClassRetryable},
		{errors.New("dial tcp: connection refused"), RetryClassRetryable},
		{context.DeadlineExceeded, RetryClassMaybe},
		{context.Canceled, RetryClassNonRetryable},
		{errors.New("401 invalid api key"), RetryClassNonRetryable},
		{&ProviderError{Err: errors.New("x"), Class: RetryClassRetryable}, RetryClassRetryable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLLMError(tt.err), tt.err.Error())
	}
}

func TestRetryingClient_RetriesRetryable(t *testing.T) {
	llm := &fakeLLM{fn: func(_ context.Context, n int, _ []ChatMessage, _ []ToolSchema) (LLMResponse, error) {
		if n < 2 {
			return LLMResponse{}, errors.New("429 too many requests")
		}
		return textReply("ok"), nil
	}}
	var retries []int
	c := &RetryingClient{Next: llm, Policy: fastPolicy(2), OnRetry: func(a int, _ time.Duration, _ error) { retries = append(retries, a) }}

	resp, err := c.Chat(context.Background(), "m", nil, nil, ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Assistant.Content)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryingClient_NonRetryableFailsFast(t *testing.T) {
	llm := &fakeLLM{fn: func(context.Context, int, []ChatMessage, []ToolSchema) (LLMResponse, error) {
		return LLMResponse{}, errors.New("400 bad request")
	}}
	c := &RetryingClient{Next: llm, Policy: fastPolicy(3)}

	_, err := c.Chat(context.Background(), "m", nil, nil, ChatOptions{})
	require.Error(t, err)
	assert.False(t, IsRetryExhausted(err))
	assert.Len(t, llm.Calls(), 1)
}

func TestRetryingClient_Exhausted(t *testing.T) {
	llm := &fakeLLM{fn: func(context.Context, int, []ChatMessage, []ToolSchema) (LLMResponse, error) {
		return LLMResponse{}, errors.New("502 bad gateway")
	}}
	c := &RetryingClient{Next: llm, Policy: fastPolicy(2)}

	_, err := c.Chat(context.Background(), "m", nil, nil, ChatOptions{})
	require.Error(t, err)
	assert.True(t, IsRetryExhausted(err))
	assert.Len(t, llm.Calls(), 3)
}

func TestRetryWithPolicy_MaybeRetriedOnce(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("request timeout")
	}, ClassifyLLMError, nil)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.True(t, exhausted.Guarded)
	assert.Equal(t, 2, calls)
}

func TestCalculateDelay_RespectsRetryAfterAndCap(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
	assert.Equal(t, 4*time.Second, calculateDelay(p, 2, errors.New("x")))
	assert.Equal(t, 10*time.Second, calculateDelay(p, 10, errors.New("x")))

	withHeader := &ProviderError{Err: errors.New("429"), RetryAfter: "3"}
	assert.Equal(t, 3*time.Second, calculateDelay(p, 0, withHeader))
}

func TestWrapLLMError_StatusWins(t *testing.T) {
	err := WrapLLMError(errors.New("something odd"), 503, "")
	assert.Equal(t, RetryClassRetryable, ClassifyLLMError(err))

	err = WrapLLMError(errors.New("503 in the body"), 401, "")
	assert.Equal(t, RetryClassNonRetryable, ClassifyLLMError(err))

	err = WrapLLMError(errors.New("slow down"), 429, "7")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.RateLimited())
	assert.Equal(t, 7*time.Second, RetryAfter(err))

	assert.Nil(t, WrapLLMError(nil, 500, ""))
}
