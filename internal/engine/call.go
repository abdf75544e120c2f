package engine

import (
	"context"
	"time"
)

// chatWithTimeout bounds a single model call. A deadline expiry surfaces as
// ErrUpstreamTimeout, any other failure as ErrModelCallFailed.
func chatWithTimeout(ctx context.Context, llm LLMClient, timeout time.Duration, model string, msgs []ChatMessage, schemas []ToolSchema, opts ChatOptions) (LLMResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := llm.Chat(ctx, model, msgs, schemas, opts)
	if err != nil {
		return LLMResponse{}, asUpstreamError(err, ErrModelCallFailed)
	}
	return resp, nil
}
