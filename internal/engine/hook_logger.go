// engine/hook_logger.go
package engine

import (
	"context"
	"log/slog"
)

// LoggerHook writes one structured line per state transition. When
// FromContext is set it supplies the base logger (request-scoped fields);
// otherwise L is used.
type LoggerHook struct {
	L           *slog.Logger
	FromContext func(context.Context) *slog.Logger
}

func (h LoggerHook) log(ctx context.Context, rec *TurnRecord) *slog.Logger {
	l := h.L
	if h.FromContext != nil {
		l = h.FromContext(ctx)
	}
	if l == nil {
		l = slog.Default()
	}
	return l.With("turn_id", rec.TurnID, "session_id", rec.SessionID, "state", string(rec.State))
}

func (h LoggerHook) OnTurnStart(ctx context.Context, rec *TurnRecord) {
	h.log(ctx, rec).Info("turn started", "owner_id", rec.OwnerID, "tag", rec.Tag)
}

func (h LoggerHook) OnBeforeLLM(ctx context.Context, rec *TurnRecord, msgs []ChatMessage, toolSchemas []ToolSchema) {
	tokenizer := DefaultTokenizer{}
	messageTokens := CountTokensForMessages(tokenizer, msgs)
	toolTokens := CountTokensForSchemas(tokenizer, toolSchemas)
	h.log(ctx, rec).Info("model call",
		"messages", len(msgs),
		"tools", len(toolSchemas),
		"est_message_tokens", messageTokens,
		"est_tool_tokens", toolTokens,
	)
}

func (h LoggerHook) OnAfterLLM(ctx context.Context, rec *TurnRecord, r LLMResponse) {
	h.log(ctx, rec).Info("model reply",
		"finish", r.FinishReason,
		"tool_calls", len(r.ToolCalls),
		"prompt_tokens", r.Usage.Prompt,
		"completion_tokens", r.Usage.Completion,
		"cumulative_tokens", rec.Totals.Total,
	)
}

func (h LoggerHook) OnToolCall(ctx context.Context, rec *TurnRecord, c ToolCall) {
	h.log(ctx, rec).Info("tool call", "tool", c.Name, "args", c.Args)
}

func (h LoggerHook) OnToolResult(ctx context.Context, rec *TurnRecord, r ToolResult) {
	if r.Err != nil {
		h.log(ctx, rec).Warn("tool failed", "tool", r.Call.Name, "error", r.Err)
		return
	}
	h.log(ctx, rec).Info("tool result", "tool", r.Call.Name, "preview", preview(renderToolOutput(r.Output), 200))
}

func (h LoggerHook) OnLengthBranch(ctx context.Context, rec *TurnRecord, tokens int, summarize bool) {
	h.log(ctx, rec).Info("transcript length", "est_tokens", tokens, "chunked", summarize)
}

func (h LoggerHook) OnPersisted(ctx context.Context, rec *TurnRecord) {
	h.log(ctx, rec).Info("turn persisted")
}

func (h LoggerHook) OnDone(ctx context.Context, rec *TurnRecord) {
	h.log(ctx, rec).Info("turn done", "tokens", rec.Totals.Total, "reply_chars", len(rec.Reply))
}

func (h LoggerHook) OnError(ctx context.Context, rec *TurnRecord, err error) {
	h.log(ctx, rec).Error("turn failed", "error", err)
}

func preview(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
