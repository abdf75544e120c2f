package engine

import "context"

type Hooks []Hook

func (hs Hooks) OnTurnStart(ctx context.Context, rec *TurnRecord) {
	for _, h := range hs {
		h.OnTurnStart(ctx, rec)
	}
}
func (hs Hooks) OnBeforeLLM(ctx context.Context, rec *TurnRecord, m []ChatMessage, schemas []ToolSchema) {
	for _, h := range hs {
		h.OnBeforeLLM(ctx, rec, m, schemas)
	}
}
func (hs Hooks) OnAfterLLM(ctx context.Context, rec *TurnRecord, r LLMResponse) {
	for _, h := range hs {
		h.OnAfterLLM(ctx, rec, r)
	}
}
func (hs Hooks) OnToolCall(ctx context.Context, rec *TurnRecord, c ToolCall) {
	for _, h := range hs {
		h.OnToolCall(ctx, rec, c)
	}
}
func (hs Hooks) OnToolResult(ctx context.Context, rec *TurnRecord, r ToolResult) {
	for _, h := range hs {
		h.OnToolResult(ctx, rec, r)
	}
}
func (hs Hooks) OnLengthBranch(ctx context.Context, rec *TurnRecord, tokens int, summarize bool) {
	for _, h := range hs {
		h.OnLengthBranch(ctx, rec, tokens, summarize)
	}
}
func (hs Hooks) OnPersisted(ctx context.Context, rec *TurnRecord) {
	for _, h := range hs {
		h.OnPersisted(ctx, rec)
	}
}
func (hs Hooks) OnDone(ctx context.Context, rec *TurnRecord) {
	for _, h := range hs {
		h.OnDone(ctx, rec)
	}
}
func (hs Hooks) OnError(ctx context.Context, rec *TurnRecord, err error) {
	for _, h := range hs {
		h.OnError(ctx, rec, err)
	}
}
