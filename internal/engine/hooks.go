// engine/hooks.go
package engine

import "context"

// Hook observes a turn as it moves through the state machine.
type Hook interface {
	OnTurnStart(ctx context.Context, rec *TurnRecord)
	OnBeforeLLM(ctx context.Context, rec *TurnRecord, messages []ChatMessage, toolSchemas []ToolSchema)
	OnAfterLLM(ctx context.Context, rec *TurnRecord, resp LLMResponse)
	OnToolCall(ctx context.Context, rec *TurnRecord, call ToolCall)
	OnToolResult(ctx context.Context, rec *TurnRecord, result ToolResult)
	OnLengthBranch(ctx context.Context, rec *TurnRecord, tokens int, summarize bool)
	OnPersisted(ctx context.Context, rec *TurnRecord)
	OnDone(ctx context.Context, rec *TurnRecord)
	OnError(ctx context.Context, rec *TurnRecord, err error)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnTurnStart(context.Context, *TurnRecord)                               {}
func (NopHook) OnBeforeLLM(context.Context, *TurnRecord, []ChatMessage, []ToolSchema)  {}
func (NopHook) OnAfterLLM(context.Context, *TurnRecord, LLMResponse)                   {}
func (NopHook) OnToolCall(context.Context, *TurnRecord, ToolCall)                      {}
func (NopHook) OnToolResult(context.Context, *TurnRecord, ToolResult)                  {}
func (NopHook) OnLengthBranch(context.Context, *TurnRecord, int, bool)                 {}
func (NopHook) OnPersisted(context.Context, *TurnRecord)                               {}
func (NopHook) OnDone(context.Context, *TurnRecord)                                    {}
func (NopHook) OnError(context.Context, *TurnRecord, error)                            {}
