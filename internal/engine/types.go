package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ChatMessage is the provider-agnostic message we pass around.
type ChatMessage struct {
	Role    MessageRole // Role of the message sender
	Content string      // Message content
	// Name holds the tool_call_id for tool messages; providers need it to
	// link a result back to the assistant's tool call.
	Name     string
	ToolName string // tool name for tool messages (Gemini needs it)
	// ToolCalls stores the tool calls made by this assistant message.
	// Providers require them when an assistant message is replayed.
	ToolCalls []ToolCall
}

// Validate checks if the ChatMessage is valid.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	if m.Role == RoleTool && m.Name == "" {
		return fmt.Errorf("tool messages must have a Name field")
	}
	return nil
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// Add accumulates another usage record.
func (u *Usage) Add(o Usage) {
	u.Prompt += o.Prompt
	u.Completion += o.Completion
	u.Total += o.Total
}

// ToolCall represents a function/tool the assistant requested.
type ToolCall struct {
	ID   string // Provider-specific tool call ID (e.g., OpenAI's call_xxx)
	Name string
	Args map[string]any
}

// LLMResponse is a normalized result of one chat call.
type LLMResponse struct {
	Assistant    ChatMessage
	ToolCalls    []ToolCall // zero or more tool calls requested by the model
	Usage        Usage
	FinishReason string // "stop" | "length" | "tool_calls" | "content_filter"
}

// LLMClient abstracts the chosen SDK (OpenAI-compatible, Anthropic, Gemini).
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (LLMResponse, error)
}

// ChatOptions keeps knobs forwarded to the SDK.
type ChatOptions struct {
	Temperature     float32
	MaxOutputTokens int
}

// ToolSchema is the JSON schema the provider expects for function calling.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string // keep as raw JSON string for simplicity
}
