package providers

import (
	"context"
	"strings"
	"sync"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
)

// MockLLM replays scripted responses in order. Once the script is exhausted
// it echoes the last user message, which is what the "mock" provider serves
// for offline runs.
type MockLLM struct {
	mu        sync.Mutex
	Responses []engine.LLMResponse
	Err       error // returned by every call when set
	Requests  [][]engine.ChatMessage
}

// NewMockLLM returns a mock that answers with responses, then echoes.
func NewMockLLM(responses ...engine.LLMResponse) *MockLLM {
	return &MockLLM{Responses: responses}
}

// Chat implements engine.LLMClient.
func (m *MockLLM) Chat(ctx context.Context, _ string, messages []engine.ChatMessage, _ []engine.ToolSchema, _ engine.ChatOptions) (engine.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return engine.LLMResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, append([]engine.ChatMessage(nil), messages...))
	if m.Err != nil {
		return engine.LLMResponse{}, m.Err
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}
	return Text("You said: " + lastUserMessage(messages)), nil
}

// Calls returns how many requests the mock has served.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Text builds a plain assistant reply.
func Text(content string) engine.LLMResponse {
	return engine.LLMResponse{
		Assistant:    engine.ChatMessage{Role: engine.RoleAssistant, Content: content},
		Usage:        engine.Usage{Prompt: 1, Completion: 1, Total: 2},
		FinishReason: "stop",
	}
}

// ToolCalls builds a reply requesting the given tool calls.
func ToolCalls(calls ...engine.ToolCall) engine.LLMResponse {
	return engine.LLMResponse{
		Assistant:    engine.ChatMessage{Role: engine.RoleAssistant, ToolCalls: calls},
		ToolCalls:    calls,
		Usage:        engine.Usage{Prompt: 1, Completion: 1, Total: 2},
		FinishReason: "tool_calls",
	}
}

func lastUserMessage(messages []engine.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == engine.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
