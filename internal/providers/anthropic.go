package providers

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
)

// AnthropicClient implements engine.LLMClient on the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient talks to the public API unless baseURL is set.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(apiKey, opts...)}
}

// Chat implements engine.LLMClient.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	systemParts, anthropicMsgs := toAnthropicMessages(messages)

	var toolDefs []anthropic.ToolDefinition
	for _, ts := range toolSchemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return engine.LLMResponse{}, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		toolDefs = append(toolDefs, anthropic.ToolDefinition{
			Name:        ts.Name,
			Description: ts.Description,
			InputSchema: schemaObj,
		})
	}

	maxTokens := 4096
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}
	temperature := float32(0.7)
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    anthropicMsgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(systemParts) > 0 {
		req.MultiSystem = systemParts
	}
	if len(toolDefs) > 0 {
		req.Tools = toolDefs
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var textContent string
	var toolCalls []engine.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				textContent += *block.Text
			}
		case "tool_use":
			if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
				continue
			}
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = make(map[string]any)
				}
			}
			toolCalls = append(toolCalls, engine.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}

	finishReason := "stop"
	switch {
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	case resp.StopReason == "max_tokens":
		finishReason = "length"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   textContent,
			ToolCalls: toolCalls,
		},
		ToolCalls: toolCalls,
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}

func toAnthropicMessages(messages []engine.ChatMessage) ([]anthropic.MessageSystemPart, []anthropic.Message) {
	var systemParts []anthropic.MessageSystemPart
	var out []anthropic.Message
	var prevAssistantHadToolCalls bool

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{Type: "text", Text: msg.Content})
			prevAssistantHadToolCalls = false
		case engine.RoleUser:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
			prevAssistantHadToolCalls = false
		case engine.RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" && msg.Content != " " {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(argsJSON)))
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
			prevAssistantHadToolCalls = len(msg.ToolCalls) > 0
		case engine.RoleTool:
			if !prevAssistantHadToolCalls {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			result := anthropic.NewToolResultMessageContent(msg.Name, content, false)
			// consecutive tool results share one user message
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultMessage(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, result)
				continue
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{result}})
		}
	}
	return systemParts, out
}

func isToolResultMessage(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != "tool_result" {
			return false
		}
	}
	return len(m.Content) > 0
}
