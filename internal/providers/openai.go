package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient implements engine.LLMClient for OpenAI and every
// OpenAI-compatible API (Groq, local servers) selected by base URL.
type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		baseURL: baseURL,
	}
}

// Chat implements engine.LLMClient.
func (c *OpenAIClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	tools, err := toOpenAITools(toolSchemas)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = tools
		// the model decides when to use tools
		req.ToolChoice = "auto"
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}
	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, fmt.Errorf("empty response from OpenAI-compatible API")
	}

	choice := resp.Choices[0]
	toolCalls := fromOpenAIToolCalls(choice.Message.ToolCalls)

	finishReason := "stop"
	switch {
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	case choice.FinishReason == openai.FinishReasonLength:
		finishReason = "length"
	case choice.FinishReason == openai.FinishReasonContentFilter:
		finishReason = "content_filter"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: toolCalls,
		},
		ToolCalls: toolCalls,
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: finishReason,
	}, nil
}

func toOpenAIMessages(messages []engine.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	var prevAssistantHadToolCalls bool

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
			prevAssistantHadToolCalls = false
		case engine.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
			prevAssistantHadToolCalls = false
		case engine.RoleAssistant:
			// the SDK serializes "" as null, which some compatible APIs reject
			content := msg.Content
			if content == "" {
				content = " "
			}
			var toolCalls []openai.ToolCall
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   content,
				ToolCalls: toolCalls,
			})
			prevAssistantHadToolCalls = len(msg.ToolCalls) > 0
		case engine.RoleTool:
			// tool messages must follow an assistant message with tool_calls
			if !prevAssistantHadToolCalls {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: msg.Name,
				Content:    content,
			})
		}
	}
	return out
}

func toOpenAITools(toolSchemas []engine.ToolSchema) ([]openai.Tool, error) {
	var tools []openai.Tool
	for _, ts := range toolSchemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  schemaObj,
			},
		})
	}
	return tools, nil
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []engine.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]engine.ToolCall, 0, len(calls))
	for _, tc := range calls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// left empty; schema validation reports the missing fields
				args = make(map[string]any)
			}
		}
		out = append(out, engine.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return out
}

// extractErrorMetadata extracts the HTTP status code and Retry-After value
// from an SDK error.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var httpStatus int
	switch {
	case errors.As(err, &apiErr):
		httpStatus = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		httpStatus = reqErr.HTTPStatusCode
	}

	errStr := err.Error()
	if httpStatus == 0 {
		httpStatus = statusFromMessage(errStr)
	}

	var retryAfter string
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			parts := strings.Fields(strings.TrimLeft(errStr[idx+len(marker):], ": "))
			if len(parts) > 0 {
				retryAfter = parts[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}

// statusFromMessage recognizes status codes embedded in error text.
func statusFromMessage(errStr string) int {
	codes := []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusBadRequest,
		http.StatusPaymentRequired,
	}
	for _, code := range codes {
		if strings.Contains(errStr, fmt.Sprint(code)) {
			return code
		}
	}
	return 0
}
