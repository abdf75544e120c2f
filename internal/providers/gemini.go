package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
)

// GeminiClient implements engine.LLMClient on the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{client: gc}, nil
}

// Chat implements engine.LLMClient.
func (c *GeminiClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	system, contents := toGeminiContents(messages)
	tools, err := toGeminiTools(toolSchemas)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	config := &genai.GenerateContentConfig{Tools: tools}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		config.Temperature = &temp
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		var apiErr genai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		_, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, status, retryAfter)
	}
	if len(resp.Candidates) == 0 {
		return engine.LLMResponse{}, fmt.Errorf("empty response from Gemini")
	}

	var toolCalls []engine.ToolCall
	for i, fc := range resp.FunctionCalls() {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("%s_%d", fc.Name, i)
		}
		args := fc.Args
		if args == nil {
			args = make(map[string]any)
		}
		toolCalls = append(toolCalls, engine.ToolCall{ID: id, Name: fc.Name, Args: args})
	}

	var text strings.Builder
	if cand := resp.Candidates[0]; cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" && !p.Thought {
				text.WriteString(p.Text)
			}
		}
	}

	finishReason := "stop"
	switch {
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	case resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens:
		finishReason = "length"
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		finishReason = "content_filter"
	}

	var usage engine.Usage
	if u := resp.UsageMetadata; u != nil {
		usage = engine.Usage{
			Prompt:     int(u.PromptTokenCount),
			Completion: int(u.CandidatesTokenCount),
			Total:      int(u.TotalTokenCount),
		}
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   text.String(),
			ToolCalls: toolCalls,
		},
		ToolCalls:    toolCalls,
		Usage:        usage,
		FinishReason: finishReason,
	}, nil
}

// toGeminiContents folds system messages into one instruction and maps the
// rest onto user/model turns. Consecutive tool results share one user turn.
func toGeminiContents(messages []engine.ChatMessage) (string, []*genai.Content) {
	var system []string
	var out []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			system = append(system, msg.Content)
		case engine.RoleUser:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		case engine.RoleAssistant:
			var parts []*genai.Part
			if strings.TrimSpace(msg.Content) != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Args}})
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case engine.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.Name,
				Name:     msg.ToolName,
				Response: map[string]any{"output": msg.Content},
			}}
			if n := len(out); n > 0 && out[n-1].Role == genai.RoleUser && out[n-1].Parts[0].FunctionResponse != nil {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}
	return strings.Join(system, "\n\n"), out
}

func toGeminiTools(toolSchemas []engine.ToolSchema) ([]*genai.Tool, error) {
	if len(toolSchemas) == 0 {
		return nil, nil
	}
	decls := make([]*genai.FunctionDeclaration, len(toolSchemas))
	for i, ts := range toolSchemas {
		var schema map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		decls[i] = &genai.FunctionDeclaration{
			Name:                 ts.Name,
			Description:          ts.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}
