package engine

import (
	"context"
	"strings"
	"sync"
)

type fakeCall struct {
	msgs    []ChatMessage
	schemas []ToolSchema
}

// fakeLLM answers every Chat call through fn and records what it was sent.
type fakeLLM struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(ctx context.Context, n int, msgs []ChatMessage, schemas []ToolSchema) (LLMResponse, error)
}

func (f *fakeLLM) Chat(ctx context.Context, _ string, msgs []ChatMessage, schemas []ToolSchema, _ ChatOptions) (LLMResponse, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, fakeCall{msgs: append([]ChatMessage(nil), msgs...), schemas: schemas})
	f.mu.Unlock()
	return f.fn(ctx, n, msgs, schemas)
}

func (f *fakeLLM) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

// scripted returns the replies in order and fails the test run with a
// readable reply once they run out.
func scripted(replies ...LLMResponse) *fakeLLM {
	return &fakeLLM{fn: func(_ context.Context, n int, _ []ChatMessage, _ []ToolSchema) (LLMResponse, error) {
		if n >= len(replies) {
			return textReply("unexpected extra call"), nil
		}
		return replies[n], nil
	}}
}

func textReply(s string) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant, Content: s},
		Usage:        Usage{Prompt: 10, Completion: 5, Total: 15},
		FinishReason: "stop",
	}
}

func toolReply(calls ...ToolCall) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant},
		ToolCalls:    calls,
		Usage:        Usage{Prompt: 20, Completion: 5, Total: 25},
		FinishReason: "tool_calls",
	}
}

func isChunkCall(msgs []ChatMessage) bool {
	return len(msgs) > 0 && strings.HasPrefix(msgs[0].Content, "You summarize one part")
}

const (
	testSearchSchema     = `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`
	testTranscriptSchema = `{"type":"object","properties":{"url":{"type":"string"}},"required":["url"]}`
)

var testVideos = []VideoSummary{
	{VideoID: "bh1", Title: "Black Holes Explained", Channel: "Kurzgesagt", Views: "1000", URL: "https://www.youtube.com/watch?v=bh1"},
	{VideoID: "bh2", Title: "Inside a Black Hole", Channel: "PBS Space Time", Views: "0", URL: "https://www.youtube.com/watch?v=bh2"},
}

// testRegistry serves fixed search results and returns transcriptText for any
// URL carrying a v= parameter.
func testRegistry(transcriptText string) *ToolRegistry {
	return NewToolRegistry(
		Tool{
			Kind:        ToolSearch,
			Description: "search",
			SchemaJSON:  testSearchSchema,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				return testVideos, nil
			},
		},
		Tool{
			Kind:        ToolFetchTranscript,
			Description: "transcript",
			SchemaJSON:  testTranscriptSchema,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				a, err := DecodeArgs[FetchTranscriptArgs](args)
				if err != nil {
					return nil, err
				}
				if !strings.Contains(a.URL, "v=") {
					return nil, ErrInvalidURL
				}
				if strings.Contains(a.URL, "notracks") {
					return nil, ErrTranscriptUnavailable
				}
				return &Transcript{VideoID: "abc", Text: transcriptText, Title: "Black Holes Explained", Duration: "PT12M"}, nil
			},
		},
	)
}

// recordingHook keeps the last finished turn record.
type recordingHook struct {
	NopHook
	mu       sync.Mutex
	last     *TurnRecord
	lastErr  error
	branches []bool
}

func (h *recordingHook) OnLengthBranch(_ context.Context, _ *TurnRecord, _ int, summarize bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.branches = append(h.branches, summarize)
}

func (h *recordingHook) OnDone(_ context.Context, rec *TurnRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = rec
}

func (h *recordingHook) OnError(_ context.Context, rec *TurnRecord, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = rec
	h.lastErr = err
}
