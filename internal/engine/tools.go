package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ToolKind is the closed set of tools the assistant may call.
type ToolKind int

const (
	ToolSearch ToolKind = iota + 1
	ToolFetchTranscript
)

var toolNames = map[ToolKind]string{
	ToolSearch:          "youtube_search",
	ToolFetchTranscript: "fetch_transcript",
}

// Name returns the wire name exposed to the model.
func (k ToolKind) Name() string {
	if n, ok := toolNames[k]; ok {
		return n
	}
	return fmt.Sprintf("tool(%d)", int(k))
}

func (k ToolKind) String() string { return k.Name() }

// ParseToolKind resolves a wire name requested by the model.
func ParseToolKind(name string) (ToolKind, error) {
	for k, n := range toolNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// SearchArgs are the arguments of youtube_search.
type SearchArgs struct {
	Query string `json:"query"`
}

// FetchTranscriptArgs are the arguments of fetch_transcript.
type FetchTranscriptArgs struct {
	URL string `json:"url"`
}

// VideoSummary is one youtube_search hit.
type VideoSummary struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Views       string `json:"views"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
}

// Transcript is the fetch_transcript result.
type Transcript struct {
	VideoID     string `json:"video_id"`
	Text        string `json:"transcript"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Duration    string `json:"duration,omitempty"`
	ViewCount   string `json:"view_count,omitempty"`
}

// ToolFunc executes a tool with schema-validated arguments. The returned
// value is the structured payload ([]VideoSummary, *Transcript).
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Kind        ToolKind
	Description string
	SchemaJSON  string
	Fn          ToolFunc
}

// ValidateArgs validates the provided arguments against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ToolValidationError{
			ToolName: t.Kind.Name(),
			Errors:   errorMsgs,
		}
	}

	return nil
}

// DecodeArgs converts validated arguments into a typed argument struct.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return out, nil
}

// ToolRegistry maps each declared tool kind to its implementation.
type ToolRegistry struct {
	tools map[ToolKind]Tool
}

func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[ToolKind]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Kind] = t
}

// Schemas returns the declared tool schemas in stable kind order.
func (r *ToolRegistry) Schemas() []ToolSchema {
	kinds := make([]ToolKind, 0, len(r.tools))
	for k := range r.tools {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	s := make([]ToolSchema, 0, len(kinds))
	for _, k := range kinds {
		t := r.tools[k]
		s = append(s, ToolSchema{
			Name:        k.Name(),
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return s
}

// Invoke resolves name, validates args and runs the tool.
// Unknown names fail with ErrUnknownTool, schema mismatches with ErrInvalidArguments.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args map[string]any) (ToolKind, any, error) {
	kind, err := ParseToolKind(name)
	if err != nil {
		return 0, nil, err
	}
	t, ok := r.tools[kind]
	if !ok {
		return kind, nil, fmt.Errorf("%w: %q is not registered", ErrUnknownTool, name)
	}

	if err := t.ValidateArgs(args); err != nil {
		return kind, nil, err
	}

	out, err := t.Fn(ctx, args)
	if err != nil {
		return kind, nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return kind, out, nil
}

// ToolResult is one executed tool call of a turn.
type ToolResult struct {
	Call   ToolCall
	Kind   ToolKind
	Output any
	Err    error
}

// Transcript returns the fetched transcript, if this result carries one.
func (r ToolResult) Transcript() (*Transcript, bool) {
	if r.Err != nil || r.Kind != ToolFetchTranscript {
		return nil, false
	}
	tr, ok := r.Output.(*Transcript)
	return tr, ok && tr != nil
}
