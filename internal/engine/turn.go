package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/easywatch/internal/prompts"
	"github.com/ChamsBouzaiene/easywatch/internal/session"
)

// TurnConfig holds the orchestrator knobs.
type TurnConfig struct {
	Model        string
	HistoryLimit int           // complete turns loaded as context
	CallTimeout  time.Duration // per model call
	ToolTimeout  time.Duration // per tool execution
	Options      ChatOptions
	Summarizer   SummarizerConfig
}

// DefaultTurnConfig returns the production defaults for model.
func DefaultTurnConfig(model string) TurnConfig {
	return TurnConfig{
		Model:        model,
		HistoryLimit: 10,
		CallTimeout:  60 * time.Second,
		ToolTimeout:  30 * time.Second,
		Options:      ChatOptions{MaxOutputTokens: 4096, Temperature: 0.7},
		Summarizer:   DefaultSummarizerConfig(),
	}
}

// TurnInput is one user utterance addressed to a session.
type TurnInput struct {
	SessionID string
	OwnerID   string
	Tag       string
	Query     string
}

// TurnOutput is the result of a completed turn.
type TurnOutput struct {
	TurnID     string   `json:"turn_id"`
	SessionID  string   `json:"session_id"`
	Reply      string   `json:"response"`
	ToolsUsed  []string `json:"tools_used,omitempty"`
	Summarized bool     `json:"summarized"`
	Usage      Usage    `json:"-"`
}

// Orchestrator runs conversational turns. It holds no per-turn state, so a
// single instance serves concurrent turns.
type Orchestrator struct {
	llm        LLMClient
	tools      *ToolRegistry
	store      session.Store
	prompts    *prompts.PromptRegistry
	summarizer *ChunkedSummarizer
	hooks      Hooks
	cfg        TurnConfig

	now   func() time.Time
	newID func() string
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithHooks adds observers of every turn.
func WithHooks(h ...Hook) OrchestratorOption {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, h...) }
}

// WithClock replaces time.Now, used for the date in the system prompt and
// message timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces uuid generation for turn and message ids.
func WithIDGenerator(gen func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = gen }
}

// WithPromptRegistry overrides the default prompt registry.
func WithPromptRegistry(r *prompts.PromptRegistry) OrchestratorOption {
	return func(o *Orchestrator) { o.prompts = r }
}

func NewOrchestrator(llm LLMClient, tools *ToolRegistry, store session.Store, cfg TurnConfig, opts ...OrchestratorOption) (*Orchestrator, error) {
	if llm == nil {
		return nil, errors.New("engine: llm client is required")
	}
	if tools == nil {
		return nil, errors.New("engine: tool registry is required")
	}
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("engine: model is required")
	}
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}

	o := &Orchestrator{
		llm:     llm,
		tools:   tools,
		store:   store,
		prompts: prompts.DefaultRegistry(),
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	chunkPrompt, err := prompts.Render(o.prompts, prompts.IDChunkSummary, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: chunk prompt: %w", err)
	}
	o.summarizer = NewChunkedSummarizer(llm, cfg.Model, chunkPrompt, cfg.Summarizer, cfg.CallTimeout)
	return o, nil
}

// RunTurn drives one turn through the state machine:
//
//	Start → ContextLoaded → ModelQueried → [ToolDispatch → [LengthBranch] → FinalQueried] → Persisted → Done
//
// The user message is written first, tagged with the turn id. The assistant
// reply is written only when the turn completes, so a failed turn leaves an
// unpaired user message that later context loads skip.
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, errors.New("engine: empty query")
	}
	if in.SessionID == "" {
		in.SessionID = o.newID()
	}
	if in.OwnerID == "" {
		in.OwnerID = session.GuestOwner
	}
	if in.Tag == "" {
		in.Tag = session.DefaultTag
	}

	rec := &TurnRecord{
		TurnID:    o.newID(),
		SessionID: in.SessionID,
		OwnerID:   in.OwnerID,
		Tag:       in.Tag,
		Query:     in.Query,
		Model:     o.cfg.Model,
	}
	rec.Enter(StateStart)
	o.hooks.OnTurnStart(ctx, rec)

	if err := o.run(ctx, rec); err != nil {
		o.hooks.OnError(ctx, rec, err)
		return nil, err
	}

	rec.Enter(StateDone)
	o.hooks.OnDone(ctx, rec)

	out := &TurnOutput{
		TurnID:     rec.TurnID,
		SessionID:  rec.SessionID,
		Reply:      rec.Reply,
		Summarized: rec.Summarized,
		Usage:      rec.Totals,
	}
	for _, r := range rec.Results {
		out.ToolsUsed = append(out.ToolsUsed, r.Call.Name)
	}
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, rec *TurnRecord) error {
	if err := o.loadContext(ctx, rec); err != nil {
		return err
	}

	resp, err := o.queryModel(ctx, rec, rec.Messages, o.tools.Schemas())
	if err != nil {
		return wrapTurn(err, rec, "llm_call")
	}
	rec.Enter(StateModelQueried)
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = fmt.Sprintf("call_%d", i)
		}
	}
	rec.Append(ChatMessage{Role: RoleAssistant, Content: resp.Assistant.Content, ToolCalls: resp.ToolCalls})

	if len(resp.ToolCalls) == 0 {
		rec.Reply = resp.Assistant.Content
		return o.persist(ctx, rec)
	}

	rec.Enter(StateToolDispatch)
	if err := o.dispatchTools(ctx, rec, resp.ToolCalls); err != nil {
		return err
	}

	if rec.Transcript != nil {
		rec.Enter(StateLengthBranch)
		if err := o.lengthBranch(ctx, rec); err != nil {
			return err
		}
	}

	// Anthropic rejects replayed tool_use blocks without tool declarations.
	// Tool calls in this second response are ignored.
	var finalSchemas []ToolSchema
	if rec.Transcript == nil {
		finalSchemas = o.tools.Schemas()
	}
	final, err := o.queryModel(ctx, rec, o.finalMessages(rec), finalSchemas)
	if err != nil {
		return wrapTurn(err, rec, "final_llm_call")
	}
	rec.Enter(StateFinalQueried)
	rec.Reply = final.Assistant.Content

	return o.persist(ctx, rec)
}

func (o *Orchestrator) loadContext(ctx context.Context, rec *TurnRecord) error {
	// Claim before the user message is written: an orphaned message must
	// never become readable by another principal.
	owned, err := o.store.ClaimSession(ctx, &session.Session{
		ID:        rec.SessionID,
		OwnerID:   rec.OwnerID,
		Tag:       rec.Tag,
		UpdatedAt: o.now().UTC(),
	})
	if err != nil {
		return wrapTurn(err, rec, "claim_session")
	}
	if owned.OwnerID != rec.OwnerID {
		return wrapTurn(ErrAccessDenied, rec, "claim_session")
	}

	turns, err := session.RecentTurns(ctx, o.store, rec.SessionID, o.cfg.HistoryLimit)
	if err != nil {
		return wrapTurn(err, rec, "load_context")
	}

	if err := o.store.AppendMessage(ctx, &session.Message{
		ID:        o.newID(),
		SessionID: rec.SessionID,
		TurnID:    rec.TurnID,
		Role:      session.RoleUser,
		Content:   rec.Query,
		CreatedAt: o.now().UTC(),
	}); err != nil {
		return wrapTurn(err, rec, "append_user_message")
	}

	system, err := prompts.Render(o.prompts, prompts.IDAssistant, map[string]string{
		"today": o.now().Format(prompts.DateLayout),
	})
	if err != nil {
		return wrapTurn(err, rec, "render_prompt")
	}

	rec.Append(ChatMessage{Role: RoleSystem, Content: system})
	for _, t := range turns {
		rec.Append(ChatMessage{Role: RoleUser, Content: t.User})
		rec.Append(ChatMessage{Role: RoleAssistant, Content: t.Assistant})
	}
	rec.Append(ChatMessage{Role: RoleUser, Content: rec.Query})

	rec.Enter(StateContextLoaded)
	return nil
}

func (o *Orchestrator) queryModel(ctx context.Context, rec *TurnRecord, msgs []ChatMessage, schemas []ToolSchema) (LLMResponse, error) {
	o.hooks.OnBeforeLLM(ctx, rec, msgs, schemas)
	resp, err := chatWithTimeout(ctx, o.llm, o.cfg.CallTimeout, o.cfg.Model, msgs, schemas, o.cfg.Options)
	if err != nil {
		return LLMResponse{}, err
	}
	rec.Totals.Add(resp.Usage)
	o.hooks.OnAfterLLM(ctx, rec, resp)
	return resp, nil
}

// dispatchTools runs every requested call once, in request order. Tool-level
// failures become tool-result text so the final call can explain them; any
// other failure aborts the turn.
func (o *Orchestrator) dispatchTools(ctx context.Context, rec *TurnRecord, calls []ToolCall) error {
	for _, call := range calls {
		o.hooks.OnToolCall(ctx, rec, call)

		result := o.invoke(ctx, call)
		o.hooks.OnToolResult(ctx, rec, result)
		rec.Results = append(rec.Results, result)

		if result.Err != nil && !isToolLevelError(result.Err) {
			return wrapTurn(result.Err, rec, "tool:"+call.Name)
		}

		if tr, ok := result.Transcript(); ok && rec.Transcript == nil {
			rec.Transcript = tr
		}

		rec.Append(ChatMessage{
			Role:     RoleTool,
			Name:     call.ID,
			ToolName: call.Name,
			Content:  toolResultText(result),
		})
	}
	return nil
}

func (o *Orchestrator) invoke(ctx context.Context, call ToolCall) ToolResult {
	if o.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ToolTimeout)
		defer cancel()
	}
	kind, out, err := o.tools.Invoke(ctx, call.Name, call.Args)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = asUpstreamError(err, ErrUpstreamTimeout)
	}
	return ToolResult{Call: call, Kind: kind, Output: out, Err: err}
}

func (o *Orchestrator) lengthBranch(ctx context.Context, rec *TurnRecord) error {
	tokens := EstimateTokens(rec.Transcript.Text)
	summarize := o.summarizer.NeedsSummary(rec.Transcript.Text)
	o.hooks.OnLengthBranch(ctx, rec, tokens, summarize)
	if !summarize {
		return nil
	}

	summary, err := o.summarizer.SummarizeLong(ctx, rec.Transcript.Text)
	if err != nil {
		return wrapTurn(err, rec, "summarize")
	}
	condensed := *rec.Transcript
	condensed.Text = summary
	rec.Transcript = &condensed
	rec.Summarized = true
	return nil
}

// finalMessages builds the second model call. A fetched transcript takes
// precedence over every other tool output: the call then carries only the
// narrowed summary instruction, the transcript and the query.
func (o *Orchestrator) finalMessages(rec *TurnRecord) []ChatMessage {
	if rec.Transcript == nil {
		return rec.Messages
	}

	system, err := prompts.Render(o.prompts, prompts.IDTranscriptSummary, nil)
	if err != nil {
		system = "You are a summarization assistant. Refer to the source as 'the video' and produce a flowing paragraph summary."
	}
	return []ChatMessage{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: transcriptRequest(rec.Transcript, rec.Summarized, rec.Query)},
	}
}

func (o *Orchestrator) persist(ctx context.Context, rec *TurnRecord) error {
	now := o.now().UTC()
	meta := &session.Session{
		ID:        rec.SessionID,
		OwnerID:   rec.OwnerID,
		Tag:       rec.Tag,
		UpdatedAt: now,
	}
	reply := &session.Message{
		ID:        o.newID(),
		SessionID: rec.SessionID,
		TurnID:    rec.TurnID,
		Role:      session.RoleAssistant,
		Content:   rec.Reply,
		CreatedAt: now,
	}
	if err := o.store.RecordReply(ctx, meta, reply); err != nil {
		return wrapTurn(err, rec, "persist")
	}
	rec.Enter(StatePersisted)
	o.hooks.OnPersisted(ctx, rec)
	return nil
}

func isToolLevelError(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrTranscriptUnavailable) ||
		errors.Is(err, ErrUnknownTool) ||
		errors.Is(err, ErrInvalidArguments)
}

// toolResultText is what the model sees for one tool call.
func toolResultText(r ToolResult) string {
	if r.Err == nil {
		return renderToolOutput(r.Output)
	}
	switch {
	case errors.Is(r.Err, ErrInvalidURL):
		return fmt.Sprintf("Could not retrieve transcript for this video: the URL is not a valid YouTube video link (%v).", r.Err)
	case errors.Is(r.Err, ErrTranscriptUnavailable):
		return "Could not retrieve transcript for this video: transcripts are not available for this video."
	case errors.Is(r.Err, ErrUnknownTool):
		return fmt.Sprintf("Tool %q does not exist. Available tools: %s, %s.", r.Call.Name, ToolSearch.Name(), ToolFetchTranscript.Name())
	case errors.Is(r.Err, ErrInvalidArguments):
		return fmt.Sprintf("The arguments for %s were invalid: %v", r.Call.Name, r.Err)
	default:
		return fmt.Sprintf("Tool %s failed: %v", r.Call.Name, r.Err)
	}
}

// renderToolOutput serializes a tool payload as JSON text.
func renderToolOutput(out any) string {
	switch v := out.(type) {
	case nil:
		return "null"
	case string:
		return v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("%v", out)
	}
	return string(b)
}

func transcriptRequest(tr *Transcript, summarized bool, query string) string {
	var b strings.Builder
	b.WriteString("Video URL: https://www.youtube.com/watch?v=" + tr.VideoID + "\n")
	if tr.Title != "" {
		b.WriteString("Title: " + tr.Title + "\n")
	}
	if tr.PublishedAt != "" {
		b.WriteString("Published: " + tr.PublishedAt + "\n")
	}
	if tr.Duration != "" {
		b.WriteString("Duration: " + tr.Duration + "\n")
	}
	if tr.ViewCount != "" {
		b.WriteString("Views: " + tr.ViewCount + "\n")
	}
	if tr.Description != "" {
		b.WriteString("Description: " + tr.Description + "\n")
	}
	if summarized {
		b.WriteString("\nCondensed notes of the video, in order:\n")
	} else {
		b.WriteString("\nTranscript:\n")
	}
	b.WriteString(tr.Text)
	b.WriteString("\n\nUser request: " + query)
	return b.String()
}
