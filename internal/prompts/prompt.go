// Package prompts holds the versioned system prompts used by a turn.
package prompts

// PromptVersion is a dotted numeric version such as "1.2.0".
type PromptVersion string

const PromptV1 PromptVersion = "1.0.0"

// Prompt ids used by the turn orchestrator.
const (
	IDAssistant         = "assistant"
	IDTranscriptSummary = "transcript_summary"
	IDChunkSummary      = "chunk_summary"
)

type Prompt struct {
	ID          string
	Version     PromptVersion
	Content     string // may contain {{variable}} placeholders
	Description string
	Deprecated  bool // skipped by GetLatest unless every version is deprecated
}
