package engine

// TurnRecord is the in-flight state of a single turn. It is never persisted;
// only the final assistant text is.
type TurnRecord struct {
	TurnID    string
	SessionID string
	OwnerID   string
	Tag       string
	Query     string
	Model     string

	State    TurnState
	Visited  []TurnState   // states entered, in order
	Messages []ChatMessage // context + query + tool scaffolding for the model
	Results  []ToolResult  // tool outputs of this turn
	Totals   Usage         // accumulated token usage across model calls

	// Transcript is set when a fetch_transcript call succeeded in this turn.
	Transcript *Transcript
	// Summarized is true when the transcript went through the chunked summarizer.
	Summarized bool
	Reply      string
}

// Enter moves the record to the next state. Invalid transitions panic; they
// indicate a bug in the orchestrator, not a runtime condition.
func (r *TurnRecord) Enter(next TurnState) {
	if r.State != "" && !CanTransition(r.State, next) {
		panic("engine: invalid turn transition " + string(r.State) + " -> " + string(next))
	}
	r.State = next
	r.Visited = append(r.Visited, next)
}

func (r *TurnRecord) Append(msg ChatMessage) { r.Messages = append(r.Messages, msg) }
