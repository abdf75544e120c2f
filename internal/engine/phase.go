package engine

// TurnState is a step in the turn state machine:
// Start → ContextLoaded → ModelQueried → (ToolDispatch) → (LengthBranch) → FinalQueried → Persisted → Done.
type TurnState string

const (
	StateStart         TurnState = "start"
	StateContextLoaded TurnState = "context_loaded"
	StateModelQueried  TurnState = "model_queried"
	StateToolDispatch  TurnState = "tool_dispatch"
	StateLengthBranch  TurnState = "length_branch"
	StateFinalQueried  TurnState = "final_queried"
	StatePersisted     TurnState = "persisted"
	StateDone          TurnState = "done"
)

// transitions lists the states reachable from each state.
var transitions = map[TurnState][]TurnState{
	StateStart:         {StateContextLoaded},
	StateContextLoaded: {StateModelQueried},
	StateModelQueried:  {StateToolDispatch, StatePersisted},
	StateToolDispatch:  {StateLengthBranch, StateFinalQueried},
	StateLengthBranch:  {StateFinalQueried},
	StateFinalQueried:  {StatePersisted},
	StatePersisted:     {StateDone},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to TurnState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
