package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateStart, StateContextLoaded))
	assert.True(t, CanTransition(StateModelQueried, StatePersisted))
	assert.True(t, CanTransition(StateToolDispatch, StateFinalQueried))
	assert.True(t, CanTransition(StateToolDispatch, StateLengthBranch))

	assert.False(t, CanTransition(StateStart, StateModelQueried))
	assert.False(t, CanTransition(StateLengthBranch, StateToolDispatch))
	assert.False(t, CanTransition(StateDone, StateStart))
	assert.False(t, CanTransition(StateFinalQueried, StateToolDispatch))
}

func TestTurnRecord_EnterPanicsOnInvalidTransition(t *testing.T) {
	rec := &TurnRecord{}
	rec.Enter(StateStart)
	rec.Enter(StateContextLoaded)
	assert.Panics(t, func() { rec.Enter(StateDone) })
	assert.Equal(t, []TurnState{StateStart, StateContextLoaded}, rec.Visited)
}
