package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionOrder(t *testing.T) {
	order := []State{StateOpening, StateConfiguring, StateDraining, StateFlushing, StateFinalizing, StateDone}

	for i := 0; i < len(order)-1; i++ {
		assert.True(t, canTransition(order[i], order[i+1]), "%s -> %s", order[i], order[i+1])
	}

	// no skipping ahead or moving backwards
	assert.False(t, canTransition(StateOpening, StateDraining))
	assert.False(t, canTransition(StateDraining, StateOpening))
	assert.False(t, canTransition(StateFlushing, StateDone))
}

func TestCanTransitionFailure(t *testing.T) {
	for _, s := range []State{StateOpening, StateConfiguring, StateDraining, StateFlushing, StateFinalizing} {
		assert.True(t, canTransition(s, StateFailed), "%s -> FAILED", s)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, from := range []State{StateDone, StateFailed} {
		for to := range validTransitions {
			assert.False(t, canTransition(from, to), "%s -> %s", from, to)
		}
	}
}
