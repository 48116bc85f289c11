package pipeline

import "errors"

// State identifies one phase of a pipeline run.
type State string

const (
	// StateOpening opens the input container and probes its streams.
	StateOpening State = "OPENING"
	// StateConfiguring selects streams and constructs decoders, transforms,
	// encoders and the output container.
	StateConfiguring State = "CONFIGURING"
	// StateDraining reads packets and pushes frames downstream in order.
	StateDraining State = "DRAINING"
	// StateFlushing signals end-of-stream and drains buffered frames/packets.
	StateFlushing State = "FLUSHING"
	// StateFinalizing writes the trailer and closes both containers.
	StateFinalizing State = "FINALIZING"
	// StateDone is the terminal success state.
	StateDone State = "DONE"
	// StateFailed is the terminal failure state; open handles are closed
	// best-effort and no output file is guaranteed consistent.
	StateFailed State = "FAILED"
)

// ErrInvalidTransition is returned when a pipeline attempts a state change
// outside the allowed order.
var ErrInvalidTransition = errors.New("pipeline: invalid state transition")

// validTransitions defines the allowed state order. Every non-terminal state
// may also fail.
var validTransitions = map[State][]State{
	StateOpening:     {StateConfiguring, StateFailed},
	StateConfiguring: {StateDraining, StateFailed},
	StateDraining:    {StateFlushing, StateFailed},
	StateFlushing:    {StateFinalizing, StateFailed},
	StateFinalizing:  {StateDone, StateFailed},
	StateDone:        {},
	StateFailed:      {},
}

// canTransition reports whether a change from one state to another is allowed.
func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
