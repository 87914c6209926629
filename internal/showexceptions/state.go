package showexceptions

import "sync/atomic"

type state int32

const (
	statePending state = iota
	stateStarted
	stateFaulted
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateStarted:
		return "started"
	case stateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// streamState records whether a request's response has started. It leaves
// pending exactly once and never reverts.
type streamState struct {
	v atomic.Int32
}

// leave moves from pending to the given terminal state. It reports false if
// another transition already happened.
func (s *streamState) leave(to state) bool {
	return s.v.CompareAndSwap(int32(statePending), int32(to))
}

func (s *streamState) load() state {
	return state(s.v.Load())
}
