package session

import "fmt"

// State represents the lifecycle state of a call session
type State int

const (
	// StateProgress is an outgoing call awaiting an answer
	StateProgress State = iota
	// StateIncoming is an incoming call awaiting local accept/reject
	StateIncoming
	// StateAccepted is after the call was answered, media not yet flowing
	StateAccepted
	// StateEstablished is after media started flowing
	StateEstablished
	// StateTerminated is the final state after the session ends
	StateTerminated
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateProgress:
		return "progress"
	case StateIncoming:
		return "incoming"
	case StateAccepted:
		return "accepted"
	case StateEstablished:
		return "established"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true if this is a terminal state
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// rank orders states along the only legal progression:
// progress/incoming -> accepted -> established -> terminated.
// Progress and Incoming share a rank; which one applies is fixed by the
// session direction at creation time.
func (s State) rank() int {
	switch s {
	case StateProgress, StateIncoming:
		return 0
	case StateAccepted:
		return 1
	case StateEstablished:
		return 2
	case StateTerminated:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo checks if a transition from the current state to next is
// valid. Transitions only move forward; Terminated is absorbing.
func (s State) CanTransitionTo(next State) bool {
	if s == StateTerminated {
		return false
	}
	return next.rank() > s.rank()
}

// ParseState maps a transport-reported state name to a State.
func ParseState(name string) (State, bool) {
	switch name {
	case "progress":
		return StateProgress, true
	case "incoming":
		return StateIncoming, true
	case "accepted":
		return StateAccepted, true
	case "established":
		return StateEstablished, true
	case "terminated":
		return StateTerminated, true
	default:
		return 0, false
	}
}
