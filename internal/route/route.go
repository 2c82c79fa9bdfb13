// Package route derives the application's top-level navigation route from
// the session registry and transition reasons, and owns the debounced
// go-to-ready timer.
package route

import "fmt"

// State is the application's current top-level navigational mode.
type State int

const (
	Login State = iota
	Ready
	Call
	Conference
	Preview
)

// String returns the route path.
func (s State) String() string {
	switch s {
	case Login:
		return "/login"
	case Ready:
		return "/ready"
	case Call:
		return "/call"
	case Conference:
		return "/conference"
	case Preview:
		return "/preview"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Transition reasons with route-side behavior attached.
const (
	// ReasonNoMoreCalls follows the last terminal transition
	ReasonNoMoreCalls = "no_more_calls"
	// ReasonUserHangup is a user-initiated hangup from the call screen
	ReasonUserHangup = "user_hangup_call"
	// ReasonAcceptNewCall replaces the current call with a fresh incoming one
	ReasonAcceptNewCall = "accept_new_call"
	// ReasonConferenceEnded commits a conference hangup after its grace period
	ReasonConferenceEnded = "conference_really_ended"
	// ReasonBackToHome is plain navigation, no call-related side effects
	ReasonBackToHome = "back to home"
	// ReasonUserHangupConference starts the conference grace period
	ReasonUserHangupConference = "user_hangup_conference"
	// ReasonUserCancelledConference cancels a conference before it started
	ReasonUserCancelledConference = "user_cancelled_conference"
	// ReasonConnectionFailed is a forced termination after transport loss
	ReasonConnectionFailed = "connection_failed"
	// ReasonOutgoingConnectionFailed triggers outgoing-call reconnection
	ReasonOutgoingConnectionFailed = "outgoing_connection_failed"
	// ReasonRejected follows a user rejection of an incoming call
	ReasonRejected = "rejected"
)

// immediateHangupReasons route to ready with no delay.
var immediateHangupReasons = map[string]bool{
	"user_cancel_call":                 true,
	ReasonUserHangup:                   true,
	"answer_failed":                    true,
	"callkeep_hangup_call":             true,
	ReasonAcceptNewCall:                true,
	"stop_preview":                     true,
	"escalate_to_conference":           true,
	"user_hangup_conference_confirmed": true,
	"timeout":                          true,
}
