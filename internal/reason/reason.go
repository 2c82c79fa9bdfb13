// Package reason translates protocol termination codes into the semantic
// reason shown to the user, the native-UI end category and the local tone
// policy. It is a pure mapping with no state.
package reason

import (
	"regexp"

	"github.com/fujs999/callcore/internal/session"
)

// EndCategory is the end-call reason category reported to the native
// telephony UI.
type EndCategory int

const (
	// EndNone - no native-UI category applies (local cancellation)
	EndNone EndCategory = iota
	// EndFailed - the call failed
	EndFailed
	// EndRemoteEnded - the remote party ended the call
	EndRemoteEnded
	// EndUnanswered - the call was never answered
	EndUnanswered
)

// String returns the string representation of the category
func (c EndCategory) String() string {
	switch c {
	case EndFailed:
		return "failed"
	case EndRemoteEnded:
		return "remote_ended"
	case EndUnanswered:
		return "unanswered"
	default:
		return "none"
	}
}

// Translation is the semantic meaning of a termination.
type Translation struct {
	// Reason is the human-facing explanation
	Reason string
	// Category is reported to the native telephony UI
	Category EndCategory
	// PlayBusyTone requests the local busy tone
	PlayBusyTone bool
	// Missed marks the call as missed in history
	Missed bool
	// Successful is true only for a normal hangup of an answered call
	Successful bool
}

var codeRe = regexp.MustCompile(`\d{3}`)

// Translate maps a raw termination reason (typically a SIP status code,
// possibly embedded in a longer string, possibly absent) plus the state the
// session was in and its direction to a Translation.
//
// Conferences never play the busy tone.
func Translate(raw string, prior session.State, dir session.Direction, conference bool) Translation {
	t := Translation{
		PlayBusyTone: !conference,
		Category:     EndFailed,
	}

	code := codeRe.FindString(raw)

	switch {
	case raw == "" || code == "200":
		if prior == session.StateProgress && dir == session.DirectionOutgoing {
			t.Reason = "Cancelled"
			t.PlayBusyTone = false
			t.Category = EndNone
		} else if prior == session.StateIncoming {
			t.Reason = "Cancelled"
			t.Missed = true
			t.PlayBusyTone = false
			t.Category = EndUnanswered
		} else {
			t.Reason = "Hangup"
			t.Successful = true
			t.Category = EndRemoteEnded
		}
	case code == "402":
		t.Reason = "Payment required"
	case code == "403":
		// the raw reason is kept as-is
		t.Reason = raw
	case code == "404":
		t.Reason = "User not found"
	case code == "408":
		t.Reason = "Timeout"
	case code == "480":
		t.Reason = "Is not online"
		t.Category = EndUnanswered
	case code == "486":
		t.Reason = "Is busy"
		t.Category = EndRemoteEnded
		if dir == session.DirectionOutgoing {
			t.PlayBusyTone = false
		}
	case code == "603":
		t.Reason = "Cannot answer now"
		t.Category = EndRemoteEnded
		if dir == session.DirectionOutgoing {
			t.PlayBusyTone = false
		}
	case code == "487":
		t.Reason = "Cancelled"
		t.PlayBusyTone = false
		t.Category = EndRemoteEnded
	case code == "488":
		t.Reason = "Unacceptable media"
	case len(code) == 3 && code[0] == '5':
		t.Reason = "Server failure"
	case code == "904":
		// Sofia SIP quirk: wrong credentials surface as 904
		t.Reason = "Wrong account or password"
	default:
		t.Reason = "Connection failed"
	}

	return t
}
