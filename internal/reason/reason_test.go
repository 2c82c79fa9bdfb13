package reason

import (
	"testing"

	"github.com/fujs999/callcore/internal/session"
)

func TestTranslateTable(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		prior      session.State
		dir        session.Direction
		conference bool
		want       Translation
	}{
		{
			name:  "outgoing cancelled before answer",
			raw:   "",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Cancelled", Category: EndNone},
		},
		{
			name:  "incoming cancelled is missed",
			raw:   "200",
			prior: session.StateIncoming,
			dir:   session.DirectionIncoming,
			want:  Translation{Reason: "Cancelled", Category: EndUnanswered, Missed: true},
		},
		{
			name:  "normal hangup of answered call",
			raw:   "200",
			prior: session.StateEstablished,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Hangup", Category: EndRemoteEnded, PlayBusyTone: true, Successful: true},
		},
		{
			name:  "payment required",
			raw:   "402 Payment Required",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Payment required", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "forbidden keeps raw text",
			raw:   "403 Forbidden, destination not allowed",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "403 Forbidden, destination not allowed", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "user not found",
			raw:   "404",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "User not found", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "timeout",
			raw:   "408 Request Timeout",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Timeout", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "not online",
			raw:   "480",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Is not online", Category: EndUnanswered, PlayBusyTone: true},
		},
		{
			name:  "busy outgoing skips local busy tone",
			raw:   "486 Busy Here",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Is busy", Category: EndRemoteEnded},
		},
		{
			name:  "busy incoming plays busy tone",
			raw:   "486",
			prior: session.StateIncoming,
			dir:   session.DirectionIncoming,
			want:  Translation{Reason: "Is busy", Category: EndRemoteEnded, PlayBusyTone: true},
		},
		{
			name:  "decline outgoing skips local busy tone",
			raw:   "603 Decline",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Cannot answer now", Category: EndRemoteEnded},
		},
		{
			name:  "request terminated",
			raw:   "487 Request Terminated",
			prior: session.StateIncoming,
			dir:   session.DirectionIncoming,
			want:  Translation{Reason: "Cancelled", Category: EndRemoteEnded},
		},
		{
			name:  "unacceptable media",
			raw:   "488",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Unacceptable media", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "server failure family",
			raw:   "502 Bad Gateway",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Server failure", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "wrong credentials",
			raw:   "904",
			prior: session.StateProgress,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Wrong account or password", Category: EndFailed, PlayBusyTone: true},
		},
		{
			name:  "unknown falls back to connection failed",
			raw:   "connection error",
			prior: session.StateEstablished,
			dir:   session.DirectionOutgoing,
			want:  Translation{Reason: "Connection failed", Category: EndFailed, PlayBusyTone: true},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Translate(c.raw, c.prior, c.dir, c.conference)
			if got != c.want {
				t.Errorf("Translate(%q, %s, %s) = %+v, want %+v", c.raw, c.prior, c.dir, got, c.want)
			}
		})
	}
}

func TestTranslateConferenceNeverPlaysBusyTone(t *testing.T) {
	for _, raw := range []string{"", "486", "404", "502", "nonsense"} {
		got := Translate(raw, session.StateEstablished, session.DirectionOutgoing, true)
		if got.PlayBusyTone {
			t.Errorf("Translate(%q, conference) requested busy tone", raw)
		}
	}
}

func TestTranslateCodeEmbeddedInText(t *testing.T) {
	got := Translate("Call failed: 486 Busy Here", session.StateProgress, session.DirectionIncoming, false)
	if got.Reason != "Is busy" {
		t.Errorf("embedded code Reason = %q, want Is busy", got.Reason)
	}
}

func TestEndCategoryString(t *testing.T) {
	cases := map[EndCategory]string{
		EndNone:        "none",
		EndFailed:      "failed",
		EndRemoteEnded: "remote_ended",
		EndUnanswered:  "unanswered",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Errorf("EndCategory(%d).String() = %q, want %q", c, got, want)
		}
	}
}
