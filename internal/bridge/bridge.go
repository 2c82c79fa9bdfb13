// Package bridge defines the platform telephony UI integration driven by
// the controller: the native accept/reject panels and lock-screen call UI
// that must never diverge from the session registry.
package bridge

import (
	"log/slog"

	"github.com/fujs999/callcore/internal/reason"
)

// Bridge is the native telephony UI integration.
type Bridge interface {
	// AcceptCall marks a call as accepted on the native panel
	AcceptCall(id string)
	// RejectCall dismisses the native panel with a rejection
	RejectCall(id string)
	// StartOutgoingCall surfaces an outgoing call on the native UI
	StartOutgoingCall(id, remoteParty string, hasVideo bool)
	// SetCurrentCallActive marks the call as the active one
	SetCurrentCallActive(id string)
	// EndCall dismisses the native call UI with an end category
	EndCall(id string, category reason.EndCategory)
	// Heartbeat lets the platform layer run its own housekeeping
	Heartbeat()
	// BackToForeground brings the application to the foreground
	BackToForeground()
	// SetAvailable reports whether the signaling transport is usable
	SetAvailable(available bool)
}

// Noop is a Bridge that only logs. Used when no platform binding exists.
type Noop struct{}

func (Noop) AcceptCall(id string) {
	slog.Debug("[Bridge] Accept call", "session_id", id)
}

func (Noop) RejectCall(id string) {
	slog.Debug("[Bridge] Reject call", "session_id", id)
}

func (Noop) StartOutgoingCall(id, remoteParty string, hasVideo bool) {
	slog.Debug("[Bridge] Start outgoing call", "session_id", id, "remote_party", remoteParty, "video", hasVideo)
}

func (Noop) SetCurrentCallActive(id string) {
	slog.Debug("[Bridge] Set current call active", "session_id", id)
}

func (Noop) EndCall(id string, category reason.EndCategory) {
	slog.Debug("[Bridge] End call", "session_id", id, "category", category)
}

func (Noop) Heartbeat() {}

func (Noop) BackToForeground() {
	slog.Debug("[Bridge] Back to foreground")
}

func (Noop) SetAvailable(available bool) {
	slog.Debug("[Bridge] Set available", "available", available)
}
