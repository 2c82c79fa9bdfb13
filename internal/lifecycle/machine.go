// Package lifecycle drives per-session state transitions reported by the
// signaling transport and owns their side effects: tones, speakerphone
// routing, native-UI activation, history bookkeeping and route requests.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/fujs999/callcore/internal/audio"
	"github.com/fujs999/callcore/internal/bridge"
	"github.com/fujs999/callcore/internal/events"
	"github.com/fujs999/callcore/internal/notify"
	"github.com/fujs999/callcore/internal/reason"
	"github.com/fujs999/callcore/internal/route"
	"github.com/fujs999/callcore/internal/session"
)

// Clock provides the current time. Defaults to time.Now; override in tests.
type Clock func() time.Time

// EventData accompanies a transport state-changed event.
type EventData struct {
	// Reason is the raw protocol termination reason, when terminal
	Reason string
}

// Deps are the collaborators the machine drives.
type Deps struct {
	Registry *session.Registry
	Bridge   bridge.Bridge
	Audio    audio.Router
	Routes   *route.Coordinator
	History  events.Publisher
	Notifier notify.Notifier
	Clock    Clock
	// SpeakerPreference is the user's speakerphone setting, restored when
	// an outgoing call is established
	SpeakerPreference func() bool
}

// Machine applies transport-reported state changes to registered sessions.
// It must only be called from the controller goroutine.
type Machine struct {
	deps Deps
}

// NewMachine creates a lifecycle machine.
func NewMachine(deps Deps) *Machine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.SpeakerPreference == nil {
		deps.SpeakerPreference = func() bool { return false }
	}
	return &Machine{deps: deps}
}

// HandleStateChanged processes one (oldState, newState) transition for the
// session with the given id.
func (m *Machine) HandleStateChanged(id string, oldState, newState session.State, data EventData) {
	sess, ok := m.deps.Registry.Get(id)
	if !ok {
		if newState == session.StateTerminated && m.deps.Registry.WasTerminated(id) {
			// duplicate terminal delivery; re-issue the native end so a
			// desynchronized panel stops ringing, mutate nothing
			slog.Debug("[Lifecycle] Duplicate terminal event", "session_id", id)
			m.deps.Bridge.EndCall(id, reason.EndRemoteEnded)
			return
		}
		slog.Warn("[Lifecycle] Event for unknown session dropped", "session_id", id, "state", newState.String())
		return
	}

	slog.Info("[Lifecycle] Session state change",
		"session_id", id,
		"old", oldState.String(),
		"new", newState.String(),
	)

	if newState != session.StateTerminated {
		// Early media can deliver accepted after established; the state
		// stays put but the side effects below still run.
		if err := sess.TransitionTo(newState); err != nil {
			slog.Debug("[Lifecycle] State transition skipped", "session_id", id, "error", err)
		}
	}

	switch newState {
	case session.StateProgress, session.StateIncoming:
		m.handleRinging(sess)
	case session.StateAccepted:
		m.handleAccepted(sess)
	case session.StateEstablished:
		m.handleEstablished(sess)
	case session.StateTerminated:
		m.handleTerminated(sess, oldState, data)
	}
}

// handleRinging covers progress (outgoing) and incoming: the call exists
// but has not been answered.
func (m *Machine) handleRinging(sess *session.Session) {
	m.deps.Bridge.SetCurrentCallActive(sess.ID)
	m.deps.Bridge.BackToForeground()
	m.deps.Routes.CancelPending()

	media := sess.RefreshMediaType()
	if media == session.MediaVideo {
		m.deps.Audio.SpeakerphoneOn()
	} else {
		m.deps.Audio.SpeakerphoneOff()
	}

	if !sess.IsConference() {
		m.deps.Audio.StartRingback()
	}
}

func (m *Machine) handleAccepted(sess *session.Session) {
	sess.MarkEstablished(m.deps.Clock())
	m.promoteIfSoleIncoming(sess)

	m.deps.Bridge.SetCurrentCallActive(sess.ID)
	m.deps.Bridge.BackToForeground()
	m.deps.Routes.CancelPending()

	if sess.Direction == session.DirectionOutgoing {
		m.deps.Audio.StopRingback()
	}
}

func (m *Machine) handleEstablished(sess *session.Session) {
	sess.MarkEstablished(m.deps.Clock())
	m.promoteIfSoleIncoming(sess)

	m.deps.Bridge.SetCurrentCallActive(sess.ID)
	m.deps.Bridge.BackToForeground()
	m.deps.Routes.CancelPending()

	media := sess.RefreshMediaType()
	m.deps.Audio.StartInCall(media)

	if sess.Direction == session.DirectionOutgoing {
		m.deps.Audio.StopRingback()
		if m.deps.SpeakerPreference() {
			m.deps.Audio.SpeakerphoneOn()
		} else {
			m.deps.Audio.SpeakerphoneOff()
		}
	} else {
		if media == session.MediaVideo {
			m.deps.Audio.SpeakerphoneOn()
		} else {
			m.deps.Audio.SpeakerphoneOff()
		}
	}
}

// handleTerminated runs the terminal path exactly once per session id:
// reason translation, tones, history record, native end-call, registry
// eviction and the delayed route-to-ready request.
func (m *Machine) handleTerminated(sess *session.Session, oldState session.State, data EventData) {
	id := sess.ID
	if m.deps.Registry.WasTerminated(id) {
		slog.Debug("[Lifecycle] Duplicate terminal event", "session_id", id)
		m.deps.Bridge.EndCall(id, reason.EndRemoteEnded)
		return
	}

	now := m.deps.Clock()
	m.deps.Registry.MarkTerminated(id)

	if err := sess.TransitionTo(session.StateTerminated); err != nil {
		slog.Warn("[Lifecycle] Forcing terminal state", "session_id", id, "error", err)
		sess.State = session.StateTerminated
	}

	incomingCancelled := sess.Direction == session.DirectionIncoming && oldState == session.StateIncoming

	t := reason.Translate(data.Reason, oldState, sess.Direction, sess.IsConference())
	sess.TerminationReason = t.Reason

	slog.Info("[Lifecycle] Session terminated",
		"session_id", id,
		"direction", sess.Direction.String(),
		"reason", t.Reason,
	)

	if t.PlayBusyTone {
		m.deps.Audio.PlayBusyTone()
	}
	m.deps.Audio.StopRingback()

	rec := events.NewRecord(sess, t.Reason, t.Missed, now)
	if err := m.deps.History.Publish(context.Background(), rec); err != nil {
		slog.Error("[Lifecycle] Failed to publish history record", "session_id", id, "error", err)
	}

	m.deps.Bridge.EndCall(id, t.Category)

	if t.PlayBusyTone && oldState != session.StateEstablished && sess.Direction == session.DirectionOutgoing {
		m.deps.Notifier.Post("Call ended:", t.Reason)
	}

	m.deps.Registry.Evict(id)

	if !m.deps.Registry.HasAny() {
		m.deps.Audio.SpeakerphoneOn()
		if m.deps.Routes.Current() != route.Ready {
			m.deps.Routes.ScheduleReady(route.ReasonNoMoreCalls, m.deps.Routes.TerminalDelay(incomingCancelled))
		}
	}
}

// promoteIfSoleIncoming moves an answered incoming session into the current
// slot when the slot was left empty by a hung-up outgoing call.
func (m *Machine) promoteIfSoleIncoming(sess *session.Session) {
	reg := m.deps.Registry
	if inc := reg.Incoming(); inc != nil && inc.ID == sess.ID && reg.Current() == nil {
		reg.PromoteIncoming()
	}
}
