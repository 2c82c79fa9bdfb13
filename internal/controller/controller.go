// Package controller runs the session lifecycle coordination loop: one
// goroutine consuming an ordered inbox fed by the signaling transport, the
// native telephony UI and push-derived synthetic events.
package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fujs999/callcore/internal/admission"
	"github.com/fujs999/callcore/internal/audio"
	"github.com/fujs999/callcore/internal/bridge"
	"github.com/fujs999/callcore/internal/events"
	"github.com/fujs999/callcore/internal/lifecycle"
	"github.com/fujs999/callcore/internal/notify"
	"github.com/fujs999/callcore/internal/reason"
	"github.com/fujs999/callcore/internal/route"
	"github.com/fujs999/callcore/internal/session"
)

const (
	// HeartbeatInterval drives passive housekeeping
	HeartbeatInterval = 5 * time.Second
	// heartbeatStatusEvery logs a status line every N beats
	heartbeatStatusEvery = 40
	// dialWaitTick is the pause between transport readiness checks
	dialWaitTick = time.Second
	// dialWaitMaxTicks bounds the readiness wait before an outgoing call
	// is abandoned
	dialWaitMaxTicks = 20
	// staleRingingAfter flags sessions ringing suspiciously long
	staleRingingAfter = 5 * time.Minute
)

// Options configures a Controller.
type Options struct {
	// Identity is the local account URI
	Identity string
	// Blocked seeds the block-list (exact URIs and @domain entries)
	Blocked []string
	// Speakerphone is the initial speakerphone preference
	Speakerphone bool
	// Delays overrides the route debounce policy; zero value means default
	Delays route.DelayPolicy
	// InboxSize is the event buffer; 64 when zero
	InboxSize int

	Bridge    bridge.Bridge
	Audio     audio.Router
	Notifier  notify.Notifier
	History   events.Publisher
	Connector Connector
	Clock     lifecycle.Clock
	// OnRoute receives committed route transitions (presentation layer)
	OnRoute func(route.State, string)
}

// dialRequest is an outgoing call waiting for transport readiness.
type dialRequest struct {
	target string
	opts   CallOptions
	ticks  int
}

// Controller owns the registry and drives admission, lifecycle and route
// decisions. All state below is confined to the Run goroutine.
type Controller struct {
	inbox chan Event

	registry  *session.Registry
	admission *admission.Controller
	machine   *lifecycle.Machine
	routes    *route.Coordinator

	bridge    bridge.Bridge
	audio     audio.Router
	notifier  notify.Notifier
	connector Connector
	clock     lifecycle.Clock

	connectionUp      bool
	speakerPreference bool
	reconnecting      bool
	heartbeats        int

	pendingDial *dialRequest
	dialTimer   *time.Timer

	dropped int
}

// New creates a controller. Run must be started before producers post.
func New(opts Options) *Controller {
	if opts.Bridge == nil {
		opts.Bridge = bridge.Noop{}
	}
	if opts.Audio == nil {
		opts.Audio = audio.Noop{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.History == nil {
		opts.History = events.NewNoopPublisher()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.InboxSize == 0 {
		opts.InboxSize = 64
	}
	if (opts.Delays == route.DelayPolicy{}) {
		opts.Delays = route.DefaultDelayPolicy()
	}

	c := &Controller{
		inbox:             make(chan Event, opts.InboxSize),
		registry:          session.NewRegistry(),
		bridge:            opts.Bridge,
		audio:             opts.Audio,
		notifier:          opts.Notifier,
		connector:         opts.Connector,
		clock:             opts.Clock,
		speakerPreference: opts.Speakerphone,
	}

	c.routes = route.NewCoordinator(opts.Delays, route.Hooks{
		Audio:      opts.Audio,
		Foreground: opts.Bridge.BackToForeground,
		HasCalls:   c.registry.HasAny,
		OnChange:   opts.OnRoute,
	}, func(reason string) {
		c.Post(routeReady{reason: reason})
	})

	c.admission = admission.NewController(
		c.registry,
		admission.NewBlocklist(opts.Blocked),
		opts.Identity,
		opts.Bridge,
		opts.Notifier,
	)

	c.machine = lifecycle.NewMachine(lifecycle.Deps{
		Registry:          c.registry,
		Bridge:            opts.Bridge,
		Audio:             opts.Audio,
		Routes:            c.routes,
		History:           opts.History,
		Notifier:          opts.Notifier,
		Clock:             opts.Clock,
		SpeakerPreference: func() bool { return c.speakerPreference },
	})

	return c
}

// Registry exposes the session registry for read-only inspection.
func (c *Controller) Registry() *session.Registry {
	return c.registry
}

// Routes exposes the route coordinator.
func (c *Controller) Routes() *route.Coordinator {
	return c.routes
}

// Post delivers an event to the loop. Events are dropped with a log line
// when the inbox is full rather than blocking a platform callback thread.
func (c *Controller) Post(ev Event) {
	select {
	case c.inbox <- ev:
	default:
		c.dropped++
		slog.Warn("[Controller] Inbox full, dropping event", "dropped", c.dropped)
	}
}

// Run consumes the inbox until the context is cancelled. This is the single
// goroutine that may touch the registry.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	defer c.registry.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.inbox:
			c.handle(ev)
		case <-ticker.C:
			c.heartbeat()
		}
	}
}

// handle dispatches one event. Exercised directly by tests; production code
// goes through Run.
func (c *Controller) handle(ev Event) {
	switch e := ev.(type) {
	case StateChanged:
		c.machine.HandleStateChanged(e.ID, e.Old, e.New, lifecycle.EventData{Reason: e.Reason})
	case IncomingSession:
		c.handleIncoming(e)
	case IncomingPush:
		c.handleIncomingPush(e)
	case PushCancel:
		c.handlePushCancel(e)
	case AcceptCall:
		c.handleAccept(e)
	case RejectCall:
		c.handleReject(e)
	case HangupCall:
		c.hangup(e.ID, e.Reason)
	case StartCall:
		c.handleStartCall(e)
	case ConnectionState:
		c.handleConnectionState(e)
	case SetSpeaker:
		c.speakerPreference = e.On
		if e.On {
			c.audio.SpeakerphoneOn()
		} else {
			c.audio.SpeakerphoneOff()
		}
	case routeReady:
		c.routes.Apply(route.Ready, e.reason)
	case dialTick:
		c.tryDial()
	}
}

// handleIncoming admits a transport-delivered incoming session.
func (c *Controller) handleIncoming(e IncomingSession) {
	out := c.admission.Admit(admission.Descriptor{ID: e.ID, From: e.From, To: e.To})
	if !out.Accepted {
		if e.Peer != nil {
			if err := e.Peer.Terminate(); err != nil {
				slog.Warn("[Controller] Failed to terminate rejected session", "session_id", e.ID, "error", err)
			}
		}
		return
	}

	if out.HangupCurrentID != "" {
		c.hangup(out.HangupCurrentID, route.ReasonAcceptNewCall)
	}

	s := session.New(e.ID, session.DirectionIncoming, e.From, c.clock())
	s.Peer = e.Peer
	s.Participants = e.Participants
	if e.HasVideo {
		s.MediaType = session.MediaVideo
	}

	// an unresolved incoming call takes the current slot only when no call
	// holds it; an established call keeps its slot until its own terminal
	c.registry.Put(s, c.registry.Current() == nil, true)
	c.routes.CancelPending()

	slog.Info("[Controller] Incoming session admitted",
		"session_id", e.ID,
		"from", e.From,
		"kind", s.Kind(),
	)
}

// handleIncomingPush admits a push-derived call before the transport knows
// about it. The session has no peer until the transport catches up.
func (c *Controller) handleIncomingPush(e IncomingPush) {
	out := c.admission.Admit(admission.Descriptor{ID: e.ID, From: e.From, To: e.To})
	if !out.Accepted {
		return
	}

	if out.HangupCurrentID != "" {
		c.hangup(out.HangupCurrentID, route.ReasonAcceptNewCall)
	}

	s := session.New(e.ID, session.DirectionIncoming, e.From, c.clock())
	if e.HasVideo {
		s.MediaType = session.MediaVideo
	}
	if e.Conference {
		s.Participants = []string{e.From}
	}

	c.registry.Put(s, c.registry.Current() == nil, true)
	c.routes.CancelPending()
	c.bridge.BackToForeground()

	slog.Info("[Controller] Push session admitted", "session_id", e.ID, "from", e.From)
}

// handlePushCancel ends a push-announced call that was cancelled before (or
// while racing) its transport delivery.
func (c *Controller) handlePushCancel(e PushCancel) {
	if s, ok := c.registry.Get(e.ID); ok {
		c.machine.HandleStateChanged(e.ID, s.State, session.StateTerminated, lifecycle.EventData{})
		return
	}

	// never admitted here: remember the id so a late transport INVITE is
	// refused, and clear any native panel the push may have raised
	slog.Info("[Controller] Push cancel for unknown session", "session_id", e.ID)
	c.registry.MarkTerminated(e.ID)
	c.bridge.EndCall(e.ID, reason.EndRemoteEnded)
}

// handleAccept answers the incoming call, hanging up the current one first
// when a different session holds the slot.
func (c *Controller) handleAccept(e AcceptCall) {
	c.routes.CancelPending()

	inc := c.registry.Incoming()
	if inc == nil || inc.ID != e.ID {
		slog.Warn("[Controller] Accept for unknown incoming call", "session_id", e.ID)
		return
	}

	if cur := c.registry.Current(); cur != nil && cur.ID != inc.ID {
		c.hangup(cur.ID, route.ReasonAcceptNewCall)
	}

	c.bridge.AcceptCall(e.ID)

	if inc.IsConference() {
		c.routes.Apply(route.Conference, "accept_call")
	} else {
		c.routes.Apply(route.Call, "accept_call")
	}

	if inc.Peer != nil {
		if err := inc.Peer.Answer(); err != nil {
			slog.Error("[Controller] Failed to answer call", "session_id", e.ID, "error", err)
			c.hangup(e.ID, "answer_failed")
		}
	}
}

// handleReject declines the incoming call.
func (c *Controller) handleReject(e RejectCall) {
	cur := c.registry.Current()
	inc := c.registry.Incoming()

	if cur == nil || (inc != nil && cur.ID == inc.ID) {
		c.routes.Apply(route.Ready, route.ReasonRejected)
	}

	if inc != nil && inc.ID == e.ID {
		c.bridge.RejectCall(e.ID)
		if inc.Peer != nil {
			if err := inc.Peer.Terminate(); err != nil {
				slog.Warn("[Controller] Failed to terminate rejected call", "session_id", e.ID, "error", err)
			}
		} else {
			// push-synthesized call, no transport leg to wait for
			c.machine.HandleStateChanged(e.ID, inc.State, session.StateTerminated, lifecycle.EventData{})
		}
	}
}

// hangup terminates a session and applies the reason's route policy. The
// registry eviction itself happens when the terminal event comes back
// through the lifecycle machine.
func (c *Controller) hangup(id, hangupReason string) {
	slog.Info("[Controller] Hangup", "session_id", id, "reason", hangupReason)

	// a hangup supersedes any outgoing dial still waiting for transport
	c.resetDialWait()

	s, ok := c.registry.Get(id)
	if ok && s.Peer != nil {
		if err := s.Peer.Terminate(); err != nil {
			slog.Warn("[Controller] Failed to terminate session", "session_id", id, "error", err)
		}
	}

	c.audio.StopBusyTone()

	if hangupReason == route.ReasonOutgoingConnectionFailed {
		// keep the user on the call screen and retry under a fresh id
		slog.Info("[Controller] Outgoing call will reconnect", "session_id", id)
		if ok {
			c.armReconnect(s)
			c.machine.HandleStateChanged(id, s.State, session.StateTerminated, lifecycle.EventData{Reason: hangupReason})
			c.routes.CancelPending()
		}
		return
	}

	if ok && s.Peer == nil {
		c.machine.HandleStateChanged(id, s.State, session.StateTerminated, lifecycle.EventData{Reason: hangupReason})
	}

	c.routes.AfterHangup(hangupReason)
}

// handleStartCall begins the bounded wait for transport readiness and
// places the call as soon as the connection allows it.
func (c *Controller) handleStartCall(e StartCall) {
	c.routes.CancelPending()
	c.reconnecting = false

	id := uuid.New().String()
	c.pendingDial = &dialRequest{
		target: e.Target,
		opts: CallOptions{
			ID:           id,
			Audio:        true,
			Video:        e.Video,
			Participants: e.Participants,
		},
	}

	slog.Info("[Controller] Outgoing call requested", "session_id", id, "target", e.Target, "conference", e.Conference)
	c.tryDial()
}

// tryDial places the pending outgoing call if the transport is ready,
// otherwise re-arms the one-second tick until the attempt budget runs out.
func (c *Controller) tryDial() {
	if c.pendingDial == nil {
		return
	}

	if c.connector == nil {
		slog.Error("[Controller] No transport connector configured")
		c.pendingDial = nil
		return
	}

	if !c.connector.Ready() {
		c.pendingDial.ticks++
		if c.pendingDial.ticks >= dialWaitMaxTicks {
			slog.Warn("[Controller] Connection never became ready, abandoning call", "target", c.pendingDial.target)
			c.pendingDial = nil
			c.routes.AfterHangup("timeout")
			return
		}
		c.dialTimer = time.AfterFunc(dialWaitTick, func() {
			c.Post(dialTick{})
		})
		return
	}

	req := c.pendingDial
	c.pendingDial = nil

	peer, err := c.connector.Call(req.target, req.opts)
	if err != nil {
		slog.Error("[Controller] Failed to place call", "target", req.target, "error", err)
		c.routes.Apply(route.Ready, "call_failed")
		return
	}

	s := session.New(req.opts.ID, session.DirectionOutgoing, req.target, c.clock())
	s.Peer = peer
	s.Participants = req.opts.Participants
	if req.opts.Video {
		s.MediaType = session.MediaVideo
	}

	c.registry.Put(s, true, false)
	c.bridge.StartOutgoingCall(s.ID, req.target, req.opts.Video)

	if s.IsConference() {
		c.routes.Apply(route.Conference, "start_conference")
	} else {
		c.routes.Apply(route.Call, "start_call")
	}
}

// resetDialWait cancels the pending dial and its tick timer.
func (c *Controller) resetDialWait() {
	c.pendingDial = nil
	if c.dialTimer != nil {
		c.dialTimer.Stop()
		c.dialTimer = nil
	}
}

// handleConnectionState force-terminates every live session when the
// transport drops, routing each through the normal terminal path with a
// synthesized reason.
func (c *Controller) handleConnectionState(e ConnectionState) {
	if e.Up == c.connectionUp {
		return
	}
	c.connectionUp = e.Up
	c.bridge.SetAvailable(e.Up)

	if e.Up {
		slog.Info("[Controller] Transport connected")
		if c.reconnecting && c.pendingDial != nil {
			c.reconnecting = false
			c.tryDial()
		}
		return
	}

	slog.Warn("[Controller] Transport disconnected")
	for _, s := range c.registry.Live() {
		synth := route.ReasonConnectionFailed
		reconnect := false
		if s.Direction == session.DirectionOutgoing && s.State == session.StateProgress {
			synth = route.ReasonOutgoingConnectionFailed
			reconnect = true
		}
		if s.Peer != nil {
			if err := s.Peer.Terminate(); err != nil {
				slog.Debug("[Controller] Terminate after disconnect", "session_id", s.ID, "error", err)
			}
		}
		if reconnect {
			c.armReconnect(s)
		}
		c.machine.HandleStateChanged(s.ID, s.State, session.StateTerminated, lifecycle.EventData{Reason: synth})
		if reconnect {
			c.routes.CancelPending()
		}
	}
}

// armReconnect queues a fresh-id retry of an outgoing call interrupted before
// it was answered. The dial starts once the transport reports Up again.
func (c *Controller) armReconnect(s *session.Session) {
	c.reconnecting = true
	c.pendingDial = &dialRequest{
		target: s.RemoteParty,
		opts: CallOptions{
			ID:           uuid.New().String(),
			Audio:        true,
			Video:        s.MediaType == session.MediaVideo,
			Participants: s.Participants,
		},
	}
	slog.Info("[Controller] Reconnect armed", "target", s.RemoteParty, "session_id", c.pendingDial.opts.ID)
}

// heartbeat is passive housekeeping only; it never mutates session state.
func (c *Controller) heartbeat() {
	c.heartbeats++
	c.bridge.Heartbeat()

	if c.heartbeats%heartbeatStatusEvery == 0 {
		slog.Info("[Controller] Status",
			"beats", c.heartbeats,
			"sessions", c.registry.DistinctCount(),
			"route", c.routes.Current().String(),
		)
	}

	now := c.clock()
	for _, s := range c.registry.Live() {
		if (s.State == session.StateProgress || s.State == session.StateIncoming) &&
			now.Sub(s.StartedAt) > staleRingingAfter {
			slog.Warn("[Controller] Session ringing unusually long",
				"session_id", s.ID,
				"state", s.State.String(),
				"age", now.Sub(s.StartedAt).String(),
			)
		}
	}
}
