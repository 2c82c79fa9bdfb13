package controller

import "github.com/fujs999/callcore/internal/session"

// Event is one unit of work for the controller loop. All three producers
// (transport callbacks, native-UI/user actions, push-derived synthetic
// events) post Events into the same inbox; the loop consumes them one at a
// time, which is the only serialization the session registry relies on.
type Event interface {
	isEvent()
}

// StateChanged reports a transport state transition for a known session.
type StateChanged struct {
	ID     string
	Old    session.State
	New    session.State
	Reason string
}

// IncomingSession is a new incoming call or conference invite delivered
// over the signaling transport, with its live peer attached.
type IncomingSession struct {
	ID           string
	From         string
	To           string
	Participants []string
	HasVideo     bool
	Peer         session.Peer
}

// IncomingPush is a push-derived synthetic incoming call: no transport
// object exists yet.
type IncomingPush struct {
	ID          string
	From        string
	To          string
	DisplayName string
	HasVideo    bool
	Conference  bool
}

// PushCancel is a push-derived cancellation of an incoming call.
type PushCancel struct {
	ID string
}

// AcceptCall is the user (or native UI) answering the incoming call.
type AcceptCall struct {
	ID string
}

// RejectCall is the user (or native UI) declining the incoming call.
type RejectCall struct {
	ID string
}

// HangupCall is the user ending a call, with the reason that selects the
// route policy.
type HangupCall struct {
	ID     string
	Reason string
}

// StartCall is the user placing an outgoing call or conference.
type StartCall struct {
	Target       string
	Video        bool
	Conference   bool
	Participants []string
}

// ConnectionState reports signaling transport availability.
type ConnectionState struct {
	Up bool
}

// SetSpeaker is the user toggling the speakerphone preference.
type SetSpeaker struct {
	On bool
}

// routeReady is the route coordinator's delayed Ready request re-entering
// the loop.
type routeReady struct {
	reason string
}

// dialTick advances the bounded wait for transport readiness before an
// outgoing call is placed.
type dialTick struct{}

func (StateChanged) isEvent()    {}
func (IncomingSession) isEvent() {}
func (IncomingPush) isEvent()    {}
func (PushCancel) isEvent()      {}
func (AcceptCall) isEvent()      {}
func (RejectCall) isEvent()      {}
func (HangupCall) isEvent()      {}
func (StartCall) isEvent()       {}
func (ConnectionState) isEvent() {}
func (SetSpeaker) isEvent()      {}
func (routeReady) isEvent()      {}
func (dialTick) isEvent()        {}
