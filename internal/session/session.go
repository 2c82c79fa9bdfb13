// Package session defines the call session record, its state machine and
// the two-slot registry that holds the live sessions.
package session

import (
	"fmt"
	"time"
)

// Direction indicates whether we initiated or received the session
type Direction int

const (
	// DirectionIncoming - the remote party called us
	DirectionIncoming Direction = iota
	// DirectionOutgoing - we placed the call
	DirectionOutgoing
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "incoming"
	case DirectionOutgoing:
		return "outgoing"
	default:
		return "unknown"
	}
}

// MediaType is the dominant media of a session, derived from track presence
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaVideo
)

// String returns the string representation of the media type
func (m MediaType) String() string {
	if m == MediaVideo {
		return "video"
	}
	return "audio"
}

// Tracks reports which media tracks a stream carries. The controller never
// touches the media plane; presence is all it needs.
type Tracks struct {
	Audio bool
	Video bool
}

// Peer is the transport-side half of a session: the live signaling object
// the controller answers, terminates and inspects for media tracks.
type Peer interface {
	Answer() error
	Terminate() error
	LocalTracks() Tracks
	RemoteTracks() Tracks
}

// Session is one call or conference attempt, incoming or outgoing.
type Session struct {
	ID          string
	Direction   Direction
	RemoteParty string

	// Participants is non-empty iff this is a conference
	Participants []string

	State     State
	MediaType MediaType

	StartedAt     time.Time
	EstablishedAt time.Time

	// TerminationReason is set once, on entering StateTerminated
	TerminationReason string

	// Peer is nil for push-synthesized sessions that never got a
	// transport object attached
	Peer Peer
}

// New creates a session in its initial state for the given direction.
func New(id string, direction Direction, remoteParty string, now time.Time) *Session {
	initial := StateProgress
	if direction == DirectionIncoming {
		initial = StateIncoming
	}
	return &Session{
		ID:          id,
		Direction:   direction,
		RemoteParty: remoteParty,
		State:       initial,
		StartedAt:   now,
	}
}

// IsConference returns true if the session carries a participant set
func (s *Session) IsConference() bool {
	return len(s.Participants) > 0
}

// Kind returns "conference" or "call"
func (s *Session) Kind() string {
	if s.IsConference() {
		return "conference"
	}
	return "call"
}

// TransitionTo advances the session state. Backward or repeated transitions
// are rejected; Terminated is absorbing.
func (s *Session) TransitionTo(next State) error {
	if !s.State.CanTransitionTo(next) {
		return fmt.Errorf("invalid transition %s -> %s for session %s", s.State, next, s.ID)
	}
	s.State = next
	return nil
}

// MarkEstablished records the establishment time if not already set.
// Both the accepted and established transitions call this; the first wins.
func (s *Session) MarkEstablished(now time.Time) {
	if s.EstablishedAt.IsZero() {
		s.EstablishedAt = now
	}
}

// RefreshMediaType re-derives the media type from the local stream tracks.
// Sessions without a transport peer keep their current value.
func (s *Session) RefreshMediaType() MediaType {
	if s.Peer == nil {
		return s.MediaType
	}
	if s.Peer.LocalTracks().Video {
		s.MediaType = MediaVideo
	} else {
		s.MediaType = MediaAudio
	}
	return s.MediaType
}

// Duration returns the established-to-now duration, or false if the session
// never reached the established state.
func (s *Session) Duration(now time.Time) (time.Duration, bool) {
	if s.EstablishedAt.IsZero() {
		return 0, false
	}
	return now.Sub(s.EstablishedAt), true
}
