package session

import (
	"log/slog"
	"time"

	"github.com/fujs999/callcore/internal/store"
)

// Registry TTL constants
const (
	// TerminatedTTL is how long a terminated session id is remembered for
	// duplicate terminal-event suppression
	TerminatedTTL = 4 * time.Hour
	// TerminatedCleanupInterval is how often the suppression set is swept
	TerminatedCleanupInterval = 10 * time.Minute
)

// Registry holds the at-most-two live sessions (current and incoming, which
// may reference the same session) plus a time-bounded set of terminated ids
// used to drop duplicate terminal events.
//
// The registry is confined to the controller goroutine; slot access needs no
// locking. The terminated set is internally synchronized because its sweep
// runs on its own goroutine.
type Registry struct {
	sessions map[string]*Session

	current  string
	incoming string

	terminated *store.TTLStore[string, struct{}]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		sessions:   make(map[string]*Session),
		terminated: store.NewTTLStore[string, struct{}](TerminatedCleanupInterval),
	}
	r.terminated.SetOnEvict(func(id string, _ struct{}) {
		slog.Debug("[Registry] Terminated id expired", "session_id", id)
	})
	return r
}

// Put stores a session and assigns it to the requested slots.
func (r *Registry) Put(s *Session, asCurrent, asIncoming bool) {
	r.sessions[s.ID] = s
	if asCurrent {
		r.current = s.ID
	}
	if asIncoming {
		r.incoming = s.ID
	}
}

// Get returns the session with the given id, if registered.
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Current returns the session occupying the current slot, if any.
func (r *Registry) Current() *Session {
	if r.current == "" {
		return nil
	}
	return r.sessions[r.current]
}

// Incoming returns the session occupying the incoming slot, if any.
func (r *Registry) Incoming() *Session {
	if r.incoming == "" {
		return nil
	}
	return r.sessions[r.incoming]
}

// PromoteIncoming moves the incoming session into the current slot as well.
// A single unresolved incoming call occupies both roles.
func (r *Registry) PromoteIncoming() {
	if r.incoming != "" {
		r.current = r.incoming
	}
}

// ClearCurrent empties the current slot without touching the session map.
func (r *Registry) ClearCurrent() {
	r.current = ""
}

// ClearIncoming empties the incoming slot without touching the session map.
func (r *Registry) ClearIncoming() {
	r.incoming = ""
}

// Evict removes a session from both slots and from the session map.
// Evicting an absent id is a no-op.
func (r *Registry) Evict(id string) {
	if id == "" {
		return
	}
	if r.current == id {
		r.current = ""
	}
	if r.incoming == id {
		r.incoming = ""
	}
	delete(r.sessions, id)
}

// HasAny returns true if either slot is occupied.
func (r *Registry) HasAny() bool {
	return r.current != "" || r.incoming != ""
}

// BothSlotsSameSession returns true when current and incoming reference the
// same session (a single incoming call not yet promoted).
func (r *Registry) BothSlotsSameSession() bool {
	return r.current != "" && r.current == r.incoming
}

// DistinctCount returns how many distinct sessions occupy the two slots.
func (r *Registry) DistinctCount() int {
	switch {
	case r.current == "" && r.incoming == "":
		return 0
	case r.current == "" || r.incoming == "" || r.current == r.incoming:
		return 1
	default:
		return 2
	}
}

// MarkTerminated records a session id in the duplicate-suppression set.
func (r *Registry) MarkTerminated(id string) {
	r.terminated.Set(id, struct{}{}, TerminatedTTL)
}

// WasTerminated returns true if a terminal event for this id was already
// processed within the suppression window.
func (r *Registry) WasTerminated(id string) bool {
	return r.terminated.Has(id)
}

// Live returns all sessions currently referenced by a slot, deduplicated.
func (r *Registry) Live() []*Session {
	var out []*Session
	if s := r.Current(); s != nil {
		out = append(out, s)
	}
	if s := r.Incoming(); s != nil && (len(out) == 0 || out[0].ID != s.ID) {
		out = append(out, s)
	}
	return out
}

// Close releases the terminated-set sweeper.
func (r *Registry) Close() {
	r.terminated.Close()
}
