// Package admission decides whether a newly-arriving session may enter the
// registry, and issues the reject side effects when it may not.
package admission

import (
	"log/slog"

	"github.com/fujs999/callcore/internal/bridge"
	"github.com/fujs999/callcore/internal/notify"
	"github.com/fujs999/callcore/internal/reason"
	"github.com/fujs999/callcore/internal/session"
)

// RejectCode classifies why an arriving session was refused.
type RejectCode int

const (
	RejectNone RejectCode = iota
	RejectBlockedURI
	RejectBlockedDomain
	RejectSelfCall
	RejectSecondIncoming
	RejectAlreadyTerminated
	RejectInConference
	RejectOutgoingInProgress
)

// String returns the string representation of the reject code
func (c RejectCode) String() string {
	switch c {
	case RejectBlockedURI:
		return "blocked_uri"
	case RejectBlockedDomain:
		return "blocked_domain"
	case RejectSelfCall:
		return "self_call"
	case RejectSecondIncoming:
		return "second_incoming"
	case RejectAlreadyTerminated:
		return "already_terminated"
	case RejectInConference:
		return "in_conference"
	case RejectOutgoingInProgress:
		return "outgoing_in_progress"
	default:
		return "none"
	}
}

// Descriptor describes a newly-observed incoming session before it has a
// registry record.
type Descriptor struct {
	ID string
	// From is the remote party URI
	From string
	// To is the local target URI; used for the conference collision rule
	To string
}

// Outcome is the admission decision.
type Outcome struct {
	Accepted bool
	Code     RejectCode
	// HangupCurrentID, when set, names the outgoing session that must be
	// hung up with accept_new_call before the arriving one proceeds
	// (answer-your-own-call collision)
	HangupCurrentID string
}

// Controller applies the admission rules in their fixed decision order.
// The order is observable behavior; do not rearrange it.
type Controller struct {
	registry  *session.Registry
	blocklist *Blocklist
	// identity is the local account URI
	identity string
	bridge   bridge.Bridge
	notifier notify.Notifier
}

// NewController creates an admission controller.
func NewController(reg *session.Registry, bl *Blocklist, identity string, b bridge.Bridge, n notify.Notifier) *Controller {
	return &Controller{
		registry:  reg,
		blocklist: bl,
		identity:  identity,
		bridge:    b,
		notifier:  n,
	}
}

// SetIdentity updates the local account URI after registration.
func (c *Controller) SetIdentity(identity string) {
	c.identity = identity
}

// Blocklist exposes the block-list for runtime edits.
func (c *Controller) Blocklist() *Blocklist {
	return c.blocklist
}

// Admit runs the decision order on an arriving session. Rejections issue
// their native-UI side effects here and never mutate the registry.
func (c *Controller) Admit(d Descriptor) Outcome {
	// 1. blocked URI or domain
	if c.blocklist.MatchesURI(d.From) {
		slog.Info("[Admission] Reject call from blocked URI", "session_id", d.ID, "from", d.From)
		c.bridge.RejectCall(d.ID)
		c.notifier.Post("Call rejected", "from "+d.From)
		return Outcome{Code: RejectBlockedURI}
	}
	if c.blocklist.MatchesDomain(d.From) {
		slog.Info("[Admission] Reject call from blocked domain", "session_id", d.ID, "from", d.From)
		c.bridge.RejectCall(d.ID)
		c.notifier.Post("Call rejected", "from domain "+domainOf(d.From))
		return Outcome{Code: RejectBlockedDomain}
	}

	current := c.registry.Current()

	// 2. call to myself colliding with an existing session to my own identity
	if c.identity != "" && d.From == c.identity && current != nil && current.RemoteParty == d.From {
		slog.Info("[Admission] Reject call to myself", "session_id", d.ID)
		c.bridge.RejectCall(d.ID)
		return Outcome{Code: RejectSelfCall}
	}

	// 3. late duplicate of an already-terminated session; still end the
	// native panel so it does not keep ringing
	if c.registry.WasTerminated(d.ID) {
		slog.Info("[Admission] Reject already terminated call", "session_id", d.ID)
		c.bridge.EndCall(d.ID, reason.EndRemoteEnded)
		return Outcome{Code: RejectAlreadyTerminated}
	}

	// 4. a second incoming call while one is still unresolved
	if c.registry.BothSlotsSameSession() {
		if inc := c.registry.Incoming(); inc != nil && inc.ID != d.ID {
			slog.Info("[Admission] Reject second incoming call", "session_id", d.ID)
			c.bridge.RejectCall(d.ID)
			return Outcome{Code: RejectSecondIncoming}
		}
	}

	// 5. already in a conference
	if current != nil && current.IsConference() {
		slog.Info("[Admission] Reject call while in a conference", "session_id", d.ID)
		if d.To != current.RemoteParty {
			c.notifier.Post("Missed call from", d.From)
		}
		c.bridge.RejectCall(d.ID)
		return Outcome{Code: RejectInConference}
	}

	// 6. an outgoing call to a different party is still in progress
	if current != nil && current.Direction == session.DirectionOutgoing &&
		current.State == session.StateProgress && current.RemoteParty != d.From {
		slog.Info("[Admission] Reject call while outgoing in progress", "session_id", d.ID)
		c.bridge.RejectCall(d.ID)
		c.notifier.Post("Missed call from", d.From)
		return Outcome{Code: RejectOutgoingInProgress}
	}

	// 7. accepted; answer-your-own-call collision hangs up the outgoing leg
	out := Outcome{Accepted: true}
	if current != nil && current.Direction == session.DirectionOutgoing &&
		current.State == session.StateProgress && current.RemoteParty == d.From {
		slog.Info("[Admission] Auto accept call from the address being called", "session_id", d.ID, "from", d.From)
		out.HangupCurrentID = current.ID
	}
	return out
}

// domainOf extracts the @domain form of an address for notifications.
func domainOf(uri string) string {
	_, host, ok := splitURI(uri)
	if !ok {
		return uri
	}
	return "@" + host
}
