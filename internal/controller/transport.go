package controller

import "github.com/fujs999/callcore/internal/session"

// CallOptions configures an outgoing call placed on the transport.
type CallOptions struct {
	ID           string
	Audio        bool
	Video        bool
	Participants []string
}

// Connector is the outbound half of the signaling transport: readiness and
// call placement. The transport's inbound half posts Events instead.
type Connector interface {
	// Ready reports whether the connection can place calls
	Ready() bool
	// Call places an outgoing call and returns its live peer
	Call(target string, opts CallOptions) (session.Peer, error)
}
