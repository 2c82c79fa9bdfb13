package bridge

import (
	"sync"

	"github.com/fujs999/callcore/internal/reason"
)

// Call records a single bridge invocation.
type Call struct {
	Op          string
	ID          string
	RemoteParty string
	HasVideo    bool
	Category    reason.EndCategory
	Available   bool
}

// Mock records all bridge invocations for test assertions.
type Mock struct {
	mu    sync.Mutex
	calls []Call
}

// NewMock creates a new Mock.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *Mock) AcceptCall(id string) { m.record(Call{Op: "accept", ID: id}) }
func (m *Mock) RejectCall(id string) { m.record(Call{Op: "reject", ID: id}) }

func (m *Mock) StartOutgoingCall(id, remoteParty string, hasVideo bool) {
	m.record(Call{Op: "start_outgoing", ID: id, RemoteParty: remoteParty, HasVideo: hasVideo})
}

func (m *Mock) SetCurrentCallActive(id string) { m.record(Call{Op: "set_active", ID: id}) }

func (m *Mock) EndCall(id string, category reason.EndCategory) {
	m.record(Call{Op: "end", ID: id, Category: category})
}

func (m *Mock) Heartbeat()        { m.record(Call{Op: "heartbeat"}) }
func (m *Mock) BackToForeground() { m.record(Call{Op: "foreground"}) }

func (m *Mock) SetAvailable(available bool) {
	m.record(Call{Op: "set_available", Available: available})
}

// Calls returns a copy of all recorded invocations.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns all recorded invocations of the given operation.
func (m *Mock) CallsTo(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all recorded invocations.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
