package audio

import (
	"sync"

	"github.com/fujs999/callcore/internal/session"
)

// Mock records audio routing operations for test assertions.
type Mock struct {
	mu  sync.Mutex
	ops []string
}

// NewMock creates a new Mock.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *Mock) StartRingback()   { m.record("start_ringback") }
func (m *Mock) StopRingback()    { m.record("stop_ringback") }
func (m *Mock) PlayBusyTone()    { m.record("busy_tone") }
func (m *Mock) StopBusyTone()    { m.record("stop_busy_tone") }
func (m *Mock) SpeakerphoneOn()  { m.record("speaker_on") }
func (m *Mock) SpeakerphoneOff() { m.record("speaker_off") }

func (m *Mock) StartInCall(media session.MediaType) {
	m.record("start_incall_" + media.String())
}

func (m *Mock) StopInCall()        { m.record("stop_incall") }
func (m *Mock) CancelVibration()   { m.record("cancel_vibration") }
func (m *Mock) ReleaseLocalMedia() { m.record("release_media") }

// Ops returns a copy of all recorded operations in order.
func (m *Mock) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

// Count returns how many times the given operation was recorded.
func (m *Mock) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o == op {
			n++
		}
	}
	return n
}

// Reset clears all recorded operations.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}
