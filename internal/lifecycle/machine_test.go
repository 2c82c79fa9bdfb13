package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/fujs999/callcore/internal/audio"
	"github.com/fujs999/callcore/internal/bridge"
	"github.com/fujs999/callcore/internal/events"
	"github.com/fujs999/callcore/internal/notify"
	"github.com/fujs999/callcore/internal/reason"
	"github.com/fujs999/callcore/internal/route"
	"github.com/fujs999/callcore/internal/session"
)

type fixture struct {
	machine  *Machine
	registry *session.Registry
	bridge   *bridge.Mock
	audio    *audio.Mock
	routes   *route.Coordinator
	history  *events.MockPublisher
	notifier *notify.Mock
	posted   chan string

	now     time.Time
	speaker bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: session.NewRegistry(),
		bridge:   bridge.NewMock(),
		audio:    audio.NewMock(),
		history:  events.NewMockPublisher(),
		notifier: notify.NewMock(),
		posted:   make(chan string, 8),
		now:      time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
	}
	t.Cleanup(f.registry.Close)

	policy := route.DelayPolicy{
		Default:           10 * time.Millisecond,
		CancelledIncoming: time.Millisecond,
		Hangup:            10 * time.Millisecond,
		ConferenceGrace:   10 * time.Millisecond,
	}
	f.routes = route.NewCoordinator(policy, route.Hooks{
		Audio:    f.audio,
		HasCalls: f.registry.HasAny,
	}, func(reason string) {
		f.posted <- reason
	})

	f.machine = NewMachine(Deps{
		Registry:          f.registry,
		Bridge:            f.bridge,
		Audio:             f.audio,
		Routes:            f.routes,
		History:           f.history,
		Notifier:          f.notifier,
		Clock:             func() time.Time { return f.now },
		SpeakerPreference: func() bool { return f.speaker },
	})
	return f
}

func (f *fixture) putOutgoing(id string) *session.Session {
	s := session.New(id, session.DirectionOutgoing, "bob@example.com", f.now)
	f.registry.Put(s, true, false)
	return s
}

func (f *fixture) putIncoming(id string) *session.Session {
	s := session.New(id, session.DirectionIncoming, "alice@example.com", f.now)
	f.registry.Put(s, true, true)
	return s
}

func (f *fixture) waitPosted(t *testing.T) string {
	t.Helper()
	select {
	case r := <-f.posted:
		return r
	case <-time.After(time.Second):
		t.Fatal("no delayed ready request arrived")
		return ""
	}
}

func TestUnknownSessionEventDropped(t *testing.T) {
	f := newFixture(t)

	f.machine.HandleStateChanged("ghost", session.StateProgress, session.StateAccepted, EventData{})

	if len(f.bridge.Calls()) != 0 || len(f.audio.Ops()) != 0 {
		t.Error("event for unknown session ran side effects")
	}
}

func TestProgressStartsRingback(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateProgress, EventData{})

	if f.audio.Count("start_ringback") != 1 {
		t.Error("progress did not start ringback")
	}
	if len(f.bridge.CallsTo("set_active")) != 1 {
		t.Error("progress did not activate the native call")
	}
}

func TestConferenceProgressSkipsRingback(t *testing.T) {
	f := newFixture(t)
	s := f.putOutgoing("conf1")
	s.Participants = []string{"alice@example.com"}

	f.machine.HandleStateChanged("conf1", session.StateProgress, session.StateProgress, EventData{})

	if f.audio.Count("start_ringback") != 0 {
		t.Error("conference progress started ringback")
	}
}

func TestEstablishedOutgoingAudio(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateEstablished, EventData{})

	if f.audio.Count("stop_ringback") != 1 {
		t.Error("established outgoing did not stop ringback")
	}
	if f.audio.Count("start_incall_audio") != 1 {
		t.Errorf("established did not start in-call audio: %v", f.audio.Ops())
	}
	if f.audio.Count("speaker_off") == 0 {
		t.Error("audio call did not route to earpiece")
	}
}

func TestEstablishedRestoresSpeakerPreference(t *testing.T) {
	f := newFixture(t)
	f.speaker = true
	f.putOutgoing("out1")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateEstablished, EventData{})

	if f.audio.Count("speaker_on") == 0 {
		t.Error("speaker preference was not restored on establishment")
	}
}

func TestEarlyMediaAcceptedAfterEstablishedKeepsState(t *testing.T) {
	f := newFixture(t)
	s := f.putOutgoing("out1")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateEstablished, EventData{})
	f.machine.HandleStateChanged("out1", session.StateEstablished, session.StateAccepted, EventData{})

	if s.State != session.StateEstablished {
		t.Errorf("state after late accepted = %s, want established", s.State)
	}
	// the accepted side effects still ran
	if len(f.bridge.CallsTo("set_active")) != 2 {
		t.Errorf("set_active ran %d times, want 2", len(f.bridge.CallsTo("set_active")))
	}
}

func TestAcceptedPromotesSoleIncoming(t *testing.T) {
	f := newFixture(t)
	out := f.putOutgoing("out1")
	inc := session.New("inc1", session.DirectionIncoming, "alice@example.com", f.now)
	f.registry.Put(inc, false, true)

	// outgoing leg ends first, the answered incoming takes over
	_ = out
	f.registry.Evict("out1")
	f.machine.HandleStateChanged("inc1", session.StateIncoming, session.StateAccepted, EventData{})

	if got := f.registry.Current(); got == nil || got.ID != "inc1" {
		t.Errorf("Current() = %v, want inc1 after promotion", got)
	}
}

func TestTerminatedPublishesRecordWithDuration(t *testing.T) {
	f := newFixture(t)
	s := f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateEstablished, EventData{})
	f.now = f.now.Add(42 * time.Second)
	f.machine.HandleStateChanged("out1", session.StateEstablished, session.StateTerminated, EventData{Reason: "200"})

	recs := f.history.Records()
	if len(recs) != 1 {
		t.Fatalf("published %d records, want 1", len(recs))
	}
	if recs[0].DurationSeconds == nil || *recs[0].DurationSeconds != 42 {
		t.Errorf("DurationSeconds = %v, want 42", recs[0].DurationSeconds)
	}
	if recs[0].Reason != "Hangup" {
		t.Errorf("Reason = %q, want Hangup", recs[0].Reason)
	}
	if s.State != session.StateTerminated {
		t.Errorf("state = %s, want terminated", s.State)
	}
	if f.registry.HasAny() {
		t.Error("session not evicted after termination")
	}
}

func TestTerminatedEndsNativeCall(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "486 Busy Here"})

	ends := f.bridge.CallsTo("end")
	if len(ends) != 1 {
		t.Fatalf("end ran %d times, want 1", len(ends))
	}
	if ends[0].Category != reason.EndRemoteEnded {
		t.Errorf("end category = %s, want remote_ended", ends[0].Category)
	}
}

func TestTerminatedFailedOutgoingNotifies(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "404"})

	if f.audio.Count("busy_tone") != 1 {
		t.Error("failed outgoing call did not play the busy tone")
	}
	posts := f.notifier.Posts()
	if len(posts) != 1 || posts[0].Body != "User not found" {
		t.Errorf("notification = %v, want one 'User not found'", posts)
	}
}

func TestTerminatedEstablishedCallDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateEstablished, EventData{})
	f.machine.HandleStateChanged("out1", session.StateEstablished, session.StateTerminated, EventData{Reason: "488"})

	if len(f.notifier.Posts()) != 0 {
		t.Errorf("established call termination posted %v", f.notifier.Posts())
	}
}

func TestTerminatedSchedulesReady(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "487"})

	if got := f.waitPosted(t); got != route.ReasonNoMoreCalls {
		t.Errorf("posted reason = %q, want %q", got, route.ReasonNoMoreCalls)
	}
}

func TestTerminatedPublishFailureStillCompletesTerminalPath(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")
	f.history.SetError(errors.New("broker unreachable"))

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "487"})

	if len(f.bridge.CallsTo("end")) != 1 {
		t.Error("publish failure prevented the native end-call")
	}
	if f.registry.HasAny() {
		t.Error("publish failure prevented the registry eviction")
	}
}

func TestTerminatedDuplicateSuppressed(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "487"})
	f.machine.HandleStateChanged("out1", session.StateTerminated, session.StateTerminated, EventData{Reason: "487"})

	if len(f.history.Records()) != 1 {
		t.Errorf("published %d records for duplicate terminal events, want 1", len(f.history.Records()))
	}
	// the duplicate still re-issues the native end so the panel stops ringing
	if len(f.bridge.CallsTo("end")) != 2 {
		t.Errorf("end ran %d times, want 2", len(f.bridge.CallsTo("end")))
	}
}

func TestTerminatedWithRemainingCallStaysOnCallRoute(t *testing.T) {
	f := newFixture(t)
	f.putOutgoing("out1")
	inc := session.New("inc1", session.DirectionIncoming, "alice@example.com", f.now)
	f.registry.Put(inc, false, true)
	f.routes.Apply(route.Call, "start_call")

	f.machine.HandleStateChanged("out1", session.StateProgress, session.StateTerminated, EventData{Reason: "487"})

	select {
	case r := <-f.posted:
		t.Errorf("ready was scheduled with a live session remaining: %q", r)
	case <-time.After(50 * time.Millisecond):
	}
}
