package events

import (
	"context"
	"testing"
	"time"

	"github.com/fujs999/callcore/internal/session"
)

func TestNewRecordAnsweredCall(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := session.New("s1", session.DirectionOutgoing, "bob@example.com", start)
	s.MarkEstablished(start.Add(3 * time.Second))

	end := start.Add(45 * time.Second)
	rec := NewRecord(s, "Hangup", false, end)

	if rec.SessionID != "s1" || rec.RemoteParty != "bob@example.com" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if rec.Direction != "outgoing" || rec.Kind != "call" {
		t.Errorf("Direction/Kind = %q/%q, want outgoing/call", rec.Direction, rec.Kind)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 42 {
		t.Fatalf("DurationSeconds = %v, want 42", rec.DurationSeconds)
	}
	want := "10:00:45 - outgoing audio call ended after 00:42"
	if rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
}

func TestNewRecordUnansweredCall(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := session.New("s1", session.DirectionIncoming, "alice@example.com", start)

	rec := NewRecord(s, "Cancelled", true, start.Add(10*time.Second))

	if rec.DurationSeconds != nil {
		t.Errorf("DurationSeconds = %v for an unanswered call, want nil", *rec.DurationSeconds)
	}
	if !rec.Missed {
		t.Error("Missed = false for a cancelled incoming call")
	}
	want := "10:00:10 - incoming audio call ended (Cancelled)"
	if rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
}

func TestNewRecordLongCallUsesHours(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := session.New("s1", session.DirectionOutgoing, "bob@example.com", start)
	s.MediaType = session.MediaVideo
	s.MarkEstablished(start)

	rec := NewRecord(s, "Hangup", false, start.Add(time.Hour+90*time.Second))

	want := "11:01:30 - outgoing video call ended after 01:01:30"
	if rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
}

func TestNewRecordConferenceKind(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := session.New("s1", session.DirectionOutgoing, "room@conference.example.com", start)
	s.Participants = []string{"alice@example.com", "bob@example.com"}

	rec := NewRecord(s, "Hangup", false, start)
	if rec.Kind != "conference" {
		t.Errorf("Kind = %q, want conference", rec.Kind)
	}
}

func TestMockPublisher(t *testing.T) {
	p := NewMockPublisher()

	rec := Record{SessionID: "s1", Reason: "Hangup"}
	if err := p.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	got := p.Records()
	if len(got) != 1 || got[0].SessionID != "s1" {
		t.Errorf("Records() = %v, want one record for s1", got)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !p.Closed() {
		t.Error("Closed() = false after Close")
	}
}
