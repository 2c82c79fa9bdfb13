// Package events carries the end-of-call records emitted on every terminal
// transition and the publishers that deliver them.
package events

import (
	"fmt"
	"time"

	"github.com/fujs999/callcore/internal/session"
)

// Record is the structured end-of-call record handed to the history
// collaborator on every terminal transition.
type Record struct {
	SessionID   string `json:"session_id"`
	RemoteParty string `json:"remote_party"`
	Direction   string `json:"direction"`
	MediaType   string `json:"media_type"`
	Kind        string `json:"kind"`
	Reason      string `json:"reason"`
	Missed      bool   `json:"missed"`

	// DurationSeconds is nil when the call never reached established
	DurationSeconds *int `json:"duration_seconds"`

	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewRecord builds the record for a terminated session. The human-readable
// message carries the duration when the call was answered, the reason
// otherwise.
func NewRecord(s *session.Session, reasonText string, missed bool, now time.Time) Record {
	rec := Record{
		SessionID:   s.ID,
		RemoteParty: s.RemoteParty,
		Direction:   s.Direction.String(),
		MediaType:   s.MediaType.String(),
		Kind:        s.Kind(),
		Reason:      reasonText,
		Missed:      missed,
		Timestamp:   now.Format(time.RFC3339),
	}

	clock := now.Format("15:04:05")
	if d, ok := s.Duration(now); ok {
		secs := int(d.Seconds())
		rec.DurationSeconds = &secs
		rec.Message = fmt.Sprintf("%s - %s %s call ended after %s",
			clock, rec.Direction, rec.MediaType, formatDuration(d))
	} else {
		rec.Message = fmt.Sprintf("%s - %s %s call ended (%s)",
			clock, rec.Direction, rec.MediaType, reasonText)
	}

	return rec
}

// formatDuration renders mm:ss, or hh:mm:ss for calls over an hour.
func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
