// Package audio defines the platform audio-routing collaborator: tones,
// speakerphone and local media teardown. The controller decides when; the
// platform binding decides how.
package audio

import (
	"log/slog"

	"github.com/fujs999/callcore/internal/session"
)

// Router is the platform audio integration.
type Router interface {
	// StartRingback plays the local ringing tone for an outgoing call
	StartRingback()
	// StopRingback stops the local ringing tone
	StopRingback()
	// PlayBusyTone plays the local busy/failure tone
	PlayBusyTone()
	// StopBusyTone stops a busy-tone loop in progress
	StopBusyTone()
	// SpeakerphoneOn forces audio out the speakerphone
	SpeakerphoneOn()
	// SpeakerphoneOff routes audio back to the earpiece
	SpeakerphoneOff()
	// StartInCall starts platform in-call audio routing for the media type
	StartInCall(media session.MediaType)
	// StopInCall tears down in-call audio routing
	StopInCall()
	// CancelVibration stops any ongoing vibration
	CancelVibration()
	// ReleaseLocalMedia releases locally acquired media streams
	ReleaseLocalMedia()
}

// Noop is a Router that only logs.
type Noop struct{}

func (Noop) StartRingback()   { slog.Debug("[Audio] Start ringback") }
func (Noop) StopRingback()    { slog.Debug("[Audio] Stop ringback") }
func (Noop) PlayBusyTone()    { slog.Debug("[Audio] Play busy tone") }
func (Noop) StopBusyTone()    { slog.Debug("[Audio] Stop busy tone") }
func (Noop) SpeakerphoneOn()  { slog.Debug("[Audio] Speakerphone on") }
func (Noop) SpeakerphoneOff() { slog.Debug("[Audio] Speakerphone off") }

func (Noop) StartInCall(media session.MediaType) {
	slog.Debug("[Audio] Start in-call routing", "media", media)
}

func (Noop) StopInCall()        { slog.Debug("[Audio] Stop in-call routing") }
func (Noop) CancelVibration()   {}
func (Noop) ReleaseLocalMedia() { slog.Debug("[Audio] Release local media") }
