package route

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fujs999/callcore/internal/audio"
)

// DelayPolicy holds the debounce delays applied before committing a Ready
// transition after a termination.
type DelayPolicy struct {
	// Default applies after an ordinary terminal transition
	Default time.Duration
	// CancelledIncoming applies when an incoming call was cancelled before
	// being answered
	CancelledIncoming time.Duration
	// Hangup applies to a generic hangup with no more specific reason
	Hangup time.Duration
	// ConferenceGrace allows a conference hangup to be confirmed
	ConferenceGrace time.Duration
}

// DefaultDelayPolicy returns the stock delays.
func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{
		Default:           5 * time.Second,
		CancelledIncoming: 10 * time.Millisecond,
		Hangup:            6 * time.Second,
		ConferenceGrace:   15 * time.Second,
	}
}

// Hooks are the collaborators a route transition may touch.
type Hooks struct {
	Audio audio.Router
	// Foreground brings the app to the foreground
	Foreground func()
	// HasCalls reports whether the registry still holds a live session
	HasCalls func() bool
	// ClearSelection clears a pending selected item when re-entering Ready
	ClearSelection func()
	// OnChange notifies the presentation layer of a committed transition
	OnChange func(route State, reason string)
}

// Coordinator applies route transitions and owns the single-slot pending
// timer for delayed Ready transitions. Apply must only be called from the
// controller goroutine; the timer never applies a transition itself, it
// hands the request back through the post function.
type Coordinator struct {
	policy DelayPolicy
	hooks  Hooks

	// post delivers a delayed Ready request back into the event loop
	post func(reason string)

	current State

	timerMu sync.Mutex
	pending *time.Timer
}

// NewCoordinator creates a coordinator starting at the Login route.
func NewCoordinator(policy DelayPolicy, hooks Hooks, post func(reason string)) *Coordinator {
	return &Coordinator{
		policy:  policy,
		hooks:   hooks,
		post:    post,
		current: Login,
	}
}

// Current returns the active route.
func (c *Coordinator) Current() State {
	return c.current
}

// Apply commits a route transition, running the entry side effects for the
// target route. Re-entering the active route is a no-op except that Ready
// clears a pending selection.
func (c *Coordinator) Apply(route State, reason string) {
	if c.current == route {
		if route == Ready && c.hooks.ClearSelection != nil {
			c.hooks.ClearSelection()
		}
		return
	}

	slog.Info("[Route] Change route", "from", c.current.String(), "to", route.String(), "reason", reason)

	if route == Call || route == Conference {
		if c.hooks.Foreground != nil {
			c.hooks.Foreground()
		}
	}

	if route == Ready && reason != ReasonBackToHome {
		if c.hooks.Audio != nil {
			c.hooks.Audio.CancelVibration()
		}

		if reason == ReasonConferenceEnded && c.hooks.HasCalls != nil && c.hooks.HasCalls() {
			slog.Info("[Route] Change route cancelled, calls still in progress")
			return
		}

		if c.current == Call || c.current == Conference {
			if c.hooks.Audio != nil {
				if reason != ReasonUserHangup {
					c.hooks.Audio.StopRingback()
					c.hooks.Audio.StopInCall()
				}
				c.hooks.Audio.ReleaseLocalMedia()
			}
		}
	}

	c.current = route
	if c.hooks.OnChange != nil {
		c.hooks.OnChange(route, reason)
	}
}

// ScheduleReady schedules a delayed Ready transition. The slot holds one
// timer: scheduling again cancels the previous one.
func (c *Coordinator) ScheduleReady(reason string, delay time.Duration) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.pending != nil {
		c.pending.Stop()
	}

	slog.Debug("[Route] Will go to ready", "delay", delay, "reason", reason)
	c.pending = time.AfterFunc(delay, func() {
		c.timerMu.Lock()
		c.pending = nil
		c.timerMu.Unlock()
		c.post(reason)
	})
}

// CancelPending cancels any scheduled Ready transition. Any event that
// requires staying off Ready must call this synchronously.
func (c *Coordinator) CancelPending() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// HasPending reports whether a Ready transition is scheduled.
func (c *Coordinator) HasPending() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	return c.pending != nil
}

// AfterHangup applies the hangup route policy for a user- or
// protocol-supplied hangup reason: the user/cancel family transitions
// immediately, conference hangups start the grace period, anything else is
// delayed by the generic hangup debounce.
func (c *Coordinator) AfterHangup(reason string) {
	switch {
	case immediateHangupReasons[reason]:
		c.Apply(Ready, reason)
	case reason == ReasonUserHangupConference || reason == ReasonUserCancelledConference:
		c.ScheduleReady(ReasonConferenceEnded, c.policy.ConferenceGrace)
	default:
		c.ScheduleReady(reason, c.policy.Hangup)
	}
}

// TerminalDelay picks the debounce for a terminal transition: near-zero when
// an incoming call was cancelled before being answered, the default
// otherwise.
func (c *Coordinator) TerminalDelay(incomingCancelled bool) time.Duration {
	if incomingCancelled {
		return c.policy.CancelledIncoming
	}
	return c.policy.Default
}
