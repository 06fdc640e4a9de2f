// Package reactor schedules deferred and deadline-bound callbacks for the
// invocation machinery. The default implementation runs callbacks on
// runtime timer goroutines; users needing a different execution context can
// supply their own ITimerService.
package reactor

import (
	"time"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// ITimer is a handle to a scheduled callback.
type ITimer interface {
	// Cancel stops the timer. It reports whether the callback was
	// prevented from running; cancelling a fired or already cancelled
	// timer returns false. Cancellation is best-effort: the callback may
	// already be executing concurrently.
	Cancel() bool
}

// ITimerService schedules callbacks for later execution.
type ITimerService interface {
	// Schedule runs fn once after delay.
	Schedule(delay time.Duration, fn func()) ITimer

	// ScheduleAt runs fn once at the given absolute time. A deadline in
	// the past fires immediately.
	ScheduleAt(deadline time.Time, fn func()) ITimer
}

// --------------------------------------------------------------------------
// Default Implementation
// --------------------------------------------------------------------------

type timeService struct{}

// NewTimeService creates the default timer service backed by the runtime
// timer wheel.
func NewTimeService() ITimerService {
	return &timeService{}
}

func (s *timeService) Schedule(delay time.Duration, fn func()) ITimer {
	if delay < 0 {
		delay = 0
	}
	return &timer{timer: time.AfterFunc(delay, fn)}
}

func (s *timeService) ScheduleAt(deadline time.Time, fn func()) ITimer {
	return s.Schedule(time.Until(deadline), fn)
}

type timer struct {
	timer *time.Timer
}

func (t *timer) Cancel() bool {
	return t.timer.Stop()
}
