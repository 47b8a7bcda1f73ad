package supervisor

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop reports whether the call prevented the callback from running.
	Stop() bool
}

// Clock schedules the escalation, backoff and settle timers.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
