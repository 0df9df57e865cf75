// Package clock lets the sync daemon and the CLI read the time through an
// interface so tests can control "today" and the wait for the next run.
package clock

import "time"

// Clock is the subset of the time package used by the scheduler
type Clock interface {
	Now() time.Time

	// After returns a channel that receives the current time once d has elapsed.
	// If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
