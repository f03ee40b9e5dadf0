// Package clock provides an injectable time source so that periodic work can
// be driven deterministically in tests.
//
// Production code takes a Clock and uses Real(). Tests use Fake(), whose time
// only moves when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	g := typing.New(ed, typing.Config{Clock: c})
//	g.Toggle()
//	c.Advance(500 * time.Millisecond) // ten ticks, run synchronously
package clock

import "time"

// Clock abstracts the parts of the time package used by this module.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks for at least d.
	Sleep(d time.Duration)

	// Every calls f once per period d until the returned Ticker is
	// stopped. Calls never overlap. Panics if d <= 0.
	Every(d time.Duration, f func()) *Ticker
}

// Ticker is the handle of a periodic callback registered with Every.
type Ticker struct {
	stop func()
}

// Stop cancels future calls. It is safe to call more than once. A call that
// is already running when Stop is invoked may still complete.
func (t *Ticker) Stop() {
	if t != nil && t.stop != nil {
		t.stop()
	}
}
