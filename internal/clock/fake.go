package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock starting at initial. Time stands still until
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock. Every callbacks run synchronously inside
// Advance, one at a time in deadline order, with Now reporting the deadline
// being fired. Do not call Advance or Sleep from a callback.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
	seq     uint64
	changed *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	seq      uint64

	// channel is set for After and Sleep waiters.
	channel chan time.Time
	// callback and interval are set for Every waiters.
	callback func()
	interval time.Duration

	stopped bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.addLocked(&fakeWaiter{deadline: c.current.Add(d), channel: channel})
	return channel
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

func (c *FakeClock) Every(d time.Duration, f func()) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &fakeWaiter{deadline: c.current.Add(d), callback: f, interval: d}
	c.addLocked(w)
	return &Ticker{stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !w.stopped {
			w.stopped = true
			c.changed.Broadcast()
		}
	}}
}

// Advance moves the clock forward by d, firing every waiter whose deadline
// falls inside the window. A periodic waiter fires once per elapsed period.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		w, at := c.popDue(target)
		if w == nil {
			break
		}
		if w.callback != nil {
			w.callback()
			continue
		}
		select {
		case w.channel <- at:
		default:
		}
	}

	c.mu.Lock()
	if target.After(c.current) {
		c.current = target
	}
	c.mu.Unlock()
}

// popDue removes the earliest due waiter (rescheduling periodic ones) and
// moves the clock to its deadline.
func (c *FakeClock) popDue(target time.Time) (*fakeWaiter, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.waiters[:0]
	var due *fakeWaiter
	for _, w := range c.waiters {
		if w.stopped {
			continue
		}
		live = append(live, w)
		if w.deadline.After(target) {
			continue
		}
		if due == nil || w.deadline.Before(due.deadline) ||
			(w.deadline.Equal(due.deadline) && w.seq < due.seq) {
			due = w
		}
	}
	c.waiters = live
	if due == nil {
		return nil, time.Time{}
	}

	at := due.deadline
	c.current = at
	if due.interval > 0 {
		due.deadline = at.Add(due.interval)
		c.seq++
		due.seq = c.seq
	} else {
		c.removeLocked(due)
	}
	return due, at
}

// WaitForTimers blocks until at least n waiters are pending. Use it when a
// goroutine registers a timer that the test is about to advance past.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of registered, unstopped waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) addLocked(w *fakeWaiter) {
	c.seq++
	w.seq = c.seq
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

func (c *FakeClock) removeLocked(w *fakeWaiter) {
	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, w := range c.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}
