package clock

import (
	"sync"
	"time"
)

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

func (realClock) Every(d time.Duration, f func()) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f()
			}
		}
	}()

	var once sync.Once
	return &Ticker{stop: func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}}
}
