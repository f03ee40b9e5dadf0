package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	c.Advance(5 * time.Second)
	if got, want := c.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now()=%v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnlyPastDeadline(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case at := <-channel:
		if want := epoch.Add(3 * time.Second); !at.Equal(want) {
			t.Fatalf("fired at %v, want %v", at, want)
		}
	default:
		t.Fatal("After did not fire at deadline")
	}
	if got := c.PendingCount(); got != 0 {
		t.Fatalf("PendingCount()=%d, want 0", got)
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeEveryFiresOncePerPeriod(t *testing.T) {
	c := Fake(epoch)
	var fired []time.Time
	ticker := c.Every(50*time.Millisecond, func() { fired = append(fired, c.Now()) })
	defer ticker.Stop()

	c.Advance(500 * time.Millisecond)
	if got, want := len(fired), 10; got != want {
		t.Fatalf("fired %d times, want %d", got, want)
	}
	for i, at := range fired {
		if want := epoch.Add(time.Duration(i+1) * 50 * time.Millisecond); !at.Equal(want) {
			t.Fatalf("tick %d at %v, want %v", i, at, want)
		}
	}
	if got, want := c.Now(), epoch.Add(500*time.Millisecond); !got.Equal(want) {
		t.Fatalf("Now()=%v, want %v", got, want)
	}
}

func TestFakeEveryStopFromCallback(t *testing.T) {
	c := Fake(epoch)
	count := 0
	var ticker *Ticker
	ticker = c.Every(10*time.Millisecond, func() {
		count++
		if count == 3 {
			ticker.Stop()
		}
	})

	c.Advance(time.Second)
	if got, want := count, 3; got != want {
		t.Fatalf("count=%d, want %d", got, want)
	}
	if got := c.PendingCount(); got != 0 {
		t.Fatalf("PendingCount()=%d, want 0", got)
	}
}

func TestFakeEveryStopIsIdempotent(t *testing.T) {
	c := Fake(epoch)
	ticker := c.Every(time.Second, func() { t.Fatal("stopped ticker fired") })
	ticker.Stop()
	ticker.Stop()
	c.Advance(5 * time.Second)
}

func TestFakeDeadlineOrderAcrossWaiters(t *testing.T) {
	c := Fake(epoch)
	var order []string
	slow := c.Every(30*time.Millisecond, func() { order = append(order, "slow") })
	fast := c.Every(20*time.Millisecond, func() { order = append(order, "fast") })
	defer slow.Stop()
	defer fast.Stop()

	c.Advance(60 * time.Millisecond)
	want := []string{"fast", "slow", "fast", "slow", "fast"}
	if len(order) != len(want) {
		t.Fatalf("order=%v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v, want %v", order, want)
		}
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.Sleep(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestEveryPanicsOnNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Fake(epoch).Every(0, func() {})
}

func TestRealEveryStops(t *testing.T) {
	calls := make(chan struct{}, 16)
	ticker := Real().Every(time.Millisecond, func() {
		select {
		case calls <- struct{}{}:
		default:
		}
	})
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("real ticker never fired")
	}
	ticker.Stop()
	ticker.Stop()
}
