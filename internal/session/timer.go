package session

import (
	"sync"
	"time"
)

// Timer drives one-second ticks into the engine while a session runs. It
// holds no state beyond its cancellation handle: the engine owns the
// countdown, the timer only delivers ticks. Stop is idempotent and must be
// called on every exit from the running state so a late tick can never
// trigger a second completion.
type Timer struct {
	stop chan struct{}
	once sync.Once
}

// startTimer begins ticking at the given interval. The tick callback
// reports whether the session is still running; a false return ends the
// goroutine without requiring an explicit Stop.
func startTimer(interval time.Duration, tick func() bool) *Timer {
	t := &Timer{stop: make(chan struct{})}
	go func() {
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-tk.C:
				if !tick() {
					return
				}
			}
		}
	}()
	return t
}

func (t *Timer) Stop() {
	t.once.Do(func() { close(t.stop) })
}
