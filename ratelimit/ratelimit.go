// Package ratelimit bounds outbound explorer calls to a fixed number per
// rolling time window, matching the call-rate ceiling the explorer api
// enforces on free keys.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DEFAULT_MAX_CALLS int           = 3
	DEFAULT_WINDOW    time.Duration = time.Second
)

// Limiter lets at most maxCalls calls start within any window-length span.
// The only guarantee is the ceiling; ordering among blocked callers is
// whatever the scheduler gives us.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
}

func New(maxCalls int, window time.Duration) *Limiter {
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
	}
}

func NewDefault() *Limiter {
	return New(DEFAULT_MAX_CALLS, DEFAULT_WINDOW)
}

// Acquire blocks until starting a call would not exceed the ceiling, then
// registers the call. Sleeping until the oldest timestamp expires is only a
// hint: another caller may grab the freed slot first, so the whole check runs
// again after every wake-up.
func (l *Limiter) Acquire() {
	for {
		var sleepFor time.Duration

		l.mu.Lock()
		now := time.Now()
		for len(l.calls) > 0 && now.Sub(l.calls[0]) >= l.window {
			l.calls = l.calls[1:]
		}
		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return
		}
		sleepFor = l.window - now.Sub(l.calls[0])
		l.mu.Unlock()

		if sleepFor > 0 {
			time.Sleep(sleepFor)
		}
	}
}
