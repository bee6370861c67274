// Package poller provides the single repeating-fetch primitive both client
// apps use instead of scattering timers per screen.
package poller

import (
	"sync"
	"time"
)

// Poller invokes a function immediately and then on a fixed interval until
// stopped. Stopping prevents any further invocation from being scheduled or
// started; it does not cancel a request already in flight, so callers must
// discard late results themselves (the state machines do this with an epoch
// token).
type Poller struct {
	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// New returns an idle Poller.
func New() *Poller {
	return &Poller{}
}

// Start begins polling: fn runs once right away, then every interval. If the
// poller is already running it is restarted with the new fn and interval.
func (p *Poller) Start(fn func(), interval time.Duration) {
	p.mu.Lock()
	if p.running {
		close(p.stopCh)
	}
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.running = true
	p.mu.Unlock()

	go func() {
		if p.stopped(stopCh) {
			return
		}
		fn()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				// Re-check: Stop may have raced the tick.
				if p.stopped(stopCh) {
					return
				}
				fn()
			}
		}
	}()
}

// Stop halts scheduling. No fn invocation begins after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		close(p.stopCh)
		p.running = false
	}
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) stopped(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != stopCh || !p.running
}
