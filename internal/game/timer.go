package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer drives the one-second countdown for the active question.
//
// It deliberately knows nothing about scoring or slides: onTick is the raw
// tick path (decrement and broadcast, nothing else) and onExpire is the one
// lifecycle hook, fired exactly once when the countdown reaches zero. The
// two paths are disjoint so a tick can never re-enter timer lifecycle logic.
type Timer struct {
	clock clockwork.Clock

	// onTick returns false when the countdown is exhausted. Its live
	// argument reports whether the tick still belongs to the current
	// countdown; a tick that lost a stop (or stop/start) race must be
	// dropped, not applied.
	onTick   func(live func() bool) bool
	onExpire func()

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewTimer(clock clockwork.Clock, onTick func(live func() bool) bool, onExpire func()) *Timer {
	return &Timer{clock: clock, onTick: onTick, onExpire: onExpire}
}

// Start launches the tick loop. Starting a running timer is a no-op; there
// is never more than one loop per timer.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	go t.loop(t.stop)
}

// Stop cancels the tick loop. A tick pending at the moment of the call is
// discarded, never applied late.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Running reports whether the tick loop is live.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			// A Stop racing this tick wins: the tick is dropped so the
			// countdown can never double-decrement.
			select {
			case <-stop:
				return
			default:
			}
			if t.onTick(func() bool { return t.live(stop) }) {
				continue
			}
			if t.finish(stop) {
				t.onExpire()
			}
			return
		}
	}
}

// live reports whether the loop owning stop is still the current countdown.
func (t *Timer) live(stop chan struct{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && t.stop == stop
}

// finish marks the timer stopped after its own countdown ran out. The
// generation check keeps a stale loop from firing expiry against a
// restarted timer.
func (t *Timer) finish(stop chan struct{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && t.stop == stop {
		t.running = false
		return true
	}
	return false
}
