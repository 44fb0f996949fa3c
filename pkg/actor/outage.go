package actor

import (
	"sync"
	"time"
)

// OutageGuard bounds how long an actor may stay disconnected before an
// escalation callback fires. Start it when the transport drops, stop it
// when reconnection succeeds; if the window elapses first, onExpire runs
// once for that outage.
type OutageGuard struct {
	duration time.Duration
	onExpire func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewOutageGuard creates a guard with the given window. onExpire is
// invoked on the timer's goroutine.
func NewOutageGuard(duration time.Duration, onExpire func()) *OutageGuard {
	return &OutageGuard{
		duration: duration,
		onExpire: onExpire,
	}
}

// Start arms the guard. Restarting an armed guard resets the window.
func (g *OutageGuard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.duration, g.onExpire)
}

// Stop disarms the guard. Safe to call when not armed.
func (g *OutageGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// Armed reports whether the guard is currently running.
func (g *OutageGuard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}
