package actor

import (
	"testing"
	"time"
)

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff()

	if got := b.Current(); got != InitialBackoff {
		t.Errorf("initial delay = %v, want %v", got, InitialBackoff)
	}
	if got := b.Attempts(); got != 0 {
		t.Errorf("attempts = %d, want 0", got)
	}
}

func TestBackoffGrowth(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		Jitter:     -1,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second, // capped
		1 * time.Second,
	}

	for i, w := range want {
		got := b.Next()
		if got != w {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}

	if got := b.Attempts(); got != len(want) {
		t.Errorf("attempts = %d, want %d", got, len(want))
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 100 * time.Millisecond,
		Max:     1 * time.Second,
	})

	b.Next()
	b.Next()
	b.Reset()

	if got := b.Current(); got != 100*time.Millisecond {
		t.Errorf("delay after reset = %v, want 100ms", got)
	}
	if got := b.Attempts(); got != 0 {
		t.Errorf("attempts after reset = %d, want 0", got)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 100 * time.Millisecond,
		Max:     1 * time.Second,
		Jitter:  0.25,
	})

	for i := 0; i < 100; i++ {
		got := b.Peek()
		if got < 100*time.Millisecond || got > 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms]", got)
		}
	}
}

func TestBackoffPeekDoesNotAdvance(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 100 * time.Millisecond,
		Max:     1 * time.Second,
	})

	b.Peek()
	b.Peek()

	if got := b.Current(); got != 100*time.Millisecond {
		t.Errorf("delay after Peek = %v, want 100ms", got)
	}
	if got := b.Attempts(); got != 0 {
		t.Errorf("attempts after Peek = %d, want 0", got)
	}
}

func TestOutageGuard(t *testing.T) {
	t.Run("fires after window", func(t *testing.T) {
		fired := make(chan struct{})
		g := NewOutageGuard(10*time.Millisecond, func() { close(fired) })
		g.Start()

		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("guard did not fire")
		}
		if g.Armed() {
			// Armed reports the timer handle; it stays set until Stop.
			g.Stop()
		}
	})

	t.Run("stop disarms", func(t *testing.T) {
		fired := make(chan struct{})
		g := NewOutageGuard(10*time.Millisecond, func() { close(fired) })
		g.Start()
		g.Stop()

		select {
		case <-fired:
			t.Fatal("guard fired after Stop")
		case <-time.After(30 * time.Millisecond):
		}
	})

	t.Run("restart resets window", func(t *testing.T) {
		fired := make(chan struct{})
		g := NewOutageGuard(20*time.Millisecond, func() { close(fired) })
		g.Start()
		time.Sleep(10 * time.Millisecond)
		g.Start()
		time.Sleep(15 * time.Millisecond)

		select {
		case <-fired:
			t.Fatal("guard fired before the reset window elapsed")
		default:
		}
		g.Stop()
	})
}
