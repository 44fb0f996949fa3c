package transport

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"
)

// Keep-alive constants.
const (
	// DefaultPongTimeout is the timeout waiting for a pong response.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the number of missed pongs before the
	// connection is considered dead.
	DefaultMaxMissedPongs = 3
)

// KeepAlive manages connection liveness monitoring over WebSocket
// ping/pong control frames. The ping payload carries a big-endian
// sequence number so delayed pongs can be told apart.
type KeepAlive struct {
	interval    time.Duration
	pongTimeout time.Duration
	maxMissed   int

	// Callbacks
	sendPing  func(seq uint32) error
	onTimeout func()

	// State
	sequence     atomic.Uint32
	missedPongs  int
	lastPingTime time.Time
	pendingPing  uint32
	hasPending   bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	pongCh  chan uint32
}

// NewKeepAlive creates a keep-alive monitor. sendPing writes one ping
// frame; onTimeout is invoked when the connection is considered dead.
func NewKeepAlive(interval time.Duration, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	return &KeepAlive{
		interval:    interval,
		pongTimeout: DefaultPongTimeout,
		maxMissed:   DefaultMaxMissedPongs,
		sendPing:    sendPing,
		onTimeout:   onTimeout,
		stopCh:      make(chan struct{}),
		pongCh:      make(chan uint32, 1),
	}
}

// Start begins the keep-alive monitoring loop.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	ka.mu.Unlock()

	go ka.loop(ctx)
}

// Stop stops the keep-alive monitoring.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.running {
		return
	}

	ka.running = false
	close(ka.stopCh)
}

// PongReceived should be called when a pong frame arrives. The payload
// is the echoed ping payload.
func (ka *KeepAlive) PongReceived(payload []byte) {
	seq, ok := decodeSeq(payload)
	if !ok {
		return
	}
	select {
	case ka.pongCh <- seq:
	default:
		// Channel full, drop
	}
}

// loop is the main keep-alive monitoring loop.
func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(ka.interval)
	defer ticker.Stop()

	// Send initial ping
	ka.sendPingFrame()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ka.stopCh:
			return
		case <-ticker.C:
			ka.handleTick()
		case seq := <-ka.pongCh:
			ka.handlePong(seq)
		}
	}
}

// sendPingFrame sends a ping and records the time.
func (ka *KeepAlive) sendPingFrame() {
	seq := ka.sequence.Add(1)

	ka.mu.Lock()
	ka.lastPingTime = time.Now()
	ka.pendingPing = seq
	ka.hasPending = true
	ka.mu.Unlock()

	if err := ka.sendPing(seq); err != nil {
		// Send failed - let the pong timeout handle it
		ka.mu.Lock()
		ka.hasPending = false
		ka.mu.Unlock()
	}
}

// handleTick handles the ping interval tick.
func (ka *KeepAlive) handleTick() {
	ka.mu.Lock()

	if ka.hasPending {
		elapsed := time.Since(ka.lastPingTime)
		if elapsed >= ka.pongTimeout {
			ka.missedPongs++
			ka.hasPending = false

			if ka.missedPongs >= ka.maxMissed {
				ka.mu.Unlock()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
		}
	}

	ka.mu.Unlock()

	ka.sendPingFrame()
}

// handlePong handles a received pong.
func (ka *KeepAlive) handlePong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.hasPending && seq == ka.pendingPing {
		ka.hasPending = false
		ka.missedPongs = 0
	}
	// Pongs with a stale sequence are delayed responses; ignore.
}

// EncodeSeq encodes a ping sequence number as the ping payload.
func EncodeSeq(seq uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, seq)
	return buf
}

// decodeSeq extracts the sequence number from an echoed ping payload.
func decodeSeq(payload []byte) (uint32, bool) {
	if len(payload) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(payload), true
}
