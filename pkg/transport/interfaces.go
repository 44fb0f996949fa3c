package transport

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/frame"
)

// Transport errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrPrematureWrite   = errors.New("write before upgrade completed")
	ErrUpgradeFailed    = errors.New("upgrade failed")
)

// EventType classifies asynchronous events delivered to the owning actor.
type EventType uint8

const (
	// EventConnected signals the underlying transport is established.
	EventConnected EventType = iota

	// EventUpgraded signals the protocol upgrade is confirmed.
	EventUpgraded

	// EventFrame carries one inbound frame.
	EventFrame

	// EventDown signals unexpected transport termination.
	EventDown

	// EventPrematureWrite signals a write attempted before the upgrade
	// completed. Benign; the actor logs and ignores it.
	EventPrematureWrite
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventUpgraded:
		return "UPGRADED"
	case EventFrame:
		return "FRAME"
	case EventDown:
		return "DOWN"
	case EventPrematureWrite:
		return "PREMATURE_WRITE"
	default:
		return "UNKNOWN"
	}
}

// Event is one asynchronous notification from a Conn to its owner.
type Event struct {
	// Type classifies the event.
	Type EventType

	// StreamID identifies the upgraded stream (set once upgraded).
	StreamID string

	// Frame is the inbound frame for EventFrame.
	Frame frame.Frame

	// Subprotocol is the negotiated subprotocol for EventUpgraded.
	Subprotocol string

	// Header holds the handshake response headers for EventUpgraded.
	Header http.Header

	// Err carries the cause for EventDown and EventPrematureWrite.
	Err error
}

// Upgrade holds the synchronous result of a protocol upgrade.
type Upgrade struct {
	// StreamID identifies the upgraded stream on this transport.
	StreamID string

	// Subprotocol is the negotiated subprotocol (empty if none).
	Subprotocol string

	// Header holds the handshake response headers.
	Header http.Header
}

// Engine opens transport connections. Implemented by WSEngine.
type Engine interface {
	// Open establishes the underlying transport to the configured
	// endpoint, applying the config's per-attempt retry policy.
	Open(ctx context.Context, cfg *config.Config) (Conn, error)
}

// Conn is one live transport connection, exclusively owned by the actor
// that opened it. Implemented by WSConn.
type Conn interface {
	// AwaitConnected blocks until the transport is established.
	AwaitConnected(ctx context.Context) error

	// Upgrade performs the protocol upgrade on the configured path with
	// the configured extra headers.
	Upgrade(ctx context.Context) (Upgrade, error)

	// Send writes one frame. Fails with ErrPrematureWrite before the
	// upgrade completes.
	Send(f frame.Frame) error

	// Flush forces buffered data onto the wire.
	Flush() error

	// Close tears the connection down immediately.
	Close() error

	// Events delivers asynchronous notifications. After EventDown no
	// further events are delivered.
	Events() <-chan Event

	// Monitor is the liveness monitor: closed when the transport
	// terminates for any reason.
	Monitor() <-chan struct{}

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr
}

// Compile-time interface satisfaction checks.
var (
	_ Engine = (*WSEngine)(nil)
	_ Conn   = (*WSConn)(nil)
)
