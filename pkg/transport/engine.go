package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/frame"
)

const (
	// eventBuffer sizes the per-connection event channel.
	eventBuffer = 64

	// controlWriteWait bounds a single control frame write.
	controlWriteWait = 10 * time.Second
)

// WSEngine opens WebSocket connections per the wsact transport contract.
// The zero value is ready to use.
type WSEngine struct{}

// NewWSEngine creates the default engine.
func NewWSEngine() *WSEngine {
	return &WSEngine{}
}

// Open establishes the underlying TCP or TLS connection to the
// configured endpoint. The config's Retry/RetryTimeout govern dial
// attempts within this single call; the caller never retries an
// individual open.
func (e *WSEngine) Open(ctx context.Context, cfg *config.Config) (Conn, error) {
	var lastErr error

	attempts := cfg.Transport.Retry + 1
	for i := 0; i < attempts; i++ {
		if i > 0 && cfg.Transport.RetryTimeout > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.Transport.RetryTimeout):
			}
		}

		netConn, err := dialOnce(ctx, cfg)
		if err != nil {
			lastErr = err
			continue
		}

		c := &WSConn{
			cfg:      cfg,
			netConn:  netConn,
			events:   make(chan Event, eventBuffer),
			monitor:  make(chan struct{}),
			closedCh: make(chan struct{}),
		}
		c.tryEmit(Event{Type: EventConnected})
		return c, nil
	}

	return nil, fmt.Errorf("open %s: %w", cfg.Address(), lastErr)
}

// dialOnce performs a single dial attempt, including the TLS handshake
// for TLS transports.
func dialOnce(ctx context.Context, cfg *config.Config) (net.Conn, error) {
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Transport.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(dialCtx, "tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if cfg.Transport.Kind != config.TransportTLS {
		return conn, nil
	}

	tlsConf, err := NewClientTLSConfig(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	tlsConn := tls.Client(conn, tlsConf)
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return tlsConn, nil
}

// WSConn is one live WebSocket connection.
type WSConn struct {
	cfg     *config.Config
	netConn net.Conn

	// ws is set once the upgrade completes.
	ws       *websocket.Conn
	streamID string

	keepAlive *KeepAlive

	events   chan Event
	monitor  chan struct{}
	closedCh chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	mu        sync.RWMutex
	upgraded  bool
}

// AwaitConnected blocks until the transport is established. The engine
// dials synchronously, so this only reports an already-closed conn.
func (c *WSConn) AwaitConnected(ctx context.Context) error {
	select {
	case <-c.closedCh:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Upgrade performs the WebSocket handshake on the configured path with
// the configured extra headers. A conn whose upgrade failed must be
// discarded; the underlying transport is consumed.
func (c *WSConn) Upgrade(ctx context.Context) (Upgrade, error) {
	hs := c.cfg.Handshake

	dialer := &websocket.Dialer{
		HandshakeTimeout:  c.cfg.Transport.ConnectTimeout,
		Subprotocols:      hs.Subprotocols,
		EnableCompression: hs.Compress,
	}

	// Hand the pre-established transport to the dialer. For TLS the
	// handshake already ran in Open, so the TLS hook is used to keep
	// the dialer from wrapping the conn a second time.
	useConn := func(context.Context, string, string) (net.Conn, error) {
		return c.netConn, nil
	}
	if c.cfg.Transport.Kind == config.TransportTLS {
		dialer.NetDialTLSContext = useConn
	} else {
		dialer.NetDialContext = useConn
	}

	header := http.Header{}
	for _, h := range c.cfg.ExtraHeaders {
		header.Add(h.Name, h.Value)
	}

	ws, resp, err := dialer.DialContext(ctx, c.cfg.URL(), header)
	if err != nil {
		c.teardown()
		return Upgrade{}, fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	up := Upgrade{
		StreamID:    uuid.NewString(),
		Subprotocol: ws.Subprotocol(),
	}
	if resp != nil {
		up.Header = resp.Header
	}

	c.mu.Lock()
	c.ws = ws
	c.streamID = up.StreamID
	c.upgraded = true
	c.mu.Unlock()

	c.installHandlers()
	c.startKeepAlive()
	go c.readLoop()

	c.tryEmit(Event{
		Type:        EventUpgraded,
		StreamID:    up.StreamID,
		Subprotocol: up.Subprotocol,
		Header:      up.Header,
	})

	return up, nil
}

// installHandlers wires gorilla's control frame callbacks into the
// event stream. Control frames are surfaced to the owner as frames;
// pings are additionally answered at the wire level.
func (c *WSConn) installHandlers() {
	c.ws.SetPingHandler(func(data string) error {
		c.emit(Event{Type: EventFrame, StreamID: c.streamID, Frame: frame.Ping([]byte(data))})
		return c.writeControl(websocket.PongMessage, []byte(data))
	})

	c.ws.SetPongHandler(func(data string) error {
		if c.keepAlive != nil {
			c.keepAlive.PongReceived([]byte(data))
		}
		c.emit(Event{Type: EventFrame, StreamID: c.streamID, Frame: frame.Pong([]byte(data))})
		return nil
	})

	c.ws.SetCloseHandler(func(code int, text string) error {
		var f frame.Frame
		if code == websocket.CloseNoStatusReceived {
			f = frame.Close()
		} else {
			f = frame.CloseWith(frame.CloseCode(code), []byte(text))
		}
		c.emit(Event{Type: EventFrame, StreamID: c.streamID, Frame: f})
		// The owner decides whether to echo a close; no automatic reply.
		return nil
	})
}

// startKeepAlive begins wire-level liveness monitoring when configured.
func (c *WSConn) startKeepAlive() {
	interval := c.cfg.Handshake.KeepAlive
	if interval <= 0 {
		return
	}
	c.keepAlive = NewKeepAlive(
		interval,
		func(seq uint32) error {
			return c.writeControl(websocket.PingMessage, EncodeSeq(seq))
		},
		func() {
			// Liveness lost: hard-close so the read loop reports down.
			c.netConn.Close()
		},
	)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c.closedCh
		cancel()
	}()
	c.keepAlive.Start(ctx)
}

// readLoop converts inbound messages into frame events. It exits when
// the connection terminates, reporting down.
func (c *WSConn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.down(err)
			return
		}

		switch msgType {
		case websocket.TextMessage:
			c.emit(Event{Type: EventFrame, StreamID: c.streamID, Frame: frame.Text(data)})
		case websocket.BinaryMessage:
			c.emit(Event{Type: EventFrame, StreamID: c.streamID, Frame: frame.Binary(data)})
		}
	}
}

// Send writes one frame to the wire.
func (c *WSConn) Send(f frame.Frame) error {
	c.mu.RLock()
	upgraded := c.upgraded
	c.mu.RUnlock()

	if !upgraded {
		err := fmt.Errorf("%w: %s", ErrPrematureWrite, f.Type)
		c.tryEmit(Event{Type: EventPrematureWrite, Err: err})
		return err
	}

	select {
	case <-c.closedCh:
		return ErrConnectionClosed
	default:
	}

	switch f.Type {
	case frame.TypeText:
		return c.writeMessage(websocket.TextMessage, f.Payload)
	case frame.TypeBinary:
		return c.writeMessage(websocket.BinaryMessage, f.Payload)
	case frame.TypePing:
		return c.writeControl(websocket.PingMessage, f.Payload)
	case frame.TypePong:
		return c.writeControl(websocket.PongMessage, f.Payload)
	case frame.TypeClose:
		return c.writeControl(websocket.CloseMessage, closePayload(f))
	default:
		return fmt.Errorf("unknown frame type %d", f.Type)
	}
}

// closePayload encodes a close frame's status code and reason.
func closePayload(f frame.Frame) []byte {
	if f.Code == frame.CodeNone {
		return nil
	}
	return websocket.FormatCloseMessage(int(f.Code), string(f.Payload))
}

func (c *WSConn) writeMessage(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(msgType, data)
}

func (c *WSConn) writeControl(msgType int, data []byte) error {
	return c.ws.WriteControl(msgType, data, time.Now().Add(controlWriteWait))
}

// Flush is a no-op: writes are handed to the kernel synchronously.
func (c *WSConn) Flush() error {
	select {
	case <-c.closedCh:
		return ErrConnectionClosed
	default:
		return nil
	}
}

// Close tears the connection down immediately.
func (c *WSConn) Close() error {
	c.teardown()
	return nil
}

// Events delivers asynchronous notifications to the owning actor.
func (c *WSConn) Events() <-chan Event {
	return c.events
}

// Monitor is the liveness monitor channel, closed on termination.
func (c *WSConn) Monitor() <-chan struct{} {
	return c.monitor
}

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// down reports unexpected termination, then tears down.
func (c *WSConn) down(err error) {
	select {
	case <-c.closedCh:
		// Locally initiated close; the owner is not listening.
	default:
		c.emit(Event{Type: EventDown, StreamID: c.streamID, Err: err})
	}
	c.teardown()
}

// teardown releases the transport exactly once.
func (c *WSConn) teardown() {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		if c.keepAlive != nil {
			c.keepAlive.Stop()
		}
		c.mu.RLock()
		ws := c.ws
		c.mu.RUnlock()
		if ws != nil {
			ws.Close()
		}
		c.netConn.Close()
		close(c.monitor)
	})
}

// emit delivers an event, applying backpressure to the read loop when
// the owner is slow. Delivery is abandoned once the conn is closed, so
// teardown never blocks on an absent owner.
func (c *WSConn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closedCh:
	}
}

// tryEmit delivers an informational event without blocking. Used from
// paths running on the owner's own goroutine, where a blocking send
// would deadlock the only reader.
func (c *WSConn) tryEmit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closedCh:
	default:
	}
}
