package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/frame"
	"github.com/wsact/wsact-go/pkg/handler"
	"github.com/wsact/wsact-go/pkg/transport"
	"github.com/wsact/wsact-go/pkg/wirelog"
)

// Actor errors.
var (
	// ErrClosing is returned for a push whose handler decided to
	// terminate the connection.
	ErrClosing = errors.New("actor is closing")

	// ErrTerminated is returned for operations on a terminated actor.
	ErrTerminated = errors.New("actor terminated")
)

// DefaultQueueSize is the default push command queue capacity.
const DefaultQueueSize = 64

// State represents the actor lifecycle state.
type State int32

const (
	// StateIdle means the actor has not started connecting yet.
	StateIdle State = iota

	// StateConnecting means the underlying transport is being dialed.
	StateConnecting

	// StateUpgrading means the protocol upgrade is in flight.
	StateUpgrading

	// StateActive means frames flow in both directions.
	StateActive

	// StateClosing means a close was sent and the actor awaits the
	// acknowledgment.
	StateClosing

	// StateTerminated is the final state.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateUpgrading:
		return "UPGRADING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// command is one queued push. replyCh is nil for asynchronous pushes.
type command struct {
	msg     any
	replyCh chan error
}

// Actor owns one logical connection. A single goroutine drives the
// lifecycle state machine and dispatches every push and inbound frame
// through the handler, strictly in arrival order.
type Actor struct {
	id      string
	cfg     *config.Config
	handler handler.Handler
	engine  transport.Engine
	logger  *slog.Logger
	wlog    wirelog.Logger
	backoff *Backoff
	outage  *OutageGuard

	cmdCh  chan command
	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}

	state atomic.Int32

	mu  sync.Mutex
	err error

	// Owned exclusively by the run goroutine.
	conn     transport.Conn
	streamID string
	hstate   any
}

// Option customizes an Actor.
type Option func(*Actor)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Actor) { a.logger = l }
}

// WithWireLog sets the wire event logger.
func WithWireLog(wl wirelog.Logger) Option {
	return func(a *Actor) { a.wlog = wl }
}

// WithEngine replaces the transport engine. Testing hooks go here.
func WithEngine(e transport.Engine) Option {
	return func(a *Actor) { a.engine = e }
}

// WithBackoff customizes the reconnection backoff.
func WithBackoff(cfg BackoffConfig) Option {
	return func(a *Actor) { a.backoff = NewBackoffWithConfig(cfg) }
}

// WithOutageGuard escalates via onExpire when a single outage exceeds d.
// The actor keeps reconnecting regardless; the guard only notifies.
func WithOutageGuard(d time.Duration, onExpire func()) Option {
	return func(a *Actor) { a.outage = NewOutageGuard(d, onExpire) }
}

// WithQueueSize sets the push queue capacity.
func WithQueueSize(n int) Option {
	return func(a *Actor) {
		if n > 0 {
			a.cmdCh = make(chan command, n)
		}
	}
}

// Start validates cfg, creates the actor and begins connecting in the
// background. Configuration errors fail fast; connection errors surface
// through Done and Err. A nil handler uses handler.Default.
func Start(cfg config.Config, h handler.Handler, opts ...Option) (*Actor, error) {
	final, err := config.New(cfg)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = handler.Default{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor{
		id:      uuid.NewString(),
		cfg:     final,
		handler: h,
		engine:  transport.NewWSEngine(),
		logger:  slog.Default(),
		wlog:    wirelog.NoopLogger{},
		backoff: NewBackoff(),
		cmdCh:   make(chan command, DefaultQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	go a.run()
	return a, nil
}

// ID returns the actor's connection ID.
func (a *Actor) ID() string {
	return a.id
}

// State returns the current lifecycle state.
func (a *Actor) State() State {
	return State(a.state.Load())
}

// Done is closed when the actor reaches Terminated.
func (a *Actor) Done() <-chan struct{} {
	return a.doneCh
}

// Err returns the failure that terminated the actor, or nil after a
// clean shutdown. Valid once Done is closed.
func (a *Actor) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Push submits msg and blocks until the handler's decision has been
// carried out. The returned error is the send error for a Respond,
// the handler's own error if it rejected the message, or ErrClosing
// when the decision was to terminate. A terminate whose close frame
// failed to send reports both: the result matches ErrClosing and the
// send error under errors.Is.
//
// Pushes submitted while the actor is reconnecting wait; transport loss
// shows up only as latency.
func (a *Actor) Push(ctx context.Context, msg any) error {
	cmd := command{msg: msg, replyCh: make(chan error, 1)}

	select {
	case a.cmdCh <- cmd:
	case <-a.doneCh:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.replyCh:
		return err
	case <-a.doneCh:
		// The reply may have raced the shutdown.
		select {
		case err := <-cmd.replyCh:
			return err
		default:
			return ErrTerminated
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushAsync submits msg without waiting for the outcome. It blocks only
// while the queue is full.
func (a *Actor) PushAsync(msg any) error {
	select {
	case a.cmdCh <- command{msg: msg}:
		return nil
	case <-a.doneCh:
		return ErrTerminated
	}
}

// Stop requests a graceful shutdown: a close frame is sent and the
// actor waits for the acknowledgment up to the configured closing
// timeout. Stop blocks until the actor terminates or ctx expires.
func (a *Actor) Stop(ctx context.Context) error {
	a.cancel()
	select {
	case <-a.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the actor goroutine.
func (a *Actor) run() {
	defer close(a.doneCh)

	if err := a.establish(); err != nil {
		// The engine already applied the configured dial retry policy;
		// a failed first connection is a startup failure, not an outage.
		a.fail(err)
		return
	}

	a.loop()
}

// loop processes commands and transport events until termination.
func (a *Actor) loop() {
	for {
		select {
		case <-a.ctx.Done():
			if a.conn != nil {
				a.send(frame.CloseWith(frame.CodeNormalClosure, nil))
			}
			a.shutdown("stop requested")
			return

		case cmd := <-a.cmdCh:
			if a.handleCommand(cmd) {
				return
			}

		case ev := <-a.conn.Events():
			if a.handleEvent(ev) {
				return
			}

		case <-a.conn.Monitor():
			// Deliver frames that arrived before the transport died,
			// then reconnect.
			if a.drainEvents() {
				return
			}
			if a.reconnect("transport down") {
				return
			}
		}
	}
}

// drainEvents processes events already queued by a dead connection.
// Returns true when the actor terminated while draining.
func (a *Actor) drainEvents() bool {
	for {
		select {
		case ev := <-a.conn.Events():
			if ev.Type == transport.EventDown {
				return false
			}
			if a.handleEvent(ev) {
				return true
			}
		default:
			return false
		}
	}
}

// handleCommand dispatches one push through the handler.
// Returns true when the actor terminated.
func (a *Actor) handleCommand(cmd command) bool {
	res, err := a.handler.HandlePush(cmd.msg, a.hstate)
	if err != nil {
		a.reply(cmd.replyCh, err)
		return false
	}
	return a.applyResult(res, cmd.replyCh)
}

// handleEvent dispatches one transport event.
// Returns true when the actor terminated.
func (a *Actor) handleEvent(ev transport.Event) bool {
	switch ev.Type {
	case transport.EventFrame:
		return a.handleInbound(ev.Frame)

	case transport.EventDown:
		a.logger.Debug("transport down",
			slog.String("id", a.id), slog.Any("error", ev.Err))
		return a.reconnect("transport down")

	case transport.EventPrematureWrite:
		// Benign ordering hiccup; already surfaced to the sender.
		a.logger.Debug("premature write",
			slog.String("id", a.id), slog.Any("error", ev.Err))

	case transport.EventConnected, transport.EventUpgraded:
		a.logger.Debug("transport event",
			slog.String("id", a.id), slog.String("type", ev.Type.String()))
	}
	return false
}

// handleInbound dispatches one inbound frame through the handler.
// Returns true when the actor terminated.
func (a *Actor) handleInbound(f frame.Frame) bool {
	a.wlog.Log(wirelog.NewFrameEvent(a.id, wirelog.DirectionIn, f))

	res, err := a.handler.HandleReceive(f, a.hstate)
	if err != nil {
		a.logger.Error("receive handler failed",
			slog.String("id", a.id), slog.Any("error", err))
		a.wlog.Log(wirelog.NewErrorEvent(a.id, "handle receive", err))
		return false
	}
	return a.applyResult(res, nil)
}

// applyResult carries out a handler decision.
// Returns true when the decision terminated the actor.
func (a *Actor) applyResult(res handler.Result, replyCh chan error) bool {
	switch res.Action {
	case handler.Continue:
		a.hstate = res.State
		a.reply(replyCh, nil)
		return false

	case handler.Respond:
		var err error
		if res.Frame != nil {
			err = a.send(*res.Frame)
		}
		a.hstate = res.State
		a.reply(replyCh, err)
		return false

	case handler.Terminate:
		a.hstate = res.State
		result := ErrClosing
		if res.Frame != nil {
			if err := a.send(*res.Frame); err != nil {
				result = errors.Join(ErrClosing, err)
			}
		}
		a.reply(replyCh, result)
		a.shutdown("handler terminated")
		return true

	default:
		a.logger.Error("unknown handler action",
			slog.String("id", a.id), slog.String("action", res.Action.String()))
		a.reply(replyCh, fmt.Errorf("unknown handler action %d", res.Action))
		return false
	}
}

// send writes one frame, recording it in the wire log.
func (a *Actor) send(f frame.Frame) error {
	if a.conn == nil {
		return transport.ErrNotConnected
	}
	a.wlog.Log(wirelog.NewFrameEvent(a.id, wirelog.DirectionOut, f))
	if err := a.conn.Send(f); err != nil {
		a.logger.Warn("send failed",
			slog.String("id", a.id),
			slog.String("frame", f.Type.String()),
			slog.Any("error", err))
		a.wlog.Log(wirelog.NewErrorEvent(a.id, "send", err))
		return err
	}
	return nil
}

// establish dials, upgrades and initializes handler state, walking the
// state machine from Connecting to Active.
func (a *Actor) establish() error {
	a.setState(StateConnecting, "")

	conn, err := a.engine.Open(a.ctx, a.cfg)
	if err != nil {
		return err
	}

	a.setState(StateUpgrading, "")

	up, err := conn.Upgrade(a.ctx)
	if err != nil {
		conn.Close()
		return err
	}

	// Handler state is rebuilt from scratch on every handshake.
	hstate, err := a.handler.InitStream(handler.InitContext{
		Config:         a.cfg,
		Subprotocol:    up.Subprotocol,
		ResponseHeader: up.Header,
		InitArgs:       a.cfg.HandlerInitArgs,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("init stream: %w", err)
	}

	a.conn = conn
	a.streamID = up.StreamID
	a.hstate = hstate
	a.setState(StateActive, "")

	a.logger.Info("connection active",
		slog.String("id", a.id),
		slog.String("stream", up.StreamID),
		slog.String("remote", conn.RemoteAddr().String()))
	return nil
}

// reconnect re-establishes the connection after transport loss,
// retrying with backoff until success or shutdown. Pushes keep queueing
// while it runs. Returns true when the actor terminated instead.
func (a *Actor) reconnect(reason string) bool {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.streamID = ""

	if a.outage != nil {
		a.outage.Start()
	}

	for {
		err := a.establish()
		if err == nil {
			a.backoff.Reset()
			if a.outage != nil {
				a.outage.Stop()
			}
			return false
		}

		delay := a.backoff.Next()
		a.logger.Warn("reconnect failed",
			slog.String("id", a.id),
			slog.Duration("retry_in", delay),
			slog.Int("attempts", a.backoff.Attempts()),
			slog.Any("error", err))
		a.wlog.Log(wirelog.NewErrorEvent(a.id, "reconnect", err))

		select {
		case <-a.ctx.Done():
			a.shutdown(reason)
			return true
		case <-time.After(delay):
		}
	}
}

// shutdown walks the actor to Terminated. When a live connection
// exists, it waits for the peer's close acknowledgment up to the
// configured closing timeout before releasing the transport.
func (a *Actor) shutdown(reason string) {
	if a.outage != nil {
		a.outage.Stop()
	}

	if a.conn != nil {
		a.setState(StateClosing, reason)

		// Push out anything still buffered before awaiting the ack.
		a.conn.Flush()

		timer := time.NewTimer(a.cfg.Handshake.ClosingTimeout)
		select {
		case <-a.conn.Monitor():
		case <-timer.C:
		}
		timer.Stop()

		a.conn.Close()
		a.conn = nil
	}

	a.setState(StateTerminated, reason)
}

// fail records err and terminates the actor.
func (a *Actor) fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()

	a.logger.Error("actor failed",
		slog.String("id", a.id), slog.Any("error", err))
	a.wlog.Log(wirelog.NewErrorEvent(a.id, "startup", err))
	a.setState(StateTerminated, err.Error())
}

// reply delivers a push outcome. replyCh is nil for asynchronous pushes
// and inbound dispatches.
func (a *Actor) reply(replyCh chan error, err error) {
	if replyCh == nil {
		return
	}
	replyCh <- err
}

// setState transitions the lifecycle state, logging the change.
func (a *Actor) setState(s State, reason string) {
	old := State(a.state.Swap(int32(s)))
	if old == s {
		return
	}
	a.logger.Debug("state change",
		slog.String("id", a.id),
		slog.String("from", old.String()),
		slog.String("to", s.String()))
	a.wlog.Log(wirelog.NewStateEvent(a.id, old.String(), s.String(), reason))
}
