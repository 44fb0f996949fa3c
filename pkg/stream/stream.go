package stream

import (
	"context"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/wsact/wsact-go/pkg/actor"
	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/frame"
	"github.com/wsact/wsact-go/pkg/handler"
)

// Stream defaults.
const (
	// DefaultBufferSize is the default inbound frame buffer capacity.
	DefaultBufferSize = 16

	// DefaultTeardownGrace bounds how long Close waits for the graceful
	// shutdown before giving up on the peer.
	DefaultTeardownGrace = 1 * time.Second
)

// Stream is a pull-based view of one connection.
type Stream struct {
	act *actor.Actor
	fwd *forwardHandler

	grace time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Option customizes a Stream.
type Option func(*settings)

type settings struct {
	bufferSize int
	grace      time.Duration
	actorOpts  []actor.Option
}

// WithBufferSize sets the inbound frame buffer capacity.
func WithBufferSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithTeardownGrace bounds the graceful-close wait.
func WithTeardownGrace(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithActorOptions forwards options to the underlying actor.
func WithActorOptions(opts ...actor.Option) Option {
	return func(s *settings) {
		s.actorOpts = append(s.actorOpts, opts...)
	}
}

// Open connects to the configured endpoint and returns the stream.
func Open(cfg config.Config, opts ...Option) (*Stream, error) {
	st := settings{
		bufferSize: DefaultBufferSize,
		grace:      DefaultTeardownGrace,
	}
	for _, opt := range opts {
		opt(&st)
	}

	fwd := &forwardHandler{
		frames: make(chan frame.Frame, st.bufferSize),
		stop:   make(chan struct{}),
	}

	act, err := actor.Start(cfg, fwd, st.actorOpts...)
	if err != nil {
		return nil, err
	}

	return &Stream{act: act, fwd: fwd, grace: st.grace}, nil
}

// Next returns the next inbound data frame. It blocks until a frame
// arrives, the stream ends (io.EOF) or ctx expires. Frames buffered
// before the stream ended are still delivered.
func (s *Stream) Next(ctx context.Context) (frame.Frame, error) {
	// Buffered frames win over a concurrent shutdown.
	select {
	case f, ok := <-s.fwd.frames:
		return s.checked(f, ok)
	default:
	}

	select {
	case f, ok := <-s.fwd.frames:
		return s.checked(f, ok)
	case <-s.act.Done():
		select {
		case f, ok := <-s.fwd.frames:
			return s.checked(f, ok)
		default:
			return frame.Frame{}, io.EOF
		}
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

func (s *Stream) checked(f frame.Frame, ok bool) (frame.Frame, error) {
	if !ok {
		return frame.Frame{}, io.EOF
	}
	return f, nil
}

// All returns an iterator over the remaining frames. The stream is
// closed when iteration stops, whether by exhaustion or break.
func (s *Stream) All(ctx context.Context) iter.Seq[frame.Frame] {
	return func(yield func(frame.Frame) bool) {
		defer s.Close()
		for {
			f, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(f) {
				return
			}
		}
	}
}

// Push submits an outbound message through the underlying actor.
func (s *Stream) Push(ctx context.Context, msg any) error {
	return s.act.Push(ctx, msg)
}

// Actor exposes the underlying actor for state inspection.
func (s *Stream) Actor() *actor.Actor {
	return s.act
}

// Err returns the failure that terminated the underlying actor, if any.
func (s *Stream) Err() error {
	return s.act.Err()
}

// Close shuts the stream down, waiting up to the teardown grace for the
// close handshake. Safe to call multiple times and after exhaustion.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		// Unblock a forwarder stuck on an abandoned buffer first, or the
		// actor loop could never observe the stop.
		close(s.fwd.stop)

		ctx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		s.closeErr = s.act.Stop(ctx)
	})
	return s.closeErr
}

// forwardHandler bridges the actor's dispatch callbacks onto the
// stream's buffer. Pushes keep the stock framing behavior.
type forwardHandler struct {
	handler.Default

	frames chan frame.Frame
	stop   chan struct{}

	endOnce sync.Once
}

// HandleReceive buffers data frames, applying backpressure to the actor
// loop, and ends the stream on a peer close.
func (h *forwardHandler) HandleReceive(f frame.Frame, state any) (handler.Result, error) {
	if f.IsClose() {
		h.end()
		// Stock close handling: terminate with an echoed close.
		return h.Default.HandleReceive(f, state)
	}
	if f.IsControl() {
		return handler.ContinueWith(state), nil
	}

	select {
	case h.frames <- f:
	case <-h.stop:
		// Consumer abandoned the stream; drop the frame.
	}
	return handler.ContinueWith(state), nil
}

// end closes the buffer exactly once, signalling exhaustion to Next.
func (h *forwardHandler) end() {
	h.endOnce.Do(func() { close(h.frames) })
}

// Compile-time interface satisfaction check.
var _ handler.Handler = (*forwardHandler)(nil)
