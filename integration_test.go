package wsact_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsact/wsact-go/internal/mockserver"
	"github.com/wsact/wsact-go/pkg/actor"
	"github.com/wsact/wsact-go/pkg/frame"
	"github.com/wsact/wsact-go/pkg/handler"
	"github.com/wsact/wsact-go/pkg/stream"
	"github.com/wsact/wsact-go/pkg/wirelog"
)

// TestE2E_EchoRoundTrip drives a full connection: TCP dial, upgrade,
// push, inbound dispatch and graceful close.
func TestE2E_EchoRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	received := make(chan frame.Frame, 8)
	h := &collectingHandler{frames: received}

	act, err := actor.Start(srv.ClientConfig(), h)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, act.Push(ctx, "hello"))

	select {
	case f := <-received:
		assert.Equal(t, "hello", string(f.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("echo not received")
	}

	require.NoError(t, act.Stop(ctx))
	assert.Equal(t, actor.StateTerminated, act.State())
	assert.NoError(t, act.Err())
}

// TestE2E_TLSEchoRoundTrip exercises the TLS transport path end to end.
func TestE2E_TLSEchoRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := mockserver.NewTLS(mockserver.Echo())
	defer srv.Close()

	s, err := stream.Open(srv.ClientConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, s.Push(ctx, "over tls"))

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "over tls", string(f.Payload))
}

// TestE2E_ReconnectWithCapture verifies the full outage story: transport
// loss, reconnection, handler re-initialization and a wire capture that
// records all of it.
func TestE2E_ReconnectWithCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	var capture recordingWireLog

	received := make(chan frame.Frame, 8)
	h := &collectingHandler{frames: received}

	act, err := actor.Start(srv.ClientConfig(), h,
		actor.WithWireLog(&capture),
		actor.WithBackoff(actor.BackoffConfig{
			Initial: 10 * time.Millisecond,
			Max:     50 * time.Millisecond,
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-srv.Accepted()
	require.Eventually(t, func() bool { return h.inits() == 1 },
		5*time.Second, 5*time.Millisecond)

	srv.DropAll()

	select {
	case <-srv.Accepted():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not reconnect")
	}

	// Traffic flows again, through freshly initialized handler state.
	require.NoError(t, act.Push(ctx, "back online"))
	select {
	case f := <-received:
		assert.Equal(t, "back online", string(f.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("echo not received after reconnect")
	}
	assert.Equal(t, 2, h.inits())

	require.NoError(t, act.Stop(ctx))

	// The capture shows the reconnect: ACTIVE reached at least twice.
	activations := 0
	for _, ev := range capture.events() {
		if ev.StateChange != nil && ev.StateChange.NewState == "ACTIVE" {
			activations++
		}
	}
	assert.GreaterOrEqual(t, activations, 2, "capture missing reconnect transitions")
}

// TestE2E_StreamConsumesScriptedFeed pulls a server-driven feed through
// the stream adapter until the peer closes.
func TestE2E_StreamConsumesScriptedFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	feed := make([]string, 20)
	for i := range feed {
		feed[i] = fmt.Sprintf("tick-%d", i)
	}

	srv := mockserver.New(mockserver.SendThenClose(feed...))
	defer srv.Close()

	s, err := stream.Open(srv.ClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var got []string
	for {
		f, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, string(f.Payload))
	}
	assert.Equal(t, feed, got)
}

// collectingHandler forwards inbound data frames to a channel and
// counts stream initializations.
type collectingHandler struct {
	handler.Default

	frames chan frame.Frame

	mu        sync.Mutex
	initCount int
}

func (h *collectingHandler) InitStream(handler.InitContext) (any, error) {
	h.mu.Lock()
	h.initCount++
	h.mu.Unlock()
	return nil, nil
}

func (h *collectingHandler) HandleReceive(f frame.Frame, state any) (handler.Result, error) {
	if !f.IsControl() {
		h.frames <- f
	}
	return h.Default.HandleReceive(f, state)
}

func (h *collectingHandler) inits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initCount
}

// recordingWireLog captures wire events in memory.
type recordingWireLog struct {
	mu  sync.Mutex
	evs []wirelog.Event
}

func (r *recordingWireLog) Log(ev wirelog.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recordingWireLog) events() []wirelog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wirelog.Event, len(r.evs))
	copy(out, r.evs)
	return out
}
