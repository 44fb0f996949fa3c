package stream

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsact/wsact-go/internal/mockserver"
	"github.com/wsact/wsact-go/pkg/actor"
	"github.com/wsact/wsact-go/pkg/frame"
)

func TestStreamDeliversAllFrames(t *testing.T) {
	srv := mockserver.New(mockserver.SendThenClose("alpha", "beta", "gamma"))
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, want := range []string{"alpha", "beta", "gamma"} {
		f, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, frame.TypeText, f.Type)
		assert.Equal(t, want, string(f.Payload))
	}

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	// Exhaustion is sticky.
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamIterator(t *testing.T) {
	srv := mockserver.New(mockserver.SendThenClose("1", "2", "3", "4", "5"))
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	for text := range Texts(s.All(ctx)) {
		got = append(got, text)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)

	// The iterator closed the stream on exhaustion.
	select {
	case <-s.Actor().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("actor still running after iterator exhaustion")
	}
}

func TestStreamIteratorBreak(t *testing.T) {
	srv := mockserver.New(mockserver.SendThenClose("1", "2", "3", "4", "5"))
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	for f := range s.All(ctx) {
		got = append(got, string(f.Payload))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, got)

	select {
	case <-s.Actor().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("actor still running after iterator break")
	}
}

func TestStreamPushRoundTrip(t *testing.T) {
	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Push(ctx, "round trip"))

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "round trip", string(f.Payload))
}

func TestStreamCloseWithinGrace(t *testing.T) {
	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	grace := 300 * time.Millisecond
	s, err := Open(srv.ClientConfig(), WithTeardownGrace(grace))
	require.NoError(t, err)

	start := time.Now()
	err = s.Close()
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, elapsed, 2*grace, "close exceeded the teardown grace")
}

func TestStreamNextContextCancel(t *testing.T) {
	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamSurvivesReconnect(t *testing.T) {
	srv := mockserver.New(mockserver.Echo())
	defer srv.Close()

	s, err := Open(srv.ClientConfig(), WithActorOptions(
		actor.WithBackoff(actor.BackoffConfig{
			Initial: 10 * time.Millisecond,
			Max:     50 * time.Millisecond,
		}),
	))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	<-srv.Accepted()
	srv.DropAll()

	select {
	case <-srv.Accepted():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not reconnect")
	}

	require.NoError(t, s.Push(ctx, "after outage"))

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "after outage", string(f.Payload))
}

func TestChunks(t *testing.T) {
	srv := mockserver.New(mockserver.SendThenClose("a", "b", "c", "d", "e"))
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var chunks [][]string
	for chunk := range Chunks(Texts(s.All(ctx)), 2) {
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
}

func TestFilterAndMap(t *testing.T) {
	srv := mockserver.New(mockserver.SendThenClose("keep-1", "drop", "keep-2"))
	defer srv.Close()

	s, err := Open(srv.ClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seq := Map(
		Filter(s.All(ctx), func(f frame.Frame) bool {
			return string(f.Payload) != "drop"
		}),
		func(f frame.Frame) frame.Frame {
			return frame.Text(append([]byte("got:"), f.Payload...))
		},
	)

	var got []string
	for f := range seq {
		got = append(got, string(f.Payload))
	}
	assert.Equal(t, []string{"got:keep-1", "got:keep-2"}, got)
}
