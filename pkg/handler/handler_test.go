package handler

import (
	"errors"
	"testing"

	"github.com/wsact/wsact-go/pkg/frame"
)

func TestDefaultHandlePush(t *testing.T) {
	h := Default{}
	state := "unchanged"

	t.Run("string becomes text frame", func(t *testing.T) {
		res, err := h.HandlePush("hello", state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Respond {
			t.Fatalf("action = %s, want RESPOND", res.Action)
		}
		if res.Frame.Type != frame.TypeText || string(res.Frame.Payload) != "hello" {
			t.Errorf("frame = %+v", res.Frame)
		}
		if res.State != state {
			t.Errorf("state changed: %v", res.State)
		}
	})

	t.Run("bytes become text frame", func(t *testing.T) {
		res, err := h.HandlePush([]byte("raw"), state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Respond || string(res.Frame.Payload) != "raw" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("frame passes through", func(t *testing.T) {
		in := frame.Binary([]byte{0xff})
		res, err := h.HandlePush(in, state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Respond || res.Frame.Type != frame.TypeBinary {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("frame pointer passes through", func(t *testing.T) {
		in := frame.Ping(nil)
		res, err := h.HandlePush(&in, state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Respond || res.Frame.Type != frame.TypePing {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("unsupported type rejected", func(t *testing.T) {
		res, err := h.HandlePush(struct{ N int }{1}, state)
		if !errors.Is(err, ErrUnsupportedMessage) {
			t.Fatalf("error = %v, want ErrUnsupportedMessage", err)
		}
		if res.Action != Continue {
			t.Errorf("action = %s, want CONTINUE", res.Action)
		}
	})
}

func TestDefaultHandleReceive(t *testing.T) {
	h := Default{}
	state := 42

	t.Run("data frame continues", func(t *testing.T) {
		res, err := h.HandleReceive(frame.Text([]byte("x")), state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Continue || res.State != state {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("close with code echoes code", func(t *testing.T) {
		res, err := h.HandleReceive(frame.CloseWith(frame.CodeGoingAway, []byte("bye")), state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Terminate {
			t.Fatalf("action = %s, want TERMINATE", res.Action)
		}
		if res.Frame == nil || res.Frame.Code != frame.CodeGoingAway {
			t.Errorf("echo frame = %+v", res.Frame)
		}
	})

	t.Run("close without code echoes normal closure", func(t *testing.T) {
		res, err := h.HandleReceive(frame.Close(), state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != Terminate {
			t.Fatalf("action = %s, want TERMINATE", res.Action)
		}
		if res.Frame == nil || res.Frame.Code != frame.CodeNormalClosure {
			t.Errorf("echo frame = %+v", res.Frame)
		}
	})
}

func TestResultHelpers(t *testing.T) {
	if r := ContinueWith("s"); r.Action != Continue || r.Frame != nil || r.State != "s" {
		t.Errorf("ContinueWith = %+v", r)
	}

	f := frame.Text([]byte("x"))
	if r := RespondWith(f, 1); r.Action != Respond || r.Frame == nil || r.State != 1 {
		t.Errorf("RespondWith = %+v", r)
	}

	if r := TerminateWith(nil, nil); r.Action != Terminate || r.Frame != nil {
		t.Errorf("TerminateWith = %+v", r)
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Continue, "CONTINUE"},
		{Respond, "RESPOND"},
		{Terminate, "TERMINATE"},
		{Action(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}
