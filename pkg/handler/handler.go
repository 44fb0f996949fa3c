package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wsact/wsact-go/pkg/config"
	"github.com/wsact/wsact-go/pkg/frame"
)

// Handler errors.
var (
	// ErrUnsupportedMessage is returned by Default.HandlePush for
	// message types it cannot frame. Consumers sending structured
	// messages must override HandlePush.
	ErrUnsupportedMessage = errors.New("unsupported push message type")
)

// Action is the three-way outcome of a dispatch callback.
type Action uint8

const (
	// Continue sends nothing; the actor proceeds with the new state.
	Continue Action = iota

	// Respond sends the produced frame over the transport.
	Respond

	// Terminate sends the produced frame (if any) and shuts the
	// actor down, releasing its configuration.
	Terminate
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Continue:
		return "CONTINUE"
	case Respond:
		return "RESPOND"
	case Terminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

// Result is the return contract of HandlePush and HandleReceive.
type Result struct {
	// Action decides what the actor does next.
	Action Action

	// Frame is sent for Respond, and optionally for Terminate
	// (a close frame). Ignored for Continue.
	Frame *frame.Frame

	// State replaces the handler state for subsequent dispatches.
	State any
}

// ContinueWith builds a Continue result carrying the new state.
func ContinueWith(state any) Result {
	return Result{Action: Continue, State: state}
}

// RespondWith builds a Respond result sending f.
func RespondWith(f frame.Frame, state any) Result {
	return Result{Action: Respond, Frame: &f, State: state}
}

// TerminateWith builds a Terminate result. f may be nil when no close
// frame should be sent.
func TerminateWith(f *frame.Frame, state any) Result {
	return Result{Action: Terminate, Frame: f, State: state}
}

// InitContext carries everything negotiated at handshake time into
// InitStream.
type InitContext struct {
	// Config is the finalized connection configuration.
	Config *config.Config

	// Subprotocol is the negotiated subprotocol (empty if none).
	Subprotocol string

	// ResponseHeader holds the handshake response headers.
	ResponseHeader http.Header

	// InitArgs is the opaque Config.HandlerInitArgs value.
	InitArgs any
}

// Handler is the capability set a consumer implements to drive a
// connection. Implementations run synchronously inside the actor's
// event loop and must not block indefinitely.
type Handler interface {
	// InitStream builds the initial handler state after the handshake
	// completes. It is invoked again after every successful
	// re-handshake; prior state is discarded.
	InitStream(ic InitContext) (any, error)

	// HandlePush translates an outbound application message into a
	// dispatch decision. A non-nil error is surfaced as the Push
	// call's result; nothing is sent and the state is unchanged.
	HandlePush(msg any, state any) (Result, error)

	// HandleReceive reacts to an inbound frame. A non-nil error is
	// logged by the actor; nothing is sent and the state is unchanged.
	HandleReceive(f frame.Frame, state any) (Result, error)
}

// Default is the stock handler: pushes of raw text/byte content are
// framed as text and sent; inbound frames are observed but not acted
// upon, except close frames which terminate with an echoed close.
type Default struct{}

// InitStream returns empty state.
func (Default) InitStream(InitContext) (any, error) {
	return nil, nil
}

// HandlePush frames raw content as text and responds. Frames pass
// through unchanged. Anything else is a contract violation the
// consumer resolves by overriding HandlePush.
func (Default) HandlePush(msg any, state any) (Result, error) {
	switch m := msg.(type) {
	case frame.Frame:
		return RespondWith(m, state), nil
	case *frame.Frame:
		return RespondWith(*m, state), nil
	case string:
		return RespondWith(frame.Text([]byte(m)), state), nil
	case []byte:
		return RespondWith(frame.Text(m), state), nil
	default:
		return ContinueWith(state), fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
}

// HandleReceive continues with unchanged state for all frames except
// close frames, which terminate echoing an acknowledging close per
// protocol courtesy-close semantics.
func (Default) HandleReceive(f frame.Frame, state any) (Result, error) {
	if f.IsClose() {
		ack := echoClose(f)
		return TerminateWith(&ack, state), nil
	}
	return ContinueWith(state), nil
}

// echoClose builds the acknowledging close frame for a received close.
// The peer's code is echoed when present.
func echoClose(f frame.Frame) frame.Frame {
	if f.Code == frame.CodeNone {
		return frame.CloseWith(frame.CodeNormalClosure, nil)
	}
	return frame.CloseWith(f.Code, nil)
}

// Compile-time interface satisfaction check.
var _ Handler = Default{}
