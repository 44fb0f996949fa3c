package wirelog

import (
	"time"

	"github.com/wsact/wsact-go/pkg/frame"
)

// MaxFramePreview is the maximum number of payload bytes captured per
// frame event. Larger payloads are truncated.
const MaxFramePreview = 256

// Event represents one captured connection event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the actor's connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates frame flow. Meaningful for frame events only.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (exactly one is set).
	Frame       *FrameEvent       `cbor:"6,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an inbound frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outbound frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a data or control frame.
	CategoryFrame Category = 0
	// CategoryState indicates an actor lifecycle transition.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one frame crossing the transport.
type FrameEvent struct {
	// Opcode is the frame type tag (frame.Type).
	Opcode uint8 `cbor:"1,keyasint"`

	// Size is the full payload size in bytes.
	Size int `cbor:"2,keyasint"`

	// CloseCode is set for close frames carrying a status code.
	CloseCode uint16 `cbor:"3,keyasint,omitempty"`

	// Data holds up to MaxFramePreview payload bytes.
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates Data was cut at MaxFramePreview.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures an actor lifecycle transition.
type StateChangeEvent struct {
	// OldState is the previous state name (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state name.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures an error observed on the connection.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}

// NewFrameEvent builds a frame event, truncating the payload preview.
func NewFrameEvent(connID string, dir Direction, f frame.Frame) Event {
	fe := &FrameEvent{
		Opcode:    uint8(f.Type),
		Size:      len(f.Payload),
		CloseCode: uint16(f.Code),
	}
	if len(f.Payload) > MaxFramePreview {
		fe.Data = f.Payload[:MaxFramePreview]
		fe.Truncated = true
	} else {
		fe.Data = f.Payload
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Category:     CategoryFrame,
		Frame:        fe,
	}
}

// NewStateEvent builds a lifecycle transition event.
func NewStateEvent(connID, oldState, newState, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(connID, context string, err error) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	}
}
