package frame

import "fmt"

// Type tags the frame variant.
type Type uint8

const (
	// TypeText is a text data frame.
	TypeText Type = iota

	// TypeBinary is a binary data frame.
	TypeBinary

	// TypePing is a ping control frame.
	TypePing

	// TypePong is a pong control frame.
	TypePong

	// TypeClose is a close control frame, with or without a status code.
	TypeClose
)

// String returns the frame type name.
func (t Type) String() string {
	switch t {
	case TypeText:
		return "TEXT"
	case TypeBinary:
		return "BINARY"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	case TypeClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// CloseCode is a WebSocket close status code (RFC 6455 section 7.4).
type CloseCode uint16

// Standard close codes.
const (
	// CodeNone marks a close frame carrying no status code.
	CodeNone CloseCode = 0

	// CodeNormalClosure indicates a normal closure.
	CodeNormalClosure CloseCode = 1000

	// CodeGoingAway indicates the endpoint is going away.
	CodeGoingAway CloseCode = 1001

	// CodeProtocolError indicates a protocol error.
	CodeProtocolError CloseCode = 1002

	// CodeUnsupportedData indicates a data type the endpoint cannot accept.
	CodeUnsupportedData CloseCode = 1003

	// CodePolicyViolation indicates a message violating endpoint policy.
	CodePolicyViolation CloseCode = 1008

	// CodeMessageTooBig indicates a message too large to process.
	CodeMessageTooBig CloseCode = 1009

	// CodeInternalError indicates an unexpected server condition.
	CodeInternalError CloseCode = 1011
)

// Frame is one discrete protocol message unit.
//
// Treat frames as immutable once constructed: they are shared between
// the transport engine, the actor and handler code without copying.
type Frame struct {
	// Type is the variant tag.
	Type Type

	// Code is the close status code. Only meaningful for TypeClose;
	// CodeNone means the close frame carries no code.
	Code CloseCode

	// Payload holds the data bytes for text/binary frames, the
	// application data for ping/pong, or the reason bytes for close.
	Payload []byte
}

// Text builds a text data frame.
func Text(data []byte) Frame {
	return Frame{Type: TypeText, Payload: data}
}

// Binary builds a binary data frame.
func Binary(data []byte) Frame {
	return Frame{Type: TypeBinary, Payload: data}
}

// Ping builds a ping control frame.
func Ping(data []byte) Frame {
	return Frame{Type: TypePing, Payload: data}
}

// Pong builds a pong control frame.
func Pong(data []byte) Frame {
	return Frame{Type: TypePong, Payload: data}
}

// Close builds a close frame without a status code.
func Close() Frame {
	return Frame{Type: TypeClose, Code: CodeNone}
}

// CloseWith builds a close frame carrying a status code and reason bytes.
func CloseWith(code CloseCode, reason []byte) Frame {
	return Frame{Type: TypeClose, Code: code, Payload: reason}
}

// IsClose reports whether the frame is a close frame (with or without code).
func (f Frame) IsClose() bool {
	return f.Type == TypeClose
}

// IsControl reports whether the frame is a control frame (ping/pong/close).
func (f Frame) IsControl() bool {
	return f.Type == TypePing || f.Type == TypePong || f.Type == TypeClose
}

// String returns a short human-readable description of the frame.
func (f Frame) String() string {
	switch f.Type {
	case TypeClose:
		if f.Code == CodeNone {
			return "CLOSE"
		}
		return fmt.Sprintf("CLOSE(%d)", f.Code)
	default:
		return fmt.Sprintf("%s(%dB)", f.Type, len(f.Payload))
	}
}
