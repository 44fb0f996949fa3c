// Package handler defines the pluggable decision contract driving a
// connection actor.
//
// A Handler makes three kinds of decisions, all pure (no I/O):
//
//   - InitStream: build per-connection state after the handshake completes
//   - HandlePush: translate an outbound application message into a frame
//   - HandleReceive: react to an inbound frame
//
// The two dispatch callbacks return a Result carrying a three-way Action
// (Continue, Respond, Terminate), an optional frame and the replacement
// handler state. The actor threads the state through every dispatch.
//
// Default provides stock behavior for zero-customization use. Note that
// overriding HandleReceive fully replaces the default, including its
// echo-and-terminate reaction to close frames: an override that still
// wants clean shutdown on close must terminate itself.
package handler
