// Package transport provides the transport/handshake engine for wsact
// connections.
//
// The engine handles:
//   - TCP or TLS dialing with per-attempt retry policy
//   - the WebSocket upgrade handshake (via gorilla/websocket)
//   - frame encode/decode and wire-level ping/pong keepalive
//   - asynchronous event delivery to the owning actor
//
// The Engine/Conn contract is what the connection actor consumes; the
// actor never touches the socket or the wire protocol directly. A Conn
// is exclusively owned by the single actor that opened it.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│         Frames                 │
//	├────────────────────────────────┤
//	│   WebSocket (RFC 6455)         │
//	├────────────────────────────────┤
//	│   HTTP/1.1 upgrade             │
//	├────────────────────────────────┤
//	│   TLS (optional)               │
//	├────────────────────────────────┤
//	│         TCP                    │
//	└────────────────────────────────┘
//
// # Keep-Alive
//
// Connection liveness is monitored with ping/pong control frames:
//   - Ping interval: from HandshakeOptions.KeepAlive (default 30s)
//   - Pong timeout: 5 seconds
//   - Max missed pongs: 3
package transport
