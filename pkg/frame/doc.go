// Package frame defines the frame value type exchanged between the
// transport engine, the connection actor and handler code.
//
// A Frame is one discrete WebSocket message unit: text, binary, ping,
// pong or close. Frames are immutable values; core code inspects only
// the type tag and never interprets the payload.
package frame
