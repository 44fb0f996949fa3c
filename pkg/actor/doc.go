// Package actor implements the connection actor: the stateful owner of
// one logical WebSocket connection.
//
// An Actor runs a single goroutine driving the lifecycle state machine
//
//	Idle -> Connecting -> Upgrading -> Active -> (Closing) -> Terminated
//
// with an automatic Active -> Connecting transition when the liveness
// monitor reports transport loss. All interaction happens over message
// passing: callers push outbound messages (Push/PushAsync), the
// transport delivers inbound events, and the pluggable handler decides
// what each of them means. The actor owns the transport handle and the
// handler state exclusively; neither is ever touched by another
// goroutine.
//
// Pushes and inbound frames are processed strictly in arrival order.
// While the actor is reconnecting, pushes queue and their callers wait;
// transport loss is invisible to callers except as latency.
package actor
