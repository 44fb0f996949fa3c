// Package stream adapts the push-based connection actor into a
// pull-based message stream.
//
// A Stream owns an actor whose inbound data frames are buffered into a
// bounded queue the consumer drains with Next (or ranges over with
// All). The buffer applies backpressure: when the consumer stops
// pulling, the actor's event loop stops dispatching. Control frames are
// handled below the stream and never surface; a peer close ends the
// stream cleanly with io.EOF after the buffered frames are drained.
//
// Reconnection happens underneath the adapter. A stream survives
// transport loss the same way its actor does: frames simply pause.
package stream
