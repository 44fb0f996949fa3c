package wirelog

// Logger is the interface applications implement to receive wire events.
// Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records a wire event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking stalls
	// the owning actor's event loop.
	Log(event Event)
}

// NoopLogger discards all events. Use when capture is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
