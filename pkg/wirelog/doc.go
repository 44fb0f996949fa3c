// Package wirelog provides structured protocol event capture for wsact
// connections.
//
// This package defines the Logger interface and Event types for capturing
// connection-level events (frames, lifecycle transitions, errors). It is
// separate from operational logging (slog) - wire capture provides a
// complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	actor.WithWireLog(wirelog.NewSlogAdapter(slog.Default()))
//
//	// For production: write to binary file
//	fl, _ := wirelog.NewFileLogger("/var/log/wsact/conn.wlog")
//	actor.WithWireLog(fl)
//
//	// Both: use MultiLogger
//	actor.WithWireLog(wirelog.NewMultiLogger(
//	    wirelog.NewSlogAdapter(slog.Default()),
//	    fl,
//	))
//
// # File Format
//
// Log files use CBOR encoding with .wlog extension; Reader streams and
// filters them back out.
package wirelog
