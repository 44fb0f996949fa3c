// Package commands implements the wsact-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/wsact/wsact-go/pkg/frame"
	"github.com/wsact/wsact-go/pkg/wirelog"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Direction *wirelog.Direction
	Category  *wirelog.Category
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := wirelog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event wirelog.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = frame.Type(event.Frame.Opcode).String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	dir := "   "
	if event.Category == wirelog.CategoryFrame {
		dir = event.Direction.String()
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s\n", ts, connID, dir, typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails writes frame-specific details.
func formatFrameDetails(w io.Writer, fe *wirelog.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", fe.Size)
	if fe.CloseCode != 0 {
		fmt.Fprintf(w, "  CloseCode: %d\n", fe.CloseCode)
	}
	if len(fe.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", previewString(fe.Data))
		if fe.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// previewString renders a payload preview, as text when printable.
func previewString(data []byte) string {
	if utf8.Valid(data) && isPrintable(data) {
		return fmt.Sprintf("%q", data)
	}
	return fmt.Sprintf("%x", data)
}

func isPrintable(data []byte) bool {
	for _, r := range string(data) {
		if r < ' ' && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *wirelog.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, ee *wirelog.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", ee.Message)
	if ee.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", ee.Context)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (wirelog.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return wirelog.DirectionIn, nil
	case "out":
		return wirelog.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (wirelog.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return wirelog.CategoryFrame, nil
	case "state":
		return wirelog.CategoryState, nil
	case "error":
		return wirelog.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, state, or error)", s)
	}
}
