package stream

import (
	"iter"

	"github.com/wsact/wsact-go/pkg/frame"
)

// Map returns an iterator applying fn to each frame.
func Map(seq iter.Seq[frame.Frame], fn func(frame.Frame) frame.Frame) iter.Seq[frame.Frame] {
	return func(yield func(frame.Frame) bool) {
		for f := range seq {
			if !yield(fn(f)) {
				return
			}
		}
	}
}

// Filter returns an iterator yielding only frames keep accepts.
func Filter(seq iter.Seq[frame.Frame], keep func(frame.Frame) bool) iter.Seq[frame.Frame] {
	return func(yield func(frame.Frame) bool) {
		for f := range seq {
			if !keep(f) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// Texts returns an iterator over the payloads of text frames,
// discarding everything else.
func Texts(seq iter.Seq[frame.Frame]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for f := range seq {
			if f.Type != frame.TypeText {
				continue
			}
			if !yield(string(f.Payload)) {
				return
			}
		}
	}
}

// Chunks groups consecutive elements into slices of up to n. A final
// short chunk is yielded if the sequence ends mid-group.
func Chunks[T any](seq iter.Seq[T], n int) iter.Seq[[]T] {
	if n < 1 {
		n = 1
	}
	return func(yield func([]T) bool) {
		chunk := make([]T, 0, n)
		for v := range seq {
			chunk = append(chunk, v)
			if len(chunk) == n {
				if !yield(chunk) {
					return
				}
				chunk = make([]T, 0, n)
			}
		}
		if len(chunk) > 0 {
			yield(chunk)
		}
	}
}
