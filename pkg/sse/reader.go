package sse

import (
	"errors"
	"io"
	"iter"
)

const readChunkSize = 32 * 1024

// Reader reads frames from a source io.Reader while writing every raw byte
// verbatim to an optional destination io.Writer (the "tee").
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
type Reader struct {
	src      io.Reader
	dest     io.Writer
	splitter Splitter
	pending  []*Event
	buf      []byte
	eof      bool
}

// NewReader returns a Reader over src. dest may be nil.
func NewReader(src io.Reader, dest io.Writer) *Reader {
	if dest == nil {
		dest = io.Discard
	}

	return &Reader{
		src:  src,
		dest: dest,
		buf:  make([]byte, readChunkSize),
	}
}

// Next returns the next frame. It blocks until a complete frame is available.
// Next returns nil, nil when the source is exhausted. A trailing frame without
// a delimiter is yielded once the source ends.
func (r *Reader) Next() (*Event, error) {
	for len(r.pending) == 0 {
		if r.eof {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return nil, werr
			}
			r.pending = append(r.pending, r.splitter.Feed(r.buf[:n])...)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			r.eof = true
			if ev := r.splitter.Flush(); ev != nil {
				r.pending = append(r.pending, ev)
			}
		}
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}

// Frames returns a lazy sequence over the remaining frames. The sequence ends
// when the source is exhausted or after yielding an error. It is not restartable.
func (r *Reader) Frames() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			ev, err := r.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if ev == nil {
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
