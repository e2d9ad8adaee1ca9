// Package sse splits a Server-Sent Events byte stream into frames.
//
// The splitter is tolerant of frames that arrive split across arbitrary network
// reads, including reads that split the blank-line delimiter itself, and keeps
// growing its buffer for arbitrarily large frames. Only frames that begin with a
// "data:" field are surfaced; comments and keep-alives are discarded.
package sse

// Event is one data frame cut from the stream.
type Event struct {
	// Data holds the values of every "data:" line, newline-joined.
	Data string

	// Type and ID carry the optional "event:" and "id:" fields. The card
	// backend sends neither; they are kept so recordings of other streams
	// still parse.
	Type string
	ID   string
}

// Payload returns the frame's data as bytes for JSON decoding.
func (e *Event) Payload() []byte {
	if e == nil {
		return nil
	}
	return []byte(e.Data)
}
