package sse

import (
	"bytes"
	"strings"
)

// Delimiter separates frames on the wire.
const Delimiter = "\n\n"

const dataField = "data:"

// Splitter accumulates raw transport bytes across reads and cuts them into
// frames at every blank-line delimiter. The zero value is ready to use.
//
// Splitter is not safe for concurrent use; a stream is read by one goroutine.
type Splitter struct {
	buf []byte
}

// Feed appends chunk to the accumulation buffer and returns every frame that
// became complete, in arrival order. Frames that do not start with "data:"
// are dropped. Bytes after the last delimiter stay buffered until a later Feed
// completes them.
func (s *Splitter) Feed(chunk []byte) []*Event {
	s.buf = append(s.buf, chunk...)

	var events []*Event
	for {
		idx := bytes.Index(s.buf, []byte(Delimiter))
		if idx < 0 {
			break
		}

		raw := string(s.buf[:idx])
		s.buf = s.buf[idx+len(Delimiter):]

		if ev := ParseFrame(raw); ev != nil {
			events = append(events, ev)
		}
	}

	// Reclaim the consumed prefix once the buffer drains completely.
	if len(s.buf) == 0 {
		s.buf = s.buf[:0:0]
	}

	return events
}

// Flush returns the buffered, undelimited remainder as a frame (if it is a
// data frame) and resets the buffer.
func (s *Splitter) Flush() *Event {
	raw := string(s.buf)
	s.buf = nil
	return ParseFrame(raw)
}

// Buffered reports how many bytes are waiting for a delimiter.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// ParseFrame parses one raw frame (without its trailing delimiter). It returns
// nil if the trimmed frame does not begin with a "data:" field.
func ParseFrame(raw string) *Event {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, dataField) {
		return nil
	}

	ev := &Event{}
	hasData := false
	for line := range strings.SplitSeq(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		parseLine(ev, line, &hasData)
	}

	return ev
}

// parseLine processes a single non-empty, non-comment SSE line and
// accumulates the field into ev.
func parseLine(ev *Event, line string, hasData *bool) {
	var field, value string

	if before, after, ok := strings.Cut(line, ":"); ok {
		field = before
		value = strings.TrimSpace(after)
	} else {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		field = line
	}

	switch field {
	case "data":
		if *hasData {
			// Multiple data fields are joined with "\n".
			ev.Data += "\n"
		}
		ev.Data += value
		*hasData = true
	case "event":
		ev.Type = value
	case "id":
		ev.ID = value
	default:
		// "retry" and unknown fields are ignored per the SSE spec.
	}
}
