// Package stream classifies the heterogeneous JSON payloads of the improve
// event stream into one canonical, tagged event type.
package stream

// Kind tags the variant of an Event.
type Kind int

const (
	// KindStreaming carries a partial or full rendering of assistant output so far.
	KindStreaming Kind = iota + 1

	// KindComplete is a terminal event carrying the final assistant text.
	KindComplete

	// KindFinalMessage is a terminal event carrying the final assistant text
	// under the "message" field.
	KindFinalMessage

	// KindCompleteWithIDs is a terminal event that also carries conversation
	// and message identifiers.
	KindCompleteWithIDs

	// KindStreamEnd signals the transport has nothing more to send.
	KindStreamEnd
)

// String returns the wire-style name of the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindStreaming:
		return "streaming"
	case KindComplete:
		return "complete"
	case KindFinalMessage:
		return "final_message"
	case KindCompleteWithIDs:
		return "complete_with_ids"
	case KindStreamEnd:
		return "stream_end"
	default:
		return "unknown"
	}
}

// IDs are the opaque identifiers attached to a KindCompleteWithIDs event.
type IDs struct {
	ConversationID     string `json:"conversationId,omitempty"`
	AssistantMessageID string `json:"assistantMessageId,omitempty"`
	UserMessageID      string `json:"userMessageId,omitempty"`
}

// Event is the canonical event. Text is empty when the payload carried no
// usable text (absent, empty, or truncated); such events still classify and
// terminal ones still end the stream.
type Event struct {
	Kind Kind
	Text string
	IDs  *IDs
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind != KindStreaming
}

// HasText reports whether the event carries text that should replace the
// assistant buffer.
func (e Event) HasText() bool {
	return e.Text != ""
}
