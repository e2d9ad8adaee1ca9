package stream

import (
	"encoding/json"
	"strings"
)

// TruncationMarker marks fixture payloads whose text is intentionally
// incomplete. Any candidate text containing it is treated as absent.
const TruncationMarker = "(truncated for brevity)"

// Wire values of the "status" and "type" fields.
const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusDone      = "done"

	TypeFinalMessage = "final_message"
)

// payload is the union of every field the server is known to send. Pointer
// fields distinguish "absent" from "empty".
type payload struct {
	Status             *string `json:"status"`
	Token              *string `json:"token"`
	Text               *string `json:"text"`
	Type               *string `json:"type"`
	Message            *string `json:"message"`
	AssistantMessageID *string `json:"assistantMessageId"`
	ConversationID     *string `json:"conversationId"`
	UserMessageID      *string `json:"userMessageId"`
}

// Normalize classifies one frame payload (with the "data:" marker already
// stripped). It returns false when the payload is not a JSON object or does
// not match any known shape; such frames are dropped by the caller.
//
// Shapes overlap, so the checks run in a fixed priority order:
//  1. identifier + status      -> KindCompleteWithIDs
//  2. type "final_message"     -> KindFinalMessage
//  3. status "complete"/"done" -> KindComplete, or KindStreamEnd without text fields
//  4. status "streaming"       -> KindStreaming (token, else text)
func Normalize(data []byte) (Event, bool) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, false
	}

	switch {
	case p.hasIDs() && p.Status != nil:
		return Event{
			Kind: KindCompleteWithIDs,
			Text: firstUsable(p.Text, p.Message),
			IDs: &IDs{
				ConversationID:     deref(p.ConversationID),
				AssistantMessageID: deref(p.AssistantMessageID),
				UserMessageID:      deref(p.UserMessageID),
			},
		}, true

	case deref(p.Type) == TypeFinalMessage:
		return Event{Kind: KindFinalMessage, Text: firstUsable(p.Message, p.Text)}, true

	case isTerminalStatus(deref(p.Status)):
		if p.Text == nil && p.Message == nil && p.Token == nil {
			return Event{Kind: KindStreamEnd}, true
		}
		return Event{Kind: KindComplete, Text: firstUsable(p.Text, p.Message)}, true

	case deref(p.Status) == StatusStreaming:
		fragment := p.Text
		if p.Token != nil {
			fragment = p.Token
		}
		return Event{Kind: KindStreaming, Text: firstUsable(fragment)}, true

	default:
		return Event{}, false
	}
}

func (p payload) hasIDs() bool {
	return p.AssistantMessageID != nil || p.ConversationID != nil
}

func isTerminalStatus(status string) bool {
	return status == StatusComplete || status == StatusDone
}

// firstUsable returns the first candidate that is present, non-empty and not
// truncated.
func firstUsable(candidates ...*string) string {
	for _, c := range candidates {
		if c == nil || *c == "" || strings.Contains(*c, TruncationMarker) {
			continue
		}
		return *c
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
