// Package proposal holds the authoritative set of edit proposals ("cards")
// reconciled from a stream of extractions.
package proposal

// Proposal is one reconciled edit directive.
type Proposal struct {
	// ID is the caller-assigned card identifier, unique within a conversation.
	ID string `json:"id"`

	// Original is the text the edit replaces.
	Original string `json:"original_text"`

	// Suggested is the replacement text.
	Suggested string `json:"suggested_text"`

	// Accepted is set by an explicit user action and never cleared by a merge.
	Accepted bool `json:"accepted"`
}
