package session

import (
	"github.com/papercomputeco/cardstream/pkg/editblock"
	"github.com/papercomputeco/cardstream/pkg/proposal"
	"github.com/papercomputeco/cardstream/pkg/stream"
	"github.com/papercomputeco/cardstream/pkg/tags"
)

// BriefMaxRunes bounds the chat-bubble rendering kept in snapshots.
const BriefMaxRunes = 120

// Reconciler is the transport-free part of a session: the assistant buffer,
// the proposal set, and whether a terminal event has been acted upon.
//
// Reconciler is not safe for concurrent use; Session serializes access.
type Reconciler struct {
	buffer   string
	set      *proposal.Set
	finished bool
}

// NewReconciler returns an empty Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{set: proposal.NewSet()}
}

// Apply folds one canonical event into the state and reports whether the
// buffer or the proposal set changed. Text is cumulative, so it replaces the
// buffer wholesale. Events without usable text leave state untouched. After
// the first terminal event every later event is ignored.
func (r *Reconciler) Apply(ev stream.Event) bool {
	if r.finished {
		return false
	}
	if ev.Terminal() {
		r.finished = true
	}
	if !ev.HasText() {
		return false
	}

	text := tags.Decode(ev.Text)
	changed := text != r.buffer
	r.buffer = text

	if r.set.Merge(editblock.Extract(text)) {
		changed = true
	}
	return changed
}

// Finished reports whether a terminal event has been applied.
func (r *Reconciler) Finished() bool {
	return r.finished
}

// Buffer returns the latest decoded assistant rendering.
func (r *Reconciler) Buffer() string {
	return r.buffer
}

// Brief returns the chat-bubble rendering of the buffer, truncated to maxRunes
// (no limit when maxRunes <= 0).
func (r *Reconciler) Brief(maxRunes int) string {
	return editblock.Brief(r.buffer, maxRunes)
}

// Proposals returns copies of the current proposals in first-seen order.
func (r *Reconciler) Proposals() []proposal.Proposal {
	return r.set.List()
}

// Accept marks one proposal accepted.
func (r *Reconciler) Accept(id string) bool {
	return r.set.Accept(id)
}

// Reject removes one proposal and keeps later extractions from restoring it.
func (r *Reconciler) Reject(id string) bool {
	return r.set.Reject(id)
}
