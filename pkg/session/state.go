package session

import (
	"time"

	"github.com/papercomputeco/cardstream/pkg/proposal"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed
}

// AdvisoryKind classifies a user-facing notice raised by a session.
type AdvisoryKind int

const (
	// AdvisoryStall means no data arrived within the stall timeout. The read
	// loop keeps going.
	AdvisoryStall AdvisoryKind = iota + 1

	// AdvisoryFailure means the session moved to StateFailed.
	AdvisoryFailure
)

func (k AdvisoryKind) String() string {
	switch k {
	case AdvisoryStall:
		return "stall"
	case AdvisoryFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Advisory is a non-crashing notice for the presentation layer.
type Advisory struct {
	Kind      AdvisoryKind
	SessionID string
	Message   string
	Err       error
	At        time.Time
}

// Snapshot is an immutable copy of session state for presentation.
type Snapshot struct {
	ID        string
	State     State
	Active    bool
	Buffer    string
	Brief     string
	Proposals []proposal.Proposal
	Err       error
}
