package proposal

import "sync"

// Set maps proposal IDs to proposals and remembers first-seen order for
// presentation.
//
// Merge is the only path that changes text fields. Accept and Reject are the
// user-driven mutators. Rejected IDs are remembered so a directive that keeps
// reappearing in later renderings of the same stream does not bring the card
// back.
type Set struct {
	// mu guards every field below; readers take snapshots via List.
	mu       sync.RWMutex
	order    []string
	byID     map[string]*Proposal
	rejected map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{
		byID:     make(map[string]*Proposal),
		rejected: make(map[string]struct{}),
	}
}

// Merge folds freshly extracted proposals into the set. Unknown IDs are
// inserted unaccepted; known IDs get their text replaced while keeping their
// acceptance. The incoming Accepted flag is ignored. Merge reports whether the
// set changed.
func (s *Set) Merge(incoming []Proposal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, in := range incoming {
		if in.ID == "" {
			continue
		}
		if _, gone := s.rejected[in.ID]; gone {
			continue
		}

		existing, ok := s.byID[in.ID]
		if !ok {
			s.byID[in.ID] = &Proposal{
				ID:        in.ID,
				Original:  in.Original,
				Suggested: in.Suggested,
			}
			s.order = append(s.order, in.ID)
			changed = true
			continue
		}

		if existing.Original != in.Original || existing.Suggested != in.Suggested {
			existing.Original = in.Original
			existing.Suggested = in.Suggested
			changed = true
		}
	}

	return changed
}

// Accept marks the proposal accepted. It is idempotent and reports whether
// the ID is present.
func (s *Set) Accept(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return false
	}
	p.Accepted = true
	return true
}

// Reject removes the proposal and reports whether it was present.
func (s *Set) Reject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}

	delete(s.byID, id)
	s.rejected[id] = struct{}{}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a copy of the proposal with the given ID.
func (s *Set) Get(id string) (Proposal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return Proposal{}, false
	}
	return *p, true
}

// List returns a copy of all proposals in first-seen order.
func (s *Set) List() []Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Proposal, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of proposals in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
