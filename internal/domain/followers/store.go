package followers

// Store accumulates deduplicated records across an entire session. It keeps
// first-successful-insert order regardless of how batches arrived, and it is
// append-only: records are never removed or overwritten for the lifetime of
// one run.
//
// Store is not safe for concurrent use; the owning session serializes access.
type Store struct {
	order []Record
	seen  map[string]struct{}
}

func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Offer inserts the record unless its identity was already seen. The first
// copy of an identity wins; later duplicates are discarded so re-emitted
// profiles never flip-flop mid-run. Returns whether the record was inserted.
func (s *Store) Offer(r Record) bool {
	id := r.Identity()
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, r)
	return true
}

// Snapshot returns a copy of the accumulated sequence in insertion order.
// Callers never observe a slice that mutates after return.
func (s *Store) Snapshot() []Record {
	out := make([]Record, len(s.order))
	copy(out, s.order)
	return out
}

// Count reports the number of distinct identities held.
func (s *Store) Count() int {
	return len(s.order)
}
