package room

import (
	"sync"

	"tolk/internal/domain"
)

// TranscriptStore is the ordered, append-only, de-duplicated utterance list
// for one room. Entries are never removed or mutated after insertion; the
// transport gives at-least-once delivery and the store's ID check is what
// turns that into exactly-once application semantics.
type TranscriptStore struct {
	mu    sync.Mutex
	order []domain.Utterance
	seen  map[string]struct{}
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{seen: make(map[string]struct{})}
}

// Add appends the utterance unless its ID has been seen before. It reports
// whether the utterance was newly stored.
func (s *TranscriptStore) Add(u domain.Utterance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[u.ID]; ok {
		return false
	}
	s.seen[u.ID] = struct{}{}
	s.order = append(s.order, u)
	return true
}

// Utterances returns a copy of the transcript in arrival order.
func (s *TranscriptStore) Utterances() []domain.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Utterance(nil), s.order...)
}

// Len returns the number of stored utterances.
func (s *TranscriptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
