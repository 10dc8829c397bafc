package room

import (
	"testing"
	"time"

	"tolk/internal/domain"
)

func TestTranscriptStoreDeduplicatesByID(t *testing.T) {
	t.Parallel()

	store := NewTranscriptStore()
	u := domain.Utterance{ID: "u1", SourceLanguage: "ko", OriginalText: "안녕", TranslatedText: "Xin chào"}

	if !store.Add(u) {
		t.Fatalf("expected first add to store")
	}
	if store.Add(u) {
		t.Fatalf("expected duplicate add to be rejected")
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one stored entry, got %d", store.Len())
	}
}

func TestTranscriptStorePreservesArrivalOrder(t *testing.T) {
	t.Parallel()

	store := NewTranscriptStore()
	for _, id := range []string{"a", "b", "c"} {
		store.Add(domain.Utterance{ID: id, ProducedAt: time.Now()})
	}

	got := store.Utterances()
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestTranscriptStoreSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	store := NewTranscriptStore()
	store.Add(domain.Utterance{ID: "a", TranslatedText: "hello"})

	snapshot := store.Utterances()
	snapshot[0].TranslatedText = "mutated"

	if store.Utterances()[0].TranslatedText != "hello" {
		t.Fatalf("store contents must not be mutable through snapshots")
	}
}
