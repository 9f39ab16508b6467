package report

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-sync/core/internal/model"
)

func TestAggregateTopKeywordsOrdersByCountThenName(t *testing.T) {
	n1 := &model.Note{ID: uuid.New()}
	n2 := &model.Note{ID: uuid.New()}
	notes := []*model.Note{n1, n2}
	kws := map[uuid.UUID][]string{
		n1.ID: {"ml", "zeta"},
		n2.ID: {"ml", "alpha"},
	}

	got := aggregateTopKeywords(notes, kws, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct keywords, got %+v", got)
	}
	if got[0].Name != "ml" || got[0].Count != 2 {
		t.Fatalf("expected ml first with count 2, got %+v", got[0])
	}
	if got[1].Name != "alpha" {
		t.Fatalf("expected alpha before zeta on tie, got %+v", got[1])
	}
}

func TestNewKeywordsDiffExcludesPreviousWeek(t *testing.T) {
	current := []KeywordCount{{Name: "ml", Count: 5}, {Name: "dl", Count: 3}, {Name: "stats", Count: 1}}
	previous := map[string]struct{}{"ml": {}}

	got := newKeywordsDiff(current, previous, 5)
	if len(got) != 2 || got[0] != "dl" || got[1] != "stats" {
		t.Fatalf("unexpected new keywords: %v", got)
	}
}

func TestNewKeywordsDiffCapsAtFive(t *testing.T) {
	var current []KeywordCount
	for i := 0; i < 8; i++ {
		current = append(current, KeywordCount{Name: string(rune('a' + i)), Count: 8 - i})
	}
	got := newKeywordsDiff(current, map[string]struct{}{}, 5)
	if len(got) != 5 {
		t.Fatalf("expected cap of 5, got %d", len(got))
	}
}

func TestSuggestConnectionsThresholdAndCap(t *testing.T) {
	mk := func(vec []float32) *model.Note {
		return &model.Note{ID: uuid.New(), Embedding: vec, CreatedAt: time.Now()}
	}
	notes := []*model.Note{
		mk([]float32{1, 0}),
		mk([]float32{0.99, 0.01}), // near-identical, similarity > 0.7
		mk([]float32{0, 1}),       // orthogonal, similarity 0
	}

	got := suggestConnections(notes)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 connection above threshold, got %d: %+v", len(got), got)
	}
	if got[0].Similarity < connectionMinSim {
		t.Fatalf("connection below threshold leaked through: %+v", got[0])
	}
}

func TestPreviewTextTruncatesAtHundredRunes(t *testing.T) {
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'x'
	}
	got := previewText(string(long), 100)
	if len([]rune(got)) != 100 {
		t.Fatalf("expected 100 runes, got %d", len([]rune(got)))
	}
}
