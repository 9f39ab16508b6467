package recommend

import (
	"math"
	"testing"
)

func TestComposeReasonWorkedExample(t *testing.T) {
	// Target and candidate share keywords {"ml","dl"}; s_e = 0.82;
	// candidate created 2 days after target -> s_t = exp(-2/30) ~= 0.935.
	sE := 0.82
	sT := math.Exp(-2.0 / 30.0)
	common := []string{"dl", "ml"}

	got := composeReason(sE, sT, common)
	want := "content highly similar | keywords dl, ml related | recent note"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	score := embeddingWeight*sE + keywordWeight*0.5 + temporalWeight*sT
	if math.Abs(score-0.734) > 0.001 {
		t.Fatalf("got score %v, want ~0.734", score)
	}
}

func TestComposeReasonNoClauseFallsBackToSimilarContext(t *testing.T) {
	got := composeReason(0.4, 0.1, nil)
	if got != "similar context" {
		t.Fatalf("got %q, want %q", got, "similar context")
	}
}

func TestComposeReasonSharedKeywordsCapsAtThree(t *testing.T) {
	got := composeReason(0.2, 0.1, []string{"a", "b", "c", "d"})
	want := "shared keywords: a, b, c"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJaccardEmptySetsYieldZero(t *testing.T) {
	if got := jaccard(map[string]struct{}{}, map[string]struct{}{"x": {}}); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestJaccardPartialOverlap(t *testing.T) {
	a := toLowerSet([]string{"ml", "dl", "ai"})
	b := toLowerSet([]string{"ML", "stats"})
	got := jaccard(a, b)
	want := 1.0 / 4.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPreviewTruncatesAtRuneBoundary(t *testing.T) {
	body := "short"
	if got := preview(body, 100); got != body {
		t.Fatalf("got %q, want unchanged %q", got, body)
	}
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'a'
	}
	got := preview(string(long), 100)
	if len([]rune(got)) != 100 {
		t.Fatalf("expected 100 runes, got %d", len([]rune(got)))
	}
}
