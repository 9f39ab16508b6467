// Package recommend implements the C6 hybrid recommendation engine
// (SPEC_FULL.md §4.4): embedding, keyword-overlap, and temporal-decay
// signals blended into a single ranked result set.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/store"
)

const (
	embeddingWeight = 0.6
	keywordWeight   = 0.3
	temporalWeight  = 0.1
	minScore        = 0.3
	maxCandidates   = 50
	decayHalfDays   = 30.0
)

// Recommendation is one scored, explained candidate.
type Recommendation struct {
	NoteID         uuid.UUID `json:"note_id"`
	BodyPreview    string    `json:"body_preview"`
	Score          float64   `json:"score"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
	CommonKeywords []string  `json:"common_keywords"`
}

// Result is the full engine response.
type Result struct {
	NoteID           uuid.UUID        `json:"note_id"`
	Recommendations  []Recommendation `json:"recommendations"`
	TotalCandidates  int              `json:"total_candidates"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

// Engine computes recommendations on top of the entity store's vector
// nearest-neighbor query.
type Engine struct {
	store *store.Store
}

func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Recommend returns up to k recommendations for (userID, noteID).
func (e *Engine) Recommend(ctx context.Context, userID, noteID uuid.UUID, k int) (Result, error) {
	start := time.Now()

	if k < 1 {
		k = 1
	}
	if k > maxCandidates {
		k = maxCandidates
	}

	target, err := e.store.GetNote(ctx, e.store.Pool, noteID)
	if err != nil {
		return Result{}, err
	}
	if target == nil || target.UserID != userID || target.IsDeleted() {
		return Result{}, apperr.New(apperr.NotFound, "note not found")
	}
	if len(target.Embedding) == 0 {
		return Result{NoteID: noteID, ProcessingTimeMs: elapsedMs(start)}, nil
	}

	targetKeywords, err := e.store.ListNoteKeywordNames(ctx, e.store.Pool, noteID)
	if err != nil {
		return Result{}, err
	}
	targetKeywordSet := toLowerSet(targetKeywords)

	candidates, err := e.store.NearestNeighbors(ctx, userID, noteID, target.Embedding, maxCandidates)
	if err != nil {
		return Result{}, err
	}
	totalCandidates := len(candidates)

	scored := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		candidateKeywords, err := e.store.ListNoteKeywordNames(ctx, e.store.Pool, c.Note.ID)
		if err != nil {
			return Result{}, err
		}
		candidateKeywordSet := toLowerSet(candidateKeywords)

		sE := c.Similarity
		if sE < 0 {
			sE = 0
		}
		sK := jaccard(targetKeywordSet, candidateKeywordSet)
		deltaDays := math.Abs(target.CreatedAt.Sub(c.Note.CreatedAt).Hours()) / 24.0
		sT := math.Exp(-deltaDays / decayHalfDays)

		score := embeddingWeight*sE + keywordWeight*sK + temporalWeight*sT
		if score < minScore {
			continue
		}

		common := intersectSorted(targetKeywordSet, candidateKeywordSet)
		scored = append(scored, Recommendation{
			NoteID:         c.Note.ID,
			BodyPreview:    preview(c.Note.Body, 100),
			Score:          score,
			Reason:         composeReason(sE, sT, common),
			CreatedAt:      c.Note.CreatedAt,
			CommonKeywords: common,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].CreatedAt.Equal(scored[j].CreatedAt) {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		}
		return scored[i].NoteID.String() < scored[j].NoteID.String()
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return Result{
		NoteID:           noteID,
		Recommendations:  scored,
		TotalCandidates:  totalCandidates,
		ProcessingTimeMs: elapsedMs(start),
	}, nil
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func preview(body string, n int) string {
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return string(r[:n])
}

func toLowerSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func intersectSorted(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// composeReason builds the human-readable explanation per
// SPEC_FULL.md §4.4 step 7, concatenating up to three clauses with " | ".
func composeReason(sE, sT float64, common []string) string {
	var clauses []string

	switch {
	case sE > 0.7:
		clauses = append(clauses, "content highly similar")
	case sE > 0.5:
		clauses = append(clauses, "related topic")
	}

	switch {
	case len(common) >= 3:
		clauses = append(clauses, fmt.Sprintf("shared keywords: %s", strings.Join(common[:3], ", ")))
	case len(common) >= 1:
		clauses = append(clauses, fmt.Sprintf("keywords %s related", strings.Join(common, ", ")))
	}

	if sT > 0.8 {
		clauses = append(clauses, "recent note")
	}

	if len(clauses) == 0 {
		return "similar context"
	}
	return strings.Join(clauses, " | ")
}
