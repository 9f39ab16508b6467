// Package report implements the C7 weekly report engine (SPEC_FULL.md
// §4.5): note clustering, keyword aggregation, and connection suggestion
// over a user's notes for one ISO week.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/model"
	"github.com/synapse-sync/core/internal/store"
)

const (
	clusterSeed      = 42
	clusterRestarts  = 10
	connectionMinSim = 0.7
	connectionCap    = 5
	newKeywordCap    = 5
	topKeywordCap    = 10
)

type ClusterSummary struct {
	ClusterID              int         `json:"cluster_id"`
	Size                    int         `json:"size"`
	RepresentativeSentence string      `json:"representative_sentence"`
	TopKeywords             []string    `json:"top_keywords"`
	NoteIDs                 []uuid.UUID `json:"note_ids"`
}

type KeywordCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Connection struct {
	NoteAID    uuid.UUID `json:"note_a_id"`
	NoteBID    uuid.UUID `json:"note_b_id"`
	Similarity float64   `json:"similarity"`
	Reason     string    `json:"reason"`
}

// WeeklyReportData is the persisted/cached report body.
type WeeklyReportData struct {
	WeekKey     string           `json:"week_key"`
	Clusters    []ClusterSummary `json:"clusters"`
	TopKeywords []KeywordCount   `json:"top_keywords"`
	NewKeywords []string         `json:"new_keywords"`
	Connections []Connection     `json:"connections"`
}

// Result is the engine's response shape.
type Result struct {
	WeekKey          string           `json:"week_key"`
	Report           WeeklyReportData `json:"report"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

// Engine computes and caches weekly reports.
type Engine struct {
	store *store.Store
	cache *Cache
}

func New(st *store.Store, cache *Cache) *Engine {
	return &Engine{store: st, cache: cache}
}

// Generate returns the weekly report for (userID, weekKey), serving a cache
// hit with processing_time_ms=0 when regenerate is false.
func (e *Engine) Generate(ctx context.Context, userID uuid.UUID, weekKey string, regenerate bool) (Result, error) {
	start := time.Now()

	year, week, err := ParseWeekKey(weekKey)
	if err != nil {
		return Result{}, err
	}

	if !regenerate {
		if cached, ok := e.cache.Get(ctx, userID, weekKey); ok {
			var data WeeklyReportData
			if jsonErr := json.Unmarshal(cached, &data); jsonErr == nil {
				return Result{WeekKey: weekKey, Report: data, ProcessingTimeMs: 0}, nil
			}
		}
		stored, err := e.store.GetWeeklyReport(ctx, userID, weekKey)
		if err != nil {
			return Result{}, err
		}
		if stored != nil {
			var data WeeklyReportData
			if jsonErr := json.Unmarshal(stored.Data, &data); jsonErr == nil {
				e.cache.Set(ctx, userID, weekKey, stored.Data)
				return Result{WeekKey: weekKey, Report: data, ProcessingTimeMs: 0}, nil
			}
		}
	}

	rangeStart, rangeEnd := ISOWeekRange(year, week)
	notes, err := e.store.ListNotesInRange(ctx, userID, rangeStart, rangeEnd)
	if err != nil {
		return Result{}, err
	}
	if len(notes) == 0 {
		return Result{}, apperr.New(apperr.NotFound, "no notes found")
	}

	noteKeywords := make(map[uuid.UUID][]string, len(notes))
	for _, n := range notes {
		names, err := e.store.ListNoteKeywordNames(ctx, e.store.Pool, n.ID)
		if err != nil {
			return Result{}, err
		}
		noteKeywords[n.ID] = names
	}

	clusters := buildClusters(notes, noteKeywords)
	topKeywords := aggregateTopKeywords(notes, noteKeywords, topKeywordCap)

	prevYear, prevWeek := PreviousWeekKey(year, week)
	prevStart, prevEnd := ISOWeekRange(prevYear, prevWeek)
	prevNotes, err := e.store.ListNotesInRange(ctx, userID, prevStart, prevEnd)
	if err != nil {
		return Result{}, err
	}
	prevKeywordSet := map[string]struct{}{}
	for _, n := range prevNotes {
		names, err := e.store.ListNoteKeywordNames(ctx, e.store.Pool, n.ID)
		if err != nil {
			return Result{}, err
		}
		for _, name := range names {
			prevKeywordSet[name] = struct{}{}
		}
	}
	newKeywords := newKeywordsDiff(topKeywords, prevKeywordSet, newKeywordCap)

	connections := suggestConnections(notes)

	data := WeeklyReportData{
		WeekKey:     weekKey,
		Clusters:    clusters,
		TopKeywords: topKeywords,
		NewKeywords: newKeywords,
		Connections: connections,
	}

	blob, err := json.Marshal(data)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Storage, "marshal report", err)
	}

	wr := &model.WeeklyReport{
		UserID:           userID,
		WeekKey:          weekKey,
		Data:             blob,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
	}
	if err := e.store.SaveWeeklyReport(ctx, wr); err != nil {
		return Result{}, err
	}
	e.cache.Set(ctx, userID, weekKey, blob)

	return Result{WeekKey: weekKey, Report: data, ProcessingTimeMs: time.Since(start).Milliseconds()}, nil
}

func buildClusters(notes []*model.Note, noteKeywords map[uuid.UUID][]string) []ClusterSummary {
	k := clusterCount(len(notes))
	points := make([][]float32, len(notes))
	for i, n := range notes {
		points[i] = n.Embedding
	}
	assignments := kMeans(points, k, clusterSeed, clusterRestarts)

	grouped := make(map[int][]*model.Note)
	for i, n := range notes {
		c := assignments[i]
		grouped[c] = append(grouped[c], n)
	}

	clusterIDs := make([]int, 0, len(grouped))
	for id := range grouped {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	summaries := make([]ClusterSummary, 0, len(clusterIDs))
	for rank, id := range clusterIDs {
		members := grouped[id]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})

		keywordCounts := map[string]int{}
		noteIDs := make([]uuid.UUID, len(members))
		for i, n := range members {
			noteIDs[i] = n.ID
			for _, kw := range noteKeywords[n.ID] {
				keywordCounts[kw]++
			}
		}

		summaries = append(summaries, ClusterSummary{
			ClusterID:              rank,
			Size:                    len(members),
			RepresentativeSentence: previewText(members[0].Body, 100),
			TopKeywords:             topNames(keywordCounts, 3),
			NoteIDs:                 noteIDs,
		})
	}
	return summaries
}

func aggregateTopKeywords(notes []*model.Note, noteKeywords map[uuid.UUID][]string, cap int) []KeywordCount {
	counts := map[string]int{}
	for _, n := range notes {
		for _, kw := range noteKeywords[n.ID] {
			counts[kw]++
		}
	}

	out := make([]KeywordCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, KeywordCount{Name: name, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}

func newKeywordsDiff(currentTop []KeywordCount, previousSet map[string]struct{}, cap int) []string {
	var fresh []KeywordCount
	for _, kc := range currentTop {
		if _, seen := previousSet[kc.Name]; !seen {
			fresh = append(fresh, kc)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Count > fresh[j].Count })
	if len(fresh) > cap {
		fresh = fresh[:cap]
	}
	names := make([]string, len(fresh))
	for i, kc := range fresh {
		names[i] = kc.Name
	}
	return names
}

func suggestConnections(notes []*model.Note) []Connection {
	var out []Connection
	for i := 0; i < len(notes); i++ {
		for j := i + 1; j < len(notes); j++ {
			sim := store.CosineSimilarity(notes[i].Embedding, notes[j].Embedding)
			if sim < connectionMinSim {
				continue
			}
			out = append(out, Connection{
				NoteAID:    notes[i].ID,
				NoteBID:    notes[j].ID,
				Similarity: sim,
				Reason:     fmt.Sprintf("high similarity (%.2f)", sim),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > connectionCap {
		out = out[:connectionCap]
	}
	return out
}

func topNames(counts map[string]int, cap int) []string {
	type nc struct {
		name  string
		count int
	}
	list := make([]nc, 0, len(counts))
	for n, c := range counts {
		list = append(list, nc{n, c})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].name < list[j].name
	})
	if len(list) > cap {
		list = list[:cap]
	}
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.name
	}
	return names
}

func previewText(body string, n int) string {
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return string(r[:n])
}
