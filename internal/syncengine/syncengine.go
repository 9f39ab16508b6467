// Package syncengine implements C5: the push/pull sync protocol described in
// SPEC_FULL.md §4.1, on top of the C3 entity store and C4 derivation
// pipeline.
package syncengine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/derive"
	"github.com/synapse-sync/core/internal/model"
	"github.com/synapse-sync/core/internal/store"
	"github.com/synapse-sync/core/internal/syncx"
)

// Engine wires the entity store and derivation pipeline into the push/pull
// protocol.
type Engine struct {
	store  *store.Store
	derive *derive.Pipeline

	// SyncBatchMaxItems caps the number of changes accepted per push request.
	SyncBatchMaxItems int
	// PullPageLimit caps rows returned per entity type per pull call.
	PullPageLimit int
}

func New(st *store.Store, dv *derive.Pipeline, batchMaxItems, pullPageLimit int) *Engine {
	return &Engine{store: st, derive: dv, SyncBatchMaxItems: batchMaxItems, PullPageLimit: pullPageLimit}
}

// ItemResult is the per-item outcome reported back to the client
// (SPEC_FULL.md §6: push results are ordered 1:1 with the request's changes).
type ItemResult struct {
	EntityID string `json:"entity_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// PushResult is Push's response shape (SPEC_FULL.md §4.1/§6): aggregate
// counts alongside the per-item results, plus a checkpoint the caller can
// immediately pull from to see its own writes (and anything else that
// landed concurrently).
type PushResult struct {
	SuccessCount  int              `json:"success_count"`
	FailureCount  int              `json:"failure_count"`
	Results       []ItemResult     `json:"results"`
	NewCheckpoint syncx.Checkpoint `json:"new_checkpoint"`
}

// Push applies each change in req independently: one change, one
// transaction, one commit or rollback. A failure in item N must not affect
// item N+1 (SPEC_FULL.md §9 - never a single whole-batch transaction).
func (e *Engine) Push(ctx context.Context, userID uuid.UUID, req syncx.ChangeRequest) (PushResult, error) {
	if len(req.Changes) > e.SyncBatchMaxItems {
		return PushResult{}, apperr.New(apperr.PayloadTooLarge, "too many changes in one push request")
	}

	results := make([]ItemResult, len(req.Changes))
	newCheckpoint := syncx.NoCheckpoint
	successCount, failureCount := 0, 0
	for i, change := range req.Changes {
		ts, err := e.applyOne(ctx, userID, change)
		if err != nil {
			results[i] = ItemResult{EntityID: change.EntityID, Success: false, Error: apperr.MessageOf(err)}
			failureCount++
			continue
		}
		results[i] = ItemResult{EntityID: change.EntityID, Success: true}
		successCount++
		if !ts.IsZero() {
			newCheckpoint = syncx.MaxCheckpoint(newCheckpoint, syncx.EncodeCheckpoint(ts))
		}
	}
	return PushResult{
		SuccessCount:  successCount,
		FailureCount:  failureCount,
		Results:       results,
		NewCheckpoint: newCheckpoint,
	}, nil
}

// applyOne runs one change inside its own transaction and reports the
// server_timestamp of the resulting row, so Push can fold it into
// new_checkpoint (zero time for operations that leave no row to pull, e.g.
// a hard delete).
func (e *Engine) applyOne(ctx context.Context, userID uuid.UUID, change syncx.RawChange) (ts time.Time, err error) {
	err = e.store.WithTx(ctx, func(tx pgx.Tx) error {
		switch model.EntityType(change.EntityType) {
		case model.EntityNote:
			ts, err = e.applyNote(ctx, tx, userID, change)
		case model.EntityRelation:
			ts, err = e.applyRelation(ctx, tx, userID, change)
		case model.EntityReflection:
			ts, err = e.applyReflection(ctx, tx, userID, change)
		default:
			return apperr.New(apperr.Validation, "unknown entity_type: "+change.EntityType)
		}
		return err
	})
	return ts, err
}

func (e *Engine) applyNote(ctx context.Context, tx pgx.Tx, userID uuid.UUID, change syncx.RawChange) (time.Time, error) {
	var zero time.Time
	noteID, err := uuid.Parse(change.EntityID)
	if err != nil {
		return zero, apperr.New(apperr.Validation, "entity_id is not a valid uuid")
	}

	switch model.Operation(change.Operation) {
	case model.OpInsert, model.OpUpdate:
		p, err := syncx.ParseNoteUpsert(change.Payload)
		if err != nil {
			return zero, err
		}

		applied, stored, err := e.store.UpsertNoteLWW(ctx, tx, userID, noteID, p.Body, p.Importance,
			p.SourceURL, p.ImagePath, nil, p.CreatedAt, p.UpdatedAt, p.DeletedAt)
		if err != nil {
			return zero, err
		}
		if !applied {
			if stored == nil {
				return zero, apperr.New(apperr.Conflict, "note not found for update")
			}
			return stored.ServerTimestamp, nil
		}

		result, derr := e.derive.Derive(ctx, p.Body)
		if derr == nil {
			scores := make(map[string]float64, len(result.Keywords))
			names := make([]string, len(result.Keywords))
			for i, k := range result.Keywords {
				names[i] = k.Name
				scores[k.Name] = k.Score
			}
			if err := e.store.ReplaceNoteKeywords(ctx, tx, noteID, names, scores); err != nil {
				return zero, err
			}
			if len(result.Embedding) > 0 {
				updated, err := e.store.UpdateNoteEmbedding(ctx, tx, noteID, result.Embedding)
				if err != nil {
					return zero, err
				}
				stored = updated
			}
		}
		return stored.ServerTimestamp, nil

	case model.OpDelete:
		p, err := syncx.ParseNoteDelete(change.Payload)
		if err != nil {
			return zero, err
		}
		deletedAt := time.Now().UTC()
		if p.DeletedAt != nil {
			deletedAt = *p.DeletedAt
		}
		applied, stored, err := e.store.SoftDeleteNoteLWW(ctx, tx, userID, noteID, deletedAt)
		if err != nil {
			return zero, err
		}
		if !applied {
			if stored == nil {
				return zero, apperr.New(apperr.NotFound, "note not found")
			}
			return stored.ServerTimestamp, nil
		}
		return stored.ServerTimestamp, nil

	default:
		return zero, apperr.New(apperr.Validation, "unknown operation: "+change.Operation)
	}
}

func (e *Engine) applyRelation(ctx context.Context, tx pgx.Tx, userID uuid.UUID, change syncx.RawChange) (time.Time, error) {
	var zero time.Time
	relationID, err := uuid.Parse(change.EntityID)
	if err != nil {
		return zero, apperr.New(apperr.Validation, "entity_id is not a valid uuid")
	}

	switch model.Operation(change.Operation) {
	case model.OpInsert:
		p, err := syncx.ParseRelationInsert(change.Payload)
		if err != nil {
			return zero, err
		}
		fromID, err := uuid.Parse(p.FromNoteID)
		if err != nil {
			return zero, apperr.New(apperr.Validation, "from_note_id is not a valid uuid")
		}
		toID, err := uuid.Parse(p.ToNoteID)
		if err != nil {
			return zero, apperr.New(apperr.Validation, "to_note_id is not a valid uuid")
		}

		fromOK, err := e.store.NoteExistsForUser(ctx, tx, userID, fromID)
		if err != nil {
			return zero, err
		}
		toOK, err := e.store.NoteExistsForUser(ctx, tx, userID, toID)
		if err != nil {
			return zero, err
		}
		if !fromOK || !toOK {
			return zero, apperr.New(apperr.Validation, "relation endpoints must be notes owned by the caller")
		}

		rel := &model.Relation{ID: relationID, FromNoteID: fromID, ToNoteID: toID, RelationType: p.RelationType, CreatedAt: p.CreatedAt}
		stored, err := e.store.InsertRelationIdempotent(ctx, tx, rel)
		if err != nil {
			return zero, err
		}
		return stored.ServerTimestamp, nil

	case model.OpDelete:
		// Hard delete: no row survives to carry a server_timestamp forward.
		if err := e.store.DeleteRelationOwned(ctx, tx, userID, relationID); err != nil {
			return zero, err
		}
		return zero, nil

	default:
		return zero, apperr.New(apperr.Validation, "unsupported relation operation: "+change.Operation)
	}
}

func (e *Engine) applyReflection(ctx context.Context, tx pgx.Tx, userID uuid.UUID, change syncx.RawChange) (time.Time, error) {
	var zero time.Time
	switch model.Operation(change.Operation) {
	case model.OpInsert, model.OpUpdate:
		p, err := syncx.ParseReflectionUpsert(change.Payload)
		if err != nil {
			return zero, err
		}
		applied, stored, err := e.store.UpsertReflectionLWW(ctx, tx, userID, p.Date, p.Content, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return zero, err
		}
		if !applied {
			if stored == nil {
				return zero, apperr.New(apperr.Conflict, "reflection not found for update")
			}
			return stored.ServerTimestamp, nil
		}
		return stored.ServerTimestamp, nil

	case model.OpDelete:
		date, err := syncx.ReflectionDateFromPayload(change.Payload)
		if err != nil {
			return zero, err
		}
		// Hard delete: no row survives to carry a server_timestamp forward.
		if err := e.store.DeleteReflection(ctx, tx, userID, date); err != nil {
			return zero, err
		}
		return zero, nil

	default:
		return zero, apperr.New(apperr.Validation, "unsupported reflection operation: "+change.Operation)
	}
}

// PullResult is the per-pull-call response (SPEC_FULL.md §6).
type PullResult struct {
	Notes         []*model.Note       `json:"notes"`
	Relations     []*model.Relation   `json:"relations"`
	Reflections   []*model.Reflection `json:"reflections"`
	NewCheckpoint syncx.Checkpoint    `json:"new_checkpoint"`
	HasMore       bool                `json:"has_more"`
}

// Pull returns everything changed since checkpoint, per entity type, each
// saturating independently against PullPageLimit (SPEC_FULL.md §4.1 step 4).
func (e *Engine) Pull(ctx context.Context, userID uuid.UUID, checkpoint syncx.Checkpoint) (PullResult, error) {
	since, ok := syncx.ParseCheckpoint(checkpoint)
	if !ok {
		return PullResult{}, apperr.New(apperr.Validation, "malformed checkpoint")
	}

	notes, err := e.store.PullNotes(ctx, userID, since, e.PullPageLimit)
	if err != nil {
		return PullResult{}, err
	}
	relations, err := e.store.PullRelations(ctx, userID, since, e.PullPageLimit)
	if err != nil {
		return PullResult{}, err
	}
	reflections, err := e.store.PullReflections(ctx, userID, since, e.PullPageLimit)
	if err != nil {
		return PullResult{}, err
	}

	newCheckpoint := checkpoint
	for _, n := range notes.Rows {
		newCheckpoint = syncx.MaxCheckpoint(newCheckpoint, syncx.EncodeCheckpoint(n.ServerTimestamp))
	}
	for _, r := range relations.Rows {
		newCheckpoint = syncx.MaxCheckpoint(newCheckpoint, syncx.EncodeCheckpoint(r.ServerTimestamp))
	}
	for _, r := range reflections.Rows {
		newCheckpoint = syncx.MaxCheckpoint(newCheckpoint, syncx.EncodeCheckpoint(r.ServerTimestamp))
	}

	return PullResult{
		Notes:         notes.Rows,
		Relations:     relations.Rows,
		Reflections:   reflections.Rows,
		NewCheckpoint: newCheckpoint,
		HasMore:       notes.Saturated || relations.Saturated || reflections.Saturated,
	}, nil
}
