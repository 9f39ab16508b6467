// Package store implements the C3 entity store contract (SPEC_FULL.md §4.3)
// on top of Postgres via pgx, grounded on the teacher's internal/db pool
// configuration and internal/httpapi/sync_notes.go upsert idiom.
package store

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/model"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting every Store
// method run either directly against the pool or inside a caller-managed
// transaction (the sync engine needs the latter for per-item commits).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the C3 entity store.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic. Used by the sync engine for one push item
// at a time - never for a whole batch (SPEC_FULL.md §9 forbids that).
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.Storage, "commit transaction", err)
	}
	return nil
}

// --- Users -----------------------------------------------------------------

func (s *Store) GetActiveUser(ctx context.Context, db DBTX, userID uuid.UUID) (*model.User, error) {
	var u model.User
	err := db.QueryRow(ctx,
		`SELECT id, email, password_hash, is_active, created_at FROM app_user WHERE id = $1`,
		userID).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.Authentication, "unknown user")
		}
		return nil, apperr.Wrap(apperr.Storage, "load user", err)
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.Authentication, "user is disabled")
	}
	return &u, nil
}

// --- Notes -------------------------------------------------------------------

func scanNote(row pgx.Row) (*model.Note, error) {
	var n model.Note
	var embedding *pgvector.Vector
	if err := row.Scan(&n.ID, &n.UserID, &n.Body, &n.Importance, &n.SourceURL, &n.ImagePath,
		&embedding, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt, &n.ServerTimestamp); err != nil {
		return nil, err
	}
	if embedding != nil {
		n.Embedding = embedding.Slice()
	}
	return &n, nil
}

// toVector converts a derived embedding to the pgvector wire type, or nil
// when no embedding is attached yet (the column stays NULL).
func toVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}

const noteColumns = `id, user_id, body, importance, source_url, image_path, embedding, created_at, updated_at, deleted_at, server_timestamp`

// GetNote loads a note by id, regardless of ownership or deletion state;
// callers enforce ownership/deletion checks as the operation requires.
func (s *Store) GetNote(ctx context.Context, db DBTX, noteID uuid.UUID) (*model.Note, error) {
	row := db.QueryRow(ctx, `SELECT `+noteColumns+` FROM note WHERE id = $1`, noteID)
	n, err := scanNote(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Storage, "load note", err)
	}
	return n, nil
}

// NoteExistsForUser reports whether a non-deleted note owned by userID
// exists, used to validate relation endpoints before accepting a relation
// push (grounded on the teacher's comment parent-existence check).
func (s *Store) NoteExistsForUser(ctx context.Context, db DBTX, userID, noteID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM note WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL)`,
		noteID, userID).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.Storage, "check note existence", err)
	}
	return exists, nil
}

// UpsertNoteLWW applies a note insert/update using last-writer-wins: a
// strictly later incoming updated_at wins, anything else is dropped
// (reported success, store unchanged). server_timestamp advances
// monotonically per row on every winning write.
func (s *Store) UpsertNoteLWW(ctx context.Context, db DBTX, userID, noteID uuid.UUID, body string, importance int, sourceURL, imagePath *string, embedding []float32, createdAt, updatedAt time.Time, deletedAt *time.Time) (applied bool, stored *model.Note, err error) {
	row := db.QueryRow(ctx, `
		INSERT INTO note (id, user_id, body, importance, source_url, image_path, embedding, created_at, updated_at, deleted_at, server_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id) DO UPDATE SET
			body             = EXCLUDED.body,
			importance       = EXCLUDED.importance,
			source_url       = EXCLUDED.source_url,
			image_path       = EXCLUDED.image_path,
			embedding        = EXCLUDED.embedding,
			updated_at       = EXCLUDED.updated_at,
			deleted_at       = EXCLUDED.deleted_at,
			server_timestamp = GREATEST(now(), note.server_timestamp + interval '1 millisecond')
		WHERE EXCLUDED.updated_at > note.updated_at AND note.user_id = EXCLUDED.user_id
		RETURNING `+noteColumns,
		noteID, userID, body, importance, sourceURL, imagePath, toVector(embedding), createdAt, updatedAt, deletedAt)

	n, scanErr := scanNote(row)
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			// LWW loss (or a conflicting owner): re-read current stored state.
			existing, readErr := s.GetNote(ctx, db, noteID)
			if readErr != nil {
				return false, nil, readErr
			}
			return false, existing, nil
		}
		return false, nil, apperr.Wrap(apperr.Storage, "upsert note", scanErr)
	}
	return true, n, nil
}

// UpdateNoteEmbedding sets a note's embedding unconditionally, bypassing the
// LWW updated_at gate: this only runs after a note write has already won
// (syncengine.applyNote derives embedding/keywords from the body it just
// wrote, inside the same per-item transaction that holds the row lock), so
// there is no concurrent client write left to compare against. server_timestamp still advances so other devices see the
// derived embedding on their next pull.
func (s *Store) UpdateNoteEmbedding(ctx context.Context, db DBTX, noteID uuid.UUID, embedding []float32) (*model.Note, error) {
	row := db.QueryRow(ctx, `
		UPDATE note SET
			embedding        = $2,
			server_timestamp = GREATEST(now(), note.server_timestamp + interval '1 millisecond')
		WHERE id = $1
		RETURNING `+noteColumns,
		noteID, toVector(embedding))

	n, scanErr := scanNote(row)
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "note not found")
		}
		return nil, apperr.Wrap(apperr.Storage, "update note embedding", scanErr)
	}
	return n, nil
}

// SoftDeleteNoteLWW applies a note delete under the same LWW comparison as
// insert/update (SPEC_FULL.md §4.1 step 3: a delete whose incoming
// updated_at is <= stored is dropped).
func (s *Store) SoftDeleteNoteLWW(ctx context.Context, db DBTX, userID, noteID uuid.UUID, deletedAt time.Time) (applied bool, stored *model.Note, err error) {
	row := db.QueryRow(ctx, `
		UPDATE note SET
			deleted_at       = $3,
			updated_at       = $3,
			server_timestamp = GREATEST(now(), note.server_timestamp + interval '1 millisecond')
		WHERE id = $1 AND user_id = $2 AND $3 > note.updated_at
		RETURNING `+noteColumns,
		noteID, userID, deletedAt)

	n, scanErr := scanNote(row)
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			existing, readErr := s.GetNote(ctx, db, noteID)
			if readErr != nil {
				return false, nil, readErr
			}
			return false, existing, nil
		}
		return false, nil, apperr.Wrap(apperr.Storage, "soft delete note", scanErr)
	}
	return true, n, nil
}

// --- Keywords ----------------------------------------------------------------

// ReplaceNoteKeywords atomically replaces a note's keyword links: delete all
// existing links, find-or-create each keyword by name, insert fresh links
// (SPEC_FULL.md §4.2 step 3).
func (s *Store) ReplaceNoteKeywords(ctx context.Context, db DBTX, noteID uuid.UUID, names []string, scores map[string]float64) error {
	if _, err := db.Exec(ctx, `DELETE FROM note_keyword WHERE note_id = $1`, noteID); err != nil {
		return apperr.Wrap(apperr.Storage, "clear note keywords", err)
	}

	for _, name := range names {
		var keywordID int64
		err := db.QueryRow(ctx, `
			INSERT INTO keyword (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&keywordID)
		if err != nil {
			return apperr.Wrap(apperr.Storage, "find-or-create keyword", err)
		}

		var score *float64
		if sc, ok := scores[name]; ok {
			score = &sc
		}
		if _, err := db.Exec(ctx,
			`INSERT INTO note_keyword (note_id, keyword_id, score) VALUES ($1, $2, $3)
			 ON CONFLICT (note_id, keyword_id) DO UPDATE SET score = EXCLUDED.score`,
			noteID, keywordID, score); err != nil {
			return apperr.Wrap(apperr.Storage, "link note keyword", err)
		}
	}
	return nil
}

// ListNoteKeywordNames returns the keyword names attached to a note as they
// are stored, ordered by name.
func (s *Store) ListNoteKeywordNames(ctx context.Context, db DBTX, noteID uuid.UUID) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT k.name FROM note_keyword nk
		JOIN keyword k ON k.id = nk.keyword_id
		WHERE nk.note_id = $1
		ORDER BY k.name`, noteID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list note keywords", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan keyword name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Relations ---------------------------------------------------------------

// InsertRelationIdempotent inserts a relation; a duplicate id is a no-op
// success (SPEC_FULL.md §4.1 step 3). Returns the stored row either way, so
// callers can read back its server_timestamp for checkpoint tracking.
func (s *Store) InsertRelationIdempotent(ctx context.Context, db DBTX, rel *model.Relation) (*model.Relation, error) {
	_, err := db.Exec(ctx, `
		INSERT INTO relation (id, from_note_id, to_note_id, relation_type, created_at, server_timestamp)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO NOTHING`,
		rel.ID, rel.FromNoteID, rel.ToNoteID, rel.RelationType, rel.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "insert relation", err)
	}

	row := db.QueryRow(ctx,
		`SELECT id, from_note_id, to_note_id, relation_type, created_at, server_timestamp FROM relation WHERE id = $1`,
		rel.ID)
	var stored model.Relation
	if err := row.Scan(&stored.ID, &stored.FromNoteID, &stored.ToNoteID, &stored.RelationType, &stored.CreatedAt, &stored.ServerTimestamp); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "load inserted relation", err)
	}
	return &stored, nil
}

// DeleteRelationOwned deletes a relation if its from-note is owned by
// userID; missing or foreign-owned is a no-op success.
func (s *Store) DeleteRelationOwned(ctx context.Context, db DBTX, userID, relationID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		DELETE FROM relation r USING note n
		WHERE r.id = $1 AND r.from_note_id = n.id AND n.user_id = $2`,
		relationID, userID)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "delete relation", err)
	}
	return nil
}

// --- Reflections --------------------------------------------------------------

func scanReflection(row pgx.Row) (*model.Reflection, error) {
	var r model.Reflection
	if err := row.Scan(&r.UserID, &r.Date, &r.Content, &r.CreatedAt, &r.UpdatedAt, &r.ServerTimestamp); err != nil {
		return nil, err
	}
	return &r, nil
}

const reflectionColumns = `user_id, date, content, created_at, updated_at, server_timestamp`

// UpsertReflectionLWW applies a reflection insert/update under the same LWW
// rule as notes.
func (s *Store) UpsertReflectionLWW(ctx context.Context, db DBTX, userID uuid.UUID, date, content string, createdAt, updatedAt time.Time) (applied bool, stored *model.Reflection, err error) {
	row := db.QueryRow(ctx, `
		INSERT INTO reflection (user_id, date, content, created_at, updated_at, server_timestamp)
		VALUES ($1, $2::date, $3, $4, $5, now())
		ON CONFLICT (user_id, date) DO UPDATE SET
			content          = EXCLUDED.content,
			updated_at       = EXCLUDED.updated_at,
			server_timestamp = GREATEST(now(), reflection.server_timestamp + interval '1 millisecond')
		WHERE EXCLUDED.updated_at > reflection.updated_at
		RETURNING `+reflectionColumns,
		userID, date, content, createdAt, updatedAt)

	r, scanErr := scanReflection(row)
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			existing, readErr := s.GetReflection(ctx, db, userID, date)
			if readErr != nil {
				return false, nil, readErr
			}
			return false, existing, nil
		}
		return false, nil, apperr.Wrap(apperr.Storage, "upsert reflection", scanErr)
	}
	return true, r, nil
}

func (s *Store) GetReflection(ctx context.Context, db DBTX, userID uuid.UUID, date string) (*model.Reflection, error) {
	row := db.QueryRow(ctx, `SELECT `+reflectionColumns+` FROM reflection WHERE user_id = $1 AND date = $2::date`, userID, date)
	r, err := scanReflection(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Storage, "load reflection", err)
	}
	return r, nil
}

// DeleteReflection removes a reflection unconditionally; the data model has
// no deleted_at column for reflections (unlike notes), so a reflection
// delete is always a hard delete, idempotent like a relation delete.
func (s *Store) DeleteReflection(ctx context.Context, db DBTX, userID uuid.UUID, date string) error {
	_, err := db.Exec(ctx, `DELETE FROM reflection WHERE user_id = $1 AND date = $2::date`, userID, date)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "delete reflection", err)
	}
	return nil
}

// --- Pull / range queries ------------------------------------------------------

// PageResult holds one entity type's page of rows plus whether the page cap
// was saturated (more rows exist past this page).
type PageResult[T any] struct {
	Rows      []T
	Saturated bool
}

func (s *Store) PullNotes(ctx context.Context, userID uuid.UUID, since time.Time, limit int) (PageResult[*model.Note], error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+noteColumns+` FROM note
		WHERE user_id = $1 AND server_timestamp > $2
		ORDER BY server_timestamp ASC
		LIMIT $3`, userID, since, limit+1)
	if err != nil {
		return PageResult[*model.Note]{}, apperr.Wrap(apperr.Storage, "pull notes", err)
	}
	defer rows.Close()

	var out []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return PageResult[*model.Note]{}, apperr.Wrap(apperr.Storage, "scan note", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return PageResult[*model.Note]{}, apperr.Wrap(apperr.Storage, "iterate notes", err)
	}

	saturated := len(out) > limit
	if saturated {
		out = out[:limit]
	}
	return PageResult[*model.Note]{Rows: out, Saturated: saturated}, nil
}

func (s *Store) PullRelations(ctx context.Context, userID uuid.UUID, since time.Time, limit int) (PageResult[*model.Relation], error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT r.id, r.from_note_id, r.to_note_id, r.relation_type, r.created_at, r.server_timestamp
		FROM relation r
		JOIN note n ON n.id = r.from_note_id
		WHERE n.user_id = $1 AND r.server_timestamp > $2
		ORDER BY r.server_timestamp ASC
		LIMIT $3`, userID, since, limit+1)
	if err != nil {
		return PageResult[*model.Relation]{}, apperr.Wrap(apperr.Storage, "pull relations", err)
	}
	defer rows.Close()

	var out []*model.Relation
	for rows.Next() {
		var rel model.Relation
		if err := rows.Scan(&rel.ID, &rel.FromNoteID, &rel.ToNoteID, &rel.RelationType, &rel.CreatedAt, &rel.ServerTimestamp); err != nil {
			return PageResult[*model.Relation]{}, apperr.Wrap(apperr.Storage, "scan relation", err)
		}
		out = append(out, &rel)
	}
	if err := rows.Err(); err != nil {
		return PageResult[*model.Relation]{}, apperr.Wrap(apperr.Storage, "iterate relations", err)
	}

	saturated := len(out) > limit
	if saturated {
		out = out[:limit]
	}
	return PageResult[*model.Relation]{Rows: out, Saturated: saturated}, nil
}

func (s *Store) PullReflections(ctx context.Context, userID uuid.UUID, since time.Time, limit int) (PageResult[*model.Reflection], error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+reflectionColumns+` FROM reflection
		WHERE user_id = $1 AND server_timestamp > $2
		ORDER BY server_timestamp ASC
		LIMIT $3`, userID, since, limit+1)
	if err != nil {
		return PageResult[*model.Reflection]{}, apperr.Wrap(apperr.Storage, "pull reflections", err)
	}
	defer rows.Close()

	var out []*model.Reflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return PageResult[*model.Reflection]{}, apperr.Wrap(apperr.Storage, "scan reflection", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return PageResult[*model.Reflection]{}, apperr.Wrap(apperr.Storage, "iterate reflections", err)
	}

	saturated := len(out) > limit
	if saturated {
		out = out[:limit]
	}
	return PageResult[*model.Reflection]{Rows: out, Saturated: saturated}, nil
}

// --- Vector neighbors ----------------------------------------------------------

// NeighborCandidate is one scored result of a vector nearest-neighbor query.
type NeighborCandidate struct {
	Note       *model.Note
	Similarity float64
}

// NearestNeighbors ranks userID's non-deleted, embedded notes (excluding
// excludeID) against target by pgvector cosine distance, using the
// note_embedding_hnsw_idx index (schema.sql) via the `<=>` operator instead
// of an application-side scan (SPEC_FULL.md §6 requires a vector-capable
// index; see original_source/backend/app/services/recommendation.py for the
// ground-truth query this is grounded on).
func (s *Store) NearestNeighbors(ctx context.Context, userID, excludeID uuid.UUID, target []float32, maxCandidates int) ([]NeighborCandidate, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+noteColumns+`, 1 - (embedding <=> $3) AS similarity FROM note
		WHERE user_id = $1 AND id != $2 AND deleted_at IS NULL AND embedding IS NOT NULL
		ORDER BY embedding <=> $3
		LIMIT $4`,
		userID, excludeID, pgvector.NewVector(target), maxCandidates)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "query neighbor candidates", err)
	}
	defer rows.Close()

	var candidates []NeighborCandidate
	for rows.Next() {
		n, sim, err := scanNoteWithSimilarity(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan neighbor candidate", err)
		}
		if sim < 0 {
			sim = 0
		}
		candidates = append(candidates, NeighborCandidate{Note: n, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "iterate neighbor candidates", err)
	}
	return candidates, nil
}

// scanNoteWithSimilarity scans a note row plus the trailing similarity
// column NearestNeighbors' query appends after noteColumns.
func scanNoteWithSimilarity(row pgx.Row) (*model.Note, float64, error) {
	var n model.Note
	var embedding *pgvector.Vector
	var sim float64
	if err := row.Scan(&n.ID, &n.UserID, &n.Body, &n.Importance, &n.SourceURL, &n.ImagePath,
		&embedding, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt, &n.ServerTimestamp, &sim); err != nil {
		return nil, 0, err
	}
	if embedding != nil {
		n.Embedding = embedding.Slice()
	}
	return &n, sim, nil
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors; returns 0 if either is empty or lengths mismatch. Used by
// internal/report's suggestConnections, a pairwise scan over a single
// week's already-loaded notes, too small and too ad hoc (notes already in
// Go memory for clustering) to justify a round trip per pair.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ListNotesInRange returns non-deleted, embedded notes owned by userID whose
// created_at falls in [start, end), for weekly report clustering.
func (s *Store) ListNotesInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*model.Note, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+noteColumns+` FROM note
		WHERE user_id = $1 AND deleted_at IS NULL AND embedding IS NOT NULL
		  AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`, userID, start, end)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list notes in range", err)
	}
	defer rows.Close()

	var out []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan note in range", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Weekly reports --------------------------------------------------------------

func (s *Store) GetWeeklyReport(ctx context.Context, userID uuid.UUID, weekKey string) (*model.WeeklyReport, error) {
	var wr model.WeeklyReport
	wr.UserID = userID
	wr.WeekKey = weekKey
	err := s.Pool.QueryRow(ctx,
		`SELECT data, processing_time_ms, created_at FROM weekly_report WHERE user_id = $1 AND week_key = $2`,
		userID, weekKey).Scan(&wr.Data, &wr.ProcessingTimeMs, &wr.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Storage, "load weekly report", err)
	}
	return &wr, nil
}

func (s *Store) SaveWeeklyReport(ctx context.Context, wr *model.WeeklyReport) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO weekly_report (user_id, week_key, data, processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, week_key) DO UPDATE SET
			data               = EXCLUDED.data,
			processing_time_ms = EXCLUDED.processing_time_ms,
			created_at         = now()`,
		wr.UserID, wr.WeekKey, wr.Data, wr.ProcessingTimeMs)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "save weekly report", err)
	}
	return nil
}
