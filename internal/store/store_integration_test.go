package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synapse-sync/core/internal/db"
)

// getTestPool connects to TEST_DATABASE_URL, or skips when unset - matching
// the teacher's integration test idiom (internal/httpapi/sync_notes_test.go).
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	pool, err := db.Open(context.Background(), url, 5, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, ctx context.Context, st *Store) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := st.Pool.Exec(ctx,
		`INSERT INTO app_user (id, email, password_hash, is_active) VALUES ($1, $2, 'x', true)`,
		id, id.String()+"@example.test")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestUpsertNoteLWWRejectsStaleWrite(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	st := New(pool)
	ctx := context.Background()

	userID := seedUser(t, ctx, st)
	noteID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	applied, _, err := st.UpsertNoteLWW(ctx, pool, userID, noteID, "first", 3, nil, nil, nil, now, now, nil)
	if err != nil || !applied {
		t.Fatalf("expected first insert to apply, got applied=%v err=%v", applied, err)
	}

	stale := now.Add(-time.Hour)
	applied, stored, err := st.UpsertNoteLWW(ctx, pool, userID, noteID, "stale update", 3, nil, nil, nil, now, stale, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected stale write to be rejected")
	}
	if stored.Body != "first" {
		t.Fatalf("expected stored body unchanged, got %q", stored.Body)
	}

	newer := now.Add(time.Hour)
	applied, stored, err = st.UpsertNoteLWW(ctx, pool, userID, noteID, "newer update", 4, nil, nil, nil, now, newer, nil)
	if err != nil || !applied {
		t.Fatalf("expected newer write to apply, got applied=%v err=%v", applied, err)
	}
	if stored.Body != "newer update" {
		t.Fatalf("expected updated body, got %q", stored.Body)
	}
}

func TestSoftDeleteNoteLWWWinsOverStaleUpdate(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	st := New(pool)
	ctx := context.Background()

	userID := seedUser(t, ctx, st)
	noteID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, _, err := st.UpsertNoteLWW(ctx, pool, userID, noteID, "body", 3, nil, nil, nil, now, now, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	laterDelete := now.Add(time.Minute)
	applied, stored, err := st.SoftDeleteNoteLWW(ctx, pool, userID, noteID, laterDelete)
	if err != nil || !applied {
		t.Fatalf("expected delete to apply, got applied=%v err=%v", applied, err)
	}
	if !stored.IsDeleted() {
		t.Fatal("expected note to be marked deleted")
	}
}

// vec1024 pads a short component list out to the note.embedding column's
// fixed width (schema.sql: vector(1024)) so tests can write readable
// two/three-component vectors without tripping pgvector's dimension check.
func vec1024(components ...float32) []float32 {
	v := make([]float32, 1024)
	copy(v, components)
	return v
}

func TestNearestNeighborsExcludesSelfAndOrdersDescending(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	st := New(pool)
	ctx := context.Background()

	userID := seedUser(t, ctx, st)
	now := time.Now().UTC().Truncate(time.Millisecond)

	target := uuid.New()
	if _, _, err := st.UpsertNoteLWW(ctx, pool, userID, target, "target", 3, nil, nil, vec1024(1, 0, 0), now, now, nil); err != nil {
		t.Fatalf("insert target: %v", err)
	}
	close_ := uuid.New()
	if _, _, err := st.UpsertNoteLWW(ctx, pool, userID, close_, "close", 3, nil, nil, vec1024(0.9, 0.1, 0), now, now, nil); err != nil {
		t.Fatalf("insert close: %v", err)
	}
	far := uuid.New()
	if _, _, err := st.UpsertNoteLWW(ctx, pool, userID, far, "far", 3, nil, nil, vec1024(0, 1, 0), now, now, nil); err != nil {
		t.Fatalf("insert far: %v", err)
	}

	neighbors, err := st.NearestNeighbors(ctx, userID, target, vec1024(1, 0, 0), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors (self excluded), got %d", len(neighbors))
	}
	if neighbors[0].Note.ID != close_ {
		t.Fatalf("expected closest neighbor first, got %v", neighbors[0].Note.ID)
	}
}
