package syncengine

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synapse-sync/core/internal/db"
	"github.com/synapse-sync/core/internal/derive"
	"github.com/synapse-sync/core/internal/embedding"
	"github.com/synapse-sync/core/internal/keyword"
	"github.com/synapse-sync/core/internal/store"
	"github.com/synapse-sync/core/internal/syncx"
)

// getTestPool connects to TEST_DATABASE_URL, or skips when unset, matching
// the teacher's integration test idiom.
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

func seedUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO app_user (id, email, password_hash, is_active) VALUES ($1, $2, 'x', true)`,
		id, id.String()+"@example.test")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func newTestEngine(pool *pgxpool.Pool) *Engine {
	st := store.New(pool)
	// Dim must match note.embedding's fixed pgvector width (schema.sql: vector(1024)).
	dv := derive.New(embedding.NewHashProvider(1024, 4096), keyword.NewTFIDFExtractor(), 5)
	return New(st, dv, 100, 300)
}

func TestPushNoteThenPullRoundTrips(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	ctx := context.Background()
	userID := seedUser(t, ctx, pool)
	e := newTestEngine(pool)

	noteID := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Millisecond)
	payload, _ := json.Marshal(map[string]any{
		"body":       "first push note",
		"importance": 3,
		"created_at": now.Format(time.RFC3339Nano),
		"updated_at": now.Format(time.RFC3339Nano),
	})

	result, err := e.Push(ctx, userID, syncx.ChangeRequest{
		DeviceID: "device-a",
		Changes: []syncx.RawChange{
			{EntityType: "note", EntityID: noteID, Operation: "insert", Payload: payload},
		},
	})
	if err != nil {
		t.Fatalf("push error: %v", err)
	}
	if result.SuccessCount != 1 || len(result.Results) != 1 || !result.Results[0].Success {
		t.Fatalf("unexpected push result: %+v", result)
	}

	pull, err := e.Pull(ctx, userID, syncx.NoCheckpoint)
	if err != nil {
		t.Fatalf("pull error: %v", err)
	}
	if len(pull.Notes) != 1 || pull.Notes[0].ID.String() != noteID {
		t.Fatalf("expected pulled note to match pushed note, got %+v", pull.Notes)
	}
	if pull.NewCheckpoint == syncx.NoCheckpoint {
		t.Fatal("expected a concrete checkpoint after pulling rows")
	}
}

func TestPushRelationRequiresOwnedEndpoints(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	ctx := context.Background()
	userID := seedUser(t, ctx, pool)
	otherUserID := seedUser(t, ctx, pool)
	e := newTestEngine(pool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	ownNote := uuid.New().String()
	foreignNote := uuid.New().String()

	notePayload := func(body string) []byte {
		p, _ := json.Marshal(map[string]any{
			"body": body, "importance": 2,
			"created_at": now.Format(time.RFC3339Nano), "updated_at": now.Format(time.RFC3339Nano),
		})
		return p
	}

	if _, err := e.Push(ctx, userID, syncx.ChangeRequest{Changes: []syncx.RawChange{
		{EntityType: "note", EntityID: ownNote, Operation: "insert", Payload: notePayload("mine")},
	}}); err != nil {
		t.Fatalf("push own note: %v", err)
	}
	if _, err := e.Push(ctx, otherUserID, syncx.ChangeRequest{Changes: []syncx.RawChange{
		{EntityType: "note", EntityID: foreignNote, Operation: "insert", Payload: notePayload("theirs")},
	}}); err != nil {
		t.Fatalf("push foreign note: %v", err)
	}

	relPayload, _ := json.Marshal(map[string]any{
		"from_note_id": ownNote, "to_note_id": foreignNote, "relation_type": "related",
		"created_at": now.Format(time.RFC3339Nano),
	})
	result, err := e.Push(ctx, userID, syncx.ChangeRequest{Changes: []syncx.RawChange{
		{EntityType: "relation", EntityID: uuid.New().String(), Operation: "insert", Payload: relPayload},
	}})
	if err != nil {
		t.Fatalf("push relation: %v", err)
	}
	if result.FailureCount != 1 || result.Results[0].Success {
		t.Fatalf("expected relation across owners to be rejected, got %+v", result)
	}
}
