package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synapse-sync/core/internal/auth"
	"github.com/synapse-sync/core/internal/db"
	"github.com/synapse-sync/core/internal/derive"
	"github.com/synapse-sync/core/internal/embedding"
	"github.com/synapse-sync/core/internal/keyword"
	"github.com/synapse-sync/core/internal/recommend"
	"github.com/synapse-sync/core/internal/report"
	"github.com/synapse-sync/core/internal/store"
	"github.com/synapse-sync/core/internal/syncengine"
)

func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}
	pool, err := db.Open(context.Background(), dbURL, 5, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	for _, table := range []string{"note_keyword", "relation", "reflection", "note", "app_user"} {
		if _, err := pool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clean %s: %v", table, err)
		}
	}
	return pool
}

func newTestServer(t *testing.T, pool *pgxpool.Pool) (*Server, http.Handler) {
	t.Helper()
	st := store.New(pool)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Dim must match note.embedding's fixed pgvector width (schema.sql: vector(1024)).
	pipeline := derive.New(embedding.NewHashProvider(1024, 4000), keyword.NewTFIDFExtractor(), 5)
	srv := &Server{
		Store:             st,
		RateLimitConfig:   RateLimitInfo{WindowSeconds: 60, MaxRequests: 10000, Burst: 1000},
		JWTCfg:            auth.JWTCfg{HS256Secret: "test-secret", DevMode: true},
		SyncEngine:        syncengine.New(st, pipeline, 100, 500),
		RecommendEngine:   recommend.New(st),
		ReportEngine:      report.New(st, report.NewCache(nil)),
		SyncBatchMaxBytes: 1048576,
	}
	return srv, srv.Routes()
}

func seedTestUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO app_user (id, email, password_hash, is_active) VALUES ($1, $2, 'x', true)`,
		id, id.String()+"@example.com")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func doRequest(t *testing.T, router http.Handler, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Debug-Sub", userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPushThenPullRoundTripOverHTTP(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	_, router := newTestServer(t, pool)
	userID := seedTestUser(t, pool)

	noteID := uuid.New()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	pushBody := map[string]any{
		"device_id": "device-1",
		"changes": []map[string]any{
			{
				"entity_type": "note",
				"entity_id":   noteID.String(),
				"operation":   "insert",
				"payload": map[string]any{
					"body":       "first note body",
					"importance": 3,
					"created_at": now,
					"updated_at": now,
				},
			},
		},
	}

	rec := doRequest(t, router, http.MethodPost, "/sync/push", userID, pushBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("push status = %d, body = %s", rec.Code, rec.Body.String())
	}

	pullBody := map[string]any{"device_id": "device-2", "checkpoint": nil}
	rec = doRequest(t, router, http.MethodPost, "/sync/pull", userID, pullBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("pull status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp pullResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode pull response: %v", err)
	}
	if resp.TotalChanges != 1 {
		t.Fatalf("expected 1 total change, got %d: %s", resp.TotalChanges, rec.Body.String())
	}
}

func TestPullIsolatesUsers(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	_, router := newTestServer(t, pool)
	userA := seedTestUser(t, pool)
	userB := seedTestUser(t, pool)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := 0; i < 2; i++ {
		body := map[string]any{
			"device_id": "device-a",
			"changes": []map[string]any{
				{
					"entity_type": "note",
					"entity_id":   uuid.New().String(),
					"operation":   "insert",
					"payload": map[string]any{
						"body": fmt.Sprintf("note %d", i), "importance": 1,
						"created_at": now, "updated_at": now,
					},
				},
			},
		}
		if rec := doRequest(t, router, http.MethodPost, "/sync/push", userA, body); rec.Code != http.StatusOK {
			t.Fatalf("seed push for A failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, router, http.MethodPost, "/sync/pull", userB, map[string]any{"device_id": "d", "checkpoint": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("pull status = %d", rec.Code)
	}
	var resp pullResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalChanges != 0 {
		t.Fatalf("expected user B to see no notes from user A, got %d", resp.TotalChanges)
	}
}

func TestPushRejectsUnauthenticatedRequest(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()
	_, router := newTestServer(t, pool)

	req := httptest.NewRequest(http.MethodPost, "/sync/push", bytes.NewBufferString(`{"device_id":"d","changes":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token or debug sub, got %d", rec.Code)
	}
}
