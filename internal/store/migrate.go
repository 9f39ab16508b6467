package store

import (
	"context"
	_ "embed"

	"github.com/synapse-sync/core/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema, idempotently. Grounded on the teacher's
// internal/db.Open startup check, generalized into an explicit migration
// step. app.OpenStore runs it every time a store is opened (server start,
// synapsectl serve/migrate/report).
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schemaSQL); err != nil {
		return apperr.Wrap(apperr.Storage, "apply schema", err)
	}
	return nil
}
