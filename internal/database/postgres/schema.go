package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the face_embeddings layout created by schema.sql.
const schemaVersion = 1

// schemaLockKey serializes schema setup between processes sharing a database.
const schemaLockKey = 0x66616365

// ensureSchema creates the face_embeddings table the first time it succeeds.
// A failure is returned to the caller and the next call tries again.
func (p *Pool) ensureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	if p.schemaReady {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create face_embeddings schema: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO face_schema (version) VALUES ($1) ON CONFLICT (version) DO NOTHING", schemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version %d: %w", schemaVersion, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("Created face_embeddings schema v%d", schemaVersion)
	}
	p.schemaReady = true
	return nil
}
