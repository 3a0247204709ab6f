package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository is the primary tier of the embedding store.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Append inserts one record.
func (r *EmbeddingRepository) Append(ctx context.Context, rec database.EmbeddingRecord) error {
	vec := pgvector.NewVector(rec.Embedding)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO face_embeddings (id, identity, embedding, dim, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.Identity.String(), vec, rec.Dim(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face embedding: %w", err)
	}
	return nil
}

// LoadAll returns every record in insertion order.
func (r *EmbeddingRepository) LoadAll(ctx context.Context) ([]database.EmbeddingRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity, embedding, created_at
		FROM face_embeddings
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query face embeddings: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the number of stored records.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	row, err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_embeddings")
	if err != nil {
		return 0, fmt.Errorf("count face embeddings: %w", err)
	}
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count face embeddings: %w", err)
	}
	return count, nil
}

func scanRecords(rows *sql.Rows) ([]database.EmbeddingRecord, error) {
	var records []database.EmbeddingRecord
	for rows.Next() {
		var rec database.EmbeddingRecord
		var identity string
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &identity, &vec, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		rec.Identity = database.Identity(identity)
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face embeddings: %w", err)
	}
	return records, nil
}
