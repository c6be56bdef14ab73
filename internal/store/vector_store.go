// Package store is the access pattern this service relies on for the
// hosted vector-capable datastore: insert chunk rows, cosine
// similarity search, and generation bookkeeping. The similarity
// machinery itself lives in the database's vector extension.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"notesage/internal/apperr"
	"notesage/internal/model"
)

type Config struct {
	TableName string
	VectorDim int
}

// VectorStore persists document chunks tagged with an owner and a
// batch (generation) id. Searches only ever see the owner's current
// generation, so a half-written batch is invisible until the pointer
// swap and two uploads never mix in answers.
type VectorStore struct {
	config Config
	pool   *pgxpool.Pool
}

func New(pool *pgxpool.Pool, config Config) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}

	vs := &VectorStore{config: config, pool: pool}
	if err := vs.initialize(context.Background()); err != nil {
		return nil, err
	}
	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension failed: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			batch_id UUID NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table failed: %w", err)
	}

	createGenerations := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s_generations (
			owner_id TEXT PRIMARY KEY,
			batch_id UUID NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createGenerations); err != nil {
		return fmt.Errorf("create generations table failed: %w", err)
	}

	createBatchIdx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_owner_batch_idx
		ON %s (owner_id, batch_id)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createBatchIdx); err != nil {
		return fmt.Errorf("create owner/batch index failed: %w", err)
	}

	createVectorIdx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createVectorIdx); err != nil {
		return fmt.Errorf("create vector index failed: %w", err)
	}

	return nil
}

// Add inserts one chunk and returns its id. A vector whose length does
// not match the configured dimension is rejected before touching the
// database.
func (vs *VectorStore) Add(ctx context.Context, chunk model.Chunk) (int64, error) {
	if len(chunk.Embedding) != vs.config.VectorDim {
		return 0, apperr.New(
			apperr.KindStore,
			fmt.Sprintf("embedding has %d dimensions, store expects %d", len(chunk.Embedding), vs.config.VectorDim),
		)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (owner_id, batch_id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, vs.config.TableName)

	var id int64
	err := vs.pool.QueryRow(ctx, stmt,
		chunk.OwnerID,
		chunk.BatchID,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "insert chunk failed", err)
	}
	return id, nil
}

// Search returns up to k chunks from the owner's current generation,
// ordered by descending cosine similarity and filtered by threshold.
// An owner with no live generation gets an empty result, not an error.
func (vs *VectorStore) Search(ctx context.Context, ownerID string, queryEmbedding []float32, k int, threshold float32) ([]model.ScoredChunk, error) {
	if len(queryEmbedding) != vs.config.VectorDim {
		return nil, apperr.New(
			apperr.KindStore,
			fmt.Sprintf("query embedding has %d dimensions, store expects %d", len(queryEmbedding), vs.config.VectorDim),
		)
	}

	query := fmt.Sprintf(`
		SELECT d.content, d.metadata, 1 - (d.embedding <=> $2) AS similarity
		FROM %s d
		JOIN %s_generations g
		  ON g.owner_id = d.owner_id AND g.batch_id = d.batch_id
		WHERE d.owner_id = $1
		  AND 1 - (d.embedding <=> $2) >= $3
		ORDER BY d.embedding <=> $2
		LIMIT $4`,
		vs.config.TableName, vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, ownerID, pgvector.NewVector(queryEmbedding), threshold, k)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "similarity search failed", err)
	}
	defer rows.Close()

	var results []model.ScoredChunk
	for rows.Next() {
		var sc model.ScoredChunk
		if err := rows.Scan(&sc.Content, &sc.Metadata, &sc.Similarity); err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "scan search row failed", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "read search rows failed", err)
	}
	return results, nil
}

// SwapCurrent makes batchID the owner's live generation and returns
// the previous one, if any. The swap is a single upsert, so readers
// see either the old generation or the new one, never a mix.
func (vs *VectorStore) SwapCurrent(ctx context.Context, ownerID string, batchID uuid.UUID) (uuid.UUID, bool, error) {
	var previous uuid.UUID
	hadPrevious := true

	stmt := fmt.Sprintf(`
		SELECT batch_id FROM %s_generations WHERE owner_id = $1`,
		vs.config.TableName)
	err := vs.pool.QueryRow(ctx, stmt, ownerID).Scan(&previous)
	if err == pgx.ErrNoRows {
		hadPrevious = false
	} else if err != nil {
		return uuid.Nil, false, apperr.Wrap(apperr.KindStore, "read current generation failed", err)
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s_generations (owner_id, batch_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			updated_at = NOW()`,
		vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, upsert, ownerID, batchID); err != nil {
		return uuid.Nil, false, apperr.Wrap(apperr.KindStore, "swap current generation failed", err)
	}

	if hadPrevious && previous == batchID {
		hadPrevious = false
	}
	return previous, hadPrevious, nil
}

// DeleteBatch removes every chunk of one retired generation. Used by
// the background sweeper.
func (vs *VectorStore) DeleteBatch(ctx context.Context, ownerID string, batchID uuid.UUID) (int64, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND batch_id = $2`, vs.config.TableName)
	tag, err := vs.pool.Exec(ctx, stmt, ownerID, batchID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "delete batch failed", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll force-clears every chunk the owner has, current generation
// included, and drops the generation pointer.
func (vs *VectorStore) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1`, vs.config.TableName)
	tag, err := vs.pool.Exec(ctx, stmt, ownerID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "delete all failed", err)
	}

	dropGen := fmt.Sprintf(`DELETE FROM %s_generations WHERE owner_id = $1`, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, dropGen, ownerID); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "drop generation pointer failed", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of chunk rows the owner has across all
// generations.
func (vs *VectorStore) Count(ctx context.Context, ownerID string) (int64, error) {
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_id = $1`, vs.config.TableName)
	var count int64
	if err := vs.pool.QueryRow(ctx, stmt, ownerID).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "count chunks failed", err)
	}
	return count, nil
}
