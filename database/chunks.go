package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/studypal/textbase/helper"
	"github.com/studypal/textbase/model"
	loadSql "github.com/studypal/textbase/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) (bool, error)
	SelectChunk(ctx context.Context, id int64) (*model.Chunk, error)
	SelectChunkByFingerprint(ctx context.Context, fingerprint string) (*model.Chunk, error)
	SelectChunksByDocument(ctx context.Context, documentRID uuid.UUID) ([]*model.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)
	DeleteChunk(ctx context.Context, id int64) error
	SearchLexical(ctx context.Context, query string, filter model.QueryFilter, limit int) ([]*model.Chunk, error)
	SearchVector(ctx context.Context, embedding []float32, filter model.QueryFilter, limit int) ([]*model.Chunk, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initializing chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a chunk with its embedding in one statement, so text
// and vector become visible to searches together. Returns false if a chunk
// with the same fingerprint already exists; the unique constraint makes the
// check-then-insert atomic under concurrent ingestion.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) (bool, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		chunk.DocumentRID,
		chunk.Subject,
		chunk.Grade,
		chunk.Unit,
		chunk.Lesson,
		chunk.PageStart,
		chunk.PageEnd,
		chunk.ChunkIndex,
		chunk.Content,
		chunk.Fingerprint,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata,
	)

	err := scanChunk(row, chunk)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the conflict race or re-ingested content: not an error.
		return false, nil
	}
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return true, nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(ctx context.Context, id int64) (*model.Chunk, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	chunk := &model.Chunk{}
	err := scanChunk(row, chunk)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunkByFingerprint retrieves a chunk by its content fingerprint.
// Returns nil without error when no chunk has the fingerprint.
func (h *ChunksDBHandler) SelectChunkByFingerprint(ctx context.Context, fingerprint string) (*model.Chunk, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_chunk_by_fingerprint($1)`,
		fingerprint,
	)

	chunk := &model.Chunk{}
	err := scanChunk(row, chunk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByDocument retrieves all chunks for a document ordered by
// their position in the source.
func (h *ChunksDBHandler) SelectChunksByDocument(ctx context.Context, documentRID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanChunk(rows, chunk); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// CountChunks returns the total number of stored chunks
func (h *ChunksDBHandler) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteChunk deletes a chunk by ID
func (h *ChunksDBHandler) DeleteChunk(ctx context.Context, id int64) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_chunk($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SearchLexical returns chunks matching the query terms with their keyword
// relevance score on LexicalScore. Filter fields are hard exclusions.
func (h *ChunksDBHandler) SearchLexical(ctx context.Context, query string, filter model.QueryFilter, limit int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_chunks_lexical($1, $2, $3, $4, $5)`,
		query,
		filter.Subject,
		filter.Grade,
		filter.Unit,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanScoredChunk(rows, chunk, &chunk.LexicalScore); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// SearchVector returns the chunks whose embeddings are nearest to the query
// embedding by cosine similarity, with the similarity on VectorScore.
// Filter fields are hard exclusions.
func (h *ChunksDBHandler) SearchVector(ctx context.Context, embedding []float32, filter model.QueryFilter, limit int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_chunks_vector($1, $2, $3, $4, $5)`,
		pgvector.NewVector(embedding),
		filter.Subject,
		filter.Grade,
		filter.Unit,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanScoredChunk(rows, chunk, &chunk.VectorScore); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// scanChunk scans a full chunk row including the embedding.
func scanChunk(row rowScanner, chunk *model.Chunk) error {
	var embedding pgvector.Vector
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentRID,
		&chunk.Subject,
		&chunk.Grade,
		&chunk.Unit,
		&chunk.Lesson,
		&chunk.PageStart,
		&chunk.PageEnd,
		&chunk.ChunkIndex,
		&chunk.Content,
		&chunk.Fingerprint,
		&embedding,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return err
	}
	chunk.Embedding = embedding.Slice()
	return nil
}

// scanScoredChunk scans a search result row; search functions do not return
// the embedding column.
func scanScoredChunk(row rowScanner, chunk *model.Chunk, score *float64) error {
	return row.Scan(
		&chunk.ID,
		&chunk.DocumentRID,
		&chunk.Subject,
		&chunk.Grade,
		&chunk.Unit,
		&chunk.Lesson,
		&chunk.PageStart,
		&chunk.PageEnd,
		&chunk.ChunkIndex,
		&chunk.Content,
		&chunk.Fingerprint,
		&chunk.Metadata,
		&chunk.CreatedAt,
		score,
	)
}
