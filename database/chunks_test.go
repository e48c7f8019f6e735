package database

import (
	"context"
	"testing"

	"github.com/studypal/textbase/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)
	defer database.Close()

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		// Create documents handler first to ensure documents table exists (needed for foreign key)
		_, err := NewDocumentsDBHandler(database, true)
		require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")

		chunksDbHandler, err := NewChunksDBHandler(database, 4, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
		require.NotNil(t, chunksDbHandler.db, "Expected NewChunksDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, 4, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})

	t.Run("Invalid call NewChunksDBHandler with zero dimension", func(t *testing.T) {
		_, err := NewChunksDBHandler(database, 0, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with zero embedding dimension")
		assert.Contains(t, err.Error(), "must be positive")
	})
}

func TestChunksInsert(t *testing.T) {
	documents, chunks := initHandlers(t)
	ctx := context.Background()

	doc := insertTestDocument(t, documents, "数学", "三年级")

	t.Run("Insert chunk with embedding", func(t *testing.T) {
		chunk := &model.Chunk{
			DocumentRID: doc.RID,
			Subject:     doc.Subject,
			Grade:       doc.Grade,
			Unit:        "第七单元",
			Lesson:      "长方形和正方形",
			PageStart:   80,
			PageEnd:     81,
			ChunkIndex:  0,
			Content:     "长方形的周长等于（长+宽）×2，正方形的周长等于边长×4。",
			Fingerprint: "insert-test-fingerprint-0",
			Embedding:   testEmbedding(1),
			Metadata:    model.Metadata{"quality": 1.0},
		}

		inserted, err := chunks.InsertChunk(ctx, chunk)

		require.NoError(t, err, "Expected InsertChunk to not return an error")
		assert.True(t, inserted, "Expected chunk to be inserted")
		assert.Greater(t, chunk.ID, int64(0), "Expected inserted chunk to have an ID")
		assert.Equal(t, 4, len(chunk.Embedding), "Expected embedding to round-trip")
		assert.False(t, chunk.CreatedAt.IsZero(), "Expected CreatedAt to be set")
	})

	t.Run("Insert chunk with duplicate fingerprint is rejected", func(t *testing.T) {
		chunk := &model.Chunk{
			DocumentRID: doc.RID,
			Subject:     doc.Subject,
			Grade:       doc.Grade,
			PageStart:   82,
			PageEnd:     82,
			ChunkIndex:  1,
			Content:     "different text, same fingerprint",
			Fingerprint: "insert-test-fingerprint-0",
			Embedding:   testEmbedding(2),
		}

		inserted, err := chunks.InsertChunk(ctx, chunk)

		require.NoError(t, err, "Expected duplicate insert to not return an error")
		assert.False(t, inserted, "Expected duplicate fingerprint to be rejected")

		count, err := chunks.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected exactly one chunk for the fingerprint")
	})
}

func TestChunksSelectByFingerprint(t *testing.T) {
	documents, chunks := initHandlers(t)
	ctx := context.Background()

	doc := insertTestDocument(t, documents, "数学", "三年级")

	chunk := &model.Chunk{
		DocumentRID: doc.RID,
		Subject:     doc.Subject,
		Grade:       doc.Grade,
		PageStart:   1,
		PageEnd:     1,
		ChunkIndex:  0,
		Content:     "三角形的内角和是180度。",
		Fingerprint: "fingerprint-select-test",
		Embedding:   testEmbedding(3),
	}
	inserted, err := chunks.InsertChunk(ctx, chunk)
	require.NoError(t, err)
	require.True(t, inserted)

	t.Run("Select existing fingerprint", func(t *testing.T) {
		selected, err := chunks.SelectChunkByFingerprint(ctx, "fingerprint-select-test")

		require.NoError(t, err)
		require.NotNil(t, selected, "Expected chunk for known fingerprint")
		assert.Equal(t, chunk.ID, selected.ID)
		assert.Equal(t, chunk.Content, selected.Content)
	})

	t.Run("Select unknown fingerprint returns nil", func(t *testing.T) {
		selected, err := chunks.SelectChunkByFingerprint(ctx, "no-such-fingerprint")

		require.NoError(t, err, "Expected no error for unknown fingerprint")
		assert.Nil(t, selected, "Expected nil chunk for unknown fingerprint")
	})
}

func TestChunksSelectByDocument(t *testing.T) {
	documents, chunks := initHandlers(t)
	ctx := context.Background()

	doc := insertTestDocument(t, documents, "数学", "三年级")

	// Insert out of order to verify ordering by chunk index.
	for _, idx := range []int{2, 0, 1} {
		chunk := &model.Chunk{
			DocumentRID: doc.RID,
			Subject:     doc.Subject,
			Grade:       doc.Grade,
			PageStart:   idx + 1,
			PageEnd:     idx + 1,
			ChunkIndex:  idx,
			Content:     "chunk content",
			Fingerprint: "by-document-" + string(rune('a'+idx)),
			Embedding:   testEmbedding(idx),
		}
		inserted, err := chunks.InsertChunk(ctx, chunk)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	t.Run("Chunks are ordered by chunk index", func(t *testing.T) {
		selected, err := chunks.SelectChunksByDocument(ctx, doc.RID)

		require.NoError(t, err)
		require.Equal(t, 3, len(selected))
		for i, chunk := range selected {
			assert.Equal(t, i, chunk.ChunkIndex)
		}
	})
}

func TestChunksSearchLexical(t *testing.T) {
	documents, chunks := initHandlers(t)
	ctx := context.Background()

	doc3 := insertTestDocument(t, documents, "数学", "三年级")
	doc5 := insertTestDocument(t, documents, "数学", "五年级")

	contents := []struct {
		doc     *model.Document
		content string
	}{
		{doc3, "长方形的周长等于（长+宽）×2，这是本单元的重点。"},
		{doc3, "认识时间：时针、分针和秒针。"},
		{doc5, "多边形的周长是所有边长的总和。"},
	}
	for i, c := range contents {
		chunk := &model.Chunk{
			DocumentRID: c.doc.RID,
			Subject:     c.doc.Subject,
			Grade:       c.doc.Grade,
			PageStart:   i + 1,
			PageEnd:     i + 1,
			ChunkIndex:  i,
			Content:     c.content,
			Fingerprint: "lexical-" + string(rune('a'+i)),
			Embedding:   testEmbedding(i),
		}
		inserted, err := chunks.InsertChunk(ctx, chunk)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	t.Run("Matching chunks carry a lexical score", func(t *testing.T) {
		results, err := chunks.SearchLexical(ctx, "周长", model.QueryFilter{}, 10)

		require.NoError(t, err)
		require.GreaterOrEqual(t, len(results), 2, "Expected both 周长 chunks to match")
		for _, chunk := range results {
			assert.Contains(t, chunk.Content, "周长")
			assert.Greater(t, chunk.LexicalScore, 0.0, "Expected positive lexical score")
		}
	})

	t.Run("Grade filter is a hard exclusion", func(t *testing.T) {
		results, err := chunks.SearchLexical(ctx, "周长", model.QueryFilter{Grade: "三年级"}, 10)

		require.NoError(t, err)
		require.GreaterOrEqual(t, len(results), 1)
		for _, chunk := range results {
			assert.Equal(t, "三年级", chunk.Grade, "Expected no out-of-grade chunk in results")
		}
	})

	t.Run("No match returns empty result", func(t *testing.T) {
		results, err := chunks.SearchLexical(ctx, "quantum chromodynamics", model.QueryFilter{}, 10)

		require.NoError(t, err)
		assert.Equal(t, 0, len(results))
	})
}

func TestChunksSearchVector(t *testing.T) {
	documents, chunks := initHandlers(t)
	ctx := context.Background()

	doc3 := insertTestDocument(t, documents, "数学", "三年级")
	doc5 := insertTestDocument(t, documents, "数学", "五年级")

	embeddings := []struct {
		doc       *model.Document
		embedding []float32
	}{
		{doc3, []float32{1, 0, 0, 0}},
		{doc3, []float32{0, 1, 0, 0}},
		{doc5, []float32{0.9, 0.1, 0, 0}},
	}
	for i, e := range embeddings {
		chunk := &model.Chunk{
			DocumentRID: e.doc.RID,
			Subject:     e.doc.Subject,
			Grade:       e.doc.Grade,
			PageStart:   i + 1,
			PageEnd:     i + 1,
			ChunkIndex:  i,
			Content:     "vector search content",
			Fingerprint: "vector-" + string(rune('a'+i)),
			Embedding:   e.embedding,
		}
		inserted, err := chunks.InsertChunk(ctx, chunk)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	query := []float32{1, 0, 0, 0}

	t.Run("Results are ordered by cosine similarity", func(t *testing.T) {
		results, err := chunks.SearchVector(ctx, query, model.QueryFilter{}, 10)

		require.NoError(t, err)
		require.Equal(t, 3, len(results))
		assert.Equal(t, 0, results[0].ChunkIndex, "Expected exact match first")
		assert.InDelta(t, 1.0, results[0].VectorScore, 1e-6)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i].VectorScore, results[i-1].VectorScore)
		}
	})

	t.Run("Grade filter excludes nearer out-of-grade chunk", func(t *testing.T) {
		results, err := chunks.SearchVector(ctx, query, model.QueryFilter{Grade: "三年级"}, 10)

		require.NoError(t, err)
		require.Equal(t, 2, len(results))
		for _, chunk := range results {
			assert.Equal(t, "三年级", chunk.Grade, "Expected no out-of-grade chunk regardless of similarity")
		}
	})

	t.Run("Limit is applied after ordering", func(t *testing.T) {
		results, err := chunks.SearchVector(ctx, query, model.QueryFilter{}, 1)

		require.NoError(t, err)
		require.Equal(t, 1, len(results))
		assert.Equal(t, 0, results[0].ChunkIndex)
	})
}
