package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studypal/textbase/model"
)

func scoredChunk(fingerprint string, index int, lexical float64, vector float64) *model.Chunk {
	return &model.Chunk{
		Fingerprint:  fingerprint,
		ChunkIndex:   index,
		Content:      fingerprint,
		LexicalScore: lexical,
		VectorScore:  vector,
	}
}

func TestNormalize(t *testing.T) {
	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, normalize(nil))
	})

	t.Run("Range rescaled to unit interval", func(t *testing.T) {
		normalized := normalize([]float64{0.2, 0.6, 1.0})
		assert.Equal(t, []float64{0, 0.5, 1}, normalized)
	})

	t.Run("Equal scores all map to one", func(t *testing.T) {
		normalized := normalize([]float64{0.4, 0.4, 0.4})
		assert.Equal(t, []float64{1, 1, 1}, normalized)
	})

	t.Run("Single score maps to one", func(t *testing.T) {
		assert.Equal(t, []float64{1}, normalize([]float64{0.123}))
	})
}

func TestFuse(t *testing.T) {
	t.Run("Chunk present in both lists gets combined score", func(t *testing.T) {
		lexical := []*model.Chunk{
			scoredChunk("both", 0, 0.9, 0),
			scoredChunk("lexical-only", 1, 0.3, 0),
		}
		vector := []*model.Chunk{
			scoredChunk("both", 0, 0, 0.8),
			scoredChunk("vector-only", 2, 0, 0.2),
		}

		results := fuse(lexical, vector, 0.7, 0.3)
		require.Len(t, results, 3)

		assert.Equal(t, "both", results[0].Chunk.Fingerprint)
		assert.InDelta(t, 0.7*1+0.3*1, results[0].Score, 1e-9)
		assert.Equal(t, 1.0, results[0].LexicalScore)
		assert.Equal(t, 1.0, results[0].VectorScore)
	})

	t.Run("Results sorted by fused score descending", func(t *testing.T) {
		lexical := []*model.Chunk{
			scoredChunk("low", 0, 0.1, 0),
			scoredChunk("high", 1, 0.9, 0),
		}

		results := fuse(lexical, nil, 0.7, 0.3)
		require.Len(t, results, 2)
		assert.Equal(t, "high", results[0].Chunk.Fingerprint)
		assert.Equal(t, "low", results[1].Chunk.Fingerprint)
	})

	t.Run("Equal scores break ties by chunk index", func(t *testing.T) {
		lexical := []*model.Chunk{
			scoredChunk("later", 5, 0.5, 0),
			scoredChunk("earlier", 2, 0.5, 0),
		}

		results := fuse(lexical, nil, 0.7, 0.3)
		require.Len(t, results, 2)
		assert.Equal(t, "earlier", results[0].Chunk.Fingerprint)
		assert.Equal(t, "later", results[1].Chunk.Fingerprint)
	})

	t.Run("Weights shift the ranking", func(t *testing.T) {
		lexical := []*model.Chunk{
			scoredChunk("keyword-hit", 0, 0.9, 0),
			scoredChunk("semantic-hit", 1, 0.1, 0),
		}
		vector := []*model.Chunk{
			scoredChunk("semantic-hit", 1, 0, 0.9),
			scoredChunk("keyword-hit", 0, 0, 0.1),
		}

		semanticFirst := fuse(lexical, vector, 0.7, 0.3)
		assert.Equal(t, "semantic-hit", semanticFirst[0].Chunk.Fingerprint)

		keywordFirst := fuse(lexical, vector, 0.3, 0.7)
		assert.Equal(t, "keyword-hit", keywordFirst[0].Chunk.Fingerprint)
	})

	t.Run("Citations derived from chunk metadata", func(t *testing.T) {
		chunk := scoredChunk("cited", 0, 0.5, 0)
		chunk.Subject = "数学"
		chunk.Grade = "三年级"
		chunk.Unit = "第三单元 测量"
		chunk.PageStart = 12
		chunk.PageEnd = 13

		results := fuse([]*model.Chunk{chunk}, nil, 0.7, 0.3)
		require.Len(t, results, 1)
		assert.Equal(t, "数学", results[0].Citation.Subject)
		assert.Equal(t, "三年级", results[0].Citation.Grade)
		assert.Equal(t, "第三单元 测量", results[0].Citation.Unit)
		assert.Equal(t, 12, results[0].Citation.PageStart)
		assert.Equal(t, 13, results[0].Citation.PageEnd)
	})

	t.Run("Empty input yields empty result", func(t *testing.T) {
		assert.Empty(t, fuse(nil, nil, 0.7, 0.3))
	})
}
