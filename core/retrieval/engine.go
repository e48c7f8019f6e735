package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studypal/textbase/core/pipeline"
	"github.com/studypal/textbase/helper"
	"github.com/studypal/textbase/model"
)

// ChunkSearcher is the slice of the knowledge store the engine needs.
type ChunkSearcher interface {
	SearchLexical(ctx context.Context, query string, filter model.QueryFilter, limit int) ([]*model.Chunk, error)
	SearchVector(ctx context.Context, embedding []float32, filter model.QueryFilter, limit int) ([]*model.Chunk, error)
}

// Engine provides hybrid retrieval over the chunk store. It runs a lexical
// and a vector search per query, normalizes both score sets and fuses them
// with configurable weights.
type Engine struct {
	chunks ChunkSearcher
	embed  pipeline.EmbedFunc
	log    *slog.Logger
}

// NewEngine creates a new retrieval engine.
func NewEngine(chunks ChunkSearcher, embed pipeline.EmbedFunc, logger *slog.Logger) (*Engine, error) {
	if chunks == nil {
		return nil, helper.NewError("engine validation", fmt.Errorf("chunk searcher is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("engine validation", fmt.Errorf("embedder is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		chunks: chunks,
		embed:  embed,
		log:    logger,
	}, nil
}

// Retrieve answers a natural-language query with the fused top results.
// Both searches overfetch beyond TopK so that normalization sees enough
// candidates before the cut. An empty candidate set yields an empty slice.
func (e *Engine) Retrieve(ctx context.Context, query string, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, helper.NewError("retrieve validation", fmt.Errorf("query is empty"))
	}
	if config == nil {
		config = model.DefaultQueryConfig()
	}
	topK := config.TopK
	if topK <= 0 {
		topK = model.DefaultQueryConfig().TopK
	}
	overfetch := config.Overfetch
	if overfetch <= 0 {
		overfetch = model.DefaultQueryConfig().Overfetch
	}
	fetchLimit := topK * overfetch

	embedding, err := e.embed(ctx, query)
	if err != nil {
		return nil, helper.NewError("query embedding", err)
	}

	lexical, err := e.chunks.SearchLexical(ctx, query, config.Filter, fetchLimit)
	if err != nil {
		return nil, helper.NewError("lexical search", err)
	}

	vector, err := e.chunks.SearchVector(ctx, embedding, config.Filter, fetchLimit)
	if err != nil {
		return nil, helper.NewError("vector search", err)
	}

	results := fuse(lexical, vector, config.VectorWeight, config.LexicalWeight)
	if len(results) > topK {
		results = results[:topK]
	}
	for rank, result := range results {
		result.Rank = rank + 1
	}

	e.log.Debug("Hybrid retrieval finished",
		slog.Int("lexical_candidates", len(lexical)),
		slog.Int("vector_candidates", len(vector)),
		slog.Int("results", len(results)),
	)

	return results, nil
}
