package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/studypal/textbase/core/pipeline"
	"github.com/studypal/textbase/helper"
	"github.com/studypal/textbase/model"
	"golang.org/x/sync/errgroup"
)

// ChunkStore is the slice of the knowledge store the ingestor needs.
type ChunkStore interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) (bool, error)
	SelectChunkByFingerprint(ctx context.Context, fingerprint string) (*model.Chunk, error)
}

// Ingestor drives one document through chunking, deduplication, embedding
// and storage. It owns no persistent state; everything it learns about a run
// is surfaced through the returned IngestReport.
type Ingestor struct {
	store   ChunkStore
	chunker pipeline.ChunkFunc
	embed   pipeline.EmbedFunc
	config  model.IngestConfig
	log     *slog.Logger
}

// NewIngestor creates a new ingestor. When config.EmbedRPS is set the
// embedder is wrapped with a rate limiter shared by all workers.
func NewIngestor(store ChunkStore, chunker pipeline.ChunkFunc, embed pipeline.EmbedFunc, config model.IngestConfig, logger *slog.Logger) (*Ingestor, error) {
	if store == nil {
		return nil, helper.NewError("ingestor validation", fmt.Errorf("chunk store is nil"))
	}
	if chunker == nil {
		return nil, helper.NewError("ingestor validation", fmt.Errorf("chunker is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("ingestor validation", fmt.Errorf("embedder is nil"))
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = model.DefaultIngestConfig().MaxWorkers
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = model.DefaultIngestConfig().MaxAttempts
	}
	if config.EmbedRPS > 0 {
		embed = pipeline.RateLimitedEmbedder(embed, config.EmbedRPS, config.MaxWorkers)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		store:   store,
		chunker: chunker,
		embed:   embed,
		config:  config,
		log:     logger,
	}, nil
}

// Ingest processes one document's page blocks and returns the aggregate
// outcome counts. Partial failures never abort the run: a chunk that cannot
// be embedded or stored after retries is counted as failed and the remaining
// chunks proceed. Cancellation stops dispatching; chunks already stored stay
// counted as inserted, the rest as failed.
func (i *Ingestor) Ingest(ctx context.Context, doc *model.Document, pages []model.PageBlock) (*model.IngestReport, error) {
	if doc == nil || doc.RID == uuid.Nil {
		return nil, helper.NewError("ingest validation", fmt.Errorf("document with a persisted RID is required"))
	}

	chunks, unprocessed := i.chunker(pages)

	report := &model.IngestReport{
		SkippedEmpty:     len(unprocessed),
		UnprocessedPages: unprocessed,
	}
	if len(chunks) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.config.MaxWorkers)

	for idx := range chunks {
		chunk := &chunks[idx]
		chunk.DocumentRID = doc.RID
		chunk.Subject = doc.Subject
		chunk.Grade = doc.Grade
		chunk.Fingerprint = pipeline.Fingerprint(chunk.Content)

		g.Go(func() error {
			outcome := i.processChunk(gctx, chunk)

			mu.Lock()
			switch outcome {
			case model.OutcomeInserted:
				report.Inserted++
			case model.OutcomeDuplicate:
				report.Duplicate++
			case model.OutcomeFailed:
				report.Failed++
			}
			mu.Unlock()

			// Worker errors are accounted, never propagated: one failed
			// chunk must not cancel its siblings.
			return nil
		})
	}

	_ = g.Wait()

	i.log.Info("Ingestion run finished",
		slog.String("document_rid", doc.RID.String()),
		slog.Int("inserted", report.Inserted),
		slog.Int("duplicate", report.Duplicate),
		slog.Int("failed", report.Failed),
		slog.Int("skipped_empty", report.SkippedEmpty),
	)

	return report, nil
}

// processChunk runs the dedup check, embedding and insert for one chunk.
func (i *Ingestor) processChunk(ctx context.Context, chunk *model.Chunk) model.ChunkOutcome {
	if ctx.Err() != nil {
		return model.OutcomeFailed
	}

	// Cheap pre-check saves the embedding call for known content. The
	// insert below stays the authoritative guard against concurrent writers.
	existing, err := i.store.SelectChunkByFingerprint(ctx, chunk.Fingerprint)
	if err == nil && existing != nil {
		return model.OutcomeDuplicate
	}

	err = i.withRetry(ctx, func() error {
		embedding, err := i.embed(ctx, chunk.Content)
		if err != nil {
			return err
		}
		chunk.Embedding = embedding
		return nil
	})
	if err != nil {
		i.log.Warn("Embedding failed after retries",
			slog.Int("chunk_index", chunk.ChunkIndex),
			slog.String("error", err.Error()),
		)
		return model.OutcomeFailed
	}

	var inserted bool
	err = i.withRetry(ctx, func() error {
		var err error
		inserted, err = i.store.InsertChunk(ctx, chunk)
		return err
	})
	if err != nil {
		i.log.Warn("Chunk insert failed after retries",
			slog.Int("chunk_index", chunk.ChunkIndex),
			slog.String("error", err.Error()),
		)
		return model.OutcomeFailed
	}

	if !inserted {
		return model.OutcomeDuplicate
	}
	return model.OutcomeInserted
}

// withRetry runs op with bounded exponential backoff up to the configured
// attempt ceiling. Cancellation cuts the retries short.
func (i *Ingestor) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0

	retries := uint64(i.config.MaxAttempts - 1)
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
}
