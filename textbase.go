package textbase

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/studypal/textbase/core/ingestion"
	"github.com/studypal/textbase/core/pipeline"
	"github.com/studypal/textbase/core/retrieval"
	"github.com/studypal/textbase/database"
	"github.com/studypal/textbase/helper"
	"github.com/studypal/textbase/model"
	loadSql "github.com/studypal/textbase/sql"
)

// Textbase provides a unified interface to ingestion and hybrid retrieval
type Textbase struct {
	DB        *helper.Database
	Documents database.DocumentsDBHandlerFunctions
	Chunks    database.ChunksDBHandlerFunctions
	Engine    *retrieval.Engine
	// Ingestion wiring
	chunker pipeline.ChunkFunc
	embed   pipeline.EmbedFunc
	extract pipeline.ExtractFunc
	config  model.IngestConfig
	// Logging
	log *slog.Logger
}

// New creates a new Textbase instance with all handlers initialized.
// An embedder must be set with SetEmbedder or UseLocalEmbedder before
// ingesting or querying.
func New(config *helper.DatabaseConfiguration, embeddingDim int) (*Textbase, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("textbase", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	ingestConfig := model.DefaultIngestConfig()

	return &Textbase{
		DB:        db,
		Documents: documents,
		Chunks:    chunks,
		chunker:   pipeline.StructuredChunker(ingestConfig.TargetChars, ingestConfig.OverlapChars),
		config:    ingestConfig,
		log:       logger,
	}, nil
}

// Close closes the database connection
func (t *Textbase) Close() error {
	if t.DB != nil && t.DB.Instance != nil {
		return t.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder sets the embedder used for ingestion and querying and wires
// up the retrieval engine with it.
func (t *Textbase) SetEmbedder(embed pipeline.EmbedFunc) error {
	if embed == nil {
		return helper.NewError("set embedder", fmt.Errorf("embedder is nil"))
	}

	engine, err := retrieval.NewEngine(t.Chunks, embed, t.log)
	if err != nil {
		return helper.NewError("create retrieval engine", err)
	}

	t.embed = embed
	t.Engine = engine
	return nil
}

// UseLocalEmbedder sets up the bundled local embedder with the
// all-MiniLM-L6-v2 model (384 dimensions).
func (t *Textbase) UseLocalEmbedder() error {
	embed, err := pipeline.LocalEmbedder()
	if err != nil {
		return helper.NewError("create local embedder", err)
	}
	return t.SetEmbedder(embed)
}

// SetChunker replaces the default structure-aware chunker.
func (t *Textbase) SetChunker(chunker pipeline.ChunkFunc) {
	if chunker != nil {
		t.chunker = chunker
	}
}

// SetExtractor sets the extractor used by IngestFile to turn a source
// reference into page blocks.
func (t *Textbase) SetExtractor(extract pipeline.ExtractFunc) {
	t.extract = extract
}

// SetIngestConfig replaces the ingestion tuning parameters and rebuilds the
// default chunker with the new chunk sizes.
func (t *Textbase) SetIngestConfig(config model.IngestConfig) {
	t.config = config
	t.chunker = pipeline.StructuredChunker(config.TargetChars, config.OverlapChars)
}

// IngestDocument stores the document metadata and processes its page blocks
// into deduplicated, embedded chunks. The returned report accounts for every
// chunk the chunker produced; per-chunk failures never fail the call.
func (t *Textbase) IngestDocument(ctx context.Context, doc *model.Document, pages []model.PageBlock) (*model.IngestReport, error) {
	if t.embed == nil {
		return nil, helper.NewError("ingest document", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	if doc == nil {
		return nil, helper.NewError("ingest document", fmt.Errorf("document is nil"))
	}

	if err := t.Documents.InsertDocument(ctx, doc); err != nil {
		return nil, helper.NewError("insert document", err)
	}

	t.log.Info("Inserted document", slog.String("document_rid", doc.RID.String()), slog.String("title", doc.Title))

	ingestor, err := ingestion.NewIngestor(t.Chunks, t.chunker, t.embed, t.config, t.log)
	if err != nil {
		return nil, helper.NewError("create ingestor", err)
	}

	return ingestor.Ingest(ctx, doc, pages)
}

// IngestFile extracts page blocks from a source reference and ingests them.
// An extraction error is a document-level failure: nothing is stored.
func (t *Textbase) IngestFile(ctx context.Context, doc *model.Document, source string) (*model.IngestReport, error) {
	if t.extract == nil {
		return nil, helper.NewError("ingest file", fmt.Errorf("extractor not set, use SetExtractor() first"))
	}

	pages, err := t.extract(ctx, source)
	if err != nil {
		return nil, helper.NewError("extract pages", err)
	}

	if doc != nil && doc.Source == "" {
		doc.Source = source
	}

	return t.IngestDocument(ctx, doc, pages)
}

// Query performs hybrid retrieval for a natural-language question and
// attaches document sources to the citations.
func (t *Textbase) Query(ctx context.Context, query string, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	if t.Engine == nil {
		return nil, helper.NewError("query", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}

	results, err := t.Engine.Retrieve(ctx, query, config)
	if err != nil {
		return nil, err
	}

	// Resolve each referenced document once for the citation sources.
	sources := map[string]string{}
	for _, result := range results {
		rid := result.Chunk.DocumentRID
		source, ok := sources[rid.String()]
		if !ok {
			doc, err := t.Documents.SelectDocument(ctx, rid)
			if err == nil && doc != nil {
				source = doc.Source
			}
			sources[rid.String()] = source
		}
		result.Citation.Source = source
	}

	return results, nil
}

// DeleteDocument removes a document and all of its chunks.
func (t *Textbase) DeleteDocument(ctx context.Context, rid uuid.UUID) error {
	if rid == uuid.Nil {
		return helper.NewError("delete document", fmt.Errorf("document rid is required"))
	}
	return t.Documents.DeleteDocument(ctx, rid)
}
