package pipeline

import (
	"context"

	"github.com/studypal/textbase/model"
)

// ChunkFunc splits the page blocks of one document into ordered candidate
// chunks. It never fails: pages that cannot be segmented meaningfully produce
// no chunks and are returned as unprocessed page numbers instead.
type ChunkFunc func(pages []model.PageBlock) ([]model.Chunk, []int)

// EmbedFunc generates a fixed-dimension embedding for text. Implementations
// wrap an external provider and may block on network I/O.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// ExtractFunc converts a raw source document into an ordered sequence of
// page-tagged text blocks. The engine does not depend on the source format.
type ExtractFunc func(ctx context.Context, source string) ([]model.PageBlock, error)
