package model

// Citation is the user-facing attribution for a retrieved chunk. It is always
// derived from the chunk at response time and never stored on its own.
type Citation struct {
	Subject   string `json:"subject"`
	Grade     string `json:"grade"`
	Unit      string `json:"unit,omitempty"`
	Lesson    string `json:"lesson,omitempty"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Source    string `json:"source,omitempty"`
}

// NewCitation derives the citation for a chunk.
func NewCitation(chunk *Chunk, source string) Citation {
	return Citation{
		Subject:   chunk.Subject,
		Grade:     chunk.Grade,
		Unit:      chunk.Unit,
		Lesson:    chunk.Lesson,
		PageStart: chunk.PageStart,
		PageEnd:   chunk.PageEnd,
		Source:    source,
	}
}

// RetrievalResult represents a chunk retrieved by a query
type RetrievalResult struct {
	Chunk        *Chunk   `json:"chunk"`
	Score        float64  `json:"score"`         // Fused score from ranking
	LexicalScore float64  `json:"lexical_score"` // Normalized keyword match score
	VectorScore  float64  `json:"vector_score"`  // Normalized cosine similarity score
	Rank         int      `json:"rank"`
	Citation     Citation `json:"citation"`
}

// ChunkOutcome is the per-chunk result of an ingestion run.
type ChunkOutcome string

const (
	OutcomeInserted  ChunkOutcome = "inserted"
	OutcomeDuplicate ChunkOutcome = "duplicate"
	OutcomeFailed    ChunkOutcome = "failed"
)

// IngestReport is the aggregate outcome of one ingestion run. It is the only
// state an ingestion call surfaces to its caller.
type IngestReport struct {
	Inserted         int   `json:"inserted"`
	Duplicate        int   `json:"duplicate"`
	Failed           int   `json:"failed"`
	SkippedEmpty     int   `json:"skipped_empty"`
	UnprocessedPages []int `json:"unprocessed_pages,omitempty"`
}

// Total returns the number of chunks the run accounted for.
func (r *IngestReport) Total() int {
	return r.Inserted + r.Duplicate + r.Failed
}
