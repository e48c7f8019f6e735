package model

// IngestConfig represents configuration for an ingestion run
type IngestConfig struct {
	// Chunking parameters
	TargetChars  int `json:"target_chars"`
	OverlapChars int `json:"overlap_chars"`

	// Embedding gateway limits
	MaxWorkers  int     `json:"max_workers"`
	MaxAttempts int     `json:"max_attempts"`
	EmbedRPS    float64 `json:"embed_rps,omitempty"` // 0 = no rate limit
}

// DefaultIngestConfig returns a sensible default configuration
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		TargetChars:  600,
		OverlapChars: 100,
		MaxWorkers:   4,
		MaxAttempts:  3,
	}
}

// QueryFilter restricts retrieval to matching chunks. Empty fields match
// everything; set fields are hard exclusions, never soft penalties.
type QueryFilter struct {
	Subject string `json:"subject,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	TopK      int `json:"top_k"`
	Overfetch int `json:"overfetch"` // Candidates fetched per search = TopK * Overfetch

	// Ranking parameters. Neither weight is validated against the other; the
	// effective fused score is VectorWeight*vector + LexicalWeight*lexical
	// on min-max normalized candidate scores.
	VectorWeight  float64 `json:"vector_weight"`  // Weight for semantic similarity
	LexicalWeight float64 `json:"lexical_weight"` // Weight for keyword match

	Filter QueryFilter `json:"filter,omitempty"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		TopK:          3,
		Overfetch:     2,
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
	}
}
