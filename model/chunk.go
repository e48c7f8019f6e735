package model

import (
	"time"

	"github.com/google/uuid"
)

// PageBlock is one page of extracted text. It only exists during a single
// ingestion run and is never persisted.
type PageBlock struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Chunk represents one retrievable unit of textbook text.
// A chunk is immutable once stored; corrections retire the old chunk and
// insert a new one with a new fingerprint.
type Chunk struct {
	ID          int64     `json:"id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	Subject     string    `json:"subject"`
	Grade       string    `json:"grade"`
	Unit        string    `json:"unit,omitempty"`
	Lesson      string    `json:"lesson,omitempty"`
	PageStart   int       `json:"page_start"`
	PageEnd     int       `json:"page_end"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Results
	LexicalScore float64 `json:"lexical_score,omitempty"`
	VectorScore  float64 `json:"vector_score,omitempty"`
}
