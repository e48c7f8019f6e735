package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a source textbook artifact.
// Content and page blocks are only carried during ingestion; once ingestion
// completes the document row is immutable.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Subject   string    `json:"subject"`
	Grade     string    `json:"grade"`
	Format    string    `json:"format,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
