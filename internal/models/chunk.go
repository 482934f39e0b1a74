// ABOUTME: Chunk represents a bounded slice of a source document for embedding
// ABOUTME: IndexedChunk is the persisted form owned by the vector index
package models

import "time"

// Chunk is a piece of a document's text carrying its provenance.
// Chunks are immutable; superseded chunks are deleted, never edited.
type Chunk struct {
	Content     string `json:"content"`
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint"`
}

// IndexedChunk is a Chunk plus its index-assigned id and embedding vector
type IndexedChunk struct {
	ID        string    `json:"id"`
	Chunk     Chunk     `json:"chunk"`
	Vector    []float64 `json:"vector,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
