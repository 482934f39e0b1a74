// ABOUTME: Vector search result models for the chunk index
// ABOUTME: Defines VectorSearchResult returned by similarity search
package models

// VectorSearchResult represents a search hit with its cosine similarity
type VectorSearchResult struct {
	ChunkID         string  `json:"chunk_id"`
	Source          string  `json:"source"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
}
