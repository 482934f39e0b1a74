// ABOUTME: VectorIndex adapts an embedding service and the SQLite chunk store
// ABOUTME: into the add / query-by-source / delete / search contract used by ingestion and chat
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harper/folio/internal/models"
	"github.com/harper/folio/internal/storage/sqlite"
)

// Embedder turns texts into vectors, one per input, in order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// IndexError wraps any failure of the embedding service or the chunk store.
// It is never retried inside the index.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// IsIndexError reports whether err came from the vector index
func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Reads may run concurrently; writes are serialised.
type VectorIndex struct {
	db       *sqlite.DB
	chunks   *sqlite.ChunkStore
	embedder Embedder
	writeMu  sync.Mutex
	newID    func() string
}

// NewVectorIndex builds an index over an open database
func NewVectorIndex(db *sqlite.DB, embedder Embedder) *VectorIndex {
	return &VectorIndex{
		db:       db,
		chunks:   sqlite.NewChunkStore(db),
		embedder: embedder,
		newID:    func() string { return uuid.New().String() },
	}
}

// OpenVectorIndex opens (or creates) the persisted index under dir
func OpenVectorIndex(dir string, embedder Embedder) (*VectorIndex, error) {
	db, err := sqlite.OpenDir(dir)
	if err != nil {
		return nil, &IndexError{Op: "open", Err: err}
	}
	return NewVectorIndex(db, embedder), nil
}

// Close releases the underlying database
func (vi *VectorIndex) Close() error {
	return vi.db.Close()
}

// Add embeds chunks in one batched call and persists them.
// It returns only after the rows are committed.
func (vi *VectorIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := vi.embedder.Embed(ctx, texts)
	if err != nil {
		return &IndexError{Op: "embed", Err: err}
	}
	if len(vectors) != len(chunks) {
		return &IndexError{Op: "embed", Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))}
	}

	now := time.Now().UTC()
	rows := make([]models.IndexedChunk, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return &IndexError{Op: "embed", Err: fmt.Errorf("empty vector for chunk %d of %s", i, c.Source)}
		}
		rows[i] = models.IndexedChunk{
			ID:        vi.newID(),
			Chunk:     c,
			Vector:    vectors[i],
			CreatedAt: now,
		}
	}

	vi.writeMu.Lock()
	defer vi.writeMu.Unlock()

	if err := vi.chunks.Insert(ctx, rows); err != nil {
		return &IndexError{Op: "add", Err: err}
	}
	return nil
}

// QueryBySource returns ids and fingerprints of every chunk indexed for source.
// The two slices are parallel.
func (vi *VectorIndex) QueryBySource(ctx context.Context, source string) ([]string, []string, error) {
	rows, err := vi.chunks.BySource(ctx, source)
	if err != nil {
		return nil, nil, &IndexError{Op: "query", Err: err}
	}

	ids := make([]string, len(rows))
	fingerprints := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		fingerprints[i] = r.Chunk.Fingerprint
	}
	return ids, fingerprints, nil
}

// DeleteByIDs removes the given entries
func (vi *VectorIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	vi.writeMu.Lock()
	defer vi.writeMu.Unlock()

	if _, err := vi.chunks.DeleteIDs(ctx, ids); err != nil {
		return &IndexError{Op: "delete", Err: err}
	}
	return nil
}

// Search returns the content of the k chunks nearest to query, nearest first
func (vi *VectorIndex) Search(ctx context.Context, query string, k int) ([]string, error) {
	results, err := vi.SearchResults(ctx, query, k)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}
	return contents, nil
}

// SearchResults is Search with ids, sources and scores attached
func (vi *VectorIndex) SearchResults(ctx context.Context, query string, k int) ([]models.VectorSearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := vi.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &IndexError{Op: "embed", Err: err}
	}
	if len(vectors) != 1 {
		return nil, &IndexError{Op: "embed", Err: fmt.Errorf("got %d vectors for 1 query", len(vectors))}
	}

	results, err := vi.chunks.SearchSimilar(ctx, vectors[0], k)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}
	return results, nil
}

// Count returns the number of indexed chunks
func (vi *VectorIndex) Count(ctx context.Context) (int, error) {
	n, err := vi.chunks.Count(ctx)
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	return n, nil
}

// Sources lists what the index holds per source
func (vi *VectorIndex) Sources(ctx context.Context) ([]models.SourceSummary, error) {
	summaries, err := vi.chunks.Sources(ctx)
	if err != nil {
		return nil, &IndexError{Op: "sources", Err: err}
	}
	return summaries, nil
}
