// ABOUTME: Chunk persistence for the SQLite-backed vector index
// ABOUTME: Stores vectors as BLOBs and performs cosine similarity search
package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/harper/folio/internal/models"
)

// ChunkStore handles indexed chunk persistence
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// Insert saves chunks in a single transaction
func (s *ChunkStore) Insert(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, fingerprint, content, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Chunk.Source, c.Chunk.Fingerprint, c.Chunk.Content, vectorToBlob(c.Vector), createdAt); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// BySource returns all chunks indexed for a source, without vectors
func (s *ChunkStore) BySource(ctx context.Context, source string) ([]models.IndexedChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, fingerprint, content, created_at
		FROM chunks
		WHERE source = ?
		ORDER BY id ASC
	`, source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chunks []models.IndexedChunk
	for rows.Next() {
		var c models.IndexedChunk
		if err := rows.Scan(&c.ID, &c.Chunk.Source, &c.Chunk.Fingerprint, &c.Chunk.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteIDs removes chunks by id and reports how many rows went away
func (s *ChunkStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	// SQLite caps bound parameters, so delete in slices
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		part := ids[start:end]

		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")

		res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// SearchSimilar performs cosine similarity search over every stored vector.
// Results are ordered by similarity descending, then by id for stable ties.
func (s *ChunkStore) SearchSimilar(ctx context.Context, queryVector []float64, maxResults int) ([]models.VectorSearchResult, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, content, vector
		FROM chunks
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []models.VectorSearchResult
	for rows.Next() {
		var (
			r    models.VectorSearchResult
			blob []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.Source, &r.Content, &blob); err != nil {
			return nil, err
		}
		r.SimilarityScore = CosineSimilarity(queryVector, blobToVector(blob))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Sources summarises chunk counts and fingerprints per source
func (s *ChunkStore) Sources(ctx context.Context) ([]models.SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, fingerprint, COUNT(*)
		FROM chunks
		GROUP BY source, fingerprint
		ORDER BY source ASC, fingerprint ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var summaries []models.SourceSummary
	for rows.Next() {
		var (
			source, fp string
			count      int
		)
		if err := rows.Scan(&source, &fp, &count); err != nil {
			return nil, err
		}
		if n := len(summaries); n > 0 && summaries[n-1].Source == source {
			summaries[n-1].Chunks += count
			summaries[n-1].Fingerprints = append(summaries[n-1].Fingerprints, fp)
			continue
		}
		summaries = append(summaries, models.SourceSummary{Source: source, Chunks: count, Fingerprints: []string{fp}})
	}
	return summaries, rows.Err()
}

// Count returns the number of indexed chunks
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
