// ABOUTME: Tests for SQLite database connection and schema initialization
// ABOUTME: Verifies database creation, schema, and reopen persistence
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/folio/internal/models"
)

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, ":memory:", db.Path())
}

func TestSchemaInitialization(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(context.Background(), "SELECT name FROM sqlite_master WHERE type='table' AND name='chunks'")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	assert.True(t, rows.Next(), "chunks table should exist")
}

func TestOpenDirCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "index")

	db, err := OpenDir(dir)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = os.Stat(filepath.Join(dir, IndexFile))
	assert.NoError(t, err)
}

func TestReopenKeepsChunks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := OpenDir(dir)
	require.NoError(t, err)
	store := NewChunkStore(db)
	require.NoError(t, store.Insert(ctx, []models.IndexedChunk{{
		ID:     "c1",
		Chunk:  models.Chunk{Content: "hello", Source: "a.md", Fingerprint: "fp"},
		Vector: []float64{1, 2},
	}}))
	require.NoError(t, db.Close())

	db, err = OpenDir(dir)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	got, err := NewChunkStore(db).BySource(ctx, "a.md")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Chunk.Content)
}
