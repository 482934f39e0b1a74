// ABOUTME: Ingestor reconciles the vector index with a directory of text documents
// ABOUTME: Uses content fingerprints so unchanged documents are never re-embedded
package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harper/folio/internal/logging"
	"github.com/harper/folio/internal/models"
)

// eligibleExtensions are the document types read from the document root
var eligibleExtensions = map[string]bool{".txt": true, ".md": true}

// IsDocumentPath reports whether path names an eligible document.
// Hidden files count; only the extension decides.
func IsDocumentPath(path string) bool {
	return eligibleExtensions[strings.ToLower(filepath.Ext(path))]
}

// ChunkIndex is the part of the vector index ingestion needs
type ChunkIndex interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	QueryBySource(ctx context.Context, source string) (ids []string, fingerprints []string, err error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// Ingestor walks a document root and reconciles the index with it
type Ingestor struct {
	index       ChunkIndex
	chunker     *Chunker
	logger      *zap.Logger
	observer    Observer
	concurrency int
}

// NewIngestor creates an Ingestor with the default chunk size and overlap
func NewIngestor(index ChunkIndex, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		index:       index,
		chunker:     NewChunker(DefaultChunkSize, DefaultChunkOverlap),
		logger:      logging.OrNop(logger),
		observer:    nopObserver{},
		concurrency: 8,
	}
}

// WithObserver reports run totals to o
func (ing *Ingestor) WithObserver(o Observer) *Ingestor {
	ing.observer = observerOrNop(o)
	return ing
}

// LoadDocuments reads every eligible, non-blank file under root, sorted by source.
// The root is created if it does not exist.
func (ing *Ingestor) LoadDocuments(ctx context.Context, root string) ([]models.Document, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating document root: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDocumentPath(path) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// a link to a directory is not a document; a dangling link fails on read
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	// WalkDir visits in lexical order, so slots keep documents sorted
	slots := make([]*models.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if !utf8.Valid(data) {
				return fmt.Errorf("reading %s: not valid UTF-8", path)
			}
			text := string(data)
			if strings.TrimSpace(text) == "" {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			slots[i] = &models.Document{
				Source:      filepath.ToSlash(rel),
				Text:        text,
				Fingerprint: Fingerprint(text),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	return docs, nil
}

// Run performs one full reconciliation pass over root.
// Sources whose files were removed from disk are left in the index.
// Any index failure aborts the run.
func (ing *Ingestor) Run(ctx context.Context, root string) (models.IngestStats, error) {
	var stats models.IngestStats

	docs, err := ing.LoadDocuments(ctx, root)
	if err != nil {
		return stats, err
	}
	stats.Documents = len(docs)
	if len(docs) == 0 {
		ing.logger.Info("no documents found", zap.String("root", root))
		return stats, nil
	}

	bySource := make(map[string][]models.Chunk, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		chunks := ing.chunker.ChunkDocument(doc)
		if len(chunks) == 0 {
			continue
		}
		if _, seen := bySource[doc.Source]; !seen {
			order = append(order, doc.Source)
		}
		bySource[doc.Source] = append(bySource[doc.Source], chunks...)
	}

	var staged []models.Chunk
	for _, source := range order {
		chunks := bySource[source]
		current := chunks[0].Fingerprint

		ids, fingerprints, err := ing.index.QueryBySource(ctx, source)
		if err != nil {
			return stats, fmt.Errorf("querying %s: %w", source, err)
		}

		if len(ids) > 0 && onlyFingerprint(fingerprints, current) {
			stats.Skipped++
			ing.logger.Debug("source unchanged", zap.String("source", source))
			continue
		}

		if len(ids) > 0 {
			if err := ing.index.DeleteByIDs(ctx, ids); err != nil {
				return stats, fmt.Errorf("deleting stale chunks of %s: %w", source, err)
			}
			stats.Deleted += len(ids)
			ing.logger.Info("removed stale chunks", zap.String("source", source), zap.Int("chunks", len(ids)))
		}

		staged = append(staged, chunks...)
	}

	if len(staged) > 0 {
		if err := ing.index.Add(ctx, staged); err != nil {
			return stats, fmt.Errorf("adding %d chunks: %w", len(staged), err)
		}
		stats.Added = len(staged)
	}

	ing.observer.ObserveIngest(stats)
	ing.logger.Info("ingestion complete",
		zap.String("root", root),
		zap.Int("documents", stats.Documents),
		zap.Int("added", stats.Added),
		zap.Int("deleted", stats.Deleted),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// onlyFingerprint reports whether the set of fingerprints is exactly {want}
func onlyFingerprint(fingerprints []string, want string) bool {
	if len(fingerprints) == 0 {
		return false
	}
	for _, fp := range fingerprints {
		if fp != want {
			return false
		}
	}
	return true
}
