// ABOUTME: Ingest command reconciles the vector index with the document directory
// ABOUTME: Optionally keeps watching the directory and re-ingests on change
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/clients"
	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/models"
	"github.com/harper/folio/internal/watch"
)

var (
	ingestWatch    bool
	ingestDebounce time.Duration
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Index .txt and .md documents",
		Long: `Index every .txt and .md file under the document directory.

Documents whose content has not changed since the last run are
skipped; changed documents have their old chunks replaced. Files
removed from disk keep their chunks in the index.

The directory defaults to DOCS_DIR.

Examples:
  folio ingest
  folio ingest ./docs
  folio ingest --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep running and re-ingest when documents change")
	cmd.Flags().DurationVar(&ingestDebounce, "debounce", watch.DefaultDebounce, "Quiet period before reacting to changes")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dir := cfg.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}

	holder := clients.NewHolder(cfg, logger)
	defer func() { _ = holder.Close() }()

	ingestor := core.NewIngestor(holder.ChunkIndex(), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	once := func(ctx context.Context) error {
		stats, err := ingestor.Run(ctx, dir)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", dir, err)
		}
		printIngestReport(cmd.OutOrStdout(), dir, stats)
		return nil
	}

	if err := once(ctx); err != nil {
		return err
	}
	if !ingestWatch {
		return nil
	}

	watcher, err := watch.New(dir, ingestDebounce, logger)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl-C to stop)...\n", dir)
	}
	logger.Info("watching documents", zap.String("dir", dir))
	return watcher.Run(ctx, once)
}

// printIngestReport writes the human summary of one ingestion run
func printIngestReport(w io.Writer, dir string, stats models.IngestStats) {
	if stats.Documents == 0 {
		fmt.Fprintf(w, "No documents found in %s. Add .txt or .md files first.\n", dir)
		return
	}
	fmt.Fprintf(w, "Indexed %d new chunks.\n", stats.Added)
	if stats.Deleted > 0 {
		fmt.Fprintf(w, "Removed %d stale chunks.\n", stats.Deleted)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d unchanged files.\n", stats.Skipped)
	}
}
