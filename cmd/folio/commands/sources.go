// ABOUTME: Sources command lists documents currently held in the index
// ABOUTME: Renders as a table, JSON or YAML depending on --format
package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/folio/internal/clients"
	"github.com/harper/folio/internal/models"
)

// NewSourcesCmd creates the sources command
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List indexed documents",
		Long: `List every document source in the index with its chunk count
and content fingerprint.

A source with more than one fingerprint was only partly re-indexed
and will be replaced on the next ingest.

Examples:
  folio sources
  folio sources --format json
  folio sources --format yaml`,
		Args: cobra.NoArgs,
		RunE: runSources,
	}

	return cmd
}

func runSources(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(outputFormat)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	holder := clients.NewHolder(cfg, logger)
	defer func() { _ = holder.Close() }()

	sources, err := holder.Sources(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	return renderSources(cmd.OutOrStdout(), format, sources)
}

// renderSources writes sources in the resolved format
func renderSources(w io.Writer, format string, sources []models.SourceSummary) error {
	if format != "table" {
		if sources == nil {
			sources = []models.SourceSummary{}
		}
		return writeStructured(w, format, sources)
	}

	if len(sources) == 0 {
		if !quiet {
			fmt.Fprintln(w, "No indexed documents. Run \"folio ingest\" first.")
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SOURCE\tCHUNKS\tFINGERPRINT\n")
	fmt.Fprintf(tw, "------\t------\t-----------\n")
	total := 0
	for _, s := range sources {
		fps := make([]string, len(s.Fingerprints))
		for i, fp := range s.Fingerprints {
			fps[i] = shortHash(fp)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", truncate(s.Source, 48), s.Chunks, strings.Join(fps, ","))
		total += s.Chunks
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(w, "\nTotal: %d source(s), %d chunk(s)\n", len(sources), total)
	}
	return nil
}
