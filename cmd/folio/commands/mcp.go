// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents ask portfolio questions and reindex documents via stdio
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/folio/internal/clients"
	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs folio as an MCP (Model Context Protocol) server on stdio with
the tools ask_portfolio, reindex_documents and list_sources.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  folio mcp

  # Configure in an MCP client config file:
  # {
  #   "mcpServers": {
  #     "folio": {
  #       "command": "folio",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.ChatAPIKey() == "" || cfg.EmbeddingAPIKey() == "" {
		logger.Warn("model credentials missing; ask_portfolio will answer with a configuration notice")
	}

	holder := clients.NewHolder(cfg, logger)
	ingestor := core.NewIngestor(holder.ChunkIndex(), logger)

	server := mcpserver.NewMCPServer(
		"folio",
		versionInfo.Version,
		mcpserver.WithToolCapabilities(false),
	)

	mcp.RegisterTools(server, mcp.Deps{
		Chat:   newChatService(cfg, logger, holder, nil),
		Ingest: ingestor.Run,
		Sources: holder.Sources,
		DocsDir: cfg.DocsDir,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			_ = holder.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	if err := holder.Close(); err != nil {
		logger.Warn("closing index", zap.Error(err))
	}
	return nil
}
