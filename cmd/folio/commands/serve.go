// ABOUTME: Serve command runs the HTTP chat API
// ABOUTME: Exposes /api/chat, /api/health and /metrics until interrupted
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/clients"
	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/httpapi"
	"github.com/harper/folio/internal/metrics"
)

var (
	serveAddr   string
	serveIngest bool
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API",
		Long: `Run the HTTP chat API.

Endpoints:
  POST /api/chat     {"session_id": "...", "message": "..."} -> {"reply": "..."}
  GET  /api/health   {"status": "ok"}
  GET  /metrics      Prometheus metrics

Conversation history is kept in memory per session and expires
after SESSION_TTL_MINUTES of inactivity.

Examples:
  folio serve
  folio serve --addr 127.0.0.1:9000
  folio serve --ingest`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to LISTEN_ADDR)")
	cmd.Flags().BoolVar(&serveIngest, "ingest", false, "Ingest DOCS_DIR before serving")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}
	if cfg.ChatAPIKey() == "" || cfg.EmbeddingAPIKey() == "" {
		logger.Warn("model credentials missing; chat will answer with a configuration notice")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	holder := clients.NewHolder(cfg, logger)
	defer func() {
		if err := holder.Close(); err != nil {
			logger.Warn("closing index", zap.Error(err))
		}
	}()

	if serveIngest {
		stats, err := core.NewIngestor(holder.ChunkIndex(), logger).WithObserver(m).Run(ctx, cfg.DocsDir)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", cfg.DocsDir, err)
		}
		printIngestReport(cmd.ErrOrStderr(), cfg.DocsDir, stats)
	}

	chat := newChatService(cfg, logger, holder, m)
	metrics.RegisterSessionGauge(reg, chat.Sessions().Len)

	server := httpapi.New(ctx, httpapi.Options{
		Addr:        cfg.ListenAddr,
		Chat:        chat,
		Logger:      logger,
		Observer:    m,
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOriginsList(),
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		TrustProxy:  cfg.TrustProxy,
	})

	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "folio listening on %s\n", cfg.ListenAddr)
	}
	return server.Run(ctx)
}
