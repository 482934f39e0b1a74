// ABOUTME: HTTP server exposing the chat API, health check and Prometheus metrics
// ABOUTME: Wires middleware around a method-aware ServeMux and shuts down with its context
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/logging"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

// Options configures a Server
type Options struct {
	Addr        string
	Chat        ChatHandler
	Logger      *zap.Logger
	Observer    HTTPObserver
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
	// TrustProxy keys rate limiting on the hop appended by a reverse proxy
	TrustProxy bool
}

// Server is the HTTP boundary of the chat service
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds a Server. ctx bounds background work such as the rate limiter sweeper.
func New(ctx context.Context, opts Options) *Server {
	logger := logging.OrNop(opts.Logger).With(zap.String("component", "http"))
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	limit := RateLimiter(ctx, opts.RateLimit, opts.RateBurst, opts.TrustProxy, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", limit(chatHandler(opts.Chat, logger)))
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	handler := Chain(mux,
		Recovery(logger),
		RequestLogger(logger, opts.Observer),
		CORS(opts.CORSOrigins),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains in-flight requests
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
