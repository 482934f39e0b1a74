// ABOUTME: Shared setup for commands: .env loading, configuration and logging
// ABOUTME: Global --verbose and --quiet flags override LOG_LEVEL
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/clients"
	"github.com/harper/folio/internal/config"
	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/logging"
)

// loadRuntime reads .env (if present) and the environment, then builds a logger
func loadRuntime() (*config.Config, *zap.Logger, error) {
	// a missing .env is normal in production
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.Must(logLevel(cfg.LogLevel), cfg.LogFormat)
	return cfg, logger, nil
}

func logLevel(configured string) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "warn"
	}
	return configured
}

// newChatService wires sessions, the lazily-connected pipeline and observer
func newChatService(cfg *config.Config, logger *zap.Logger, holder *clients.Holder, observer core.Observer) *core.ChatService {
	sessions := core.NewSessionStore(cfg.SessionTTL)
	return core.NewChatService(sessions, holder.Pipeline(observer), logger, observer)
}
