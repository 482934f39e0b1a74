// ABOUTME: Centralized configuration for the portfolio chat service
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultCORSOrigins    = "http://localhost:5173,http://127.0.0.1:5173"
)

// Config holds all configuration for the service
type Config struct {
	// OpenAI-compatible endpoints. Role-specific values fall back to the shared ones.
	OpenAIKey          string
	ChatKey            string
	EmbeddingKey       string
	BaseURL            string
	ChatURL            string
	EmbeddingURL       string
	ChatModel          string
	EmbeddingModel     string
	RequestTimeout     time.Duration
	EmbeddingBatchSize int

	// Prompting
	OwnerName string

	// Sessions
	SessionTTL time.Duration

	// Storage
	IndexDir string
	DocsDir  string

	// HTTP
	ListenAddr  string
	CORSOrigins string
	RateLimit   float64
	RateBurst   int
	TrustProxy  bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dataDir := DefaultDataDir()

	cfg := &Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		ChatKey:            os.Getenv("OPENAI_CHAT_API_KEY"),
		EmbeddingKey:       os.Getenv("OPENAI_EMBEDDING_API_KEY"),
		BaseURL:            getEnv("OPENAI_BASE_URL", DefaultBaseURL),
		ChatURL:            os.Getenv("OPENAI_CHAT_BASE_URL"),
		EmbeddingURL:       os.Getenv("OPENAI_EMBEDDING_BASE_URL"),
		ChatModel:          getEnv("OPENAI_MODEL", DefaultChatModel),
		EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", DefaultEmbeddingModel),
		RequestTimeout:     getEnvDuration("OPENAI_TIMEOUT", 20*time.Second),
		EmbeddingBatchSize: getEnvInt("OPENAI_EMBEDDING_BATCH_SIZE", 64),
		OwnerName:          os.Getenv("PORTFOLIO_OWNER"),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		IndexDir:           getEnv("INDEX_DIR", getEnv("CHROMA_PERSIST_DIR", filepath.Join(dataDir, "index"))),
		DocsDir:            getEnv("DOCS_DIR", filepath.Join(dataDir, "docs")),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8000"),
		CORSOrigins:        getEnv("CORS_ORIGINS", DefaultCORSOrigins),
		RateLimit:          getEnvFloat("CHAT_RATE_LIMIT", 2),
		RateBurst:          getEnvInt("CHAT_RATE_BURST", 5),
		TrustProxy:         getEnvBool("TRUST_PROXY", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %v", c.SessionTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("OPENAI_EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT and CHAT_RATE_BURST must not be negative")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// ChatAPIKey returns the key used for chat completions
func (c *Config) ChatAPIKey() string {
	return firstNonEmpty(c.ChatKey, c.OpenAIKey)
}

// EmbeddingAPIKey returns the key used for embeddings
func (c *Config) EmbeddingAPIKey() string {
	return firstNonEmpty(c.EmbeddingKey, c.OpenAIKey)
}

// ChatBaseURL returns the base URL used for chat completions
func (c *Config) ChatBaseURL() string {
	return firstNonEmpty(c.ChatURL, c.BaseURL)
}

// EmbeddingBaseURL returns the base URL used for embeddings
func (c *Config) EmbeddingBaseURL() string {
	return firstNonEmpty(c.EmbeddingURL, c.BaseURL)
}

// CORSOriginsList splits CORSOrigins on commas, dropping blanks
func (c *Config) CORSOriginsList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DefaultDataDir returns the data directory following the XDG spec.
// XDG_DATA_HOME is re-read so tests can override it after init.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "folio")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
