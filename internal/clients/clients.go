// ABOUTME: Process-wide lazy holder for the vector index and chat client
// ABOUTME: Builds each client on first use so missing credentials never touch the network
package clients

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/harper/folio/internal/config"
	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/llm"
	"github.com/harper/folio/internal/logging"
	"github.com/harper/folio/internal/models"
	"github.com/harper/folio/internal/storage"
)

// Holder lazily constructs the shared index and chat client.
// A failed construction is not remembered, so the next call tries again.
type Holder struct {
	cfg    *config.Config
	logger *zap.Logger

	mu    sync.Mutex
	index *storage.VectorIndex
	chat  *llm.ChatClient
}

// NewHolder creates an empty Holder; nothing is opened until first use
func NewHolder(cfg *config.Config, logger *zap.Logger) *Holder {
	return &Holder{cfg: cfg, logger: logging.OrNop(logger)}
}

// Index returns the shared vector index, opening it on first call.
// The embedding client is built on the first Embed, so reading sources
// from the local store works without credentials.
func (h *Holder) Index() (*storage.VectorIndex, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index != nil {
		return h.index, nil
	}

	index, err := storage.OpenVectorIndex(h.cfg.IndexDir, &lazyEmbedder{cfg: h.cfg})
	if err != nil {
		return nil, err
	}

	chunks, err := index.Count(context.Background())
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	h.logger.Info("vector index opened",
		zap.String("dir", h.cfg.IndexDir),
		zap.String("model", h.cfg.EmbeddingModel),
		zap.Int("chunks", chunks),
	)
	h.index = index
	return index, nil
}

// lazyEmbedder builds the embedding client on first use and retries
// construction on every call until it succeeds
type lazyEmbedder struct {
	cfg *config.Config

	mu     sync.Mutex
	client *llm.EmbeddingClient
}

func (e *lazyEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	client, err := e.get()
	if err != nil {
		return nil, err
	}
	return client.Embed(ctx, texts)
}

func (e *lazyEmbedder) get() (*llm.EmbeddingClient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}
	client, err := llm.NewEmbeddingClient(llm.ClientConfig{
		APIKey:    e.cfg.EmbeddingAPIKey(),
		BaseURL:   e.cfg.EmbeddingBaseURL(),
		Model:     e.cfg.EmbeddingModel,
		Timeout:   e.cfg.RequestTimeout,
		BatchSize: e.cfg.EmbeddingBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	e.client = client
	return client, nil
}

// Sources lists the indexed sources; it reads only the local store
func (h *Holder) Sources(ctx context.Context) ([]models.SourceSummary, error) {
	index, err := h.Index()
	if err != nil {
		return nil, err
	}
	return index.Sources(ctx)
}

// Chat returns the shared chat-completion client, creating it on first call
func (h *Holder) Chat() (*llm.ChatClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chat != nil {
		return h.chat, nil
	}

	chat, err := llm.NewChatClient(llm.ClientConfig{
		APIKey:  h.cfg.ChatAPIKey(),
		BaseURL: h.cfg.ChatBaseURL(),
		Model:   h.cfg.ChatModel,
		Timeout: h.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	h.logger.Info("chat client ready", zap.String("model", h.cfg.ChatModel))
	h.chat = chat
	return chat, nil
}

// Retriever adapts Index to the pipeline's retrieval interface
func (h *Holder) Retriever() (core.Retriever, error) {
	index, err := h.Index()
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Completer adapts Chat to the pipeline's completion interface
func (h *Holder) Completer() (core.Completer, error) {
	chat, err := h.Chat()
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// ChunkIndex returns an ingestion view of the index that opens it on first use,
// so a run over an empty corpus never needs embedding credentials.
func (h *Holder) ChunkIndex() core.ChunkIndex {
	return lazyIndex{h: h}
}

type lazyIndex struct {
	h *Holder
}

func (l lazyIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	index, err := l.h.Index()
	if err != nil {
		return err
	}
	return index.Add(ctx, chunks)
}

func (l lazyIndex) QueryBySource(ctx context.Context, source string) ([]string, []string, error) {
	index, err := l.h.Index()
	if err != nil {
		return nil, nil, err
	}
	return index.QueryBySource(ctx, source)
}

func (l lazyIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	index, err := l.h.Index()
	if err != nil {
		return err
	}
	return index.DeleteByIDs(ctx, ids)
}

// Pipeline builds a RAG pipeline resolving its clients through h
func (h *Holder) Pipeline(observer core.Observer) *core.Pipeline {
	return core.NewPipeline(core.PipelineConfig{
		ChatAPIKey:      h.cfg.ChatAPIKey(),
		EmbeddingAPIKey: h.cfg.EmbeddingAPIKey(),
		OwnerName:       h.cfg.OwnerName,
		Retriever:       h.Retriever,
		Completer:       h.Completer,
		StageTimeout:    h.cfg.RequestTimeout,
		Observer:        observer,
		Logger:          h.logger,
	})
}

// Close releases the index if it was opened
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == nil {
		return nil
	}
	err := h.index.Close()
	h.index = nil
	return err
}
