// ABOUTME: MCP tool handler implementations for the portfolio assistant
// ABOUTME: Tool failures are reported as error results rather than protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/models"
)

const (
	minSessionIDLength = 8
	maxQuestionLength  = 4000
)

// Chatter answers one message within a session
type Chatter interface {
	Handle(ctx context.Context, sessionID, message string) (string, error)
}

// Deps are the services the tools call into
type Deps struct {
	Chat    Chatter
	Ingest  func(ctx context.Context, dir string) (models.IngestStats, error)
	Sources func(ctx context.Context) ([]models.SourceSummary, error)
	DocsDir string
	Logger  *zap.Logger
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	deps           Deps
	logger         *zap.Logger
	defaultSession string
	ingestMu       sync.Mutex
}

// AskPortfolio handles the ask_portfolio tool
func (h *Handlers) AskPortfolio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	if n := utf8.RuneCountInString(question); n == 0 || n > maxQuestionLength {
		return mcp.NewToolResultError(fmt.Sprintf("question must be 1-%d characters", maxQuestionLength)), nil
	}

	sessionID := request.GetString("session_id", h.defaultSession)
	if utf8.RuneCountInString(sessionID) < minSessionIDLength {
		return mcp.NewToolResultError(fmt.Sprintf("session_id must be at least %d characters", minSessionIDLength)), nil
	}

	reply, err := h.deps.Chat.Handle(ctx, sessionID, question)
	if err != nil {
		if errors.Is(err, core.ErrServiceUnavailable) {
			return mcp.NewToolResultError("Unable to generate a response. Check your API key and index."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	return mcp.NewToolResultText(reply), nil
}

// ReindexDocuments handles the reindex_documents tool
func (h *Handlers) ReindexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := request.GetString("directory", h.deps.DocsDir)
	if dir == "" {
		return mcp.NewToolResultError("no document directory configured"), nil
	}

	if !h.ingestMu.TryLock() {
		return mcp.NewToolResultError("a reindex is already running"), nil
	}
	defer h.ingestMu.Unlock()

	stats, err := h.deps.Ingest(ctx, dir)
	if err != nil {
		h.logger.Error("reindex failed", zap.String("dir", dir), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("reindex failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"directory": dir,
		"documents": stats.Documents,
		"added":     stats.Added,
		"deleted":   stats.Deleted,
		"skipped":   stats.Skipped,
	}
	return jsonResult(response)
}

// ListSources handles the list_sources tool
func (h *Handlers) ListSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := h.deps.Sources(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sources: %v", err)), nil
	}
	if sources == nil {
		sources = []models.SourceSummary{}
	}

	return jsonResult(map[string]interface{}{"sources": sources})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
