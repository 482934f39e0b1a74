// ABOUTME: Tests for the MCP tool handlers and their registration
// ABOUTME: Handlers are called directly with fake chat and ingestion dependencies
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/models"
)

type fakeChat struct {
	reply    string
	err      error
	sessions []string
	messages []string
}

func (f *fakeChat) Handle(_ context.Context, sessionID, message string) (string, error) {
	f.sessions = append(f.sessions, sessionID)
	f.messages = append(f.messages, message)
	return f.reply, f.err
}

func newHandlers(t *testing.T, deps Deps) *Handlers {
	t.Helper()
	if deps.Chat == nil {
		deps.Chat = &fakeChat{reply: "ok"}
	}
	if deps.Ingest == nil {
		deps.Ingest = func(context.Context, string) (models.IngestStats, error) {
			return models.IngestStats{}, nil
		}
	}
	if deps.Sources == nil {
		deps.Sources = func(context.Context) ([]models.SourceSummary, error) { return nil, nil }
	}
	server := mcpserver.NewMCPServer("folio-test", "0.0.0")
	return RegisterTools(server, deps)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestRegisterTools_ListsAllTools(t *testing.T) {
	server := mcpserver.NewMCPServer("folio-test", "0.0.0", mcpserver.WithToolCapabilities(true))
	RegisterTools(server, Deps{Chat: &fakeChat{}})

	resp := server.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{"ask_portfolio", "reindex_documents", "list_sources"} {
		assert.Contains(t, string(raw), fmt.Sprintf("%q", name))
	}
}

func TestAskPortfolio(t *testing.T) {
	chat := &fakeChat{reply: "Built a RAG chatbot."}
	h := newHandlers(t, Deps{Chat: chat})

	res, err := h.AskPortfolio(context.Background(), callRequest("ask_portfolio", map[string]any{
		"question":   "What did you build?",
		"session_id": "session-123",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Built a RAG chatbot.", resultText(t, res))
	assert.Equal(t, []string{"session-123"}, chat.sessions)
	assert.Equal(t, []string{"What did you build?"}, chat.messages)
}

func TestAskPortfolio_DefaultSessionIsStable(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	h := newHandlers(t, Deps{Chat: chat})

	for range 2 {
		_, err := h.AskPortfolio(context.Background(), callRequest("ask_portfolio", map[string]any{"question": "hi"}))
		require.NoError(t, err)
	}
	require.Len(t, chat.sessions, 2)
	assert.Equal(t, chat.sessions[0], chat.sessions[1])
	assert.GreaterOrEqual(t, len(chat.sessions[0]), minSessionIDLength)
}

func TestAskPortfolio_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing question", map[string]any{}},
		{"empty question", map[string]any{"question": ""}},
		{"non-string question", map[string]any{"question": 42}},
		{"short session", map[string]any{"question": "hi", "session_id": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			h := newHandlers(t, Deps{Chat: chat})
			res, err := h.AskPortfolio(context.Background(), callRequest("ask_portfolio", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Empty(t, chat.sessions)
		})
	}
}

func TestAskPortfolio_Unavailable(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("%w: retrieve failed", core.ErrServiceUnavailable)}
	h := newHandlers(t, Deps{Chat: chat})

	res, err := h.AskPortfolio(context.Background(), callRequest("ask_portfolio", map[string]any{"question": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Check your API key and index")
}

func TestReindexDocuments(t *testing.T) {
	var gotDir string
	h := newHandlers(t, Deps{
		DocsDir: "/srv/docs",
		Ingest: func(_ context.Context, dir string) (models.IngestStats, error) {
			gotDir = dir
			return models.IngestStats{Documents: 3, Added: 7, Deleted: 2, Skipped: 1}, nil
		},
	})

	res, err := h.ReindexDocuments(context.Background(), callRequest("reindex_documents", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "/srv/docs", gotDir)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, float64(7), body["added"])
	assert.Equal(t, float64(2), body["deleted"])
	assert.Equal(t, float64(1), body["skipped"])

	_, err = h.ReindexDocuments(context.Background(), callRequest("reindex_documents", map[string]any{"directory": "/tmp/other"}))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other", gotDir)
}

func TestReindexDocuments_Failure(t *testing.T) {
	h := newHandlers(t, Deps{
		DocsDir: "/srv/docs",
		Ingest: func(context.Context, string) (models.IngestStats, error) {
			return models.IngestStats{}, errors.New("embedding service down")
		},
	})

	res, err := h.ReindexDocuments(context.Background(), callRequest("reindex_documents", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "embedding service down")
}

func TestReindexDocuments_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := newHandlers(t, Deps{
		DocsDir: "/srv/docs",
		Ingest: func(context.Context, string) (models.IngestStats, error) {
			close(started)
			<-release
			return models.IngestStats{}, nil
		},
	})

	done := make(chan *mcp.CallToolResult)
	go func() {
		res, _ := h.ReindexDocuments(context.Background(), callRequest("reindex_documents", nil))
		done <- res
	}()
	<-started

	res, err := h.ReindexDocuments(context.Background(), callRequest("reindex_documents", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "already running")

	close(release)
	assert.False(t, (<-done).IsError)
}

func TestListSources(t *testing.T) {
	h := newHandlers(t, Deps{
		Sources: func(context.Context) ([]models.SourceSummary, error) {
			return []models.SourceSummary{{Source: "about.md", Chunks: 2, Fingerprints: []string{"abc"}}}, nil
		},
	})

	res, err := h.ListSources(context.Background(), callRequest("list_sources", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"sources":[{"source":"about.md","chunks":2,"fingerprints":["abc"]}]}`, resultText(t, res))
}

func TestListSources_EmptyIndex(t *testing.T) {
	h := newHandlers(t, Deps{})

	res, err := h.ListSources(context.Background(), callRequest("list_sources", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sources":[]}`, resultText(t, res))
}
