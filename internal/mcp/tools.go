// ABOUTME: MCP tool definitions and registration for the portfolio assistant
// ABOUTME: Exposes chat, reindexing and source listing to MCP clients over stdio
package mcp

import (
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/folio/internal/logging"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := &Handlers{
		deps:           deps,
		logger:         logging.OrNop(deps.Logger),
		defaultSession: "mcp-" + uuid.NewString(),
	}

	// 1. ask_portfolio - answer a question from the indexed documents
	server.AddTool(mcp.Tool{
		Name:        "ask_portfolio",
		Description: "Ask a question about the portfolio owner. Answers are grounded in the indexed documents and remember earlier questions in the same session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer (1-4000 characters)",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional conversation id (at least 8 characters). Defaults to one session per server.",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskPortfolio)

	// 2. reindex_documents - reconcile the index with the document directory
	server.AddTool(mcp.Tool{
		Name:        "reindex_documents",
		Description: "Re-read the .txt and .md documents and update the index. Unchanged documents are skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Document directory to ingest (defaults to DOCS_DIR)",
				},
			},
		},
	}, handlers.ReindexDocuments)

	// 3. list_sources - list indexed documents
	server.AddTool(mcp.Tool{
		Name:        "list_sources",
		Description: "List indexed documents with their chunk counts and content fingerprints.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListSources)

	return handlers
}
