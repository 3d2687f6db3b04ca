// Package mcp exposes the calculation engine to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/duynguyendang/cardcalc/internal/manager"
	"github.com/duynguyendang/cardcalc/pkg/logic"
)

// MCPServer wraps one project's calculation engine.
type MCPServer struct {
	mgr  *manager.ProjectManager
	root string
}

// Run starts the MCP server on Stdio for the project rooted at root.
func Run(ctx context.Context, mgr *manager.ProjectManager, root string) error {
	s := server.NewMCPServer(
		"cardcalc",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	ms := &MCPServer{mgr: mgr, root: root}

	// Resource: assembled main program
	s.AddResource(
		mcp.NewResource(
			"calc://program/main",
			"Main Logic Program",
			mcp.WithResourceDescription("The top-level aggregator program handed to the solver"),
			mcp.WithMIMEType("text/plain"),
		),
		ms.handleMainProgram,
	)

	// Tool: Generate Corpus
	s.AddTool(
		mcp.NewTool(
			"generate_corpus",
			mcp.WithDescription("Rebuild the fact corpus for the project, optionally scoped to one card's subtree."),
			mcp.WithString("card", mcp.Description("Card key to scope generation to (optional)")),
		),
		ms.handleGenerate,
	)

	// Tool: Run Query
	s.AddTool(
		mcp.NewTool(
			"run_query",
			mcp.WithDescription("Compute the derived (non-user) fields for one card via the logic solver."),
			mcp.WithString("card", mcp.Required(), mcp.Description("The card key to query")),
		),
		ms.handleRun,
	)

	slog.Info("Starting MCP server on Stdio", "project", root)
	return server.ServeStdio(s)
}

// --- Resource Handlers ---

func (ms *MCPServer) handleMainProgram(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pc, err := ms.mgr.Get(ms.root)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(pc.Engine.CalcDir(), logic.MainUnit))
	if err != nil {
		return nil, fmt.Errorf("no generated corpus: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     string(data),
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	scope, _ := args["card"].(string)

	pc, err := ms.mgr.Get(ms.root)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project open failed: %v", err)), nil
	}
	if err := pc.Engine.Generate(ctx, scope); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}
	return mcp.NewToolResultText("corpus generated"), nil
}

func (ms *MCPServer) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cardKey, ok := args["card"].(string)
	if !ok || cardKey == "" {
		return mcp.NewToolResultError("card argument required"), nil
	}

	pc, err := ms.mgr.Get(ms.root)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project open failed: %v", err)), nil
	}
	if _, err := ms.mgr.LookupCard(pc, cardKey); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	facts, err := pc.Engine.Run(ctx, cardKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
