package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mockline/internal/domain"
	"mockline/internal/engine"
	"mockline/internal/repo"
)

const maxPreviewLines = 1000

// Server exposes generation over MCP stdio so agents can validate
// schemas, preview lines, execute runs and inspect the ledger.
type Server struct {
	mcp    *server.MCPServer
	engine engine.Engine
}

// New creates and configures an MCP server with all tools registered.
func New(e engine.Engine) *Server {
	s := &Server{engine: e}
	s.mcp = server.NewMCPServer(
		"mockline-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("validate_schema",
		mcp.WithDescription("Validate a schema and report the compiled rule of every field. Accepts inline JSON or a path to a schema file."),
		mcp.WithString("schema", mcp.Description("Schema as inline JSON or a file path"), mcp.Required()),
	), s.handleValidateSchema)

	s.mcp.AddTool(mcp.NewTool("preview_lines",
		mcp.WithDescription("Generate sample NDJSON lines in memory. Nothing touches disk or the run ledger."),
		mcp.WithString("schema", mcp.Description("Schema as inline JSON or a file path"), mcp.Required()),
		mcp.WithNumber("lines", mcp.Description("Number of sample lines (default 10, max 1000)")),
	), s.handlePreviewLines)

	s.mcp.AddTool(mcp.NewTool("run_generate",
		mcp.WithDescription("Execute a file-producing generation run and return the recorded outcome. Omitted arguments fall back to the workspace config."),
		mcp.WithString("schema", mcp.Description("Schema as inline JSON or a file path")),
		mcp.WithString("path", mcp.Description("Output directory, created if absent")),
		mcp.WithNumber("files_count", mcp.Description("Number of files to produce")),
		mcp.WithString("file_name", mcp.Description("Base file name")),
		mcp.WithString("file_prefix", mcp.Description("Naming policy: count, random or uuid")),
		mcp.WithNumber("data_lines", mcp.Description("Lines per file")),
		mcp.WithNumber("multiprocessing", mcp.Description("Worker count, clamped to available CPUs")),
		mcp.WithBoolean("clear_path", mcp.Description("Remove matching files before writing")),
		mcp.WithString("sink_dsn", mcp.Description("Postgres DSN to mirror generated lines into")),
		mcp.WithString("sink_table", mcp.Description("Target table for the sink")),
	), s.handleRunGenerate)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent generation runs from the workspace ledger, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
		mcp.WithString("status", mcp.Description("Filter by status: running, completed, failed or canceled")),
	), s.handleListRuns)
}

func (s *Server) handleValidateSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := req.GetString("schema", "")
	if src == "" {
		return nil, fmt.Errorf("schema is required")
	}
	rules, err := s.engine.CompileRules(src)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"fields": rules})
}

func (s *Server) handlePreviewLines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := req.GetString("schema", "")
	if src == "" {
		return nil, fmt.Errorf("schema is required")
	}
	lines := intArg(req.GetArguments(), "lines", 10)
	if lines < 1 || lines > maxPreviewLines {
		return mcp.NewToolResultError(fmt.Sprintf("lines must be between 1 and %d", maxPreviewLines)), nil
	}
	out, err := s.engine.Preview(src, lines)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(strings.Join(out, "\n")), nil
}

func (s *Server) handleRunGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	opts := engine.RunOptions{
		Path:       req.GetString("path", ""),
		FileName:   req.GetString("file_name", ""),
		FilePrefix: req.GetString("file_prefix", ""),
		DataSchema: req.GetString("schema", ""),
		SinkDSN:    req.GetString("sink_dsn", ""),
		SinkTable:  req.GetString("sink_table", ""),
	}
	if v, ok := intArgOK(args, "files_count"); ok {
		opts.FilesCount = &v
	}
	if v, ok := intArgOK(args, "data_lines"); ok {
		opts.DataLines = &v
	}
	if v, ok := intArgOK(args, "multiprocessing"); ok {
		opts.Workers = &v
	}
	if v, ok := args["clear_path"].(bool); ok {
		opts.ClearPath = v
	}

	if err := s.engine.EnsureSavePath(opts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.engine.BuildPlan(opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if plan.FilesCount < 1 {
		return mcp.NewToolResultError("files_count must be at least 1; stdout mode is not available over MCP"), nil
	}
	run, files, runErr := s.engine.Run(ctx, plan)
	if runErr != nil && run.FinishedAt == "" {
		return mcp.NewToolResultError(runErr.Error()), nil
	}
	if files == nil {
		files = []domain.RunFile{}
	}
	return jsonResult(map[string]any{"run": run, "files": files})
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit := intArg(args, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	runs, err := s.engine.Repo.ListRuns(ctx, repo.RunFilters{
		Limit:  limit,
		Status: req.GetString("status", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return jsonResult(map[string]any{"runs": runs})
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// JSON numbers arrive as float64; accept plain ints too.
func intArg(args map[string]any, key string, def int) int {
	if v, ok := intArgOK(args, key); ok {
		return v
	}
	return def
}

func intArgOK(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
