package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"mockline/internal/config"
	"mockline/internal/db"
	"mockline/internal/domain"
	"mockline/internal/engine"
	"mockline/internal/generate"
	"mockline/internal/migrate"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.PathToSaveFiles = workspace
	return New(engine.New(conn, cfg))
}

func callTool(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestValidateSchemaTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleValidateSchema(context.Background(), callTool(map[string]any{
		"schema": `{"ts": "timestamp:", "age": "int:rand(1,5)"}`,
	}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var payload struct {
		Fields []generate.FieldRule `json:"fields"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal fields: %v", err)
	}
	if len(payload.Fields) != 2 || payload.Fields[0].Name != "ts" {
		t.Fatalf("unexpected fields: %+v", payload.Fields)
	}

	res, err = s.handleValidateSchema(context.Background(), callTool(map[string]any{
		"schema": `{"age": "int"}`,
	}))
	if err != nil {
		t.Fatalf("validate bad schema: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for schema without colon")
	}
	if text := resultText(t, res); !strings.Contains(text, "age") {
		t.Fatalf("expected error naming the field, got %q", text)
	}

	if _, err := s.handleValidateSchema(context.Background(), callTool(map[string]any{})); err == nil {
		t.Fatal("expected error for missing schema argument")
	}
}

func TestPreviewLinesTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handlePreviewLines(context.Background(), callTool(map[string]any{
		"schema": `{"msg": "str:ping"}`,
		"lines":  float64(3),
	}))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	lines := strings.Split(resultText(t, res), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var record map[string]string
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if record["msg"] != "ping" {
			t.Fatalf("line %d: expected literal ping, got %q", i, record["msg"])
		}
	}

	res, err = s.handlePreviewLines(context.Background(), callTool(map[string]any{
		"schema": `{"msg": "str:ping"}`,
		"lines":  float64(5000),
	}))
	if err != nil {
		t.Fatalf("oversized preview: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for oversized preview")
	}
}

func TestRunGenerateTool(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()

	res, err := s.handleRunGenerate(context.Background(), callTool(map[string]any{
		"schema":      `{"msg": "str:ping"}`,
		"path":        dir,
		"files_count": float64(2),
		"data_lines":  float64(3),
		"file_name":   "events",
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var payload struct {
		Run   domain.Run       `json:"run"`
		Files []domain.RunFile `json:"files"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	if payload.Run.Status != "completed" || len(payload.Files) != 2 {
		t.Fatalf("expected completed run with 2 files, got %+v", payload)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files on disk, got %d", len(entries))
	}

	// Stdout mode stays CLI-only.
	res, err = s.handleRunGenerate(context.Background(), callTool(map[string]any{
		"schema":      `{"msg": "str:ping"}`,
		"path":        dir,
		"files_count": float64(0),
	}))
	if err != nil {
		t.Fatalf("stdout-mode run: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "stdout") {
		t.Fatalf("expected stdout-mode rejection, got %s", resultText(t, res))
	}
}

func TestListRunsTool(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()

	if _, err := s.handleRunGenerate(context.Background(), callTool(map[string]any{
		"schema":      `{"msg": "str:ping"}`,
		"path":        dir,
		"files_count": float64(1),
		"data_lines":  float64(1),
	})); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	res, err := s.handleListRuns(context.Background(), callTool(map[string]any{
		"limit": float64(10),
	}))
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var payload struct {
		Runs []domain.Run `json:"runs"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal runs: %v", err)
	}
	if len(payload.Runs) != 1 || payload.Runs[0].Status != "completed" {
		t.Fatalf("expected one completed run, got %+v", payload.Runs)
	}
}
