package mocklinesdk

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"mockline/internal/config"
	"mockline/internal/db"
	"mockline/internal/engine"
	"mockline/internal/migrate"
	"mockline/internal/server"
)

func newTestClient(t *testing.T) (*Client, string) {
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
	handler, err := server.New(server.Config{Engine: engine.New(conn, cfg)})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
	})
	return New("http://" + ln.Addr().String()), workspace
}

func TestClientEndToEnd(t *testing.T) {
	client, workspace := newTestClient(t)
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	fields, err := client.ValidateSchema(ctx, `{"ts": "timestamp:", "age": "int:rand(1,5)"}`)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(fields) != 2 || fields[1].Kind != "int" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	lines, err := client.Preview(ctx, `{"msg": "str:ping"}`, 3)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 preview lines, got %d", len(lines))
	}

	two, three := 2, 3
	detail, err := client.CreateRun(ctx, RunRequest{
		Path:       filepath.Join(workspace, "out"),
		FilesCount: &two,
		DataLines:  &three,
		Schema:     `{"msg": "str:ping"}`,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if detail.Run.Status != "completed" || len(detail.Files) != 2 {
		t.Fatalf("unexpected run detail: %+v", detail)
	}

	fetched, err := client.GetRun(ctx, detail.Run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if fetched.Run.ID != detail.Run.ID || len(fetched.Files) != 2 {
		t.Fatalf("fetched run mismatch: %+v", fetched)
	}

	runs, err := client.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	stream, err := client.Stream(ctx, `{"msg": "str:ping"}`, 2)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer stream.Close()
	scanner := bufio.NewScanner(stream)
	count := 0
	for scanner.Scan() {
		var record map[string]string
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("stream line: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stream lines, got %d", count)
	}

	if _, err := client.GetRun(ctx, "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	} else if apiErr, ok := err.(*APIError); !ok || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}
