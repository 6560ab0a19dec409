package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFilesRerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(schema, []byte(`{"id": "str:rand"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Files(ctx, schema, func() { fired <- struct{}{} })
	}()

	// give the watcher a moment to register before writing
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(schema, []byte(`{"id": "str:rand", "age": "int:rand"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("rerun not invoked after schema write")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Files returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Files did not return after cancel")
	}
}

func TestFilesIgnoresSiblingWrites(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(schema, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	go Files(ctx, schema, func() { fired <- struct{}{} })

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Fatal("rerun invoked for a sibling file write")
	case <-time.After(1200 * time.Millisecond):
	}
}

func TestFilesRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := Files(context.Background(), dir, func() {}); err == nil {
		t.Fatal("want error for directory schema path")
	}
}

func TestFilesRejectsMissingPath(t *testing.T) {
	if err := Files(context.Background(), filepath.Join(t.TempDir(), "nope.json"), func() {}); err == nil {
		t.Fatal("want error for missing schema path")
	}
}

func TestCronRejectsBadExpr(t *testing.T) {
	if err := Cron(context.Background(), "not a schedule", func() {}); err == nil {
		t.Fatal("want error for invalid cron expression")
	}
}

func TestCronRunsUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Cron(ctx, "@every 1s", func() { fired <- struct{}{} })
	}()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatal("cron did not fire")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Cron returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Cron did not return after cancel")
	}
}
