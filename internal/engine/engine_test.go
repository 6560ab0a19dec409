package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"mockline/internal/config"
	"mockline/internal/db"
	"mockline/internal/domain"
	"mockline/internal/migrate"
)

func newTestEnv(t *testing.T) (Engine, string) {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.PathToSaveFiles = dir
	return New(conn, cfg), dir
}

func intp(v int) *int { return &v }

func TestChunks(t *testing.T) {
	cases := []struct {
		n, w int
		want [][2]int
	}{
		{10, 3, [][2]int{{0, 3}, {3, 6}, {6, 10}}},
		{4, 2, [][2]int{{0, 2}, {2, 4}}},
		{5, 1, [][2]int{{0, 5}}},
		{1, 1, [][2]int{{0, 1}}},
		{2, 4, [][2]int{{0, 2}}},
		{0, 3, nil},
	}
	for _, tc := range cases {
		got := chunks(tc.n, tc.w)
		if len(got) != len(tc.want) {
			t.Errorf("chunks(%d,%d) = %v, want %v", tc.n, tc.w, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("chunks(%d,%d)[%d] = %v, want %v", tc.n, tc.w, i, got[i], tc.want[i])
			}
		}
	}
}

func TestBuildPlanValidation(t *testing.T) {
	eng, dir := newTestEnv(t)
	valid := RunOptions{DataSchema: `{"id": "str:rand"}`, Path: dir}

	cases := []struct {
		name string
		mut  func(*RunOptions)
	}{
		{"missing schema", func(o *RunOptions) { o.DataSchema = "" }},
		{"negative files", func(o *RunOptions) { o.FilesCount = intp(-1) }},
		{"zero lines", func(o *RunOptions) { o.DataLines = intp(0) }},
		{"zero workers", func(o *RunOptions) { o.Workers = intp(0) }},
		{"bad prefix", func(o *RunOptions) { o.FilePrefix = "sequential" }},
		{"missing path", func(o *RunOptions) { o.Path = filepath.Join(dir, "nope") }},
		{"dsn without table", func(o *RunOptions) { o.SinkDSN = "postgres://localhost/x" }},
	}
	for _, tc := range cases {
		opts := valid
		tc.mut(&opts)
		_, err := eng.BuildPlan(opts)
		if err == nil {
			t.Errorf("%s: want error", tc.name)
			continue
		}
		var ce ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: error %v is not a ConfigError", tc.name, err)
		}
	}

	// schema shape errors are configuration failures too, typed by the parser
	_, err := eng.BuildPlan(RunOptions{DataSchema: `{"id": "strand"}`, Path: dir})
	if err == nil {
		t.Fatal("want error for descriptor without colon")
	}

	// stdout mode skips the save path check
	opts := valid
	opts.Path = filepath.Join(dir, "nope")
	opts.FilesCount = intp(0)
	if _, err := eng.BuildPlan(opts); err != nil {
		t.Errorf("stdout mode should not require the save path: %v", err)
	}
}

func TestBuildPlanClampsWorkers(t *testing.T) {
	eng, dir := newTestEnv(t)
	plan, err := eng.BuildPlan(RunOptions{
		DataSchema: `{"id": "str:rand"}`,
		Path:       dir,
		Workers:    intp(runtime.NumCPU() + 5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want clamped to %d", plan.Workers, runtime.NumCPU())
	}
}

func TestNamer(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	single := newNamer("data", config.PrefixUUID, 1, rng)
	if got := single.name(0); got != "data.json" {
		t.Errorf("single file name = %q, want data.json", got)
	}

	count := newNamer("data", config.PrefixCount, 3, rng)
	for i, want := range []string{"data_1.json", "data_2.json", "data_3.json"} {
		if got := count.name(i); got != want {
			t.Errorf("count name(%d) = %q, want %q", i, got, want)
		}
	}

	randomPat := regexp.MustCompile(`^data_[1-9]\d{3}\.json$`)
	random := newNamer("data", config.PrefixRandom, 50, rng)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		got := random.name(i)
		if !randomPat.MatchString(got) {
			t.Fatalf("random name %q does not match %s", got, randomPat)
		}
		if seen[got] {
			t.Fatalf("random name %q repeated within the run", got)
		}
		seen[got] = true
	}

	uuidPat := regexp.MustCompile(`^data_[0-9a-f-]{36}\.json$`)
	uu := newNamer("data", config.PrefixUUID, 2, rng)
	if got := uu.name(0); !uuidPat.MatchString(got) {
		t.Errorf("uuid name %q does not match %s", got, uuidPat)
	}
}

func TestRunWritesFiles(t *testing.T) {
	eng, dir := newTestEnv(t)
	plan, err := eng.BuildPlan(RunOptions{
		DataSchema: `{"id": "str:rand", "age": "int:rand(1,5)"}`,
		Path:       dir,
		FilesCount: intp(3),
		DataLines:  intp(4),
		Workers:    intp(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	run, files, err := eng.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != "completed" || run.FilesWritten != 3 {
		t.Fatalf("run = %+v, want completed with 3 files", run)
	}
	if len(files) != 3 {
		t.Fatalf("got %d file rows, want 3", len(files))
	}

	for i, f := range files {
		want := fmt.Sprintf("data_%d.json", i+1)
		if f.Name != want || f.Idx != i {
			t.Errorf("file row %d = %+v, want name %s", i, f, want)
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name))
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) != 4 {
			t.Fatalf("%s has %d lines, want 4", f.Name, len(lines))
		}
		for _, l := range lines {
			var rec map[string]any
			if err := json.Unmarshal([]byte(l), &rec); err != nil {
				t.Fatalf("%s line %q: %v", f.Name, l, err)
			}
			if len(rec) != 2 {
				t.Errorf("%s line has keys %v, want exactly id and age", f.Name, rec)
			}
			age := rec["age"].(float64)
			if age < 1 || age > 5 {
				t.Errorf("age %v outside [1,5]", age)
			}
		}
		if f.Bytes != int64(len(data)) {
			t.Errorf("%s bytes = %d, want %d", f.Name, f.Bytes, len(data))
		}
		if want := fmt.Sprintf("%016x", xxh3.Hash(data)); f.Checksum != want {
			t.Errorf("%s checksum = %s, want %s", f.Name, f.Checksum, want)
		}
	}

	stored, err := eng.Repo.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != "completed" || stored.FilesWritten != 3 {
		t.Errorf("ledger run = %+v, want completed with 3 files", stored)
	}
	rows, err := eng.Repo.ListRunFiles(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("ledger has %d file rows, want 3", len(rows))
	}
	for _, r := range rows {
		if r.Status != "written" || r.Checksum == "" {
			t.Errorf("ledger file row %+v, want written with checksum", r)
		}
	}
}

func TestRunStdoutMode(t *testing.T) {
	eng, dir := newTestEnv(t)
	var out bytes.Buffer
	eng.Stdout = &out
	plan, err := eng.BuildPlan(RunOptions{
		DataSchema: `{"msg": "str:hello"}`,
		Path:       dir,
		FilesCount: intp(0),
		DataLines:  intp(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	run, files, err := eng.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != "completed" || len(files) != 0 {
		t.Fatalf("run = %+v with %d files, want completed with none", run, len(files))
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("stdout has %d lines, want 3", len(lines))
	}
	for _, l := range lines {
		if l != `{"msg":"hello"}` {
			t.Errorf("stdout line = %q, want {\"msg\":\"hello\"}", l)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			t.Errorf("stdout mode wrote file %s", e.Name())
		}
	}
}

func TestRunRecordsFailedFiles(t *testing.T) {
	eng, dir := newTestEnv(t)
	plan, err := eng.BuildPlan(RunOptions{
		DataSchema: `{"age": "int:rand(9,1)"}`,
		Path:       dir,
		FilesCount: intp(2),
		DataLines:  intp(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	run, files, err := eng.Run(context.Background(), plan)
	if err == nil {
		t.Fatal("want aggregate error when every file fails")
	}
	if run.Status != "failed" || run.FilesWritten != 0 {
		t.Fatalf("run = %+v, want failed with 0 written", run)
	}
	if len(files) != 2 {
		t.Fatalf("got %d file rows, want 2", len(files))
	}
	for _, f := range files {
		if f.Status != "failed" || !strings.Contains(f.Error, "inverted") {
			t.Errorf("file row %+v, want failed with inverted range error", f)
		}
	}
}

func TestClearRemovesOnlyMatching(t *testing.T) {
	eng, dir := newTestEnv(t)
	for _, name := range []string{"data_1.json", "data_2.json", "report_1.json", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := eng.Clear(context.Background(), dir, "data")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed %v, want the two data files", removed)
	}
	for _, name := range []string{"report_1.json", "other.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should survive the clear: %v", name, err)
		}
	}
	for _, name := range []string{"data_1.json", "data_2.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", name)
		}
	}
}

func TestRunClearsBeforeWriting(t *testing.T) {
	eng, dir := newTestEnv(t)
	stale := filepath.Join(dir, "data_9.json")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	plan, err := eng.BuildPlan(RunOptions{
		DataSchema: `{"id": "str:rand"}`,
		Path:       dir,
		FilesCount: intp(1),
		DataLines:  intp(1),
		ClearPath:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := eng.Run(context.Background(), plan); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale data_9.json should be cleared")
	}
	if _, err := os.Stat(filepath.Join(dir, "data.json")); err != nil {
		t.Errorf("data.json should exist: %v", err)
	}
}

func TestFinishRunMarksCanceled(t *testing.T) {
	eng, dir := newTestEnv(t)
	run := domain.Run{
		ID:             uuid.New().String(),
		StartedAt:      eng.now().UTC().Format(time.RFC3339),
		Status:         "running",
		Path:           dir,
		FilesRequested: 3,
		LinesPerFile:   10,
		Workers:        2,
	}
	if err := eng.startRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	got, _, runErr := eng.finishRun(run, nil, context.Canceled)
	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("finishRun error = %v, want context.Canceled", runErr)
	}
	if got.Status != "canceled" {
		t.Errorf("status = %s, want canceled", got.Status)
	}
	stored, err := eng.Repo.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != "canceled" {
		t.Errorf("ledger status = %s, want canceled", stored.Status)
	}
}

func TestPreviewAndCompileRules(t *testing.T) {
	eng, _ := newTestEnv(t)
	lines, err := eng.Preview(`{"date": "timestamp:", "name": "str:rand"}`, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d preview lines, want 2", len(lines))
	}
	for _, l := range lines {
		if !json.Valid([]byte(l)) {
			t.Errorf("preview line %q is not valid JSON", l)
		}
	}

	rules, err := eng.CompileRules(`{"age": "int:rand(1,90)"}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Rule != "random int in [1,90]" {
		t.Errorf("rules = %+v", rules)
	}

	if _, err := eng.Preview(`{"age": "int"}`, 1); err == nil {
		t.Error("want error for descriptor without colon")
	}
}
