package engine

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mockline/internal/config"
	"mockline/internal/domain"
	"mockline/internal/events"
	"mockline/internal/generate"
	"mockline/internal/repo"
	"mockline/internal/sink"
)

// Engine executes generation runs and records them in the workspace
// ledger.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Stdout io.Writer
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		Stdout: os.Stdout,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

// Run executes one resolved plan: clears old files when asked, produces
// every output (files or a stdout stream), loads the sink when
// configured, and records the run with its per-file outcomes. A failed
// file never stops sibling files; the aggregate error reports the
// failures after all of them finish.
func (e Engine) Run(ctx context.Context, plan Plan) (domain.Run, []domain.RunFile, error) {
	run := domain.Run{
		ID:             uuid.New().String(),
		StartedAt:      e.now().UTC().Format(time.RFC3339),
		Status:         "running",
		Path:           plan.Path,
		FilesRequested: plan.FilesCount,
		LinesPerFile:   plan.DataLines,
		Workers:        plan.Workers,
	}
	if err := e.startRun(ctx, run); err != nil {
		return run, nil, err
	}

	var sk *sink.Sink
	if plan.SinkDSN != "" && plan.SinkTable != "" {
		var err error
		sk, err = sink.Open(ctx, plan.SinkDSN)
		if err != nil {
			return e.finishRun(run, nil, err)
		}
		defer sk.Close()
		if err := sk.EnsureTable(ctx, plan.SinkTable, plan.Schema); err != nil {
			return e.finishRun(run, nil, err)
		}
	}

	if plan.FilesCount == 0 {
		return e.finishRun(run, nil, e.streamStdout(ctx, plan, sk))
	}

	if plan.ClearPath {
		if _, err := e.clear(ctx, run.ID, plan.Path, plan.BaseName); err != nil {
			return e.finishRun(run, nil, err)
		}
	}

	files := e.produceFiles(ctx, plan, sk)
	failed := 0
	for i := range files {
		files[i].RunID = run.ID
		if files[i].Status == "failed" {
			failed++
		}
	}
	var runErr error
	switch {
	case ctx.Err() != nil:
		runErr = ctx.Err()
	case failed > 0:
		runErr = fmt.Errorf("%d of %d files failed", failed, plan.FilesCount)
	}
	return e.finishRun(run, files, runErr)
}

func (e Engine) startRun(ctx context.Context, run domain.Run) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRun(ctx, tx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeRunStarted, run.ID, events.EventPayload{
		"path":    run.Path,
		"files":   run.FilesRequested,
		"lines":   run.LinesPerFile,
		"workers": run.Workers,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// finishRun derives the final status, writes the outcome, and hands the
// aggregate error back to the caller.
func (e Engine) finishRun(run domain.Run, files []domain.RunFile, runErr error) (domain.Run, []domain.RunFile, error) {
	run.Status = "completed"
	switch {
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		run.Status = "canceled"
	case runErr != nil:
		run.Status = "failed"
	}
	run.FinishedAt = e.now().UTC().Format(time.RFC3339)
	for _, f := range files {
		if f.Status == "written" {
			run.FilesWritten++
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := e.recordOutcome(run, files); err != nil {
		if runErr == nil {
			return run, files, fmt.Errorf("record run outcome: %w", err)
		}
		log.Printf("warning: could not record run outcome: %v", err)
	}
	return run, files, runErr
}

// recordOutcome lands the run's final ledger rows in one transaction.
// The run context may already be canceled, so the write uses its own.
func (e Engine) recordOutcome(run domain.Run, files []domain.RunFile) error {
	ctx := context.Background()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, f := range files {
		if err := e.Repo.InsertRunFile(ctx, tx, f); err != nil {
			return err
		}
		evt := events.TypeFileWritten
		payload := events.EventPayload{
			"name":     f.Name,
			"lines":    f.Lines,
			"bytes":    f.Bytes,
			"checksum": f.Checksum,
		}
		if f.Status == "failed" {
			evt = events.TypeFileFailed
			payload = events.EventPayload{"name": f.Name, "error": f.Error}
		}
		if err := e.Events.Append(ctx, tx, evt, run.ID, payload); err != nil {
			return err
		}
	}
	if err := e.Repo.FinishRun(ctx, tx, run.ID, run.Status, run.FinishedAt, run.FilesWritten, run.Error); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRunFinished, run.ID, events.EventPayload{
		"status":        run.Status,
		"files_written": run.FilesWritten,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// produceFiles fans file production out over contiguous index chunks,
// one goroutine per chunk. Names are assigned up front on this
// goroutine; results come back over a channel.
func (e Engine) produceFiles(ctx context.Context, plan Plan, sk *sink.Sink) []domain.RunFile {
	n := plan.FilesCount
	nm := newNamer(plan.BaseName, plan.Prefix, n, rand.New(rand.NewSource(time.Now().UnixNano())))
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = nm.name(i)
	}

	spans := chunks(n, plan.Workers)
	results := make(chan domain.RunFile, n)
	if len(spans) == 1 {
		e.writeChunk(ctx, plan, spans[0], names, sk, results)
	} else {
		var g errgroup.Group
		for _, span := range spans {
			span := span
			g.Go(func() error {
				e.writeChunk(ctx, plan, span, names, sk, results)
				return nil
			})
		}
		g.Wait()
	}
	close(results)

	files := make([]domain.RunFile, 0, n)
	for f := range results {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Idx < files[j].Idx })
	return files
}

// writeChunk owns one contiguous span of file indices, with its own
// generator, random source and sink loader. A file failure is reported
// and the chunk moves on to its next index.
func (e Engine) writeChunk(ctx context.Context, plan Plan, span [2]int, names []string, sk *sink.Sink, results chan<- domain.RunFile) {
	gen, err := generate.New(plan.Schema, generate.Options{Now: e.Now})
	if err != nil {
		for idx := span[0]; idx < span[1]; idx++ {
			results <- domain.RunFile{Idx: idx, Name: names[idx], Status: "failed", Error: err.Error()}
		}
		return
	}
	var loader *sink.Loader
	if sk != nil {
		loader = sk.NewLoader(plan.SinkTable, plan.Schema)
	}
	for idx := span[0]; idx < span[1]; idx++ {
		if ctx.Err() != nil {
			return
		}
		row, err := e.writeFile(ctx, plan, idx, names[idx], gen, loader)
		if err != nil {
			log.Printf("generation: %v", err)
		}
		results <- row
	}
}

// streamStdout writes lines straight to stdout: single worker, no file
// I/O. The ledger still records the run.
func (e Engine) streamStdout(ctx context.Context, plan Plan, sk *sink.Sink) error {
	gen, err := generate.New(plan.Schema, generate.Options{Now: e.Now})
	if err != nil {
		return err
	}
	var loader *sink.Loader
	if sk != nil {
		loader = sk.NewLoader(plan.SinkTable, plan.Schema)
	}
	w := bufio.NewWriter(e.stdout())
	for i := 0; i < plan.DataLines; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, line, err := gen.Record()
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		if loader != nil {
			if err := loader.Add(ctx, values); err != nil {
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if loader != nil {
		return loader.Flush(ctx)
	}
	return nil
}
