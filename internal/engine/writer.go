package engine

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"mockline/internal/domain"
	"mockline/internal/generate"
	"mockline/internal/sink"
)

// writeFile produces one output file and reports its ledger row with
// lines, bytes and the content checksum. The file is truncated when it
// already exists, and the handle closes on every exit path.
func (e Engine) writeFile(ctx context.Context, plan Plan, idx int, name string, gen *generate.Generator, loader *sink.Loader) (domain.RunFile, error) {
	row := domain.RunFile{Idx: idx, Name: name, Status: "written"}
	fail := func(err error) (domain.RunFile, error) {
		row.Status = "failed"
		row.Error = err.Error()
		return row, FileError{Idx: idx, Name: name, Err: err}
	}

	f, err := os.Create(filepath.Join(plan.Path, name))
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hash := xxh3.New()
	var written int64
	for i := 0; i < plan.DataLines; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		values, line, err := gen.Record()
		if err != nil {
			return fail(err)
		}
		if _, err := w.Write(line); err != nil {
			return fail(err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(err)
		}
		hash.Write(line)
		hash.Write([]byte{'\n'})
		written += int64(len(line)) + 1
		if loader != nil {
			if err := loader.Add(ctx, values); err != nil {
				return fail(err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}
	if loader != nil {
		if err := loader.Flush(ctx); err != nil {
			return fail(err)
		}
	}
	row.Lines = plan.DataLines
	row.Bytes = written
	row.Checksum = fmt.Sprintf("%016x", hash.Sum64())
	return row, nil
}
