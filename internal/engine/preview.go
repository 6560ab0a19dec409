package engine

import (
	"context"
	"io"

	"mockline/internal/generate"
	"mockline/internal/schema"
)

// Preview returns n serialized sample lines for a schema source. The
// CLI preview, the HTTP preview and the MCP preview tool all share it.
func (e Engine) Preview(src string, n int) ([]string, error) {
	gen, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	lines, err := gen.Lines(n)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out, nil
}

// StreamLines writes n newline-terminated lines to w as they are
// generated. Compilation errors surface before anything is written, so
// callers can still report them cleanly.
func (e Engine) StreamLines(ctx context.Context, src string, n int, w io.Writer) error {
	gen, err := e.compile(src)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := gen.Line()
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// CompileRules validates a schema source end to end and reports the
// compiled rule of every field.
func (e Engine) CompileRules(src string) ([]generate.FieldRule, error) {
	gen, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	return gen.Rules(), nil
}

func (e Engine) compile(src string) (*generate.Generator, error) {
	sch, err := schema.Parse(src)
	if err != nil {
		return nil, err
	}
	return generate.New(sch, generate.Options{Now: e.Now})
}
