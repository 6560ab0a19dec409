// Package generate compiles a parsed schema into a line generator that
// emits one JSON object per call, with keys in schema order.
package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"mockline/internal/schema"
	"mockline/internal/valuespec"
)

// Options tunes a generator. Zero values select real randomness and the
// wall clock.
type Options struct {
	Rand *rand.Rand
	Now  func() time.Time
}

// Generator produces data lines for one schema. Not safe for concurrent
// use; each worker builds its own.
type Generator struct {
	fields []compiledField
	rng    *rand.Rand
	now    func() time.Time
}

type compiledField struct {
	name string
	kind schema.Kind
	rule valuespec.Rule
}

// FieldRule reports the compiled rule for one field, for inspection.
type FieldRule struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Rule string `json:"rule"`
}

// New compiles every field specification once. A timestamp field that
// carries a specification compiles anyway; the extra text is ignored
// with a warning.
func New(s *schema.Schema, opts Options) (*Generator, error) {
	g := &Generator{
		fields: make([]compiledField, 0, len(s.Fields)),
		rng:    opts.Rand,
		now:    opts.Now,
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.now == nil {
		g.now = time.Now
	}
	for _, f := range s.Fields {
		if f.Kind == schema.KindTimestamp && f.Spec != "" {
			log.Printf("warning: timestamp does not accept a value spec; ignoring %q for field %q", f.Spec, f.Name)
		}
		rule, err := valuespec.Parse(f.Kind, f.Spec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		g.fields = append(g.fields, compiledField{name: f.Name, kind: f.Kind, rule: rule})
	}
	return g, nil
}

// Line evaluates every field once and returns the JSON object, keys in
// schema order, without a trailing newline.
func (g *Generator) Line() ([]byte, error) {
	_, line, err := g.Record()
	return line, err
}

// Record evaluates every field once and returns both the raw values in
// schema order and the serialized JSON object.
func (g *Generator) Record() ([]any, []byte, error) {
	now := g.now()
	values := make([]any, 0, len(g.fields))
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range g.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := f.rule.Eval(g.rng, now)
		val, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		buf.Write(val)
		values = append(values, v)
	}
	buf.WriteByte('}')
	return values, buf.Bytes(), nil
}

// Lines returns n consecutive lines.
func (g *Generator) Lines(n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		line, err := g.Line()
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

// Rules reports the compiled rule of every field, in schema order.
func (g *Generator) Rules() []FieldRule {
	out := make([]FieldRule, 0, len(g.fields))
	for _, f := range g.fields {
		out = append(out, FieldRule{Name: f.name, Kind: string(f.kind), Rule: f.rule.Describe()})
	}
	return out
}
