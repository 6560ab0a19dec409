// Package schema parses and validates the field-name -> "type:spec"
// mapping that drives record generation. The mapping is a JSON object,
// given inline or as a path to a file containing one. Field order of the
// object is preserved so emitted records keep their keys in schema order.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Kind is a supported field type.
type Kind string

const (
	KindTimestamp Kind = "timestamp"
	KindStr       Kind = "str"
	KindInt       Kind = "int"
)

// Field is one validated schema entry.
type Field struct {
	Name string
	Kind Kind
	Spec string // the part after the first ':', trimmed
	Raw  string // original descriptor string
}

// Schema is the validated, immutable field set for one generation run.
// It is shared read-only across workers.
type Schema struct {
	Fields []Field
}

// FieldError reports the offending key and reason for a schema violation.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("schema field %q: %s", e.Field, e.Reason)
}

// Parse resolves source as a file path when such a file exists, otherwise
// treats it as an inline JSON object literal.
func Parse(source string) (*Schema, error) {
	if source == "" {
		return nil, FieldError{Reason: "data schema is required"}
	}
	if st, err := os.Stat(source); err == nil && !st.IsDir() {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", source, err)
		}
		return ParseBytes(data)
	}
	return ParseBytes([]byte(source))
}

// ParseBytes validates a JSON object literal. Validation is fail-fast:
// the first offending field aborts with a FieldError.
func ParseBytes(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, FieldError{Reason: fmt.Sprintf("invalid schema json: %v", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, FieldError{Reason: "schema must be a JSON object"}
	}

	s := &Schema{}
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, FieldError{Reason: fmt.Sprintf("invalid schema json: %v", err)}
		}
		name, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, FieldError{Field: name, Reason: fmt.Sprintf("invalid schema json: %v", err)}
		}
		raw, ok := valTok.(string)
		if !ok {
			return nil, FieldError{Field: name, Reason: "descriptor must be a string of the form \"type:specification\""}
		}

		f, err := parseDescriptor(name, raw)
		if err != nil {
			return nil, err
		}
		if i, dup := index[name]; dup {
			s.Fields[i] = f // last descriptor wins, position kept
			continue
		}
		index[name] = len(s.Fields)
		s.Fields = append(s.Fields, f)
	}
	if _, err := dec.Token(); err != nil {
		return nil, FieldError{Reason: fmt.Sprintf("invalid schema json: %v", err)}
	}
	return s, nil
}

func parseDescriptor(name, raw string) (Field, error) {
	i := strings.Index(raw, ":")
	if i < 0 {
		return Field{}, FieldError{Field: name, Reason: fmt.Sprintf("descriptor %q must contain \"type:specification\"", raw)}
	}
	kind := Kind(strings.TrimSpace(raw[:i]))
	spec := strings.TrimSpace(raw[i+1:])
	switch kind {
	case KindTimestamp, KindStr, KindInt:
	default:
		return Field{}, FieldError{Field: name, Reason: fmt.Sprintf("unsupported field type %q (want timestamp, str or int)", string(kind))}
	}
	return Field{Name: name, Kind: kind, Spec: spec, Raw: raw}, nil
}

// Names returns field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON renders the schema back to its {"field":"type:spec"} form,
// preserving field order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Raw)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
