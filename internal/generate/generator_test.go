package generate

import (
	"encoding/json"
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"mockline/internal/schema"
	"mockline/internal/valuespec"
)

func testSchema(t *testing.T, raw string) *schema.Schema {
	t.Helper()
	s, err := schema.ParseBytes([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLineKeepsSchemaOrder(t *testing.T) {
	s := testSchema(t, `{"date": "timestamp:", "name": "str:rand", "age": "int:rand(1,5)"}`)
	g, err := New(s, Options{Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatal(err)
	}
	line, err := g.Line()
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(line) {
		t.Fatalf("line is not valid JSON: %s", line)
	}
	text := string(line)
	date := strings.Index(text, `"date"`)
	name := strings.Index(text, `"name"`)
	age := strings.Index(text, `"age"`)
	if date < 0 || name < 0 || age < 0 {
		t.Fatalf("line is missing keys: %s", text)
	}
	if !(date < name && name < age) {
		t.Errorf("keys out of schema order: %s", text)
	}
}

func TestLineValues(t *testing.T) {
	s := testSchema(t, `{"at": "timestamp:", "type": "str:client", "age": "int:[7]", "note": "str:", "blank": "int:"}`)
	fixed := time.Unix(1700000000, 0)
	g, err := New(s, Options{
		Rand: rand.New(rand.NewSource(1)),
		Now:  func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatal(err)
	}
	line, err := g.Line()
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	dec := json.NewDecoder(strings.NewReader(string(line)))
	dec.UseNumber()
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decode %s: %v", line, err)
	}
	if got["at"] != "1700000000" {
		t.Errorf("at = %v, want \"1700000000\"", got["at"])
	}
	if got["type"] != "client" {
		t.Errorf("type = %v, want \"client\"", got["type"])
	}
	if got["age"] != json.Number("7") {
		t.Errorf("age = %v, want 7", got["age"])
	}
	if got["note"] != "" {
		t.Errorf("note = %v, want \"\"", got["note"])
	}
	if v, present := got["blank"]; !present || v != nil {
		t.Errorf("blank = %v (present=%v), want null", v, present)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	s := testSchema(t, `{"age": "int:rand(5,1)"}`)
	_, err := New(s, Options{})
	if err == nil {
		t.Fatal("want compile error for inverted range")
	}
	var se valuespec.SpecError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a SpecError", err)
	}
	if !strings.Contains(err.Error(), `"age"`) {
		t.Errorf("error %q does not name the field", err)
	}
}

func TestLinesCount(t *testing.T) {
	s := testSchema(t, `{"id": "str:rand"}`)
	g, err := New(s, Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines, err := g.Lines(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for _, l := range lines {
		if !json.Valid(l) {
			t.Errorf("invalid JSON line: %s", l)
		}
	}
}

func TestUUIDAndRangeScenario(t *testing.T) {
	s := testSchema(t, `{"id": "str:rand", "age": "int:rand(1,100)"}`)
	g, err := New(s, Options{Rand: rand.New(rand.NewSource(42))})
	if err != nil {
		t.Fatal(err)
	}
	lines, err := g.Lines(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want exactly 5", len(lines))
	}
	uuidPat := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	for i, l := range lines {
		var rec map[string]any
		if err := json.Unmarshal(l, &rec); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if len(rec) != 2 {
			t.Fatalf("line %d has keys %v, want exactly id and age", i, rec)
		}
		id, _ := rec["id"].(string)
		if !uuidPat.MatchString(id) {
			t.Errorf("line %d: id %q is not a uuid string", i, id)
		}
		age, _ := rec["age"].(float64)
		if age < 1 || age > 100 {
			t.Errorf("line %d: age %v outside [1,100]", i, age)
		}
	}
}

func TestRulesDescribeCompiledFields(t *testing.T) {
	s := testSchema(t, `{"at": "timestamp:", "age": "int:rand(1,5)", "kind": "str:['a','b']"}`)
	g, err := New(s, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rules := g.Rules()
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if rules[0].Rule != "current timestamp" {
		t.Errorf("at rule = %q", rules[0].Rule)
	}
	if rules[1].Rule != "random int in [1,5]" {
		t.Errorf("age rule = %q", rules[1].Rule)
	}
	if rules[2].Rule != "choice of 2 items" {
		t.Errorf("kind rule = %q", rules[2].Rule)
	}
}
