// Package valuespec compiles the specification half of a schema descriptor
// into an explicit rule, then evaluates that rule once per generated value.
//
// Grammar by field kind:
//
//	timestamp: specification ignored, value is the current time
//	str:       "" | rand | [list] | literal text
//	int:       "" | rand | rand(a,b) | [list] | literal integer
//
// Lists accept strict JSON arrays first, then a permissive literal form
// that tolerates single-quoted elements.
package valuespec

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mockline/internal/schema"
)

// defaultRandMax bounds the plain int rand form, inclusive.
const defaultRandMax = 10000

// Rule produces one concrete value per evaluation. Rules are immutable
// and safe to share; the random source belongs to the caller.
type Rule interface {
	Eval(rng *rand.Rand, now time.Time) any
	Describe() string
}

// SpecError reports a specification that does not follow the grammar.
type SpecError struct {
	Kind   schema.Kind
	Spec   string
	Reason string
}

func (e SpecError) Error() string {
	return fmt.Sprintf("%s value spec %q: %s", string(e.Kind), e.Spec, e.Reason)
}

// Literal returns a fixed value verbatim.
type Literal struct{ V any }

func (r Literal) Eval(*rand.Rand, time.Time) any { return r.V }

func (r Literal) Describe() string { return fmt.Sprintf("literal %v", r.V) }

// RandomUnique returns a fresh random unique identifier string.
type RandomUnique struct{}

func (RandomUnique) Eval(*rand.Rand, time.Time) any { return uuid.NewString() }

func (RandomUnique) Describe() string { return "random uuid" }

// RandomRange returns a uniform random integer in [A,B], both inclusive.
type RandomRange struct{ A, B int64 }

func (r RandomRange) Eval(rng *rand.Rand, _ time.Time) any {
	return r.A + rng.Int63n(r.B-r.A+1)
}

func (r RandomRange) Describe() string { return fmt.Sprintf("random int in [%d,%d]", r.A, r.B) }

// ListChoice returns one list element chosen uniformly at random.
type ListChoice struct{ Items []any }

func (r ListChoice) Eval(rng *rand.Rand, _ time.Time) any {
	return r.Items[rng.Intn(len(r.Items))]
}

func (r ListChoice) Describe() string { return fmt.Sprintf("choice of %d items", len(r.Items)) }

// Empty returns the kind's empty value: "" for str, null for int.
type Empty struct{ V any }

func (r Empty) Eval(*rand.Rand, time.Time) any { return r.V }

func (r Empty) Describe() string {
	if r.V == nil {
		return "empty (null)"
	}
	return `empty ("")`
}

// Now returns the current time as a decimal seconds string.
type Now struct{}

func (Now) Eval(_ *rand.Rand, now time.Time) any {
	return strconv.FormatFloat(float64(now.UnixNano())/1e9, 'f', -1, 64)
}

func (Now) Describe() string { return "current timestamp" }

// Parse compiles one specification for a field kind. All grammar errors
// surface here; a parsed rule never fails to evaluate.
func Parse(kind schema.Kind, spec string) (Rule, error) {
	switch kind {
	case schema.KindTimestamp:
		return Now{}, nil
	case schema.KindStr:
		return parseStr(spec)
	case schema.KindInt:
		return parseInt(spec)
	}
	return nil, SpecError{Kind: kind, Spec: spec, Reason: "unsupported field type"}
}

func parseStr(spec string) (Rule, error) {
	switch {
	case spec == "":
		return Empty{V: ""}, nil
	case spec == "rand":
		return RandomUnique{}, nil
	case strings.HasPrefix(spec, "rand("):
		return nil, SpecError{Kind: schema.KindStr, Spec: spec, Reason: "rand(from,to) is only supported for int"}
	case strings.HasPrefix(spec, "["):
		return parseList(schema.KindStr, spec)
	default:
		return Literal{V: spec}, nil
	}
}

func parseInt(spec string) (Rule, error) {
	switch {
	case spec == "":
		return Empty{V: nil}, nil
	case spec == "rand":
		return RandomRange{A: 0, B: defaultRandMax}, nil
	case strings.HasPrefix(spec, "rand("):
		return parseRange(spec)
	case strings.HasPrefix(spec, "["):
		return parseList(schema.KindInt, spec)
	default:
		n, err := strconv.ParseInt(spec, 10, 64)
		if err != nil {
			return nil, SpecError{Kind: schema.KindInt, Spec: spec, Reason: "cannot be parsed to an integer"}
		}
		return Literal{V: n}, nil
	}
}

func parseRange(spec string) (Rule, error) {
	if !strings.HasSuffix(spec, ")") {
		return nil, SpecError{Kind: schema.KindInt, Spec: spec, Reason: "rand(from,to) is missing the closing parenthesis"}
	}
	inner := spec[len("rand(") : len(spec)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return nil, SpecError{Kind: schema.KindInt, Spec: spec, Reason: "rand(from,to) requires exactly two integer bounds"}
	}
	a, errA := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	b, errB := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if errA != nil || errB != nil {
		return nil, SpecError{Kind: schema.KindInt, Spec: spec, Reason: "rand(from,to) bounds must be integers"}
	}
	if a > b {
		return nil, SpecError{Kind: schema.KindInt, Spec: spec, Reason: fmt.Sprintf("range bounds inverted: %d > %d", a, b)}
	}
	return RandomRange{A: a, B: b}, nil
}

func parseList(kind schema.Kind, spec string) (Rule, error) {
	var items []any
	if err := json.Unmarshal([]byte(spec), &items); err != nil {
		loose, lerr := parseLooseList(spec)
		if lerr != nil {
			return nil, SpecError{Kind: kind, Spec: spec, Reason: "cannot be parsed to a list"}
		}
		items = loose
	}
	if len(items) == 0 {
		return nil, SpecError{Kind: kind, Spec: spec, Reason: "list must not be empty"}
	}
	return ListChoice{Items: items}, nil
}

// parseLooseList accepts a flat bracketed list whose elements are quoted
// strings (single or double quotes), integers, floats, or booleans.
func parseLooseList(spec string) ([]any, error) {
	s := strings.TrimSpace(spec)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not a bracketed list")
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []any{}, nil
	}

	var items []any
	var cur strings.Builder
	var quote rune
	flush := func() error {
		elem, err := parseLooseElement(strings.TrimSpace(cur.String()))
		if err != nil {
			return err
		}
		items = append(items, elem)
		cur.Reset()
		return nil
	}
	for _, r := range inner {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return items, nil
}

func parseLooseElement(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty list element")
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if s == "true" || s == "false" {
		return s == "true", nil
	}
	return nil, fmt.Errorf("element %q is not a quoted string or number", s)
}
