package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// FromOpenAPI derives a generation schema from one component schema of an
// OpenAPI document. Only string and integer properties map onto the three
// supported field kinds; everything else is reported back as skipped.
// Property names are emitted in sorted order because the OpenAPI model
// does not preserve declaration order.
func FromOpenAPI(ctx context.Context, docPath, component string) (*Schema, []string, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromFile(docPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load openapi document: %w", err)
	}
	return fromDocument(doc, component)
}

// FromOpenAPIData is FromOpenAPI for an in-memory document.
func FromOpenAPIData(ctx context.Context, data []byte, component string) (*Schema, []string, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, nil, fmt.Errorf("load openapi document: %w", err)
	}
	return fromDocument(doc, component)
}

func fromDocument(doc *openapi3.T, component string) (*Schema, []string, error) {
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, nil, fmt.Errorf("document has no component schemas")
	}
	ref, ok := doc.Components.Schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		available := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			available = append(available, name)
		}
		sort.Strings(available)
		return nil, nil, fmt.Errorf("component schema %q not found (have: %v)", component, available)
	}
	props := ref.Value.Properties
	if len(props) == 0 {
		return nil, nil, fmt.Errorf("component schema %q has no properties", component)
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Schema{}
	var skipped []string
	for _, name := range names {
		p := props[name]
		if p == nil || p.Value == nil {
			skipped = append(skipped, name)
			continue
		}
		raw, ok := descriptorFor(p.Value)
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		f, err := parseDescriptor(name, raw)
		if err != nil {
			return nil, nil, err
		}
		s.Fields = append(s.Fields, f)
	}
	if len(s.Fields) == 0 {
		return nil, nil, fmt.Errorf("component schema %q has no string or integer properties", component)
	}
	return s, skipped, nil
}

func descriptorFor(p *openapi3.Schema) (string, bool) {
	switch firstType(p.Type) {
	case "string":
		switch {
		case p.Format == "date-time":
			return "timestamp:", true
		case len(p.Enum) > 0:
			return "str:" + enumLiteral(p.Enum), true
		case p.Default != nil:
			if s, ok := p.Default.(string); ok {
				return "str:" + s, true
			}
			return "str:rand", true
		default:
			return "str:rand", true
		}
	case "integer":
		switch {
		case len(p.Enum) > 0:
			return "int:" + enumLiteral(p.Enum), true
		case p.Min != nil && p.Max != nil:
			return fmt.Sprintf("int:rand(%d,%d)", int64(*p.Min), int64(*p.Max)), true
		default:
			return "int:rand", true
		}
	}
	return "", false
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func enumLiteral(enum []any) string {
	data, err := json.Marshal(enum)
	if err != nil {
		return "[]"
	}
	return string(data)
}
