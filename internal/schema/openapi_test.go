package schema_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mockline/internal/schema"
)

const sampleOpenAPI = `openapi: 3.0.3
info:
  title: sample
  version: "1.0"
paths: {}
components:
  schemas:
    User:
      type: object
      properties:
        id:
          type: string
          format: uuid
        name:
          type: string
        role:
          type: string
          enum: [admin, viewer]
        age:
          type: integer
          minimum: 18
          maximum: 99
        score:
          type: integer
        created_at:
          type: string
          format: date-time
        active:
          type: boolean
`

func TestFromOpenAPIData(t *testing.T) {
	s, skipped, err := schema.FromOpenAPIData(context.Background(), []byte(sampleOpenAPI), "User")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	got := map[string]string{}
	for _, f := range s.Fields {
		got[f.Name] = f.Raw
	}
	want := map[string]string{
		"id":         "str:rand",
		"name":       "str:rand",
		"role":       `str:["admin","viewer"]`,
		"age":        "int:rand(18,99)",
		"score":      "int:rand",
		"created_at": "timestamp:",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"active"}, skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOpenAPIDataUnknownComponent(t *testing.T) {
	_, _, err := schema.FromOpenAPIData(context.Background(), []byte(sampleOpenAPI), "Order")
	if err == nil {
		t.Fatalf("expected error for unknown component")
	}
}
