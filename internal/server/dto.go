package server

import (
	"encoding/json"

	"mockline/internal/domain"
	"mockline/internal/generate"
)

// Request payloads

// ValidateSchemaRequest carries a schema as inline JSON or as a path to
// a JSON file readable by the server process.
type ValidateSchemaRequest struct {
	Schema string `json:"schema" example:"{\"ts\": \"timestamp:\", \"age\": \"int:rand(1,90)\"}" doc:"Inline JSON schema or path to a schema file"`
}

type PreviewRequest struct {
	Schema string `json:"schema" doc:"Inline JSON schema or path to a schema file"`
	Lines  int    `json:"lines,omitempty" minimum:"1" maximum:"1000" doc:"Number of sample lines, default 10"`
}

// CreateRunRequest overrides the server config for one run. Omitted
// fields fall back to the configured defaults.
type CreateRunRequest struct {
	Path            string `json:"path,omitempty" doc:"Output directory, created if absent"`
	FilesCount      *int   `json:"files_count,omitempty" minimum:"1" doc:"Number of files to produce"`
	FileName        string `json:"file_name,omitempty" doc:"Base file name"`
	FilePrefix      string `json:"file_prefix,omitempty" enum:"count,random,uuid" doc:"Naming policy for multi-file runs"`
	DataLines       *int   `json:"data_lines,omitempty" minimum:"1" doc:"Lines per file"`
	Multiprocessing *int   `json:"multiprocessing,omitempty" minimum:"1" doc:"Worker count, clamped to available CPUs"`
	ClearPath       bool   `json:"clear_path,omitempty" doc:"Remove matching files before writing"`
	Schema          string `json:"schema,omitempty" doc:"Inline JSON schema or path to a schema file"`
	SinkDSN         string `json:"sink_dsn,omitempty" doc:"Postgres DSN to mirror generated lines into"`
	SinkTable       string `json:"sink_table,omitempty" doc:"Target table for the sink"`
}

// Response payloads

// FieldRulesResponse lists the compiled rule of every schema field in
// schema order.
type FieldRulesResponse struct {
	Fields []generate.FieldRule `json:"fields"`
}

// PreviewResponse holds generated lines as raw JSON objects.
type PreviewResponse struct {
	Lines []json.RawMessage `json:"lines"`
}

// RunDetailResponse pairs a run with its per-file outcomes.
type RunDetailResponse struct {
	Run   domain.Run       `json:"run"`
	Files []domain.RunFile `json:"files"`
}

type paginatedRuns struct {
	Items      []domain.Run `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty" doc:"Opaque cursor for the next page"`
}

// nonNilSlice keeps JSON arrays rendering as [] instead of null.
func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
