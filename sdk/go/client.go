package mocklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Mockline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Run represents a recorded generation run.
type Run struct {
	ID             string `json:"id"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
	Status         string `json:"status"`
	Path           string `json:"path"`
	FilesRequested int    `json:"files_requested"`
	FilesWritten   int    `json:"files_written"`
	LinesPerFile   int    `json:"lines_per_file"`
	Workers        int    `json:"workers"`
	Error          string `json:"error,omitempty"`
}

// RunFile is the per-file outcome of a run.
type RunFile struct {
	RunID    string `json:"run_id"`
	Idx      int    `json:"idx"`
	Name     string `json:"name"`
	Lines    int    `json:"lines"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// FieldRule is the compiled rule of one schema field.
type FieldRule struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Rule string `json:"rule"`
}

// RunDetail pairs a run with its per-file outcomes.
type RunDetail struct {
	Run   Run       `json:"run"`
	Files []RunFile `json:"files"`
}

// RunRequest overrides the server config for one run. Nil and empty
// fields fall back to the configured defaults.
type RunRequest struct {
	Path            string `json:"path,omitempty"`
	FilesCount      *int   `json:"files_count,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	FilePrefix      string `json:"file_prefix,omitempty"`
	DataLines       *int   `json:"data_lines,omitempty"`
	Multiprocessing *int   `json:"multiprocessing,omitempty"`
	ClearPath       bool   `json:"clear_path,omitempty"`
	Schema          string `json:"schema,omitempty"`
	SinkDSN         string `json:"sink_dsn,omitempty"`
	SinkTable       string `json:"sink_table,omitempty"`
}

// PaginatedRuns wraps list responses with cursors.
type PaginatedRuns struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "v0/health", nil, nil)
}

// ValidateSchema compiles the rule of every schema field.
func (c *Client) ValidateSchema(ctx context.Context, schema string) ([]FieldRule, error) {
	var resp struct {
		Fields []FieldRule `json:"fields"`
	}
	err := c.do(ctx, http.MethodPost, "v0/schema/validate", map[string]any{"schema": schema}, &resp)
	return resp.Fields, err
}

// Preview generates sample lines without touching disk or the ledger.
func (c *Client) Preview(ctx context.Context, schema string, lines int) ([]json.RawMessage, error) {
	body := map[string]any{"schema": schema}
	if lines > 0 {
		body["lines"] = lines
	}
	var resp struct {
		Lines []json.RawMessage `json:"lines"`
	}
	err := c.do(ctx, http.MethodPost, "v0/preview", body, &resp)
	return resp.Lines, err
}

// CreateRun executes a file-producing run and returns the recorded
// outcome. A failed run comes back without an error; check Run.Status.
func (c *Client) CreateRun(ctx context.Context, req RunRequest) (RunDetail, error) {
	var resp RunDetail
	err := c.do(ctx, http.MethodPost, "v0/runs", req, &resp)
	return resp, err
}

// GetRun fetches one run with its files.
func (c *Client) GetRun(ctx context.Context, id string) (RunDetail, error) {
	var resp RunDetail
	endpoint := fmt.Sprintf("v0/runs/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Runs returns recent runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]Run, error) {
	page, err := c.RunsPage(ctx, limit, "", "")
	return page.Items, err
}

// RunsPage returns a paginated run listing, optionally filtered by status.
func (c *Client) RunsPage(ctx context.Context, limit int, cursor, status string) (PaginatedRuns, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if status != "" {
		q.Set("status", status)
	}
	endpoint := "v0/runs"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp PaginatedRuns
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Stream opens the NDJSON stream endpoint. The caller reads lines from
// the returned body and closes it.
func (c *Client) Stream(ctx context.Context, schema string, lines int) (io.ReadCloser, error) {
	q := url.Values{"schema": {schema}}
	if lines > 0 {
		q.Set("lines", strconv.Itoa(lines))
	}
	endpoint := c.base() + "/v0/stream?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) client() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c.HTTPClient
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
