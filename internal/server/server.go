package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"mockline/internal/engine"
	"mockline/internal/migrate"
	"mockline/internal/repo"
	"mockline/internal/schema"
	"mockline/internal/valuespec"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_schema"`
	Message string         `json:"message" example:"schema field \"age\": descriptor must contain ':'"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"age\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Mockline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Mockline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerSchema(group, cfg.Engine)
	registerPreview(group, cfg.Engine)
	registerRuns(group, cfg.Engine)
	registerStream(router, cfg.Engine, basePath)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe schema.FieldError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusBadRequest, "invalid_schema", err.Error(), map[string]any{"field": fe.Field})
	}
	var se valuespec.SpecError
	if errors.As(err, &se) {
		return newAPIError(http.StatusBadRequest, "invalid_value_spec", err.Error(), map[string]any{"spec": se.Spec})
	}
	var ce engine.ConfigError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var fileErr engine.FileError
	if errors.As(err, &fileErr) {
		return newAPIError(http.StatusUnprocessableEntity, "generation_failed", err.Error(), map[string]any{"file": fileErr.Name})
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "generation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Mockline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; when the server has a JWT secret configured.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Workspace status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		version, err := migrate.Version(e.DB)
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := e.Repo.CountRunsByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		lastEvent, err := e.Repo.LatestEventID(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"save_path":      e.Config.PathToSaveFiles,
			"schema_version": version,
			"run_counts":     counts,
			"last_event_id":  lastEvent,
		}}, nil
	})
}

func registerSchema(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "validate-schema",
		Method:      http.MethodPost,
		Path:        "/schema/validate",
		Summary:     "Validate a schema",
		Description: "Parses the schema and compiles the value spec of every field without generating anything.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ValidateSchemaRequest `json:"body"`
	}) (*struct {
		Body FieldRulesResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if strings.TrimSpace(input.Body.Schema) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "schema is required", nil)
		}
		rules, err := e.CompileRules(input.Body.Schema)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FieldRulesResponse `json:"body"`
		}{Body: FieldRulesResponse{Fields: nonNilSlice(rules)}}, nil
	})
}

func registerPreview(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "preview-lines",
		Method:      http.MethodPost,
		Path:        "/preview",
		Summary:     "Preview generated lines",
		Description: "Generates sample lines in memory. Nothing touches disk or the run ledger.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PreviewRequest `json:"body"`
	}) (*struct {
		Body PreviewResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if strings.TrimSpace(input.Body.Schema) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "schema is required", nil)
		}
		lines := input.Body.Lines
		if lines == 0 {
			lines = 10
		}
		out, err := e.Preview(input.Body.Schema, lines)
		if err != nil {
			return nil, handleError(err)
		}
		resp := PreviewResponse{Lines: []json.RawMessage{}}
		for _, l := range out {
			resp.Lines = append(resp.Lines, json.RawMessage(l))
		}
		return &struct {
			Body PreviewResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List recent runs",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"running,completed,failed,canceled"`
		Limit  int    `query:"limit" default:"20"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedRuns `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorStarted, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		f := repo.RunFilters{
			Status:          input.Status,
			Limit:           limit + 1,
			CursorStartedAt: cursorStarted,
			CursorID:        cursorID,
		}
		items, err := e.Repo.ListRuns(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedRuns{Items: nonNilSlice(items)}
		if len(items) > limit {
			items = items[:limit]
			// Cursor points at the last returned row so the next page
			// resumes exactly after it.
			resp.NextCursor = composeCursor(items[limit-1].StartedAt, items[limit-1].ID)
			resp.Items = items
		}
		return &struct {
			Body paginatedRuns `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get a run with its files",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct {
		Body RunDetailResponse `json:"body"`
	}, error) {
		run, err := e.Repo.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		files, err := e.Repo.ListRunFiles(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunDetailResponse `json:"body"`
		}{Body: RunDetailResponse{Run: run, Files: nonNilSlice(files)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-run",
		Method:        http.MethodPost,
		Path:          "/runs",
		Summary:       "Execute a generation run",
		Description:   "Resolves the overrides against the server config, executes a file-producing run and returns the recorded outcome. The run status reports per-file failures.",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateRunRequest `json:"body"`
	}) (*struct {
		Body RunDetailResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.RunOptions{
			Path:       input.Body.Path,
			FilesCount: input.Body.FilesCount,
			FileName:   input.Body.FileName,
			FilePrefix: input.Body.FilePrefix,
			DataLines:  input.Body.DataLines,
			Workers:    input.Body.Multiprocessing,
			ClearPath:  input.Body.ClearPath,
			DataSchema: input.Body.Schema,
			SinkDSN:    input.Body.SinkDSN,
			SinkTable:  input.Body.SinkTable,
		}
		if err := e.EnsureSavePath(opts); err != nil {
			return nil, handleError(err)
		}
		plan, err := e.BuildPlan(opts)
		if err != nil {
			return nil, handleError(err)
		}
		if plan.FilesCount < 1 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "files_count must be at least 1; stdout mode is not available over the API", nil)
		}
		if p, ok := principalFromContext(ctx); ok {
			log.Printf("run requested by %s", p.Subject)
		}
		run, files, runErr := e.Run(ctx, plan)
		if runErr != nil && run.FinishedAt == "" {
			// The run never made it into the ledger.
			return nil, handleError(runErr)
		}
		return &struct {
			Body RunDetailResponse `json:"body"`
		}{Body: RunDetailResponse{Run: run, Files: nonNilSlice(files)}}, nil
	})
}

// registerStream serves raw NDJSON outside Huma, which buffers whole
// response bodies. Lines flush as they are generated.
func registerStream(r chi.Router, e engine.Engine, basePath string) {
	streamPath := path.Join(basePath, "stream")
	r.Get(streamPath, func(w http.ResponseWriter, req *http.Request) {
		src := req.URL.Query().Get("schema")
		if src == "" {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "schema query parameter is required", nil))
			return
		}
		lines := 10
		if raw := req.URL.Query().Get("lines"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "lines must be a positive integer", map[string]any{"lines": raw}))
				return
			}
			lines = parsed
		}
		// Compile before the first byte so schema errors still get a
		// clean status code.
		if _, err := e.CompileRules(src); err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		out := io.Writer(w)
		if f, ok := w.(http.Flusher); ok {
			out = flushWriter{w: w, f: f}
		}
		if err := e.StreamLines(req.Context(), src, lines, out); err != nil {
			// Headers are gone; all we can do is stop the stream.
			return
		}
	})
}

type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 20
	}
	if in > 200 {
		return 200
	}
	return in
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

func composeCursor(startedAt, id string) string {
	if startedAt == "" || id == "" {
		return ""
	}
	return startedAt + "|" + id
}
