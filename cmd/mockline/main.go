package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mockline/internal/app"
	"mockline/internal/config"
	"mockline/internal/db"
	"mockline/internal/domain"
	"mockline/internal/engine"
	mcpserver "mockline/internal/mcp"
	"mockline/internal/repo"
	"mockline/internal/schema"
	"mockline/internal/server"
	"mockline/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "mockline",
	Short: "Mockline CLI",
	Long: `Mockline generates synthetic line-delimited JSON from a declarative schema.
Core concepts:
- Schema: a JSON object mapping field names to "type:spec" descriptors;
  types are timestamp, str and int, specs are rand, rand(a,b), a list
  literal, a fixed value, or empty.
- Workspace: the directory holding mockline.yml and the .mockline run
  ledger; every command operates relative to it (-w).
- Run: one generation pass producing N files (or a stdout stream when
  files count is 0), recorded with per-file outcomes in the ledger.
- Naming: a single file is {name}.json; multiple files suffix by count,
  random 4-digit, or uuid.
- Sink: with a postgres DSN and table, generated records are also COPYed
  into the database.
- Triggers: --watch reruns when the schema file changes, --cron reruns on
  a schedule; both until interrupted.
- Event log: the diary of runs and cleanups, view with 'mockline log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MOCKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("config", "", "config file (default {workspace}/mockline.yml)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func registerCommands() {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(mcpCmd())
}

func generateCmd() *cobra.Command {
	var filesCount, dataLines, workers int
	var fileName, filePrefix, dataSchema, sinkDSN, sinkTable, cronExpr string
	var clearPath, watchSchema bool
	cmd := &cobra.Command{
		Use:   "generate [path_to_save_files]",
		Short: "Generate NDJSON files from a schema",
		Long: `Generate runs one generation pass: N files under the save path, or a
stdout stream when the files count is 0. Flags override mockline.yml;
the positional path overrides path_to_save_files. Every run is recorded
in the workspace ledger (see 'mockline runs list').`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchSchema && cronExpr != "" {
				return fmt.Errorf("--watch and --cron are mutually exclusive")
			}
			opts := engine.RunOptions{
				FileName:   fileName,
				FilePrefix: filePrefix,
				DataSchema: dataSchema,
				ClearPath:  clearPath,
				SinkDSN:    sinkDSN,
				SinkTable:  sinkTable,
			}
			if len(args) == 1 {
				opts.Path = args[0]
			}
			if cmd.Flags().Changed("files-count") {
				opts.FilesCount = &filesCount
			}
			if cmd.Flags().Changed("data-lines") {
				opts.DataLines = &dataLines
			}
			if cmd.Flags().Changed("multiprocessing") {
				opts.Workers = &workers
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
				if err := e.EnsureSavePath(opts); err != nil {
					return err
				}
				plan, err := e.BuildPlan(opts)
				if err != nil {
					return err
				}
				if (watchSchema || cronExpr != "") && plan.FilesCount < 1 {
					return fmt.Errorf("--watch and --cron need a file-producing run; files count is 0 (stdout mode)")
				}
				rerun := func() {
					// Rebuild so a changed schema file is re-read.
					fresh, err := e.BuildPlan(opts)
					if err != nil {
						log.Printf("rerun skipped: %v", err)
						return
					}
					run, files, err := e.Run(ctx, fresh)
					if err != nil {
						log.Printf("run %s: %v", run.ID, err)
					}
					if err := printRunSummary(run, files); err != nil {
						log.Printf("summary: %v", err)
					}
				}
				switch {
				case watchSchema:
					if info, err := os.Stat(plan.SchemaSrc); err != nil || info.IsDir() {
						return fmt.Errorf("--watch requires --data-schema to be a schema file path")
					}
					run, files, err := e.Run(ctx, plan)
					if err != nil {
						return err
					}
					if err := printRunSummary(run, files); err != nil {
						return err
					}
					return watch.Files(ctx, plan.SchemaSrc, rerun)
				case cronExpr != "":
					return watch.Cron(ctx, cronExpr, rerun)
				default:
					run, files, runErr := e.Run(ctx, plan)
					if err := printRunSummary(run, files); err != nil {
						return err
					}
					return runErr
				}
			})
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("interrupted")
			}
			return err
		},
	}
	cmd.Flags().IntVar(&filesCount, "files-count", 0, "number of files to generate (0 streams to stdout)")
	cmd.Flags().StringVar(&fileName, "file-name", "", "base file name")
	cmd.Flags().StringVar(&filePrefix, "file-prefix", "", "suffix strategy for multiple files (count, random, uuid)")
	cmd.Flags().IntVar(&dataLines, "data-lines", 0, "lines per file")
	cmd.Flags().StringVar(&dataSchema, "data-schema", "", "schema as inline JSON or a path to a JSON file")
	cmd.Flags().IntVar(&workers, "multiprocessing", 0, "number of parallel workers")
	cmd.Flags().BoolVar(&clearPath, "clear-path", false, "delete {file-name}*.json in the save path first")
	cmd.Flags().StringVar(&sinkDSN, "sink-dsn", "", "postgres DSN to also load records into")
	cmd.Flags().StringVar(&sinkTable, "sink-table", "", "postgres table for the sink")
	cmd.Flags().BoolVar(&watchSchema, "watch", false, "rerun when the schema file changes")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "rerun on a cron schedule")
	return cmd
}

func schemaCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "schema",
		Short: "Validate, preview and import schemas",
		Long:  "Schemas map field names to \"type:spec\" descriptors. Validate checks shape and compiles every rule; preview prints sample lines; import derives a schema from an OpenAPI component.",
	}
	sc.AddCommand(schemaValidateCmd())
	sc.AddCommand(schemaPreviewCmd())
	sc.AddCommand(schemaImportCmd())
	return sc
}

func schemaValidateCmd() *cobra.Command {
	var dataSchema string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema and print its compiled rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rules, err := e.CompileRules(dataSchema)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rules)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Field", "Type", "Rule"})
				for _, r := range rules {
					tw.AppendRow(table.Row{r.Name, r.Kind, r.Rule})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dataSchema, "data-schema", "", "schema as inline JSON or a path to a JSON file")
	_ = cmd.MarkFlagRequired("data-schema")
	return cmd
}

func schemaPreviewCmd() *cobra.Command {
	var dataSchema string
	var lines int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print sample lines for a schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Preview(dataSchema, lines)
				if err != nil {
					return err
				}
				for _, line := range out {
					fmt.Println(line)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dataSchema, "data-schema", "", "schema as inline JSON or a path to a JSON file")
	cmd.Flags().IntVar(&lines, "lines", 10, "number of sample lines")
	_ = cmd.MarkFlagRequired("data-schema")
	return cmd
}

func schemaImportCmd() *cobra.Command {
	var component string
	cmd := &cobra.Command{
		Use:   "import <openapi-file>",
		Short: "Derive a schema from an OpenAPI component",
		Long:  "Import maps an OpenAPI component schema onto mockline descriptors (string→str:rand, integer→int:rand, enums→list literals) and prints the result as schema JSON. Unmappable properties are skipped with a warning.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if component == "" {
				return fmt.Errorf("--component required")
			}
			sch, skipped, err := schema.FromOpenAPI(cmd.Context(), args[0], component)
			if err != nil {
				return err
			}
			for _, s := range skipped {
				log.Printf("warning: skipped %s", s)
			}
			b, err := json.MarshalIndent(sch, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&component, "component", "", "component schema name")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage workspace config",
		Long:  "Config is mockline.yml in the workspace: save path, files count, file name and prefix, lines per file, schema source, worker count, server address and sink. Flags and MOCKLINE_* env vars override it per command.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force, interactive bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write mockline.yml with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			content := []byte(config.GenerateDefault())
			if interactive {
				cfg, err := promptConfig()
				if err != nil {
					return err
				}
				content, err = yaml.Marshal(cfg)
				if err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "prompt for values")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(b))
			return nil
		},
	}
	return cmd
}

func runsCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}
	r.AddCommand(runsListCmd())
	r.AddCommand(runsShowCmd())
	return r
}

func runsListCmd() *cobra.Command {
	var n int
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				runs, err := r.ListRuns(ctx, repo.RunFilters{Limit: n, Status: status})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Started", "Status", "Files", "Lines", "Path"})
				for _, run := range runs {
					tw.AppendRow(table.Row{run.ID, run.StartedAt, run.Status,
						fmt.Sprintf("%d/%d", run.FilesWritten, run.FilesRequested), run.LinesPerFile, run.Path})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of runs")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func runsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run with its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				run, err := r.GetRun(ctx, id)
				if err != nil {
					return err
				}
				files, err := r.ListRunFiles(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"run": run, "files": files})
				}
				b, _ := json.MarshalIndent(run, "", "  ")
				fmt.Println(string(b))
				return printRunSummary(run, files)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: runs started and finished, files written or failed, cleanups.",
	}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, runID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, runID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Run", "Payload"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.RunID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&runID, "run", "", "run id filter")
	return cmd
}

func clearCmd() *cobra.Command {
	var fileName string
	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Delete {file-name}*.json under the save path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				dir := e.Config.PathToSaveFiles
				if len(args) == 1 {
					dir = args[0]
				}
				base := e.Config.FileName
				if fileName != "" {
					base = fileName
				}
				removed, err := e.Clear(ctx, dir, base)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"removed": removed})
				}
				fmt.Printf("removed %d files\n", len(removed))
				for _, name := range removed {
					fmt.Println("  " + name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fileName, "file-name", "", "base file name (default from config)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
				if addr == "" {
					addr = e.Config.Server.Addr
				}
				if addr == "" {
					addr = ":8807"
				}
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: os.Getenv("MOCKLINE_JWT_SECRET")},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving mockline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func tokenCmd() *cobra.Command {
	t := &cobra.Command{
		Use:   "token",
		Short: "Mint bearer tokens for the API",
	}
	t.AddCommand(tokenNewCmd())
	return t
}

func tokenNewCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Mint an HS256 bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("MOCKLINE_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("MOCKLINE_JWT_SECRET is required to sign tokens")
			}
			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"token": signed})
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP interface over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return mcpserver.New(e).ServeStdio()
			})
		},
	}
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	c, err := app.Open(viper.GetString("workspace"), viper.GetString("config"))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c.Engine)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	c, err := app.OpenLedger(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c.Repo())
}

// printRunSummary prints the per-file outcome table. Stdout-mode runs
// already wrote their lines to stdout; the ledger keeps their summary.
func printRunSummary(run domain.Run, files []domain.RunFile) error {
	if run.FilesRequested == 0 {
		return nil
	}
	if viper.GetBool("json") {
		return printJSON(map[string]any{"run": run, "files": files})
	}
	fmt.Printf("Run %s: %s (%d/%d files, %d lines per file)\n",
		run.ID, run.Status, run.FilesWritten, run.FilesRequested, run.LinesPerFile)
	if len(files) == 0 {
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "Name", "Lines", "Bytes", "Checksum", "Status"})
	for _, f := range files {
		status := f.Status
		if f.Error != "" {
			status = f.Status + ": " + f.Error
		}
		tw.AppendRow(table.Row{f.Idx + 1, f.Name, f.Lines, f.Bytes, f.Checksum, status})
	}
	tw.Render()
	return nil
}

func promptConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := survey.AskOne(&survey.Input{
		Message: "Save path",
		Help:    "Directory generated files are written to.",
		Default: cfg.PathToSaveFiles,
	}, &cfg.PathToSaveFiles); err != nil {
		return nil, err
	}
	var err error
	if cfg.FilesCount, err = askInt("Files count", "0 streams lines to stdout instead of writing files.", cfg.FilesCount); err != nil {
		return nil, err
	}
	if err := survey.AskOne(&survey.Input{
		Message: "File name",
		Help:    "Base name; a single file is {name}.json.",
		Default: cfg.FileName,
	}, &cfg.FileName); err != nil {
		return nil, err
	}
	if err := survey.AskOne(&survey.Select{
		Message: "File prefix",
		Help:    "Suffix strategy when generating multiple files.",
		Options: []string{config.PrefixCount, config.PrefixRandom, config.PrefixUUID},
		Default: cfg.FilePrefix,
	}, &cfg.FilePrefix); err != nil {
		return nil, err
	}
	if cfg.DataLines, err = askInt("Lines per file", "", cfg.DataLines); err != nil {
		return nil, err
	}
	if cfg.Multiprocessing, err = askInt("Workers", "Parallel file producers; clamped to the CPU count.", cfg.Multiprocessing); err != nil {
		return nil, err
	}
	if err := survey.AskOne(&survey.Input{
		Message: "Data schema",
		Help:    "Inline JSON or a path to a schema file; may stay empty and be set per run.",
		Default: cfg.DataSchema,
	}, &cfg.DataSchema); err != nil {
		return nil, err
	}
	if err := survey.AskOne(&survey.Input{
		Message: "Server address",
		Default: cfg.Server.Addr,
	}, &cfg.Server.Addr); err != nil {
		return nil, err
	}
	return cfg, nil
}

func askInt(message, help string, def int) (int, error) {
	raw := strconv.Itoa(def)
	if err := survey.AskOne(&survey.Input{Message: message, Help: help, Default: raw}, &raw); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
