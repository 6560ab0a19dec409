package engine

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"mockline/internal/config"
	"mockline/internal/schema"
)

// RunOptions are per-invocation overrides on top of the loaded config.
// Pointer fields distinguish "not set" from zero, since zero is a valid
// files count.
type RunOptions struct {
	Path       string
	FilesCount *int
	FileName   string
	FilePrefix string
	DataLines  *int
	Workers    *int
	ClearPath  bool
	DataSchema string
	SinkDSN    string
	SinkTable  string
}

// Plan is a fully resolved, validated generation request. Immutable;
// one plan may execute several times (watch and cron reruns).
type Plan struct {
	Path       string
	FilesCount int
	BaseName   string
	Prefix     string
	DataLines  int
	Workers    int
	ClearPath  bool
	SchemaSrc  string
	Schema     *schema.Schema
	SinkDSN    string
	SinkTable  string
}

// BuildPlan resolves options over the engine config and validates the
// result. Worker counts beyond the available cores are clamped with a
// warning.
func (e Engine) BuildPlan(opts RunOptions) (Plan, error) {
	cfg := e.Config
	if cfg == nil {
		cfg = config.Default()
	}
	p := Plan{
		Path:       cfg.PathToSaveFiles,
		FilesCount: cfg.FilesCount,
		BaseName:   cfg.FileName,
		Prefix:     cfg.FilePrefix,
		DataLines:  cfg.DataLines,
		Workers:    cfg.Multiprocessing,
		ClearPath:  opts.ClearPath,
		SchemaSrc:  cfg.DataSchema,
		SinkDSN:    cfg.Sink.DSN,
		SinkTable:  cfg.Sink.Table,
	}
	if opts.Path != "" {
		p.Path = opts.Path
	}
	if opts.FilesCount != nil {
		p.FilesCount = *opts.FilesCount
	}
	if opts.FileName != "" {
		p.BaseName = opts.FileName
	}
	if opts.FilePrefix != "" {
		p.Prefix = opts.FilePrefix
	}
	if opts.DataLines != nil {
		p.DataLines = *opts.DataLines
	}
	if opts.Workers != nil {
		p.Workers = *opts.Workers
	}
	if opts.DataSchema != "" {
		p.SchemaSrc = opts.DataSchema
	}
	if opts.SinkDSN != "" {
		p.SinkDSN = opts.SinkDSN
	}
	if opts.SinkTable != "" {
		p.SinkTable = opts.SinkTable
	}

	if p.FilesCount < 0 {
		return p, configErrorf("files count must be >= 0, got %d", p.FilesCount)
	}
	if p.DataLines < 1 {
		return p, configErrorf("data lines must be >= 1, got %d", p.DataLines)
	}
	if p.Workers < 1 {
		return p, configErrorf("multiprocessing must be >= 1, got %d", p.Workers)
	}
	if p.BaseName == "" {
		return p, configErrorf("file name must not be empty")
	}
	switch p.Prefix {
	case config.PrefixCount, config.PrefixRandom, config.PrefixUUID:
	default:
		return p, configErrorf("file prefix must be one of count, random, uuid; got %q", p.Prefix)
	}
	if p.SinkDSN != "" && p.SinkTable == "" {
		return p, configErrorf("sink table is required when a sink dsn is set")
	}
	if p.FilesCount > 0 {
		info, err := os.Stat(p.Path)
		if err != nil {
			return p, configErrorf("save path %s does not exist", p.Path)
		}
		if !info.IsDir() {
			return p, configErrorf("save path %s is not a directory", p.Path)
		}
	}
	if p.SchemaSrc == "" {
		return p, configErrorf("data schema is required (set data_schema or --data-schema)")
	}
	sch, err := schema.Parse(p.SchemaSrc)
	if err != nil {
		return p, fmt.Errorf("data schema: %w", err)
	}
	p.Schema = sch

	if cores := runtime.NumCPU(); p.Workers > cores {
		log.Printf("warning: multiprocessing %d exceeds %d available cores; using %d", p.Workers, cores, cores)
		p.Workers = cores
	}
	return p, nil
}

// EnsureSavePath creates the resolved output directory ahead of plan
// validation, erroring when the path exists as something other than a
// directory. Stdout runs never touch the filesystem.
func (e Engine) EnsureSavePath(opts RunOptions) error {
	cfg := e.Config
	if cfg == nil {
		cfg = config.Default()
	}
	path := cfg.PathToSaveFiles
	if opts.Path != "" {
		path = opts.Path
	}
	count := cfg.FilesCount
	if opts.FilesCount != nil {
		count = *opts.FilesCount
	}
	if count == 0 || path == "" {
		return nil
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return configErrorf("save path %s exists and is not a directory", path)
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create save path: %w", err)
		}
		return nil
	}
	return err
}

// chunks partitions n file indices into contiguous [start,end) spans,
// one per worker: floor division, last span absorbs the remainder.
// Empty spans are dropped.
func chunks(n, w int) [][2]int {
	if w < 1 {
		w = 1
	}
	size := n / w
	var spans [][2]int
	for i := 0; i < w; i++ {
		start := i * size
		end := start + size
		if i == w-1 {
			end = n
		}
		if start >= end {
			continue
		}
		spans = append(spans, [2]int{start, end})
	}
	return spans
}
