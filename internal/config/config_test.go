package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"mockline/internal/config"
)

func TestDefaultTemplateParses(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	if err != nil {
		t.Fatalf("default template: %v", err)
	}
	if cfg.PathToSaveFiles != "." {
		t.Fatalf("path_to_save_files = %q, want .", cfg.PathToSaveFiles)
	}
	if cfg.FilesCount != 1 || cfg.DataLines != 1000 || cfg.Multiprocessing != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FileName != "data" || cfg.FilePrefix != config.PrefixCount {
		t.Fatalf("unexpected naming defaults: %+v", cfg)
	}
}

func TestEnsureDefaultCreatesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, created, err := config.EnsureDefault(dir)
	if err != nil {
		t.Fatalf("ensure default: %v", err)
	}
	if !created {
		t.Fatalf("expected file to be created")
	}
	if _, err := os.Stat(filepath.Join(dir, "mockline.yml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if cfg.FileName != "data" {
		t.Fatalf("file_name = %q, want data", cfg.FileName)
	}
	// A second call must load, not recreate.
	_, created, err = config.EnsureDefault(dir)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created {
		t.Fatalf("expected existing file to be reused")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative files_count", "path_to_save_files: .\nfiles_count: -1\nfile_name: data\nfile_prefix: count\ndata_lines: 10\nmultiprocessing: 1\n"},
		{"zero data_lines", "path_to_save_files: .\nfiles_count: 1\nfile_name: data\nfile_prefix: count\ndata_lines: 0\nmultiprocessing: 1\n"},
		{"zero multiprocessing", "path_to_save_files: .\nfiles_count: 1\nfile_name: data\nfile_prefix: count\ndata_lines: 10\nmultiprocessing: 0\n"},
		{"bad prefix", "path_to_save_files: .\nfiles_count: 1\nfile_name: data\nfile_prefix: sequential\ndata_lines: 10\nmultiprocessing: 1\n"},
		{"empty file_name", "path_to_save_files: .\nfiles_count: 1\nfile_name: \"\"\nfile_prefix: count\ndata_lines: 10\nmultiprocessing: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.FromYAML([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadOptionalMissing(t *testing.T) {
	cfg, err := config.LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for missing file, got %+v", cfg)
	}
}
