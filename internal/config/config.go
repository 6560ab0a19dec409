package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models mockline.yml.
type Config struct {
	PathToSaveFiles string `yaml:"path_to_save_files"`
	FilesCount      int    `yaml:"files_count"`
	FileName        string `yaml:"file_name"`
	FilePrefix      string `yaml:"file_prefix"`
	DataLines       int    `yaml:"data_lines"`
	DataSchema      string `yaml:"data_schema"`
	Multiprocessing int    `yaml:"multiprocessing"`
	Server          struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Sink struct {
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table"`
	} `yaml:"sink"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// WebhookConfig is one delivery target for ledger events. The serve
// command posts each matching event to the URL as it is recorded.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Prefixes accepted for file_prefix.
const (
	PrefixCount  = "count"
	PrefixRandom = "random"
	PrefixUUID   = "uuid"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create with mockline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// EnsureDefault loads the workspace config, writing the default template
// first when no file exists yet. The second return reports whether the
// file was created by this call.
func EnsureDefault(workspace string) (*Config, bool, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, false, err
	}
	if cfg != nil {
		return cfg, false, nil
	}
	path := Path(workspace)
	if err := os.WriteFile(path, []byte(GenerateDefault()), 0o644); err != nil {
		return nil, false, fmt.Errorf("write default config: %w", err)
	}
	cfg, err = FromYAML([]byte(GenerateDefault()))
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.PathToSaveFiles == "" {
		return fmt.Errorf("config.path_to_save_files is required")
	}
	if c.FilesCount < 0 {
		return fmt.Errorf("config.files_count must be >= 0, got %d", c.FilesCount)
	}
	if c.DataLines < 1 {
		return fmt.Errorf("config.data_lines must be >= 1, got %d", c.DataLines)
	}
	if c.Multiprocessing < 1 {
		return fmt.Errorf("config.multiprocessing must be >= 1, got %d", c.Multiprocessing)
	}
	switch c.FilePrefix {
	case PrefixCount, PrefixRandom, PrefixUUID:
	default:
		return fmt.Errorf("config.file_prefix must be one of count, random, uuid; got %q", c.FilePrefix)
	}
	if c.FileName == "" {
		return fmt.Errorf("config.file_name is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "mockline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `path_to_save_files: .
files_count: 1
file_name: data
file_prefix: count
data_lines: 1000
data_schema: ""
multiprocessing: 1

server:
  addr: ":8807"

sink:
  dsn: ""
  table: ""
`
