package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Pool    PoolConfig    `yaml:"pool"`
	LLM     LLMConfig     `yaml:"llm"`
	Render  RenderConfig  `yaml:"render"`
	Catalog CatalogConfig `yaml:"catalog"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// PoolConfig sizes the execution pool
type PoolConfig struct {
	Size int `yaml:"size"`
}

// LLMConfig selects and tunes the model provider.
// The API key is never read from the file, only from the environment.
type LLMConfig struct {
	APIKey      string   `yaml:"-"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	Mock        bool     `yaml:"mock"`
	MaxRetries  int      `yaml:"max_retries"`
}

// RenderConfig holds layout engine and artifact settings
type RenderConfig struct {
	ImagesDir   string   `yaml:"images_dir"`
	Format      string   `yaml:"format"`
	DotPath     string   `yaml:"dot_path"`
	MaxNodes    int      `yaml:"max_nodes"`
	MaxEdges    int      `yaml:"max_edges"`
	ArtifactTTL Duration `yaml:"artifact_ttl"`
}

// CatalogConfig points at an optional node-type override file
type CatalogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LedgerConfig holds the artifact ledger database settings
type LedgerConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Journal bool   `yaml:"journal"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
