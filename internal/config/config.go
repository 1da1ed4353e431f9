// Package config provides configuration management for archsketch.
//
// Settings come from three layers, later layers winning:
//  1. built-in defaults
//  2. the YAML config file, if one is found
//  3. environment variables, including those from a local .env file
//
// Config file locations (priority order, see SearchPaths):
//  1. $ARCHSKETCH_CONFIG
//  2. ./archsketch.yaml
//  3. $XDG_CONFIG_HOME/archsketch/config.yaml
//  4. ~/.config/archsketch/config.yaml
//  5. /etc/archsketch/config.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultAddr           = "0.0.0.0:8000"
	DefaultPoolSize       = 3
	DefaultRequestTimeout = 120 * time.Second
	DefaultModel          = "models/gemini-1.5-flash"
	DefaultMaxRetries     = 3
	DefaultFormat         = "png"
	DefaultMaxNodes       = 500
	DefaultMaxEdges       = 2000
	DefaultArtifactTTL    = time.Hour
	DefaultLedgerDSN      = ":memory:"
	DefaultLogLevel       = "info"
)

// Environment variables read by ApplyEnv
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvPoolSize     = "AGENT_POOL_SIZE"
	EnvUseMock      = "USE_MOCK_LLM"
	EnvImagesDir    = "IMAGES_DIR"
	EnvArtifactTTL  = "ARTIFACT_TTL"
	EnvLogLevel     = "LOG_LEVEL"
	EnvHost         = "HOST"
	EnvPort         = "PORT"
)

// Load reads .env, finds and loads the config file (or defaults if none
// is found), then applies environment overrides
func Load() (*Config, string, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}

	cfg := DefaultConfig()
	path := FindConfigPath()
	if path != "" {
		loaded, _, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// LoadDotEnv loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Render.ArtifactTTL = Duration(DefaultArtifactTTL)
	return cfg
}

// DefaultImagesDir is where artifacts go when nothing else is configured
func DefaultImagesDir() string {
	return filepath.Join(os.TempDir(), "archsketch_images")
}

// applyDefaults fills in missing values with defaults. A zero artifact TTL
// is left alone since it disables reaping.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Pool.Size <= 0 {
		c.Pool.Size = DefaultPoolSize
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = DefaultMaxRetries
	}
	if c.Render.ImagesDir == "" {
		c.Render.ImagesDir = DefaultImagesDir()
	}
	if c.Render.Format == "" {
		c.Render.Format = DefaultFormat
	}
	if c.Render.MaxNodes <= 0 {
		c.Render.MaxNodes = DefaultMaxNodes
	}
	if c.Render.MaxEdges <= 0 {
		c.Render.MaxEdges = DefaultMaxEdges
	}
	if c.Ledger.DSN == "" {
		c.Ledger.DSN = DefaultLedgerDSN
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// ApplyEnv overrides settings from the environment. lookup is normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvGeminiAPIKey); ok {
		c.LLM.APIKey = v
	} else if v, ok := get(EnvGoogleAPIKey); ok {
		c.LLM.APIKey = v
	}

	if v, ok := get(EnvPoolSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvPoolSize, v)
		}
		c.Pool.Size = n
	}

	if v, ok := get(EnvUseMock); ok {
		c.LLM.Mock = strings.EqualFold(v, "true") || v == "1"
	}

	if v, ok := get(EnvImagesDir); ok {
		c.Render.ImagesDir = v
	}

	if v, ok := get(EnvArtifactTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("%s: want a non-negative duration, got %q", EnvArtifactTTL, v)
		}
		c.Render.ArtifactTTL = Duration(d)
	}

	if v, ok := get(EnvLogLevel); ok {
		c.Logging.Level = v
	}

	host, hasHost := get(EnvHost)
	port, hasPort := get(EnvPort)
	if hasHost || hasPort {
		defHost, defPort, _ := net.SplitHostPort(c.Server.Addr)
		if !hasHost {
			host = defHost
		}
		if !hasPort {
			port = defPort
		}
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("%s: want a port number, got %q", EnvPort, port)
		}
		c.Server.Addr = net.JoinHostPort(host, port)
	}

	return nil
}

// ErrMissingAPIKey is returned by Validate when Gemini has no key
var ErrMissingAPIKey = errors.New(EnvGeminiAPIKey + " environment variable is required (or set " + EnvUseMock + "=true)")

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if !c.UseMock() && c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", *c.LLM.Temperature)
	}
	return nil
}

// UseMock reports whether the mock provider stands in for Gemini
func (c *Config) UseMock() bool {
	return c.LLM.Mock
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	provider := "gemini " + c.LLM.Model
	if c.UseMock() {
		provider = "mock"
	}
	return fmt.Sprintf("addr=%s pool=%d provider=%s images=%s ttl=%s ledger=%s",
		c.Server.Addr, c.Pool.Size, provider, c.Render.ImagesDir,
		c.Render.ArtifactTTL.Duration(), c.Ledger.DSN)
}
