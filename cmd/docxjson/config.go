package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/fwojciec/docxjson/convert"
	docxhttp "github.com/fwojciec/docxjson/http"
	"gopkg.in/yaml.v3"
)

// Config holds the docxjson configuration file.
type Config struct {
	IncludeCellHTML bool          `yaml:"include_cell_html"`
	StringsToRemove []string      `yaml:"strings_to_remove"`
	Storage         StorageConfig `yaml:"storage"`
	Server          ServerConfig  `yaml:"server"`
	Watch           WatchConfig   `yaml:"watch"`
	Fetch           FetchConfig   `yaml:"fetch"`
}

// StorageConfig configures the directory-backed blob store.
type StorageConfig struct {
	Root            string `yaml:"root"`
	InputContainer  string `yaml:"input_container"`
	OutputContainer string `yaml:"output_container"`
}

// ServerConfig configures the HTTP triggers.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// WatchConfig configures the blob trigger.
type WatchConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// FetchConfig configures blob downloads by URI.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"` // per host; zero or negative disables limiting
	MaxBytes int64         `yaml:"max_bytes"`

	// AllowedHosts restricts blob URIs to these hosts. When empty, any host
	// is fetched unless it resolves to a private address.
	AllowedHosts []string `yaml:"allowed_hosts"`
	AllowPrivate bool     `yaml:"allow_private"`
}

// FetchOptions returns the blob fetcher options for this configuration.
func (c FetchConfig) FetchOptions() []docxhttp.Option {
	opts := []docxhttp.Option{
		docxhttp.WithTimeout(c.Timeout),
		docxhttp.WithRateLimit(c.RPS),
		docxhttp.WithMaxBytes(c.MaxBytes),
	}
	if len(c.AllowedHosts) > 0 {
		opts = append(opts, docxhttp.WithAllowedHosts(c.AllowedHosts...))
	}
	if !c.AllowPrivate {
		opts = append(opts, docxhttp.WithPrivateAddressesDenied())
	}
	return opts
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		StringsToRemove: append([]string(nil), docxjson.DefaultStringsToRemove...),
		Storage: StorageConfig{
			Root:            "blobs",
			InputContainer:  convert.DefaultInputContainer,
			OutputContainer: convert.DefaultOutputContainer,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: docxhttp.DefaultMaxBodyBytes,
		},
		Watch: WatchConfig{
			Interval:    convert.DefaultPollInterval,
			Concurrency: convert.DefaultConcurrency,
			MaxAttempts: convert.DefaultMaxAttempts,
		},
		Fetch: FetchConfig{
			Timeout:  docxhttp.DefaultFetchTimeout,
			RPS:      docxhttp.DefaultRateLimit,
			MaxBytes: docxhttp.DefaultMaxBlobBytes,
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	if c.Storage.InputContainer == "" || c.Storage.OutputContainer == "" {
		return fmt.Errorf("storage.input_container and storage.output_container are required")
	}
	if c.Storage.InputContainer == c.Storage.OutputContainer {
		return fmt.Errorf("storage.input_container and storage.output_container must differ")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be > 0")
	}
	if c.Watch.Concurrency <= 0 {
		return fmt.Errorf("watch.concurrency must be > 0")
	}
	if c.Watch.MaxAttempts <= 0 {
		return fmt.Errorf("watch.max_attempts must be > 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be > 0")
	}
	return nil
}
