// Package config loads process settings for the tally CLI and server.
//
// Values come from, in increasing priority: built-in defaults, an optional YAML
// config file, and TALLY_* environment variables (a .env file in the working
// directory is loaded into the environment first). Engine settings such as
// scope or order are never read from here; they travel with each request.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/chriscorrea/tally/internal/fetch"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAllowedOrigin is the browser UI served next to the API.
const DefaultAllowedOrigin = "http://localhost:3001"

// EnvPrefix prefixes every environment override, e.g. TALLY_SERVER_PORT.
const EnvPrefix = "TALLY"

// Config stores all configuration of the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Documents DocumentsConfig `mapstructure:"documents"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	AllowedOrigins     []string `mapstructure:"allowedOrigins"`
	ReadTimeoutSeconds int      `mapstructure:"readTimeoutSeconds"`
	CacheSize          int      `mapstructure:"cacheSize"`
}

// DocumentsConfig configures the caller-side document checks.
type DocumentsConfig struct {
	MaxBytes    int64    `mapstructure:"maxBytes"`
	Extensions  []string `mapstructure:"extensions"`
	Concurrency int      `mapstructure:"concurrency"`
}

// ReadTimeout returns the server read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// FetchOptions converts the document settings into loader options.
func (d DocumentsConfig) FetchOptions() fetch.Options {
	opts := fetch.DefaultOptions()
	opts.MaxBytes = d.MaxBytes
	opts.Extensions = d.Extensions
	opts.Concurrency = d.Concurrency
	return opts
}

// Load reads configuration from configPath, or from tally.yaml in the working
// directory when configPath is empty. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	// a missing .env is the common case
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tally")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Server.Port = normalizePort(cfg.Server.Port)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":3000")
	v.SetDefault("server.allowedOrigins", []string{DefaultAllowedOrigin})
	v.SetDefault("server.readTimeoutSeconds", 30)
	v.SetDefault("server.cacheSize", 256)
	v.SetDefault("documents.maxBytes", fetch.DefaultMaxBytes)
	v.SetDefault("documents.extensions", slices.Clone(fetch.DefaultExtensions))
	v.SetDefault("documents.concurrency", fetch.DefaultConcurrency)
}

func (c *Config) validate() error {
	switch {
	case c.Documents.MaxBytes <= 0:
		return fmt.Errorf("documents.maxBytes must be positive, got %d", c.Documents.MaxBytes)
	case len(c.Documents.Extensions) == 0:
		return fmt.Errorf("documents.extensions must not be empty")
	case c.Server.CacheSize < 0:
		return fmt.Errorf("server.cacheSize must not be negative, got %d", c.Server.CacheSize)
	}
	for i, ext := range c.Documents.Extensions {
		ext = strings.TrimSpace(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Documents.Extensions[i] = ext
	}
	return nil
}

// normalizePort accepts "3000" as well as ":3000" or "host:3000".
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
