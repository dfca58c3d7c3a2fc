// Package config provides YAML configuration parsing for livesql.
//
// This package enables running livesql as a standalone binary with a
// configuration file, as an alternative to the programmatic builder API.
//
// Example configuration:
//
//	interval: 30s
//
//	sources:
//	  - name: prices
//	    location: https://example.com/prices.csv
//	    timeout: 5s
//	  - name: orders
//	    location: ${DATABASE_URL}
//	    query: SELECT id, amount FROM orders
//	    interval: 1m
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minInterval is the minimum allowed polling interval. This prevents
// accidental DoS of sources with overly aggressive polling.
const minInterval = 1 * time.Second

// defaultInterval applies to sources that set no interval of their own when
// the top-level interval is also unset.
const defaultInterval = 30 * time.Second

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file. Use [Load] or [Parse] to
// create a Config from YAML.
type Config struct {
	// Interval is the default polling interval for all sources.
	// Accepts duration strings like "10s", "1m", "500ms". Defaults to 30s.
	Interval Duration `yaml:"interval"`

	// Sources defines the data sources to poll.
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines a single data source.
type SourceConfig struct {
	// Name identifies the source in the registry and on the command line.
	Name string `yaml:"name"`

	// Location is the URL, file path, or postgres DSN.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}.
	Location string `yaml:"location"`

	// Format overrides format detection ("csv", "tsv", "ltsv", "parquet",
	// "xlsx"). Empty means detect from the location.
	Format string `yaml:"format"`

	// Query is the SQL run against a postgres source on every fetch.
	Query string `yaml:"query"`

	// Interval overrides the top-level polling interval for this source.
	Interval Duration `yaml:"interval"`

	// Timeout bounds each fetch attempt. Zero means no per-fetch bound.
	Timeout Duration `yaml:"timeout"`

	// Headers are extra HTTP headers sent with each fetch.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Table renames the SQL table the source is exposed under.
	Table string `yaml:"table"`
}

// Duration wraps time.Duration so YAML can carry "10s" style strings.
type Duration time.Duration

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML parses a duration string like "30s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values. A referenced variable that is not set and has no
// default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes, applies defaults, expands
// environment variables, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = Duration(defaultInterval)
	}
	for i := range c.Sources {
		if c.Sources[i].Interval == 0 {
			c.Sources[i].Interval = c.Interval
		}
	}
}

// expand substitutes environment variables in the fields that accept them.
func (c *Config) expand() error {
	for i := range c.Sources {
		src := &c.Sources[i]

		expanded, err := expandEnvVars(src.Location)
		if err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}
		src.Location = expanded

		for k, v := range src.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("source %q header %q: %w", src.Name, k, err)
			}
			src.Headers[k] = expanded
		}
	}
	return nil
}

// Validate checks the configuration for problems that would only surface
// later as confusing runtime behavior.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config has no sources")
	}

	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source %d has no name", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		if strings.TrimSpace(src.Location) == "" {
			return fmt.Errorf("source %q has no location", src.Name)
		}
		if src.Interval.Duration() < minInterval {
			return fmt.Errorf("source %q interval %s is below the minimum %s",
				src.Name, src.Interval.Duration(), minInterval)
		}
		isPostgres := strings.HasPrefix(src.Location, "postgres://") ||
			strings.HasPrefix(src.Location, "postgresql://")
		if isPostgres && strings.TrimSpace(src.Query) == "" {
			return fmt.Errorf("source %q is a postgres source but has no query", src.Name)
		}
		if !isPostgres && strings.TrimSpace(src.Query) != "" {
			return fmt.Errorf("source %q has a query but is not a postgres source", src.Name)
		}
	}
	return nil
}

// Source returns the named source config.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}
