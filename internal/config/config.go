// Package config holds batch run settings. Values layer as defaults, then the
// optional YAML file, then environment, then command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/venturhq/ventur-connector/pkg/pipeline/io/local"
	"github.com/venturhq/ventur-connector/pkg/pipeline/worker"
	"github.com/venturhq/ventur-connector/pkg/ventur/catalog"
	"github.com/venturhq/ventur-connector/pkg/ventur/credentials"
)

// Config is the full set of settings for one batch run.
type Config struct {
	Input        string `yaml:"input"`
	InputFormat  string `yaml:"inputFormat"`
	Output       string `yaml:"output"`
	OutputFormat string `yaml:"outputFormat"`

	// Endpoint is used for items that do not carry an "endpoint" field.
	Endpoint string `yaml:"endpoint"`
	Scheme   string `yaml:"scheme"`
	Simplify bool   `yaml:"simplify"`

	Credential      string `yaml:"credential"`
	CredentialsFile string `yaml:"credentialsFile"`
	CAPath          string `yaml:"caPath"`

	FailFast     bool    `yaml:"failFast"`
	RateLimitRPS float64 `yaml:"rateLimitRPS"`

	// Defaults supplies field values for items that leave them unset, keyed by
	// input field name (for example "source" or "additionalFields.source").
	Defaults map[string]any `yaml:"defaults"`
}

// Default returns the settings used before any file, environment or flag is applied.
func Default() Config {
	return Config{Credential: credentials.DefaultName}
}

// Load returns Default overlaid with the YAML file at path. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the VENTUR_* and pipeline environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	str("VENTUR_ENDPOINT", &c.Endpoint)
	str("VENTUR_SCHEME", &c.Scheme)
	str("VENTUR_CREDENTIAL", &c.Credential)
	str("VENTUR_CREDENTIALS_FILE", &c.CredentialsFile)
	str("VENTUR_CA_PATH", &c.CAPath)
	str("OUTPUT_FORMAT", &c.OutputFormat)

	var err error
	if c.FailFast, err = envBool(getenv, "FAIL_FAST", c.FailFast); err != nil {
		return err
	}
	if c.Simplify, err = envBool(getenv, "VENTUR_SIMPLIFY", c.Simplify); err != nil {
		return err
	}
	if c.RateLimitRPS, err = envFloat(getenv, "RATE_LIMIT_RPS", c.RateLimitRPS); err != nil {
		return err
	}
	return nil
}

// Validate checks the values that can be checked before any item is read.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" || strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("input and output are required")
	}
	if _, err := catalog.ParseScheme(c.Scheme); err != nil {
		return err
	}
	if id := strings.TrimSpace(c.Endpoint); id != "" {
		if _, err := catalog.Resolve(id); err != nil {
			return err
		}
	}
	switch c.ResolvedOutputFormat() {
	case local.FormatJSON, local.FormatJSONL:
	default:
		return fmt.Errorf("unsupported output format %q (want json or jsonl)", c.OutputFormat)
	}
	switch c.ResolvedInputFormat() {
	case local.FormatCSV, local.FormatJSON, local.FormatJSONL, local.FormatYAML:
	default:
		return fmt.Errorf("unsupported input format %q (want csv, json, jsonl or yaml)", c.InputFormat)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rateLimitRPS must be >= 0")
	}
	return nil
}

func (c Config) ResolvedInputFormat() local.Format {
	return local.FormatFromPath(c.InputFormat, c.Input, local.FormatCSV)
}

func (c Config) ResolvedOutputFormat() local.Format {
	return local.FormatFromPath(c.OutputFormat, c.Output, local.FormatJSONL)
}

// StreamsOutput reports whether records are written as each item completes. Only
// partial-output jsonl runs stream.
func (c Config) StreamsOutput() bool {
	return !c.FailFast && c.ResolvedOutputFormat() == local.FormatJSONL
}

func (c Config) FailurePolicy() worker.FailurePolicy {
	if c.FailFast {
		return worker.FailurePolicyFailFast
	}
	return worker.FailurePolicyPartialOutput
}

func envFloat(getenv func(string) string, name string, fallback float64) (float64, error) {
	v := strings.TrimSpace(getenv(name))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	return out, nil
}

func envBool(getenv func(string) string, name string, fallback bool) (bool, error) {
	v := strings.TrimSpace(getenv(name))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	return out, nil
}
