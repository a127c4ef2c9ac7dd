// Package config provides YAML configuration parsing for chatpoll.
//
// This package enables running chatpoll as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	poll_interval: 2s
//	timeout: 10s
//
//	status_url: ${STATUS_API_URL:-https://api.example.com}
//	chat_url: ${CHAT_API_URL:-https://api.example.com}
//
//	auto_start: false
//
// URL values support environment variable substitution with ${VAR} and
// ${VAR:-default}. When a URL is omitted entirely, the STATUS_API_URL or
// CHAT_API_URL environment variable is used as the default.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production
// configs. This prevents accidental DoS of the status endpoint with overly
// aggressive polling.
const minPollInterval = 1 * time.Second

// Environment variables consulted when the corresponding URL is absent
// from the config file.
const (
	statusURLEnv = "STATUS_API_URL"
	chatURLEnv   = "CHAT_API_URL"
)

// Config is the root configuration structure for chatpoll.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// StatusURL is the base URL of the remote status function.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}.
	// Defaults to the STATUS_API_URL environment variable when omitted.
	StatusURL string `yaml:"status_url"`

	// ChatURL is the base URL of the remote chat function.
	// Supports environment variable substitution like StatusURL.
	// Defaults to the CHAT_API_URL environment variable when omitted.
	ChatURL string `yaml:"chat_url"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between status fetch cycles.
	// Accepts duration strings like "2s", "1m", "500ms". Defaults to 2s.
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout bounds each individual request to the remote functions.
	// Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// AutoStart begins polling immediately instead of waiting for the
	// first chat submission.
	AutoStart bool `yaml:"auto_start"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
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
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL values, defaults are applied
// for Port (8080), PollInterval (2s) and Timeout (10s), and all fields are
// validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(2 * time.Second)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(10 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration())
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	var err error
	if c.StatusURL, err = resolveURL(c.StatusURL, "status_url", statusURLEnv); err != nil {
		return err
	}
	if c.ChatURL, err = resolveURL(c.ChatURL, "chat_url", chatURLEnv); err != nil {
		return err
	}

	return nil
}

// resolveURL expands, defaults and validates a base URL field.
func resolveURL(raw, field, envVar string) (string, error) {
	if raw == "" {
		raw = os.Getenv(envVar)
	}
	if raw == "" {
		return "", fmt.Errorf("%s is required (set it in the config file or via %s)", field, envVar)
	}

	expanded, err := expandEnvVars(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}

	parsed, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("%s: invalid url: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%s: url scheme must be http or https, got %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%s: url must have a host, got %q", field, expanded)
	}

	return expanded, nil
}
