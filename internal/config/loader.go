package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a single YAML file. Missing
// fields fall back to Defaults. If a pinned hash sidecar exists next to
// the file, the file is verified against it before use.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if err := verifyPinnedSum(absPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation before parsing.
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fingerprint, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return nil, err
	}
	cfg.Fingerprint = fingerprint

	return &cfg, nil
}

// applyDefaults merges default values into cfg where not explicitly set.
func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.JournalPath == "" {
		cfg.Service.JournalPath = defaults.Service.JournalPath
	}
	if cfg.Service.JournalRetention == 0 {
		cfg.Service.JournalRetention = defaults.Service.JournalRetention
	}
	if cfg.Service.PIDFile == "" {
		cfg.Service.PIDFile = defaults.Service.PIDFile
	}

	if cfg.Queue.Bound == 0 {
		cfg.Queue.Bound = defaults.Queue.Bound
	}
	if cfg.Queue.Timeout == 0 {
		cfg.Queue.Timeout = defaults.Queue.Timeout
	}

	if !cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API = defaults.API
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Renderer.ConnectTimeout == 0 {
		cfg.Renderer.ConnectTimeout = defaults.Renderer.ConnectTimeout
	}
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Service.JournalPath == "" {
		return fmt.Errorf("service.journal_path is required")
	}

	if cfg.Queue.Bound <= 0 {
		return fmt.Errorf("queue.bound must be positive")
	}
	if cfg.Queue.Timeout <= 0 {
		return fmt.Errorf("queue.timeout must be positive")
	}

	if cfg.API.Enabled {
		if envVarPattern.MatchString(cfg.API.Auth.APIKey) {
			matches := envVarPattern.FindStringSubmatch(cfg.API.Auth.APIKey)
			if len(matches) > 1 {
				return fmt.Errorf("api.auth.api_key: environment variable ${%s} is not set", matches[1])
			}
			return fmt.Errorf("api.auth.api_key: unresolved environment variable")
		}
	}

	if cfg.Renderer.URL != "" {
		if !strings.HasPrefix(cfg.Renderer.URL, "ws://") && !strings.HasPrefix(cfg.Renderer.URL, "wss://") {
			return fmt.Errorf("renderer.url must be a ws:// or wss:// endpoint (got %q)", cfg.Renderer.URL)
		}
	}

	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
