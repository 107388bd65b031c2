package config

import "time"

// Config is the root configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Queue    QueueConfig    `yaml:"queue"`
	API      APIConfig      `yaml:"api"`
	Renderer RendererConfig `yaml:"renderer"`

	// Fingerprint is the BLAKE3 hash of the loaded config file,
	// reported by /healthz. Not part of the YAML surface.
	Fingerprint string `yaml:"-"`
}

type ServiceConfig struct {
	Name             string        `yaml:"name"`
	LogLevel         string        `yaml:"log_level"`
	JournalPath      string        `yaml:"journal_path"`
	JournalRetention time.Duration `yaml:"journal_retention"`
	PIDFile          string        `yaml:"pid_file"`
}

type QueueConfig struct {
	// Bound is the maximum queue depth, head included.
	Bound int `yaml:"bound"`
	// Timeout force-advances a command stuck in processing.
	Timeout time.Duration `yaml:"timeout"`
}

type APIConfig struct {
	Enabled bool       `yaml:"enabled"`
	Listen  string     `yaml:"listen"`
	Auth    AuthConfig `yaml:"auth"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type RendererConfig struct {
	// URL is the compositor websocket endpoint. Empty selects the
	// loopback executor, which completes every command synchronously.
	URL string `yaml:"url"`
	// ConnectTimeout bounds the initial websocket dial.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:             "overviewd",
			LogLevel:         "info",
			JournalPath:      "./data/overviewd.db",
			JournalRetention: 7 * 24 * time.Hour,
			PIDFile:          "./data/overviewd.pid",
		},
		Queue: QueueConfig{
			Bound:   3,
			Timeout: 5000 * time.Millisecond,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8686",
		},
		Renderer: RendererConfig{
			URL:            "",
			ConnectTimeout: 5 * time.Second,
		},
	}
}
