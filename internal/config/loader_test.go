package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  name: overviewd-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.Name != "overviewd-test" {
		t.Errorf("expected name overviewd-test, got %q", cfg.Service.Name)
	}
	if cfg.Queue.Bound != 3 {
		t.Errorf("expected default bound 3, got %d", cfg.Queue.Bound)
	}
	if cfg.Queue.Timeout != 5000*time.Millisecond {
		t.Errorf("expected default timeout 5s, got %v", cfg.Queue.Timeout)
	}
	if cfg.Service.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Service.LogLevel)
	}
	if cfg.Fingerprint == "" {
		t.Error("expected a config fingerprint")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
queue:
  bound: 5
  timeout: 2s
api:
  enabled: true
  listen: 127.0.0.1:9999
renderer:
  url: ws://localhost:4040/renderer
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Queue.Bound != 5 {
		t.Errorf("expected bound 5, got %d", cfg.Queue.Bound)
	}
	if cfg.Queue.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", cfg.Queue.Timeout)
	}
	if cfg.API.Listen != "127.0.0.1:9999" {
		t.Errorf("expected listen override, got %q", cfg.API.Listen)
	}
	if cfg.Renderer.URL != "ws://localhost:4040/renderer" {
		t.Errorf("expected renderer url, got %q", cfg.Renderer.URL)
	}
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("OVERVIEWD_TEST_KEY", "sekrit")

	path := writeConfig(t, `
api:
  enabled: true
  auth:
    api_key: ${OVERVIEWD_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Auth.APIKey != "sekrit" {
		t.Errorf("expected interpolated api key, got %q", cfg.API.Auth.APIKey)
	}
}

func TestLoadUnresolvedEnvVarFails(t *testing.T) {
	path := writeConfig(t, `
api:
  enabled: true
  auth:
    api_key: ${OVERVIEWD_DEFINITELY_UNSET_VAR}
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unresolved env var in api key")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad log level", "service:\n  log_level: loud\n"},
		{"negative bound", "queue:\n  bound: -1\n  timeout: 1s\n"},
		{"bad renderer url", "renderer:\n  url: http://not-a-ws\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPinnedSumVerification(t *testing.T) {
	path := writeConfig(t, "service:\n  name: pinned\n")

	hash, err := WriteSum(path)
	if err != nil {
		t.Fatalf("WriteSum: %v", err)
	}
	if hash == "" {
		t.Fatal("expected a hash")
	}

	if _, err := Load(path); err != nil {
		t.Fatalf("Load with valid sum: %v", err)
	}

	// Tampering after pinning must be detected.
	if err := os.WriteFile(path, []byte("service:\n  name: tampered\n"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected verification failure after tampering")
	}
}
