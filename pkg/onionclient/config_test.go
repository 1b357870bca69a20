package onionclient

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Path.Length != 3 {
		t.Fatalf("default path length: got %d want 3", cfg.Path.Length)
	}
	if cfg.Transport.TimeoutMS != 10000 {
		t.Fatalf("default timeout: got %d want 10000", cfg.Transport.TimeoutMS)
	}
	if cfg.Transport.TLSVerify {
		t.Fatal("default tls_verify should be false")
	}
	if cfg.Directory.MaxAttempts != 5 {
		t.Fatalf("default max attempts: got %d want 5", cfg.Directory.MaxAttempts)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "path:\n  path_length: 5\ntransport:\n  tls_verify: true\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path.Length != 5 {
		t.Fatalf("path length not overridden: got %d", cfg.Path.Length)
	}
	if !cfg.Transport.TLSVerify {
		t.Fatal("tls_verify not overridden")
	}
	// Untouched field keeps its default.
	if cfg.Directory.MaxAttempts != 5 {
		t.Fatalf("unrelated field changed: %d", cfg.Directory.MaxAttempts)
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("ONION_CLIENT_PATH_LENGTH", "7")
	t.Setenv("ONION_CLIENT_TLS_VERIFY", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnvironment()

	if cfg.Path.Length != 7 {
		t.Fatalf("env override not applied: %d", cfg.Path.Length)
	}
	if !cfg.Transport.TLSVerify {
		t.Fatal("env tls_verify override not applied")
	}
}
