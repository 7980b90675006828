package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddress() != "127.0.0.1:8001" {
		t.Fatalf("unexpected server address: %q", cfg.ServerAddress())
	}
	if cfg.ServerBaseURL() != "http://127.0.0.1:8001" {
		t.Fatalf("unexpected base url: %q", cfg.ServerBaseURL())
	}
	if cfg.StorageBackend() != "file" {
		t.Fatalf("unexpected storage backend: %q", cfg.StorageBackend())
	}
	if cfg.ComputeBackend() != "phoebe2" {
		t.Fatalf("unexpected compute backend: %q", cfg.ComputeBackend())
	}
	if cfg.WorkerCount() != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.WorkerCount())
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, ".phoebe-lab")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte("[server]\naddress = \"http://127.0.0.1:9001/\"\n\n[storage]\nbackend = \"bbolt\"\n")
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddress() != "127.0.0.1:9001" {
		t.Fatalf("unexpected server address: %q", cfg.ServerAddress())
	}
	if cfg.StorageBackend() != "bbolt" {
		t.Fatalf("unexpected storage backend: %q", cfg.StorageBackend())
	}
	path, err := cfg.StoragePath()
	if err != nil {
		t.Fatalf("StoragePath: %v", err)
	}
	if want := filepath.Join(dataDir, "state.db"); path != want {
		t.Fatalf("storage path: got=%q want=%q", path, want)
	}
}

func TestComputeBackendsNormalized(t *testing.T) {
	cfg := Default()
	cfg.Compute.Backends = []string{" phoebe2 ", "", "ellc", "phoebe2"}
	got := cfg.ComputeBackends()
	if len(got) != 2 || got[0] != "phoebe2" || got[1] != "ellc" {
		t.Fatalf("backends = %v", got)
	}
}
