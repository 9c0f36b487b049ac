package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load on missing file returned error: %v", err)
	}
	if cfg.Engine.HashMB != 64 {
		t.Errorf("expected default hash size 64, got %d", cfg.Engine.HashMB)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chesscore.toml")
	contents := `
[engine]
hash_mb = 128
book_path = "/opt/books/komodo.bin"
debug = true

[storage]
data_dir = "/var/lib/chesscore"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.HashMB != 128 {
		t.Errorf("HashMB = %d, want 128", cfg.Engine.HashMB)
	}
	if cfg.Engine.BookPath != "/opt/books/komodo.bin" {
		t.Errorf("BookPath = %q, want /opt/books/komodo.bin", cfg.Engine.BookPath)
	}
	if !cfg.Engine.Debug {
		t.Error("expected Debug true")
	}
	if cfg.Storage.DataDir != "/var/lib/chesscore" {
		t.Errorf("DataDir = %q, want /var/lib/chesscore", cfg.Storage.DataDir)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chesscore.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected Load to fail on malformed TOML")
	}
}
