package storage

import (
	"os"
	"testing"
	"time"

	"github.com/x4A81/chesscore/internal/board"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dir, err := os.MkdirTemp("", "chesscore-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := NewStorageAt(dir)
	if err != nil {
		t.Fatalf("NewStorageAt failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.HashMB != 64 {
		t.Errorf("expected default hash size 64, got %d", cfg.HashMB)
	}
	if cfg.OwnBook {
		t.Error("expected OwnBook disabled by default")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	loaded, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings (empty db) failed: %v", err)
	}
	if loaded.HashMB != 64 {
		t.Errorf("expected defaults when nothing saved, got hash size %d", loaded.HashMB)
	}

	cfg := &EngineSettings{HashMB: 256, BookPath: "/tmp/book.bin", OwnBook: true}
	if err := s.SaveSettings(cfg); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err = s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.HashMB != 256 || loaded.BookPath != "/tmp/book.bin" || !loaded.OwnBook {
		t.Errorf("loaded settings do not match saved settings: %+v", loaded)
	}
}

func TestRecordSearchAccumulates(t *testing.T) {
	s := newTestStorage(t)

	if err := s.RecordSearch(1000, 100*time.Millisecond, false); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}
	if err := s.RecordSearch(2000, 200*time.Millisecond, true); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if stats.SearchesRun != 2 {
		t.Errorf("expected 2 searches recorded, got %d", stats.SearchesRun)
	}
	if stats.TotalNodes != 3000 {
		t.Errorf("expected 3000 total nodes, got %d", stats.TotalNodes)
	}
	if stats.MatesFound != 1 {
		t.Errorf("expected 1 mate found, got %d", stats.MatesFound)
	}
	if stats.NodesPerSecond() <= 0 {
		t.Error("expected positive nodes-per-second once search time is recorded")
	}
}

func TestTTSummaryRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	hash := uint64(0xdeadbeefcafef00d)
	if _, found, err := s.LoadTTSummary(hash); err != nil {
		t.Fatalf("LoadTTSummary failed: %v", err)
	} else if found {
		t.Error("expected no summary for an unseen hash")
	}

	want := TTSummary{Move: board.NewMove(board.E2, board.E4), Score: 35, Depth: 12}
	if err := s.SaveTTSummary(hash, want); err != nil {
		t.Fatalf("SaveTTSummary failed: %v", err)
	}

	got, found, err := s.LoadTTSummary(hash)
	if err != nil {
		t.Fatalf("LoadTTSummary failed: %v", err)
	}
	if !found {
		t.Fatal("expected summary to be found after saving")
	}
	if got.Move != want.Move || got.Score != want.Score || got.Depth != want.Depth {
		t.Errorf("LoadTTSummary = %+v, want %+v", got, want)
	}
}

func TestBookByteCache(t *testing.T) {
	s := newTestStorage(t)

	data := []byte{1, 2, 3, 4, 5}
	if err := s.CacheBookBytes("my-book.bin", data); err != nil {
		t.Fatalf("CacheBookBytes failed: %v", err)
	}

	got, found, err := s.LoadCachedBookBytes("my-book.bin")
	if err != nil {
		t.Fatalf("LoadCachedBookBytes failed: %v", err)
	}
	if !found {
		t.Fatal("expected cached book bytes to be found")
	}
	if string(got) != string(data) {
		t.Errorf("LoadCachedBookBytes = %v, want %v", got, data)
	}

	if _, found, err := s.LoadCachedBookBytes("missing-book.bin"); err != nil {
		t.Fatalf("LoadCachedBookBytes(missing) failed: %v", err)
	} else if found {
		t.Error("expected no cached bytes for a path never cached")
	}
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}
}
