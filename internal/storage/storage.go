// Package storage persists engine configuration and auxiliary search/book
// caches across process restarts, backed by BadgerDB.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	logging "github.com/op/go-logging"

	"github.com/x4A81/chesscore/internal/board"
)

var log = logging.MustGetLogger("storage")

const (
	keySettings   = "engine_settings"
	keyStats      = "search_stats"
	ttKeyPrefix   = "tt:"
	bookKeyPrefix = "book:"
)

// EngineSettings holds the engine options a UCI front end last configured,
// persisted so a restarted engine comes back up the way it was left.
type EngineSettings struct {
	HashMB   int       `json:"hash_mb"`
	BookPath string    `json:"book_path"`
	OwnBook  bool      `json:"own_book"`
	Debug    bool      `json:"debug"`
	LastUsed time.Time `json:"last_used"`
}

// DefaultSettings returns the engine's out-of-the-box configuration.
func DefaultSettings() *EngineSettings {
	return &EngineSettings{
		HashMB:  64,
		OwnBook: false,
	}
}

// SearchStats accumulates lifetime search counters across engine restarts,
// surfaced through UCI's "usage" debug command.
type SearchStats struct {
	SearchesRun     int           `json:"searches_run"`
	TotalNodes      uint64        `json:"total_nodes"`
	TotalSearchTime time.Duration `json:"total_search_time"`
	MatesFound      int           `json:"mates_found"`
}

// NewSearchStats returns empty search statistics.
func NewSearchStats() *SearchStats {
	return &SearchStats{}
}

// NodesPerSecond returns the lifetime average search speed, or 0 if no
// search time has been recorded yet.
func (s *SearchStats) NodesPerSecond() float64 {
	if s.TotalSearchTime == 0 {
		return 0
	}
	return float64(s.TotalNodes) / s.TotalSearchTime.Seconds()
}

// TTSummary is a durable, depth-tagged record of the best move the engine
// found for a position the last time it searched it. Unlike the in-memory
// transposition table it survives restarts. The UCI handler writes one after
// each completed search; the search itself does not read summaries back.
type TTSummary struct {
	Move  board.Move `json:"move"`
	Score int        `json:"score"`
	Depth int        `json:"depth"`
}

// Storage wraps BadgerDB for persisting engine settings, search statistics,
// a cross-restart best-move cache, and cached opening-book bytes.
type Storage struct {
	db *badger.DB
}

// NewStorage opens (creating if needed) the database under the platform's
// standard application data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return NewStorageAt(dbDir)
}

// NewStorageAt opens (creating if needed) the database at an explicit
// directory, primarily for tests.
func NewStorageAt(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		log.Errorf("failed to open database at %s: %v", dir, err)
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSettings persists the engine's current configuration.
func (s *Storage) SaveSettings(cfg *EngineSettings) error {
	cfg.LastUsed = time.Now()

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySettings), data)
	})
}

// LoadSettings loads the engine's persisted configuration, returning
// defaults if none has been saved yet.
func (s *Storage) LoadSettings() (*EngineSettings, error) {
	cfg := DefaultSettings()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySettings))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, cfg)
		})
	})

	return cfg, err
}

// SaveStats persists search statistics.
func (s *Storage) SaveStats(stats *SearchStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// LoadStats loads persisted search statistics, returning empty stats if
// none has been saved yet.
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := NewSearchStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// RecordSearch folds one completed search's counters into the persisted
// lifetime statistics.
func (s *Storage) RecordSearch(nodes uint64, elapsed time.Duration, wasMate bool) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.SearchesRun++
	stats.TotalNodes += nodes
	stats.TotalSearchTime += elapsed
	if wasMate {
		stats.MatesFound++
	}

	return s.SaveStats(stats)
}

// SaveTTSummary records the best move found for a Zobrist hash, so a later
// process can look it up with LoadTTSummary. Move ordering does not use
// these records.
func (s *Storage) SaveTTSummary(hash uint64, summary TTSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%016x", ttKeyPrefix, hash)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// LoadTTSummary looks up a previously recorded best move for hash.
func (s *Storage) LoadTTSummary(hash uint64) (TTSummary, bool, error) {
	var summary TTSummary
	key := fmt.Sprintf("%s%016x", ttKeyPrefix, hash)

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &summary)
		})
	})

	return summary, found, err
}

// CacheBookBytes stores the raw bytes of a PolyGlot book file under path, so
// a later "ucinewgame"/restart in the same working directory does not need
// to re-read it from disk.
func (s *Storage) CacheBookBytes(path string, data []byte) error {
	key := bookKeyPrefix + path
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// LoadCachedBookBytes retrieves bytes previously stored with CacheBookBytes.
func (s *Storage) LoadCachedBookBytes(path string) ([]byte, bool, error) {
	key := bookKeyPrefix + path

	var data []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})

	return data, found, err
}
