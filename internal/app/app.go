// Package app wires configuration, persistence, the search engine, and the
// UCI protocol handler together; it is the shared body behind both the
// root module binary and cmd/chesscore-uci.
package app

import (
	"bytes"
	"os"
	"path/filepath"

	logging "github.com/op/go-logging"

	"github.com/x4A81/chesscore/internal/book"
	"github.com/x4A81/chesscore/internal/config"
	"github.com/x4A81/chesscore/internal/engine"
	"github.com/x4A81/chesscore/internal/storage"
	"github.com/x4A81/chesscore/internal/uci"
)

var log = logging.MustGetLogger("app")

const configFileName = "chesscore.toml"

// Run loads configuration, opens persistent storage, builds the engine, and
// blocks in the UCI command loop until "quit" or end of input.
func Run() error {
	cfg, err := config.Load(configFileName)
	if err != nil {
		log.Errorf("failed to load %s: %v", configFileName, err)
		return err
	}

	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir, err = storage.GetDataDir()
		if err != nil {
			log.Errorf("failed to resolve data directory: %v", err)
			return err
		}
	} else if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Errorf("failed to create configured data directory %s: %v", dataDir, err)
		return err
	}

	store, err := storage.NewStorageAt(filepath.Join(dataDir, "db"))
	if err != nil {
		log.Errorf("failed to open storage: %v", err)
		return err
	}

	settings, err := store.LoadSettings()
	if err != nil {
		log.Warningf("failed to load persisted settings, using defaults: %v", err)
		settings = storage.DefaultSettings()
	}

	hashMB := cfg.Engine.HashMB
	bookPath := cfg.Engine.BookPath
	if bookPath == "" {
		bookPath = settings.BookPath
	}
	debug := cfg.Engine.Debug || settings.Debug

	eng := engine.NewEngine(hashMB)

	if bookPath != "" {
		if b, err := loadBook(store, bookPath); err != nil {
			log.Warningf("failed to load opening book %s: %v", bookPath, err)
		} else {
			eng.SetBook(b)
			log.Infof("loaded opening book %s (%d positions)", bookPath, b.Size())
		}
	}

	handler := uci.New(eng)
	handler.SetStorage(store)
	handler.SetDebug(debug)

	log.Infof("chesscore starting: hash=%dMB book=%q data_dir=%s", hashMB, bookPath, dataDir)
	handler.Run()

	// Run only returns on EOF (stdin closed without "quit"); "quit" itself
	// calls os.Exit after closing store, so this only fires on that path.
	store.Close()
	return nil
}

// loadBook loads a PolyGlot book, preferring a cached copy in storage over
// re-reading the file from disk.
func loadBook(store *storage.Storage, path string) (*book.Book, error) {
	if data, found, err := store.LoadCachedBookBytes(path); err == nil && found {
		return book.LoadPolyglotReader(bytes.NewReader(data))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := store.CacheBookBytes(path, data); err != nil {
		log.Warningf("failed to cache book bytes for %s: %v", path, err)
	}

	return book.LoadPolyglotReader(bytes.NewReader(data))
}
