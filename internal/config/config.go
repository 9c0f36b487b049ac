// Package config loads engine startup defaults from an optional TOML file,
// so a deployment can tune hash size, book path, and storage location
// without a rebuild.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config mirrors the engine's hardcoded defaults; every field has a zero
// value that means "use the built-in default" so an absent or partial
// chesscore.toml changes nothing.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Storage StorageConfig `toml:"storage"`
}

// EngineConfig holds search/engine tuning read from the config file.
type EngineConfig struct {
	HashMB   int    `toml:"hash_mb"`
	BookPath string `toml:"book_path"`
	Debug    bool   `toml:"debug"`
}

// StorageConfig controls where persistent engine state is kept.
type StorageConfig struct {
	// DataDir overrides the platform-default application data directory
	// (storage.GetDataDir) when non-empty.
	DataDir string `toml:"data_dir"`
}

// Default returns the engine's built-in configuration, used when no config
// file is present.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{HashMB: 64},
	}
}

// Load reads path as a TOML config file. A missing file is not an error:
// it returns Default(). Any other read or parse error is returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.Engine.HashMB <= 0 {
		cfg.Engine.HashMB = 64
	}

	return cfg, nil
}
