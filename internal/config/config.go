// Package config loads the optional replaygain.toml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is looked up in the working directory when no --config is given
const DefaultFile = "replaygain.toml"

// Config holds the settings that can come from a file. Command-line flags
// override them.
type Config struct {
	ChunkFrames   int    `toml:"chunk_frames"`
	LibraryPath   string `toml:"library_path"`
	WriteFileTags bool   `toml:"write_file_tags"`
	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
	Report        bool   `toml:"report"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ChunkFrames:   4096,
		WriteFileTags: true,
		LogLevel:      "info",
		LogFile:       "replaygain-debug.log",
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is DefaultFile, so the program runs without one.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultFile {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ChunkFrames <= 0 {
		return fmt.Errorf("chunk_frames must be positive, got %d", c.ChunkFrames)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
