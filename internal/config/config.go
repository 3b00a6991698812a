// Package config handles TOML-based configuration loading and validation.
// Configuration is parsed as data only; defaults are merged with the config
// file and then with CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Player         string `toml:"player"`          // media player binary
	Transcriber    string `toml:"transcriber"`     // transcription tool binary
	AutoTranscribe bool   `toml:"auto_transcribe"` // transcribe local tracks without a cached subtitle
	History        bool   `toml:"history"`         // record playback history
	DataDir        string `toml:"data_dir"`        // overrides the XDG data location
	Debug          bool   `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Player:         "mpv",
		Transcriber:    "vibe",
		AutoTranscribe: true,
		History:        true,
		Debug:          false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sonata"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sonata"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults. If the config file
// doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Player == "" {
		return fmt.Errorf("player binary cannot be empty")
	}
	if c.AutoTranscribe && c.Transcriber == "" {
		return fmt.Errorf("transcriber binary cannot be empty while auto_transcribe is on")
	}
	return nil
}

// ResolveDataDir returns the directory for persisted state, honoring the
// data_dir override and falling back to the XDG data location.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return filepath.Abs(expandHome(c.DataDir))
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sonata"), nil
}

// PlaylistPath returns the path to the persisted playlist file.
func (c *Config) PlaylistPath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "playlists.json"), nil
}

// HistoryPath returns the path to the playback history database.
func (c *Config) HistoryPath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func expandHome(dir string) string {
	if len(dir) >= 2 && dir[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, dir[2:])
		}
	}
	return dir
}
