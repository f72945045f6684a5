package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings audioshelf reads at startup.
type Config struct {
	PlexURL     string
	DataDir     string
	DownloadDir string
	LogDir      string
	LogLevel    string
	PinTimeout  time.Duration
	PinPoll     time.Duration
	FakeServer  bool
}

const (
	defaultConfigPath = "~/.config/audioshelf/config.toml"
	defaultDataDir    = "~/.local/share/audioshelf"
	defaultPlexURL    = "https://plex.tv/api/v2"
	defaultLogLevel   = "info"
	defaultPinTimeout = 15 * time.Minute
	defaultPinPoll    = 2 * time.Second
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		PlexURL     string `toml:"plex_url"`
		DataDir     string `toml:"data_dir"`
		DownloadDir string `toml:"download_dir"`
		LogDir      string `toml:"log_dir"`
		LogLevel    string `toml:"log_level"`
		PinTimeout  string `toml:"pin_timeout"`
		PinPoll     string `toml:"pin_poll"`
		FakeServer  bool   `toml:"fake_server"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		PlexURL:     strings.TrimSpace(raw.PlexURL),
		DataDir:     strings.TrimSpace(raw.DataDir),
		DownloadDir: strings.TrimSpace(raw.DownloadDir),
		LogDir:      strings.TrimSpace(raw.LogDir),
		LogLevel:    strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		FakeServer:  raw.FakeServer,
	}
	if cfg.PinTimeout, err = parseDuration("pin_timeout", raw.PinTimeout, defaultPinTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PinPoll, err = parseDuration("pin_poll", raw.PinPoll, defaultPinPoll); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{PinTimeout: defaultPinTimeout, PinPoll: defaultPinPoll}
	_ = cfg.normalize()
	return cfg
}

// StorePath returns the path of the state database.
func (c Config) StorePath() string {
	return filepath.Join(c.dataDir(), "audioshelf.db")
}

// LogPath returns the path of the application log file.
func (c Config) LogPath() string {
	dir := c.LogDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(c.dataDir(), "logs")
	}
	return filepath.Join(dir, "audioshelf.log")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

// normalize fills defaults and expands paths.
func (c *Config) normalize() error {
	if c.PlexURL == "" {
		c.PlexURL = defaultPlexURL
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.DataDir = mustExpand(c.DataDir)
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(c.DataDir, "downloads")
	}
	c.DownloadDir = mustExpand(c.DownloadDir)
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.DataDir, "logs")
	}
	c.LogDir = mustExpand(c.LogDir)
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
