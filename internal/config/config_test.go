package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PlexURL != defaultPlexURL {
		t.Fatalf("PlexURL = %q, want %q", cfg.PlexURL, defaultPlexURL)
	}

	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
	if cfg.DownloadDir != filepath.Join(wantDataDir, "downloads") {
		t.Fatalf("DownloadDir = %q, want under %q", cfg.DownloadDir, wantDataDir)
	}
	if cfg.LogPath() != filepath.Join(wantDataDir, "logs", "audioshelf.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
	if cfg.StorePath() != filepath.Join(wantDataDir, "audioshelf.db") {
		t.Fatalf("StorePath = %q", cfg.StorePath())
	}
	if cfg.LogLevel != "info" || cfg.PinTimeout != 15*time.Minute || cfg.PinPoll != 2*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.FakeServer {
		t.Fatalf("FakeServer = true, want false")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
plex_url = "  http://localhost:9000/api/v2  "
data_dir = "  ~/.shelf  "
log_level = " DEBUG "
pin_timeout = "5m"
pin_poll = "500ms"
fake_server = true
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PlexURL != "http://localhost:9000/api/v2" {
		t.Fatalf("PlexURL = %q", cfg.PlexURL)
	}
	if cfg.DataDir != filepath.Join(home, ".shelf") {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if !strings.HasPrefix(cfg.LogDir, cfg.DataDir) || !strings.HasPrefix(cfg.DownloadDir, cfg.DataDir) {
		t.Fatalf("LogDir = %q, DownloadDir = %q, want both under %q", cfg.LogDir, cfg.DownloadDir, cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.PinTimeout != 5*time.Minute || cfg.PinPoll != 500*time.Millisecond {
		t.Fatalf("PinTimeout = %v, PinPoll = %v", cfg.PinTimeout, cfg.PinPoll)
	}
	if !cfg.FakeServer {
		t.Fatalf("FakeServer = false, want true")
	}
}

func TestLoad_ExplicitDirsWin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
download_dir = "`+filepath.ToSlash(filepath.Join(dir, "dl"))+`"
log_dir = "`+filepath.ToSlash(filepath.Join(dir, "logs"))+`"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DownloadDir != filepath.Join(dir, "dl") {
		t.Fatalf("DownloadDir = %q", cfg.DownloadDir)
	}
	if cfg.LogPath() != filepath.Join(dir, "logs", "audioshelf.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad level":    `log_level = "loud"`,
		"bad duration": `pin_poll = "soon"`,
		"negative":     `pin_timeout = "-1m"`,
		"invalid toml": `plex_url = [`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load returned nil error, want error")
			}
		})
	}
}

func TestLoad_InvalidTOMLMentionsParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`plex_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want it to mention parse config", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenDirsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/logs/audioshelf.log")) {
		t.Fatalf("LogPath = %q, want it to end with /logs/audioshelf.log", got)
	}
}
