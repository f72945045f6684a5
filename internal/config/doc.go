// Package config loads audioshelf's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/audioshelf/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Plex API: https://plex.tv/api/v2
//   - Data directory: ~/.local/share/audioshelf
//   - Downloads: <data_dir>/downloads
//   - Logs: <data_dir>/logs/audioshelf.log
//   - State database: <data_dir>/audioshelf.db
//   - Log level: info
//   - Pin timeout: 15m, pin poll interval: 2s
//
// # TOML Format
//
//	plex_url = "https://plex.tv/api/v2"
//	data_dir = "~/.local/share/audioshelf"
//	download_dir = "~/Audiobooks"
//	log_dir = "~/.local/share/audioshelf/logs"
//	log_level = "debug"
//	pin_timeout = "10m"
//	pin_poll = "3s"
//	fake_server = false
//
// Every field is optional. Paths get tilde expansion and are made absolute.
// Durations use time.ParseDuration syntax and must be positive. fake_server
// swaps the Plex client for the built-in demo server.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML parse errors, unknown log levels and bad durations.
// A missing file is not an error.
package config
