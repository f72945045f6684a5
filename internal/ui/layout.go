package ui

import "time"

// Timing and size limits.
const (
	// DefaultUIInterval is how often the snapshot is re-read without events.
	DefaultUIInterval = time.Second

	// LogFetchLimit is how many log lines the log pane keeps.
	LogFetchLimit = 500

	// progressStep is the increment for the progress keys.
	progressStep = 0.05

	// chromeHeight covers the header, tab bar and footer.
	chromeHeight = 5
)
