// Package app is the composition root of audioshelf.
//
// Run loads the config file and preferences, opens the rotating log and the
// SQLite store, builds the Plex client (or the demo fake), and hands a
// state.App to the terminal UI. Two background loops live here:
//
//   - the refresher calls RefreshAll on an interval and backs off after
//     failures, so the offline badge reflects reality
//   - the pin poller is started by the UI after a sign-in code is issued and
//     stops once the code is approved, expires, or is abandoned
//
// Both loops take a clockwork.Clock so tests drive time explicitly.
//
// On exit the UI context is cancelled first, then the App writes its final
// state, and the store is closed last.
package app
