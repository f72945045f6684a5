// Package state owns the application's shared mutable state.
//
// # Overview
//
// App aggregates the session cascade (identity, token, server and library
// selection, and the resource/library/album caches), the pin authenticator,
// and the book shelf. It is the only value the UI and the pin poller share.
//
// # Concurrency Model
//
// One sync.Mutex guards everything. Each operation holds it from start to
// finish, including the network calls made by the cascade and the plex
// client, so a slow server blocks every other caller, Snapshot included.
// Operations are totally ordered; which of two concurrent callers runs
// first is up to the mutex.
//
//	UI command ──┐
//	             ├──→ App.with(fn) ──→ cascade / pins / shelf
//	pin poller ──┘         │
//	                       ├──→ Repository.Save*
//	                       └──→ Notifier.Notify(event)
//
// If an operation panics while holding the lock the App is marked poisoned,
// the panic continues, and every later call returns ErrLockFailure.
//
// # Persistence
//
// After a successful mutation the changed slice is written through the
// Repository before the lock is released:
//
//   - selections, sign-in and sign-out write the settings entry;
//   - book changes write the touched books, the book index and the
//     current-book pointer.
//
// A pause/resume toggle of the current book reports no change and is not
// written or announced. Restored books always start Paused, so an unsaved
// toggle cannot leave a stale Playing state on disk that matters.
//
// # Notifications
//
// Notifier receives SettingsChanged, PlayerChanged or DownloadChanged after
// the write succeeds. It runs under the lock and must not call back into the
// App; the UI forwards events to its program loop.
//
// # Snapshots
//
// Snapshot returns copies only. Read errors from the cascade, such as an
// empty library cache, show up as empty fields rather than errors. The
// outcome of the last RefreshAll is kept the way a poller keeps its last
// result: old data stays, the error and failure count are recorded.
package state
