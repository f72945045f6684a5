// Package ui implements the audioshelf terminal interface with Bubble Tea.
//
// The Model renders a state.Snapshot and turns key presses into calls on a
// Backend, which *state.App satisfies. Backend calls run inside tea.Cmd
// functions so the event loop never waits on the network. After each call
// the model re-reads the snapshot instead of patching its copy.
//
// Views:
//
//   - account: sign-in status and the pending pin code
//   - servers: resources from plex.tv and the chosen connection
//   - libraries: sections of the selected server
//   - albums: the album cache, filterable by title or author
//   - shelf: local books with progress and download state
//   - logs: the tail of the log file
//
// State notifications arrive through an EventBridge. A one-second tick also
// refreshes the snapshot so pin expiry and refresh failures show up without
// an event. Theme changes are written back to the preferences file.
package ui
