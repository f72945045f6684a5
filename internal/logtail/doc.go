// Package logtail reads the end of audioshelf's log file for the TUI log
// pane.
//
// # Reading
//
// Read keeps a ring buffer of maxLines while scanning the file once, so
// memory stays O(maxLines) however large the file grows. Lines come back in
// file order. A missing file is not an error; the log may not exist before
// the first write.
//
// # Decoding
//
// The logger writes zerolog JSON lines. Parse pulls out the well-known keys
// (time, level, component, message, error) and renders the rest as text in
// Fields. Anything that is not a JSON object, such as a panic trace written
// by the runtime, is kept verbatim in Raw.
//
// Format produces the compact single-line form the UI shows:
//
//	21:01:05 WARN [session] library refresh failed server=Home error="refused"
package logtail
