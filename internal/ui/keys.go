package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	NextView   key.Binding
	PrevView   key.Binding
	Refresh    key.Binding

	// View switching
	ViewAccount   key.Binding
	ViewServers   key.Binding
	ViewLibraries key.Binding
	ViewAlbums    key.Binding
	ViewShelf     key.Binding
	ViewLogs      key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Actions
	Select         key.Binding
	Back           key.Binding
	SignIn         key.Binding
	SignOut        key.Binding
	Download       key.Binding
	RemoveDownload key.Binding
	ThumbURL       key.Binding
	Filter         key.Binding
	ProgressUp     key.Binding
	ProgressDown   key.Binding
	ToggleFollow   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh from Plex"),
		),

		ViewAccount:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "Account")),
		ViewServers:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "Servers")),
		ViewLibraries: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "Libraries")),
		ViewAlbums:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "Albums")),
		ViewShelf:     key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "Shelf")),
		ViewLogs:      key.NewBinding(key.WithKeys("6"), key.WithHelp("6", "Logs")),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select / play / pause"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("backspace", "Clear selection"),
		),
		SignIn: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Sign in with pin"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Sign out"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Download"),
		),
		RemoveDownload: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove download"),
		),
		ThumbURL: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Show artwork URL"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filter albums"),
		),
		ProgressUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Progress +5%"),
		),
		ProgressDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Progress -5%"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Toggle follow"),
		),
	}
}
