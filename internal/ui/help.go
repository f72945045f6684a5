package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Global", []key.Binding{m.keys.Quit, m.keys.Help, m.keys.CycleTheme, m.keys.NextView, m.keys.PrevView, m.keys.Refresh}},
		{"Views", []key.Binding{m.keys.ViewAccount, m.keys.ViewServers, m.keys.ViewLibraries, m.keys.ViewAlbums, m.keys.ViewShelf, m.keys.ViewLogs}},
		{"Navigation", []key.Binding{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.Bottom}},
		{"Actions", []key.Binding{
			m.keys.Select, m.keys.Back, m.keys.SignIn, m.keys.SignOut,
			m.keys.Download, m.keys.RemoveDownload, m.keys.ThumbURL, m.keys.Filter,
			m.keys.ProgressUp, m.keys.ProgressDown, m.keys.ToggleFollow,
		}},
	}

	var b strings.Builder
	b.WriteString(styles.Logo.Render("Keys"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Render(s.title))
		b.WriteString("\n")
		for _, kb := range s.bindings {
			h := kb.Help()
			b.WriteString("  ")
			b.WriteString(styles.Text.Width(12).Render(h.Key))
			b.WriteString(styles.MutedText.Render(h.Desc))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Press any key to close"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.Panel.Render(b.String()))
}
