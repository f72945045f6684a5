package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/pinauth"
)

// View is one of the top-level screens.
type View int

const (
	ViewAccount View = iota
	ViewServers
	ViewLibraries
	ViewAlbums
	ViewShelf
	ViewLogs
)

var allViews = []View{ViewAccount, ViewServers, ViewLibraries, ViewAlbums, ViewShelf, ViewLogs}

var viewNames = map[View]string{
	ViewAccount:   "account",
	ViewServers:   "servers",
	ViewLibraries: "libraries",
	ViewAlbums:    "albums",
	ViewShelf:     "shelf",
	ViewLogs:      "logs",
}

func (v View) String() string {
	return viewNames[v]
}

func (v View) next() View {
	return allViews[(int(v)+1)%len(allViews)]
}

func (v View) prev() View {
	return allViews[(int(v)+len(allViews)-1)%len(allViews)]
}

// ParseView maps a view name to a View. Unknown names select the albums view.
func ParseView(name string) View {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, n := range viewNames {
		if n == name {
			return v
		}
	}
	return ViewAlbums
}

func (m Model) renderMain() string {
	body := ""
	switch m.view {
	case ViewAccount:
		body = m.renderAccount()
	case ViewServers:
		body = m.renderServers()
	case ViewLibraries:
		body = m.renderLibraries()
	case ViewAlbums:
		body = m.renderAlbums()
	case ViewShelf:
		body = m.renderShelf()
	case ViewLogs:
		body = m.logViewport.View()
	}

	styles := m.theme.Styles()
	panel := styles.Panel.
		Width(m.contentWidth()).
		Height(m.contentHeight()).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		panel,
		m.renderStatus(),
		m.renderCommandBar(),
	)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	parts := []string{styles.Logo.Render("audioshelf")}
	switch {
	case snap.SignedIn:
		parts = append(parts, styles.SuccessText.Render("signed in"))
	case snap.PinStatus == pinauth.PinPending:
		parts = append(parts, styles.Badge("pending", "PIN "+snap.Pin.Code))
	default:
		parts = append(parts, styles.MutedText.Render("signed out"))
	}
	if snap.SelectedServer != "" {
		parts = append(parts, styles.Text.Render(snap.SelectedServer))
	}
	if snap.SelectedLibrary != "" {
		parts = append(parts, styles.AccentText.Render(snap.SelectedLibrary))
	}
	if snap.IsOffline() {
		parts = append(parts, styles.Badge("offline", "OFFLINE"))
	}
	if m.polling {
		parts = append(parts, m.spinner.View())
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(allViews))
	for i, v := range allViews {
		label := fmt.Sprintf(" %d %s ", i+1, v)
		if v == m.view {
			tabs = append(tabs, styles.Selected.Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	status := m.status
	if status == "" && m.snapshot.LastError != nil {
		return styles.WarningText.Render("last refresh failed: " + m.snapshot.LastError.Error())
	}
	if m.isError {
		return styles.DangerText.Render(truncate(status, m.width))
	}
	return styles.InfoText.Render(truncate(status, m.width))
}

func (m Model) renderAccount() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	var b strings.Builder

	switch {
	case snap.SignedIn:
		b.WriteString(styles.SuccessText.Render("Signed in to Plex"))
		b.WriteString("\n\n")
		if snap.LastRefreshed.IsZero() {
			b.WriteString(styles.MutedText.Render("Not refreshed yet"))
		} else {
			b.WriteString(styles.MutedText.Render("Last refresh " + snap.LastRefreshed.Format(time.Kitchen)))
		}
		b.WriteString("\n")
		if snap.ConsecutiveFailures > 0 {
			b.WriteString(styles.WarningText.Render(fmt.Sprintf("%d refresh failures in a row", snap.ConsecutiveFailures)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("o sign out"))
	case snap.PinStatus == pinauth.PinPending:
		b.WriteString(styles.Text.Render("Visit plex.tv/link and enter:"))
		b.WriteString("\n\n  ")
		b.WriteString(styles.AccentText.Bold(true).Render(snap.Pin.Code))
		b.WriteString("\n\n")
		if !snap.PinExpiresAt.IsZero() {
			b.WriteString(styles.MutedText.Render("Code expires at " + snap.PinExpiresAt.Format(time.Kitchen)))
		}
	default:
		b.WriteString(styles.Text.Render("Not signed in"))
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render("i request a sign-in code"))
	}
	return b.String()
}

func (m Model) renderServers() string {
	styles := m.theme.Styles()
	if len(m.snapshot.Servers) == 0 {
		return styles.MutedText.Render("No servers. Sign in and press r to refresh.")
	}
	rows := make([]string, len(m.snapshot.Servers))
	for i, name := range m.snapshot.Servers {
		line := name
		if name == m.snapshot.SelectedServer {
			line += "  " + styles.FaintText.Render(m.snapshot.SelectedURI)
		}
		rows[i] = m.renderRow(i, name == m.snapshot.SelectedServer, line)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderLibraries() string {
	styles := m.theme.Styles()
	if m.snapshot.SelectedServer == "" {
		return styles.MutedText.Render("Select a server first.")
	}
	if len(m.snapshot.Libraries) == 0 {
		return styles.MutedText.Render("No libraries on this server.")
	}
	rows := make([]string, len(m.snapshot.Libraries))
	for i, title := range m.snapshot.Libraries {
		rows[i] = m.renderRow(i, title == m.snapshot.SelectedLibrary, title)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderAlbums() string {
	styles := m.theme.Styles()
	var b strings.Builder
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	albums := m.visibleAlbums()
	if len(albums) == 0 {
		if m.snapshot.SelectedLibrary == "" {
			b.WriteString(styles.MutedText.Render("Select a library first."))
		} else {
			b.WriteString(styles.MutedText.Render("No albums."))
		}
		return b.String()
	}

	rows := make([]string, len(albums))
	for i, a := range albums {
		line := a.Title
		if author := a.Author(); author != "" {
			line += styles.MutedText.Render("  " + author)
		}
		if book, ok := m.snapshot.Book(a.RatingKey); ok {
			line += "  " + m.bookBadges(book)
		}
		rows[i] = m.renderRow(i, false, line)
	}
	b.WriteString(strings.Join(rows, "\n"))
	return b.String()
}

func (m Model) renderShelf() string {
	styles := m.theme.Styles()
	if len(m.snapshot.Books) == 0 {
		return styles.MutedText.Render("No books yet. Press enter on an album to start one.")
	}
	rows := make([]string, len(m.snapshot.Books))
	for i, book := range m.snapshot.Books {
		title := book.Album.Title
		if title == "" {
			title = book.AlbumKey
		}
		line := fmt.Sprintf("%s  %s  %s", title, progressBar(book.Progress, 20), m.bookBadges(book))
		rows[i] = m.renderRow(i, book.AlbumKey == m.snapshot.CurrentBook, line)
	}
	return strings.Join(rows, "\n")
}

func (m Model) bookBadges(book books.Book) string {
	styles := m.theme.Styles()
	badges := []string{}
	if book.State == books.Playing {
		badges = append(badges, styles.Badge("playing", "PLAYING"))
	} else {
		badges = append(badges, styles.Badge("paused", "PAUSED"))
	}
	if book.Downloaded() {
		badges = append(badges, styles.Badge("downloaded", "LOCAL"))
	}
	return strings.Join(badges, " ")
}

// renderRow draws one list row with the cursor and selection markers.
func (m Model) renderRow(i int, chosen bool, line string) string {
	marker := "  "
	if chosen {
		marker = "* "
	}
	if i == m.cursors[m.view] {
		return m.theme.Styles().Selected.Render(marker + line)
	}
	return marker + line
}

func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()

	type cmd struct{ key, desc string }
	var commands []cmd
	switch m.view {
	case ViewAccount:
		commands = []cmd{{"i", "Sign in"}, {"o", "Sign out"}}
	case ViewServers, ViewLibraries:
		commands = []cmd{{"enter", "Select"}, {"bksp", "Clear"}, {"r", "Refresh"}}
	case ViewAlbums:
		commands = []cmd{{"enter", "Play"}, {"d", "Download"}, {"/", "Filter"}, {"u", "Art"}}
	case ViewShelf:
		commands = []cmd{{"enter", "Play"}, {"[/]", "Progress"}, {"x", "Remove"}}
	case ViewLogs:
		label := "Pause"
		if !m.follow {
			label = "Follow"
		}
		commands = []cmd{{"f", label}, {"j/k", "Scroll"}}
	}
	commands = append(commands, cmd{"?", "More"})

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, styles.AccentText.Render(c.key)+":"+styles.MutedText.Render(c.desc))
	}
	segments = append(segments, styles.AccentText.Render("T")+":"+styles.FaintText.Render(m.theme.Name))
	return styles.Footer.Width(m.width).Render(strings.Join(segments, "  "))
}

func progressBar(progress float64, width int) string {
	filled := int(progress*float64(width) + 0.5)
	filled = clamp(filled, 0, width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + fmt.Sprintf("] %3.0f%%", progress*100)
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
