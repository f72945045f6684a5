package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/logtail"
	"github.com/five82/audioshelf/internal/pinauth"
	"github.com/five82/audioshelf/internal/plex"
	"github.com/five82/audioshelf/internal/prefs"
	"github.com/five82/audioshelf/internal/state"
)

// Backend is the state the UI drives. *state.App implements it.
type Backend interface {
	Snapshot() (state.Snapshot, error)
	BeginSignIn(ctx context.Context) (plex.Pin, error)
	SignOut() error
	RefreshAll(ctx context.Context) error
	SelectServer(ctx context.Context, name string) error
	ResetServerSelection() error
	SelectLibrary(ctx context.Context, title string) error
	ResetLibrarySelection() error
	StartPlaying(albumKey string) (books.Book, error)
	Download(albumKey string) error
	RemoveDownload(albumKey string) error
	SetProgress(albumKey string, progress float64) error
	ThumbURL(albumKey string) (string, error)
}

// PinPoller starts polling the pending pin and reports the final result.
type PinPoller func(ctx context.Context) <-chan error

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Events    *EventBridge
	PollPin   PinPoller
	LogPath   string
	PrefsPath string
	Prefs     prefs.Prefs
	Tick      time.Duration
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	backend   Backend
	events    *EventBridge
	pollPin   PinPoller
	logPath   string
	prefsPath string
	prefs     prefs.Prefs
	tick      time.Duration
	log       zerolog.Logger

	keys    keyMap
	theme   Theme
	view    View
	width   int
	height  int
	ready   bool
	spinner spinner.Model

	snapshot state.Snapshot
	status   string
	isError  bool
	polling  bool

	cursors   map[View]int
	filter    textinput.Model
	filtering bool

	logViewport viewport.Model
	logLines    []string
	follow      bool

	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	userPrefs := opts.Prefs
	if userPrefs.Theme == "" {
		userPrefs = prefs.Default()
	}

	filter := textinput.New()
	filter.Placeholder = "author or title"
	filter.Prompt = "/ "
	filter.CharLimit = 64
	filter.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctx:       ctx,
		backend:   opts.Backend,
		events:    opts.Events,
		pollPin:   opts.PollPin,
		logPath:   opts.LogPath,
		prefsPath: opts.PrefsPath,
		prefs:     userPrefs,
		tick:      tick,
		log:       opts.Logger,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(userPrefs.Theme),
		view:      ParseView(userPrefs.StartView),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		cursors:   make(map[View]int),
		filter:    filter,
		follow:    true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		m.spinner.Tick,
	}
	if m.backend != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.backend))
	}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.contentWidth(), m.contentHeight())
		}
		m.ready = true
		m.logViewport.Width = m.contentWidth()
		m.logViewport.Height = m.contentHeight()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.backend != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.backend))
		}
		if m.view == ViewLogs && m.follow {
			cmds = append(cmds, fetchLogsCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.snapshot = msg.snap
		m.clampCursors()
		return m, nil

	case eventMsg:
		m.log.Debug().Stringer("event", state.Event(msg)).Msg("state event")
		return m, tea.Batch(fetchSnapshotCmd(m.backend), waitForEvent(m.events))

	case actionMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status)
		}
		return m, fetchSnapshotCmd(m.backend)

	case pinIssuedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Enter code %s at plex.tv/link", msg.pin.Code))
		if m.pollPin == nil || m.polling {
			return m, fetchSnapshotCmd(m.backend)
		}
		m.polling = true
		return m, tea.Batch(fetchSnapshotCmd(m.backend), waitForPin(m.pollPin(m.ctx)))

	case pinDoneMsg:
		m.polling = false
		switch {
		case msg.err == nil:
			m.setStatus("Signed in")
		case errors.Is(msg.err, context.Canceled):
		case errors.Is(msg.err, pinauth.ErrPinExpired):
			m.setError(errors.New("pin expired; press i to try again"))
		default:
			m.setError(msg.err)
		}
		return m, fetchSnapshotCmd(m.backend)

	case logsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.logLines = msg.lines
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
				m.log.Warn().Err(err).Msg("save prefs failed")
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.NextView):
		return m.switchView(m.view.next())
	case key.Matches(msg, m.keys.PrevView):
		return m.switchView(m.view.prev())
	case key.Matches(msg, m.keys.ViewAccount):
		return m.switchView(ViewAccount)
	case key.Matches(msg, m.keys.ViewServers):
		return m.switchView(ViewServers)
	case key.Matches(msg, m.keys.ViewLibraries):
		return m.switchView(ViewLibraries)
	case key.Matches(msg, m.keys.ViewAlbums):
		return m.switchView(ViewAlbums)
	case key.Matches(msg, m.keys.ViewShelf):
		return m.switchView(ViewShelf)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	case key.Matches(msg, m.keys.Refresh):
		m.setStatus("Refreshing...")
		return m, refreshCmd(m.ctx, m.backend)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.rowCount())
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.rowCount())
		return m, nil
	}

	switch m.view {
	case ViewAccount:
		return m.handleAccountKey(msg)
	case ViewServers:
		return m.handleServersKey(msg)
	case ViewLibraries:
		return m.handleLibrariesKey(msg)
	case ViewAlbums:
		return m.handleAlbumsKey(msg)
	case ViewShelf:
		return m.handleShelfKey(msg)
	case ViewLogs:
		if key.Matches(msg, m.keys.ToggleFollow) {
			m.follow = !m.follow
			return m, nil
		}
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleAccountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SignIn):
		if m.snapshot.SignedIn {
			m.setStatus("Already signed in")
			return m, nil
		}
		m.setStatus("Requesting pin...")
		return m, beginSignInCmd(m.ctx, m.backend)
	case key.Matches(msg, m.keys.SignOut):
		return m, actionCmd("Signed out", m.backend.SignOut)
	}
	return m, nil
}

func (m Model) handleServersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		name, ok := at(m.snapshot.Servers, m.cursors[ViewServers])
		if !ok {
			return m, nil
		}
		m.setStatus("Probing " + name + "...")
		return m, actionCmd("Connected to "+name, func() error {
			return m.backend.SelectServer(m.ctx, name)
		})
	case key.Matches(msg, m.keys.Back):
		return m, actionCmd("Server selection cleared", m.backend.ResetServerSelection)
	}
	return m, nil
}

func (m Model) handleLibrariesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		title, ok := at(m.snapshot.Libraries, m.cursors[ViewLibraries])
		if !ok {
			return m, nil
		}
		return m, actionCmd("Library "+title+" selected", func() error {
			return m.backend.SelectLibrary(m.ctx, title)
		})
	case key.Matches(msg, m.keys.Back):
		return m, actionCmd("Library selection cleared", m.backend.ResetLibrarySelection)
	}
	return m, nil
}

func (m Model) handleAlbumsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Filter) {
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	}
	album, ok := at(m.visibleAlbums(), m.cursors[ViewAlbums])
	if !ok {
		return m, nil
	}
	return m, m.bookAction(msg, album.RatingKey)
}

func (m Model) handleShelfKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b, ok := at(m.snapshot.Books, m.cursors[ViewShelf])
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.ProgressUp):
		return m, actionCmd("", func() error { return m.backend.SetProgress(b.AlbumKey, b.Progress+progressStep) })
	case key.Matches(msg, m.keys.ProgressDown):
		return m, actionCmd("", func() error { return m.backend.SetProgress(b.AlbumKey, b.Progress-progressStep) })
	}
	return m, m.bookAction(msg, b.AlbumKey)
}

// bookAction maps the keys shared by the album and shelf views.
func (m Model) bookAction(msg tea.KeyMsg, albumKey string) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Select):
		return startPlayingCmd(m.backend, albumKey)
	case key.Matches(msg, m.keys.Download):
		return actionCmd("Download location recorded", func() error { return m.backend.Download(albumKey) })
	case key.Matches(msg, m.keys.RemoveDownload):
		return actionCmd("Download removed", func() error { return m.backend.RemoveDownload(albumKey) })
	case key.Matches(msg, m.keys.ThumbURL):
		return thumbCmd(m.backend, albumKey)
	}
	return nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filter.SetValue("")
		fallthrough
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.cursors[ViewAlbums] = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursors[ViewAlbums] = 0
	return m, cmd
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.view = v
	if v == ViewLogs {
		return m, fetchLogsCmd(m.logPath)
	}
	return m, nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.isError = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.isError = true
}

// visibleAlbums applies the filter to the album list.
func (m Model) visibleAlbums() []plex.Album {
	return filterAlbums(m.snapshot.Albums, m.filter.Value())
}

func filterAlbums(albums []plex.Album, query string) []plex.Album {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return albums
	}
	out := make([]plex.Album, 0, len(albums))
	for _, a := range albums {
		if strings.Contains(strings.ToLower(a.Title), query) ||
			strings.Contains(strings.ToLower(a.Author()), query) {
			out = append(out, a)
		}
	}
	return out
}

func (m Model) rowCount() int {
	switch m.view {
	case ViewServers:
		return len(m.snapshot.Servers)
	case ViewLibraries:
		return len(m.snapshot.Libraries)
	case ViewAlbums:
		return len(m.visibleAlbums())
	case ViewShelf:
		return len(m.snapshot.Books)
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	if m.view == ViewLogs {
		if delta < 0 {
			m.logViewport.ScrollUp(-delta)
		} else {
			m.logViewport.ScrollDown(delta)
		}
		return
	}
	m.cursors[m.view] = clamp(m.cursors[m.view]+delta, 0, m.rowCount()-1)
}

func (m *Model) clampCursors() {
	current := m.view
	for _, v := range allViews {
		m.view = v
		m.cursors[v] = clamp(m.cursors[v], 0, m.rowCount()-1)
	}
	m.view = current
}

func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.SetContent(strings.Join(m.logLines, "\n"))
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) contentWidth() int {
	return max(m.width-4, 10)
}

func (m Model) contentHeight() int {
	return max(m.height-chromeHeight-2, 3)
}

func at[T any](items []T, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(items) {
		return zero, false
	}
	return items[i], true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snap state.Snapshot
	err  error
}

type eventMsg state.Event

type actionMsg struct {
	status string
	err    error
}

type pinIssuedMsg struct {
	pin plex.Pin
	err error
}

type pinDoneMsg struct{ err error }

type logsMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(b Backend) tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		snap, err := b.Snapshot()
		return snapshotMsg{snap: snap, err: err}
	}
}

func waitForEvent(events *EventBridge) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events.ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func waitForPin(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return pinDoneMsg{err: <-done}
	}
}

func actionCmd(success string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: success}
	}
}

func refreshCmd(ctx context.Context, b Backend) tea.Cmd {
	return actionCmd("Refreshed", func() error { return b.RefreshAll(ctx) })
}

func beginSignInCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		pin, err := b.BeginSignIn(ctx)
		return pinIssuedMsg{pin: pin, err: err}
	}
}

func startPlayingCmd(b Backend, albumKey string) tea.Cmd {
	return func() tea.Msg {
		book, err := b.StartPlaying(albumKey)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("%s: %s", book.State, book.Album.Title)}
	}
}

func thumbCmd(b Backend, albumKey string) tea.Cmd {
	return func() tea.Msg {
		u, err := b.ThumbURL(albumKey)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: u}
	}
}

func fetchLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, LogFetchLimit)
		if err != nil {
			return logsMsg{err: err}
		}
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = e.Format()
		}
		return logsMsg{lines: lines}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
