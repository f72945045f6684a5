package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/plex"
)

// Options configure a Cascade.
type Options struct {
	Client plex.Service
	Data   Data
	Logger zerolog.Logger
}

// Cascade owns the signed-in identity and the server → library → album
// selection chain with its caches. Selecting a level invalidates every level
// below it. A Cascade is not safe for concurrent use; state.App serializes
// access to it.
type Cascade struct {
	client    plex.Service
	log       zerolog.Logger
	data      Data
	sessionID string

	resources map[string]plex.Resource
	libraries map[string]plex.Library
	albums    map[string]plex.Album
}

// New restores a Cascade from persisted data. Caches start empty; call
// RefreshAll to populate them.
func New(opts Options) *Cascade {
	data := cloneData(opts.Data)
	if data.ClientID == "" {
		data.ClientID = newIdentifier()
	}
	if data.SelectedConnection == nil {
		data.SelectedLibrary = nil
	}
	c := &Cascade{
		client:    opts.Client,
		log:       opts.Logger,
		data:      data,
		sessionID: newIdentifier(),
	}
	c.pushIdentity()
	return c
}

// Data returns a copy of the persisted slice.
func (c *Cascade) Data() Data {
	return cloneData(c.data)
}

// SessionID returns the per-process session identifier.
func (c *Cascade) SessionID() string {
	return c.sessionID
}

// HasUser reports whether a user token is present.
func (c *Cascade) HasUser() bool {
	return c.data.UserToken != ""
}

// SignIn stores token and refreshes every cache level. The token is kept
// even when the refresh fails; HasUser tells the two outcomes apart and the
// returned error is the refresh failure.
func (c *Cascade) SignIn(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotAuthenticated
	}
	c.data.UserToken = token
	c.pushIdentity()
	if err := c.RefreshAll(ctx); err != nil {
		c.log.Warn().Err(err).Msg("refresh after sign-in incomplete")
		return err
	}
	return nil
}

// SignOut forgets the user, every selection and cache, and starts a new
// session. Calling it while signed out is harmless.
func (c *Cascade) SignOut() {
	c.data.UserToken = ""
	c.data.SelectedConnection = nil
	c.data.SelectedLibrary = nil
	c.resources = nil
	c.libraries = nil
	c.albums = nil
	c.sessionID = newIdentifier()
	c.pushIdentity()
}

// RefreshAll refreshes resources, libraries and albums in order. Levels
// without a selection above them are skipped. Each level may fail without
// stopping the others; the failures are joined.
func (c *Cascade) RefreshAll(ctx context.Context) error {
	errs := []error{c.RefreshResources(ctx)}
	if c.data.SelectedConnection != nil {
		errs = append(errs, c.RefreshLibraries(ctx))
	}
	if c.data.SelectedConnection != nil && c.data.SelectedLibrary != nil {
		errs = append(errs, c.RefreshAlbums(ctx))
	}
	return errors.Join(errs...)
}

// RefreshResources replaces the resource cache.
func (c *Cascade) RefreshResources(ctx context.Context) error {
	resources, err := fetchResources(ctx, c.client, c.data)
	if err != nil {
		return fmt.Errorf("refresh resources: %w", err)
	}
	c.resources = resources
	c.log.Debug().Int("count", len(resources)).Msg("resources refreshed")
	return nil
}

// Servers lists cached resource names in order.
func (c *Cascade) Servers() ([]string, error) {
	if len(c.resources) == 0 {
		return nil, ErrNoResourcesFound
	}
	return sortedKeys(c.resources), nil
}

// SelectedServer returns the name of the selected resource.
func (c *Cascade) SelectedServer() (string, bool) {
	if c.data.SelectedConnection == nil {
		return "", false
	}
	return c.data.SelectedConnection.Name, true
}

// SelectedConnection returns the selected resource and endpoint.
func (c *Cascade) SelectedConnection() (SelectedConnection, bool) {
	if c.data.SelectedConnection == nil {
		return SelectedConnection{}, false
	}
	return *c.data.SelectedConnection, true
}

// SelectServer probes the named resource and makes the first reachable
// connection current. Nothing changes unless the probe succeeds. On success
// the library selection and the library and album caches are cleared and
// libraries are refetched best-effort.
func (c *Cascade) SelectServer(ctx context.Context, name string) error {
	if !c.HasUser() {
		return ErrNotAuthenticated
	}
	if len(c.resources) == 0 {
		return ErrNoResourcesFound
	}
	res, ok := c.resources[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidServerName, name)
	}
	conn, err := plex.FindConnection(ctx, c.client, res.Connections)
	if err != nil {
		return fmt.Errorf("select server %q: %w", name, err)
	}

	c.data.SelectedConnection = &SelectedConnection{Name: res.Name, URI: conn.URI}
	c.clearLibraries()
	c.log.Info().Str("server", res.Name).Str("uri", conn.URI).Msg("server selected")

	if err := c.RefreshLibraries(ctx); err != nil {
		c.log.Warn().Err(err).Str("server", res.Name).Msg("library refresh failed")
	}
	return nil
}

// ResetServerSelection clears the server and everything below it. Nothing
// is refetched until the next selection.
func (c *Cascade) ResetServerSelection() {
	c.data.SelectedConnection = nil
	c.clearLibraries()
}

// RefreshLibraries replaces the library cache for the selected server.
func (c *Cascade) RefreshLibraries(ctx context.Context) error {
	libraries, err := fetchLibraries(ctx, c.client, c.data)
	if err != nil {
		return fmt.Errorf("refresh libraries: %w", err)
	}
	c.libraries = libraries
	c.log.Debug().Int("count", len(libraries)).Msg("libraries refreshed")
	return nil
}

// LibraryTitles lists cached library titles in order.
func (c *Cascade) LibraryTitles() ([]string, error) {
	if c.data.SelectedConnection == nil {
		return nil, ErrNoServerSelected
	}
	if len(c.libraries) == 0 {
		return nil, ErrNoLibrariesFound
	}
	return sortedKeys(c.libraries), nil
}

// SelectedLibrary returns the title of the selected library.
func (c *Cascade) SelectedLibrary() (string, bool) {
	if c.data.SelectedLibrary == nil {
		return "", false
	}
	return c.data.SelectedLibrary.Title, true
}

// SelectLibrary makes the named library current, clears the album cache and
// refetches albums best-effort. Unknown titles change nothing.
func (c *Cascade) SelectLibrary(ctx context.Context, title string) error {
	if c.data.SelectedConnection == nil {
		return ErrNoServerSelected
	}
	lib, ok := c.libraries[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLibraryName, title)
	}

	c.data.SelectedLibrary = &lib
	c.albums = nil
	c.log.Info().Str("library", lib.Title).Str("key", lib.Key).Msg("library selected")

	if err := c.RefreshAlbums(ctx); err != nil {
		c.log.Warn().Err(err).Str("library", lib.Title).Msg("album refresh failed")
	}
	return nil
}

// ResetLibrarySelection clears the library and the album cache.
func (c *Cascade) ResetLibrarySelection() {
	c.data.SelectedLibrary = nil
	c.albums = nil
}

// RefreshAlbums replaces the album cache for the selected library.
func (c *Cascade) RefreshAlbums(ctx context.Context) error {
	albums, err := fetchAlbums(ctx, c.client, c.data)
	if err != nil {
		return fmt.Errorf("refresh albums: %w", err)
	}
	c.albums = albums
	c.log.Debug().Int("count", len(albums)).Msg("albums refreshed")
	return nil
}

// Album returns the cached album with the given rating key.
func (c *Cascade) Album(key string) (plex.Album, error) {
	album, ok := c.albums[key]
	if !ok {
		return plex.Album{}, fmt.Errorf("%w: %q", ErrNoAlbumFound, key)
	}
	return album, nil
}

// Albums returns the cached albums ordered by author, title and key.
func (c *Cascade) Albums() ([]plex.Album, error) {
	if c.data.SelectedConnection == nil {
		return nil, ErrNoServerSelected
	}
	if c.data.SelectedLibrary == nil {
		return nil, ErrNoLibrarySelected
	}
	if len(c.albums) == 0 {
		return nil, ErrNoAlbumsFound
	}
	out := make([]plex.Album, 0, len(c.albums))
	for _, album := range c.albums {
		out = append(out, album)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ParentTitle != b.ParentTitle {
			return a.ParentTitle < b.ParentTitle
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.RatingKey < b.RatingKey
	})
	return out, nil
}

// AuthenticatedThumbURL joins the selected connection, the raw thumb path
// and the user token into a URL an image loader can fetch directly.
func (c *Cascade) AuthenticatedThumbURL(thumb string) (string, error) {
	if c.data.SelectedConnection == nil {
		return "", ErrNoServerSelected
	}
	if c.data.UserToken == "" {
		return "", ErrNotAuthenticated
	}
	sep := "?"
	if strings.Contains(thumb, "?") {
		sep = "&"
	}
	base := strings.TrimSuffix(c.data.SelectedConnection.URI, "/")
	return base + thumb + sep + "X-Plex-Token=" + url.QueryEscape(c.data.UserToken), nil
}

func (c *Cascade) clearLibraries() {
	c.data.SelectedLibrary = nil
	c.libraries = nil
	c.albums = nil
}

func (c *Cascade) pushIdentity() {
	if c.client == nil {
		return
	}
	c.client.SetIdentity(plex.Identity{
		ClientID:  c.data.ClientID,
		SessionID: c.sessionID,
		Token:     c.data.UserToken,
	})
}

func cloneData(d Data) Data {
	out := d
	if d.SelectedConnection != nil {
		conn := *d.SelectedConnection
		out.SelectedConnection = &conn
	}
	if d.SelectedLibrary != nil {
		lib := *d.SelectedLibrary
		out.SelectedLibrary = &lib
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
