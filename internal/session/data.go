package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/five82/audioshelf/internal/plex"
)

// SelectedConnection is the resource and endpoint currently in use.
type SelectedConnection struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Data is the persisted slice of the session. The session identifier is
// deliberately absent: it is regenerated for every process.
type Data struct {
	ClientID           string              `json:"clientIdent"`
	UserToken          string              `json:"userToken,omitempty"`
	SelectedConnection *SelectedConnection `json:"selectedConnection,omitempty"`
	SelectedLibrary    *plex.Library       `json:"selectedLibrary,omitempty"`
}

// NewData returns a fresh installation identity with nothing selected.
func NewData() Data {
	return Data{ClientID: newIdentifier()}
}

func newIdentifier() string {
	return uuid.NewString()
}

// fetchResources, fetchLibraries and fetchAlbums compute a cache level from
// the selection above it. They never touch Cascade fields.

func fetchResources(ctx context.Context, client plex.Service, d Data) (map[string]plex.Resource, error) {
	if d.UserToken == "" {
		return nil, ErrNotAuthenticated
	}
	list, err := client.Resources(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]plex.Resource, len(list))
	for _, res := range list {
		out[res.Name] = res
	}
	return out, nil
}

func fetchLibraries(ctx context.Context, client plex.Service, d Data) (map[string]plex.Library, error) {
	if d.SelectedConnection == nil {
		return nil, ErrNoServerSelected
	}
	list, err := client.Libraries(ctx, d.SelectedConnection.URI)
	if err != nil {
		return nil, err
	}
	out := make(map[string]plex.Library, len(list))
	for _, lib := range list {
		out[lib.Title] = lib
	}
	return out, nil
}

func fetchAlbums(ctx context.Context, client plex.Service, d Data) (map[string]plex.Album, error) {
	if d.SelectedConnection == nil {
		return nil, ErrNoServerSelected
	}
	if d.SelectedLibrary == nil {
		return nil, ErrNoLibrarySelected
	}
	list, err := client.Albums(ctx, d.SelectedConnection.URI, d.SelectedLibrary.Key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]plex.Album, len(list))
	for _, album := range list {
		out[album.RatingKey] = album
	}
	return out, nil
}
