package session

import "errors"

var (
	// ErrNotAuthenticated means no user token is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoServerSelected means the operation needs a selected server.
	ErrNoServerSelected = errors.New("no server selected")
	// ErrNoLibrarySelected means the operation needs a selected library.
	ErrNoLibrarySelected = errors.New("no library selected")
	// ErrInvalidServerName means the name is not in the resource cache.
	ErrInvalidServerName = errors.New("invalid server name")
	// ErrInvalidLibraryName means the title is not in the library cache.
	ErrInvalidLibraryName = errors.New("invalid library name")
	// ErrNoResourcesFound means the resource cache is empty.
	ErrNoResourcesFound = errors.New("no resources found")
	// ErrNoLibrariesFound means the library cache is empty.
	ErrNoLibrariesFound = errors.New("no libraries found")
	// ErrNoAlbumsFound means the album cache is empty.
	ErrNoAlbumsFound = errors.New("no albums found")
	// ErrNoAlbumFound means no cached album has the requested rating key.
	ErrNoAlbumFound = errors.New("no album found")
)
