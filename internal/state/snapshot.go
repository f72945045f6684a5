package state

import (
	"time"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/pinauth"
	"github.com/five82/audioshelf/internal/plex"
)

// Snapshot is a copy of everything the UI renders. Nothing in it aliases
// App state.
type Snapshot struct {
	SignedIn     bool
	PinStatus    pinauth.Status
	Pin          plex.Pin
	HasPin       bool
	PinExpiresAt time.Time

	Servers         []string
	SelectedServer  string
	SelectedURI     string
	Libraries       []string
	SelectedLibrary string
	Albums          []plex.Album

	Books       []books.Book
	CurrentBook string

	LastRefreshed       time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether refreshes have failed repeatedly.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Book returns the book for albumKey, if any.
func (s Snapshot) Book(albumKey string) (books.Book, bool) {
	for _, b := range s.Books {
		if b.AlbumKey == albumKey {
			return b, true
		}
	}
	return books.Book{}, false
}

// refreshStatus mirrors the outcome of the last RefreshAll.
type refreshStatus struct {
	at       time.Time
	err      error
	failures int
}

func (r *refreshStatus) record(at time.Time, err error) {
	r.at = at
	r.err = err
	if err != nil {
		r.failures++
		return
	}
	r.failures = 0
}

func (r refreshStatus) apply(snap *Snapshot) {
	snap.LastRefreshed = r.at
	snap.ConsecutiveFailures = r.failures
	snap.LastError = r.err
}
