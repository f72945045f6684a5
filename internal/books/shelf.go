package books

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/audioshelf/internal/plex"
)

// Locator resolves where an album's files live locally.
type Locator func(albumKey string) (string, error)

// DirLocator places each album in its own directory under root.
func DirLocator(root string) Locator {
	return func(albumKey string) (string, error) {
		name := strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || r == os.PathSeparator {
				return '_'
			}
			return r
		}, albumKey)
		if name == "" || name == "." || name == ".." {
			return "", fmt.Errorf("invalid album key %q", albumKey)
		}
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create download dir: %w", err)
		}
		return dir, nil
	}
}

// Shelf is the collection of books plus the current-book pointer. At most
// one book is Playing, and only the current one. A Shelf is not safe for
// concurrent use.
type Shelf struct {
	books   map[string]*Book
	current string
	locate  Locator
}

// NewShelf restores a shelf. Every restored book starts Paused, and a
// current key that names no book is dropped.
func NewShelf(saved []Book, current string, locate Locator) *Shelf {
	s := &Shelf{books: make(map[string]*Book, len(saved)), locate: locate}
	for _, b := range saved {
		if b.AlbumKey == "" {
			continue
		}
		b.State = Paused
		s.books[b.AlbumKey] = &b
	}
	if _, ok := s.books[current]; ok {
		s.current = current
	}
	return s
}

// StartPlaying applies the play/pause rules for album:
//
//   - no current book: the album's book is created if needed and plays;
//   - the album is current: its book toggles between Playing and Paused;
//   - another book is current: that one pauses, then the album's book plays.
//
// The toggle case reports Changed=false.
func (s *Shelf) StartPlaying(album plex.Album) (Outcome, error) {
	key := album.RatingKey
	if key == "" {
		return Outcome{}, fmt.Errorf("%w: empty album key", ErrNoBookFound)
	}

	if s.current == key {
		if b, ok := s.books[key]; ok {
			if b.State == Playing {
				b.State = Paused
			} else {
				b.State = Playing
			}
			return unchanged(), nil
		}
	}

	touched := make([]string, 0, 2)
	if prev, ok := s.books[s.current]; ok && s.current != key {
		prev.State = Paused
		touched = append(touched, prev.AlbumKey)
	}

	b, ok := s.books[key]
	if !ok {
		b = &Book{AlbumKey: key}
		s.books[key] = b
	}
	b.Album = album
	b.State = Playing
	s.current = key
	touched = append(touched, key)
	return changed(touched...), nil
}

// Download records a local location for the book. It succeeds without side
// effects when one is already recorded.
func (s *Shelf) Download(key string) (Outcome, error) {
	b, ok := s.books[key]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNoBookFound, key)
	}
	if b.Downloaded() {
		return unchanged(), nil
	}
	if s.locate == nil {
		return Outcome{}, fmt.Errorf("%w: no download location configured", ErrDownloadFailed)
	}
	loc, err := s.locate(key)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	b.DownloadedLocation = loc
	return changed(key), nil
}

// RemoveDownload forgets the book's local location.
func (s *Shelf) RemoveDownload(key string) (Outcome, error) {
	b, ok := s.books[key]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNoBookFound, key)
	}
	if !b.Downloaded() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrBookNotDownloaded, key)
	}
	b.DownloadedLocation = ""
	return changed(key), nil
}

// SetProgress stores listening progress, clamped to [0, 1].
func (s *Shelf) SetProgress(key string, progress float64) (Outcome, error) {
	b, ok := s.books[key]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNoBookFound, key)
	}
	switch {
	case progress < 0 || math.IsNaN(progress):
		progress = 0
	case progress > 1:
		progress = 1
	}
	if b.Progress == progress {
		return unchanged(), nil
	}
	b.Progress = progress
	return changed(key), nil
}

// Book returns a copy of the book for key.
func (s *Shelf) Book(key string) (Book, bool) {
	b, ok := s.books[key]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// Current returns the book the current pointer names.
func (s *Shelf) Current() (Book, bool) {
	return s.Book(s.current)
}

// CurrentKey returns the current pointer, empty when unset.
func (s *Shelf) CurrentKey() string {
	return s.current
}

// Keys returns every book key in order.
func (s *Shelf) Keys() []string {
	keys := make([]string, 0, len(s.books))
	for k := range s.books {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Books returns copies of every book ordered by key.
func (s *Shelf) Books() []Book {
	keys := s.Keys()
	out := make([]Book, 0, len(keys))
	for _, k := range keys {
		out = append(out, *s.books[k])
	}
	return out
}
