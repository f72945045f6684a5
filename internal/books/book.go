// Package books tracks which audiobook is playing and which have local copies.
package books

import (
	"errors"
	"fmt"

	"github.com/five82/audioshelf/internal/plex"
)

var (
	ErrNoBookFound       = errors.New("no book found")
	ErrBookNotDownloaded = errors.New("book not downloaded")
	ErrDownloadFailed    = errors.New("download failed")
)

// ReadingState is whether a book is the one currently playing.
type ReadingState int

const (
	Paused ReadingState = iota
	Playing
)

func (s ReadingState) String() string {
	if s == Playing {
		return "Playing"
	}
	return "Paused"
}

// MarshalText implements encoding.TextMarshaler.
func (s ReadingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ReadingState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Playing":
		*s = Playing
	case "Paused", "":
		*s = Paused
	default:
		return fmt.Errorf("unknown reading state %q", text)
	}
	return nil
}

// Book is the local listening record for one album. AlbumKey refers to the
// album by rating key only; Album is the descriptive snapshot taken when the
// book was last started and survives the album cache being refreshed.
type Book struct {
	AlbumKey           string       `json:"albumKey"`
	State              ReadingState `json:"state"`
	Progress           float64      `json:"progress"`
	DownloadedLocation string       `json:"downloadedLocation,omitempty"`
	Album              plex.Album   `json:"album"`
}

// Downloaded reports whether a local copy location is recorded.
func (b Book) Downloaded() bool {
	return b.DownloadedLocation != ""
}

// Outcome describes what a Shelf operation did. Changed is false when the
// operation had nothing new to persist or render, such as a pause/resume
// toggle of the current book or a repeated download. Touched lists the
// books whose stored form differs afterwards.
type Outcome struct {
	Changed bool
	Touched []string
}

func unchanged() Outcome {
	return Outcome{}
}

func changed(keys ...string) Outcome {
	return Outcome{Changed: true, Touched: keys}
}
