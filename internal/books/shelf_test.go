package books

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/audioshelf/internal/plex"
)

var (
	hobbit = plex.Album{RatingKey: "abc", Title: "The Hobbit", ParentTitle: "Tolkien"}
	dune   = plex.Album{RatingKey: "def", Title: "Dune", ParentTitle: "Herbert"}
)

func playingCount(s *Shelf) int {
	n := 0
	for _, b := range s.Books() {
		if b.State == Playing {
			n++
		}
	}
	return n
}

func TestStartPlaying_CreatesBookWhenNothingCurrent(t *testing.T) {
	s := NewShelf(nil, "", nil)

	out, err := s.StartPlaying(hobbit)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"abc"}, out.Touched)

	b, ok := s.Book("abc")
	require.True(t, ok)
	assert.Equal(t, Playing, b.State)
	assert.Equal(t, "The Hobbit", b.Album.Title)
	assert.Equal(t, "abc", s.CurrentKey())
}

func TestStartPlaying_TwiceTogglesWithoutNewBook(t *testing.T) {
	s := NewShelf(nil, "", nil)
	_, err := s.StartPlaying(hobbit)
	require.NoError(t, err)

	out, err := s.StartPlaying(hobbit)
	require.NoError(t, err)
	assert.False(t, out.Changed, "pure toggle reports no change")
	assert.Empty(t, out.Touched)

	b, _ := s.Book("abc")
	assert.Equal(t, Paused, b.State)
	assert.Len(t, s.Books(), 1)
	assert.Equal(t, "abc", s.CurrentKey())
}

func TestStartPlaying_DoubleToggleRestoresState(t *testing.T) {
	s := NewShelf(nil, "", nil)
	_, err := s.StartPlaying(hobbit)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := s.StartPlaying(hobbit)
		require.NoError(t, err)
	}
	b, _ := s.Book("abc")
	assert.Equal(t, Playing, b.State)
	assert.Equal(t, "abc", s.CurrentKey())
}

func TestStartPlaying_SwitchPausesPrevious(t *testing.T) {
	s := NewShelf(nil, "", nil)
	_, err := s.StartPlaying(hobbit)
	require.NoError(t, err)

	out, err := s.StartPlaying(dune)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"abc", "def"}, out.Touched)

	a, _ := s.Book("abc")
	b, _ := s.Book("def")
	assert.Equal(t, Paused, a.State)
	assert.Equal(t, Playing, b.State)
	assert.Equal(t, 1, playingCount(s))
	assert.Equal(t, "def", s.CurrentKey())
}

func TestStartPlaying_ResumesExistingBookOnSwitchBack(t *testing.T) {
	s := NewShelf(nil, "", nil)
	for _, album := range []plex.Album{hobbit, dune, hobbit} {
		_, err := s.StartPlaying(album)
		require.NoError(t, err)
	}
	assert.Len(t, s.Books(), 2)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "abc", cur.AlbumKey)
	assert.Equal(t, Playing, cur.State)
	assert.Equal(t, 1, playingCount(s))
}

func TestStartPlaying_EmptyKey(t *testing.T) {
	s := NewShelf(nil, "", nil)
	_, err := s.StartPlaying(plex.Album{})
	assert.ErrorIs(t, err, ErrNoBookFound)
}

func TestNewShelf_RestoresPausedAndDropsDanglingCurrent(t *testing.T) {
	saved := []Book{
		{AlbumKey: "abc", State: Playing, Progress: 0.5},
		{AlbumKey: ""},
	}
	s := NewShelf(saved, "abc", nil)
	b, ok := s.Book("abc")
	require.True(t, ok)
	assert.Equal(t, Paused, b.State)
	assert.Equal(t, "abc", s.CurrentKey())
	assert.Len(t, s.Books(), 1)

	s = NewShelf(saved, "zzz", nil)
	assert.Empty(t, s.CurrentKey())
}

func TestDownload_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	s := NewShelf(nil, "", DirLocator(root))
	_, err := s.StartPlaying(hobbit)
	require.NoError(t, err)

	out, err := s.Download("abc")
	require.NoError(t, err)
	assert.True(t, out.Changed)
	b, _ := s.Book("abc")
	assert.Equal(t, filepath.Join(root, "abc"), b.DownloadedLocation)
	assert.DirExists(t, b.DownloadedLocation)

	out, err = s.Download("abc")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	again, _ := s.Book("abc")
	assert.Equal(t, b, again)
}

func TestDownload_Errors(t *testing.T) {
	s := NewShelf(nil, "", func(string) (string, error) { return "", errors.New("disk full") })
	_, err := s.Download("abc")
	assert.ErrorIs(t, err, ErrNoBookFound)

	_, err = s.StartPlaying(hobbit)
	require.NoError(t, err)
	_, err = s.Download("abc")
	assert.ErrorIs(t, err, ErrDownloadFailed)
	b, _ := s.Book("abc")
	assert.False(t, b.Downloaded())

	s = NewShelf([]Book{{AlbumKey: "abc"}}, "", nil)
	_, err = s.Download("abc")
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestRemoveDownload(t *testing.T) {
	s := NewShelf([]Book{{AlbumKey: "abc"}}, "", DirLocator(t.TempDir()))

	before := s.Books()
	_, err := s.RemoveDownload("abc")
	assert.ErrorIs(t, err, ErrBookNotDownloaded)
	assert.Equal(t, before, s.Books())

	_, err = s.RemoveDownload("nope")
	assert.ErrorIs(t, err, ErrNoBookFound)

	_, err = s.Download("abc")
	require.NoError(t, err)
	out, err := s.RemoveDownload("abc")
	require.NoError(t, err)
	assert.True(t, out.Changed)
	b, _ := s.Book("abc")
	assert.False(t, b.Downloaded())
}

func TestDownloadDoesNotTouchReadingState(t *testing.T) {
	s := NewShelf(nil, "", DirLocator(t.TempDir()))
	_, err := s.StartPlaying(hobbit)
	require.NoError(t, err)
	_, err = s.Download("abc")
	require.NoError(t, err)

	b, _ := s.Book("abc")
	assert.Equal(t, Playing, b.State)
}

func TestDirLocator_RejectsTraversal(t *testing.T) {
	locate := DirLocator(t.TempDir())
	_, err := locate("..")
	assert.Error(t, err)

	loc, err := locate("a/b")
	require.NoError(t, err)
	assert.Equal(t, "a_b", filepath.Base(loc))
}

func TestSetProgress_Clamps(t *testing.T) {
	s := NewShelf([]Book{{AlbumKey: "abc"}}, "", nil)

	out, err := s.SetProgress("abc", 1.5)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	b, _ := s.Book("abc")
	assert.Equal(t, 1.0, b.Progress)

	out, err = s.SetProgress("abc", 1)
	require.NoError(t, err)
	assert.False(t, out.Changed)

	_, err = s.SetProgress("abc", math.NaN())
	require.NoError(t, err)
	b, _ = s.Book("abc")
	assert.Equal(t, 0.0, b.Progress)

	_, err = s.SetProgress("zzz", 0.1)
	assert.ErrorIs(t, err, ErrNoBookFound)
}

func TestBookJSONUsesStateNames(t *testing.T) {
	raw, err := json.Marshal(Book{AlbumKey: "abc", State: Playing})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"Playing"`)

	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"albumKey":"abc","state":"Paused","progress":0.25}`), &b))
	assert.Equal(t, Paused, b.State)
	assert.Equal(t, 0.25, b.Progress)

	assert.Error(t, json.Unmarshal([]byte(`{"state":"Stopped"}`), &b))
}
