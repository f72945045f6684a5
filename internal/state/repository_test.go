package state

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/plex"
	"github.com/five82/audioshelf/internal/store"
)

func zerologNop() zerolog.Logger { return zerolog.Nop() }

func TestRepository_DefaultsOnEmptyStore(t *testing.T) {
	mem := store.NewMemory()
	repo := NewRepository(mem, zerologNop())

	data, err := repo.LoadSettings()
	require.NoError(t, err)
	assert.NotEmpty(t, data.ClientID)
	assert.Empty(t, data.UserToken)

	again, err := repo.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, data.ClientID, again.ClientID, "installation id is stable")

	saved, current, err := repo.LoadBooks()
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.Empty(t, current)
}

func TestRepository_CorruptSettingsReplaced(t *testing.T) {
	mem := store.NewMemory()
	mem.InsertRaw(keySettings, []byte(`not json`))

	data, err := NewRepository(mem, zerologNop()).LoadSettings()
	require.NoError(t, err)
	assert.NotEmpty(t, data.ClientID)
}

func TestRepository_BooksRoundTrip(t *testing.T) {
	mem := store.NewMemory()
	repo := NewRepository(mem, zerologNop())

	dune := books.Book{AlbumKey: "abc", State: books.Playing, Progress: 0.25, Album: plex.Album{RatingKey: "abc", Title: "Dune"}}
	require.NoError(t, repo.SaveBooks([]books.Book{dune}, []string{"abc", "lost"}, "abc"))
	mem.InsertRaw(bookKey("bad"), []byte(`{`))
	require.NoError(t, mem.Insert(keyBookIndex, []string{"abc", "lost", "bad"}))

	saved, current, err := repo.LoadBooks()
	require.NoError(t, err)
	assert.Equal(t, []books.Book{dune}, saved, "missing and corrupt entries are skipped")
	assert.Equal(t, "abc", current)
	assert.Equal(t, 1, mem.Saves())
}
