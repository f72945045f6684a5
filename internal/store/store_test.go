package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemory_GetInsertDelete(t *testing.T) {
	m := NewMemory()

	var got settings
	found, err := m.Get("settings", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Insert("settings", settings{Name: "a", Count: 2}))
	found, err = m.Get("settings", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, settings{Name: "a", Count: 2}, got)

	require.NoError(t, m.Delete("settings"))
	found, err = m.Get("settings", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, m.Len())

	require.NoError(t, m.Save())
	assert.Equal(t, 1, m.Saves())
}

func TestLoadOrInit(t *testing.T) {
	m := NewMemory()
	calls := 0
	fallback := func() settings {
		calls++
		return settings{Name: "default"}
	}

	v, err := LoadOrInit(m, "settings", fallback)
	require.NoError(t, err)
	assert.Equal(t, "default", v.Name)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Len(), "missing entry is inserted")

	require.NoError(t, m.Insert("settings", settings{Name: "saved"}))
	v, err = LoadOrInit(m, "settings", fallback)
	require.NoError(t, err)
	assert.Equal(t, "saved", v.Name)
	assert.Equal(t, 1, calls)
}

func TestLoadOrInit_CorruptEntryIsReplaced(t *testing.T) {
	m := NewMemory()
	m.InsertRaw("settings", []byte(`{"name":`))

	v, err := LoadOrInit(m, "settings", func() settings { return settings{Name: "default"} })
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, "default", v.Name)

	var got settings
	found, err := m.Get("settings", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "default", got.Name)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audioshelf.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert("settings", settings{Name: "a"}))
	require.NoError(t, s.Insert("books", []string{"abc", "def"}))
	require.NoError(t, s.Insert("book:gone", settings{}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Delete("book:gone"))
	require.NoError(t, s.Insert("unsaved", settings{Name: "lost"}))
	require.NoError(t, s.Delete("unsaved"))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var got settings
	found, err := s.Get("settings", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Name)

	var keys []string
	found, err = s.Get("books", &keys)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"abc", "def"}, keys)

	found, err = s.Get("book:gone", &got)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = s.Get("unsaved", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLite_UnsavedChangesAreNotDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioshelf.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert("settings", settings{Name: "staged"}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var got settings
	found, err := s.Get("settings", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
