package state

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/session"
	"github.com/five82/audioshelf/internal/store"
)

// Store keys.
const (
	keySettings    = "settings"
	keyBookIndex   = "books"
	keyCurrentBook = "current-book"
	bookKeyPrefix  = "book:"
)

func bookKey(albumKey string) string {
	return bookKeyPrefix + albumKey
}

// Repository persists the slices of App that outlive the process.
type Repository interface {
	LoadSettings() (session.Data, error)
	SaveSettings(session.Data) error
	LoadBooks() (saved []books.Book, current string, err error)
	// SaveBooks writes the given books, the full key index and the
	// current-book pointer in one save.
	SaveBooks(changed []books.Book, index []string, current string) error
}

// StoreRepository is the Repository backed by a key-value store. Missing or
// corrupt entries are replaced by defaults; corruption is logged.
type StoreRepository struct {
	store store.Store
	log   zerolog.Logger
}

var _ Repository = (*StoreRepository)(nil)

// NewRepository wraps s.
func NewRepository(s store.Store, log zerolog.Logger) *StoreRepository {
	return &StoreRepository{store: s, log: log}
}

// LoadSettings returns the persisted session data, creating a new
// installation identity when none exists.
func (r *StoreRepository) LoadSettings() (session.Data, error) {
	data, err := store.LoadOrInit(r.store, keySettings, session.NewData)
	if err = r.tolerate(keySettings, err); err != nil {
		return session.Data{}, err
	}
	if data.ClientID == "" {
		data.ClientID = session.NewData().ClientID
		if err := r.store.Insert(keySettings, data); err != nil {
			return session.Data{}, fmt.Errorf("initialize %s: %w", keySettings, err)
		}
	}
	return data, nil
}

// SaveSettings stores data and saves.
func (r *StoreRepository) SaveSettings(data session.Data) error {
	if err := r.store.Insert(keySettings, data); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	if err := r.store.Save(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadBooks returns every indexed book and the current-book pointer. Index
// entries whose book is missing or corrupt are skipped.
func (r *StoreRepository) LoadBooks() ([]books.Book, string, error) {
	index, err := store.LoadOrInit(r.store, keyBookIndex, func() []string { return []string{} })
	if err = r.tolerate(keyBookIndex, err); err != nil {
		return nil, "", err
	}

	saved := make([]books.Book, 0, len(index))
	for _, key := range index {
		var b books.Book
		found, err := r.store.Get(bookKey(key), &b)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Str("album_key", key).Msg("skipping corrupt book")
			continue
		case !found:
			r.log.Warn().Str("album_key", key).Msg("indexed book missing")
			continue
		}
		if b.AlbumKey == "" {
			b.AlbumKey = key
		}
		saved = append(saved, b)
	}

	current, err := store.LoadOrInit(r.store, keyCurrentBook, func() string { return "" })
	if err = r.tolerate(keyCurrentBook, err); err != nil {
		return nil, "", err
	}
	return saved, current, nil
}

// SaveBooks implements Repository.
func (r *StoreRepository) SaveBooks(changed []books.Book, index []string, current string) error {
	for _, b := range changed {
		if err := r.store.Insert(bookKey(b.AlbumKey), b); err != nil {
			return fmt.Errorf("persist book %s: %w", b.AlbumKey, err)
		}
	}
	if index == nil {
		index = []string{}
	}
	if err := r.store.Insert(keyBookIndex, index); err != nil {
		return fmt.Errorf("persist book index: %w", err)
	}
	if err := r.store.Insert(keyCurrentBook, current); err != nil {
		return fmt.Errorf("persist current book: %w", err)
	}
	if err := r.store.Save(); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	return nil
}

// tolerate logs corrupt-entry errors and swallows them.
func (r *StoreRepository) tolerate(key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrCorrupt) {
		r.log.Warn().Err(err).Str("key", key).Msg("replaced corrupt entry with default")
		return nil
	}
	return err
}
