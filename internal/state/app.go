package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/pinauth"
	"github.com/five82/audioshelf/internal/plex"
	"github.com/five82/audioshelf/internal/session"
)

// ErrLockFailure is returned by every call after an operation panicked while
// holding the App lock.
var ErrLockFailure = errors.New("state lock poisoned")

// Options configure an App.
type Options struct {
	Client     plex.Service
	Repository Repository
	Notifier   Notifier
	Locator    books.Locator
	PinTTL     time.Duration
	Clock      clockwork.Clock
	Logger     zerolog.Logger
}

// App is the single coordinator of shared state. Every operation holds one
// exclusive lock for its whole duration, network calls included, and
// persists what it changed before releasing it.
type App struct {
	mu       sync.Mutex
	poisoned bool

	cascade *session.Cascade
	pins    *pinauth.Authenticator
	shelf   *books.Shelf
	refresh refreshStatus

	repo   Repository
	notify Notifier
	clock  clockwork.Clock
	log    zerolog.Logger
}

// New restores an App from its repository.
func New(opts Options) (*App, error) {
	if opts.Client == nil {
		return nil, errors.New("state: client is required")
	}
	if opts.Repository == nil {
		return nil, errors.New("state: repository is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	data, err := opts.Repository.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	saved, current, err := opts.Repository.LoadBooks()
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	a := &App{
		cascade: session.New(session.Options{Client: opts.Client, Data: data, Logger: opts.Logger}),
		pins: pinauth.New(pinauth.Options{
			Client: opts.Client,
			TTL:    opts.PinTTL,
			Clock:  clock,
			Logger: opts.Logger,
		}),
		shelf:  books.NewShelf(saved, current, opts.Locator),
		repo:   opts.Repository,
		notify: opts.Notifier,
		clock:  clock,
		log:    opts.Logger,
	}
	a.log.Info().
		Bool("signed_in", a.cascade.HasUser()).
		Int("books", len(saved)).
		Msg("state restored")
	return a, nil
}

// with runs fn under the lock. A panic in fn poisons the App and is
// re-raised.
func (a *App) with(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.poisoned {
		return ErrLockFailure
	}
	defer func() {
		if r := recover(); r != nil {
			a.poisoned = true
			a.log.Error().Interface("panic", r).Msg("operation panicked; state poisoned")
			panic(r)
		}
	}()
	return fn()
}

// BeginSignIn creates a pairing pin for the user to approve.
func (a *App) BeginSignIn(ctx context.Context) (plex.Pin, error) {
	var pin plex.Pin
	err := a.with(func() error {
		var err error
		pin, err = a.pins.CreatePin(ctx)
		if err != nil {
			return err
		}
		a.emit(SettingsChanged)
		return nil
	})
	return pin, err
}

// CheckPin polls the pending pin once. It returns pinauth.ErrWaitingOnPin
// until the user approves; on approval the token is promoted into the
// session and every cache is refreshed best-effort. The refresh outcome is
// recorded like any RefreshAll but does not fail the sign-in.
func (a *App) CheckPin(ctx context.Context) error {
	return a.with(func() error {
		token, err := a.pins.Poll(ctx)
		if err != nil {
			if errors.Is(err, pinauth.ErrPinExpired) {
				a.emit(SettingsChanged)
			}
			return err
		}
		err = a.cascade.SignIn(ctx, token)
		if !a.cascade.HasUser() {
			return err
		}
		a.refresh.record(a.clock.Now(), err)
		return a.saveSettings()
	})
}

// SignOut forgets the user and any pending pin.
func (a *App) SignOut() error {
	return a.with(func() error {
		a.cascade.SignOut()
		a.pins.Reset()
		a.refresh = refreshStatus{}
		return a.saveSettings()
	})
}

// RefreshAll refreshes every cache level. Levels that fail keep their
// previous contents; the failures are joined and recorded in the snapshot.
func (a *App) RefreshAll(ctx context.Context) error {
	return a.with(func() error {
		if !a.cascade.HasUser() {
			return session.ErrNotAuthenticated
		}
		err := a.cascade.RefreshAll(ctx)
		a.refresh.record(a.clock.Now(), err)
		if err != nil {
			a.log.Warn().Err(err).Msg("refresh incomplete")
		}
		a.emit(SettingsChanged)
		return err
	})
}

// SelectServer probes and selects the named server.
func (a *App) SelectServer(ctx context.Context, name string) error {
	return a.with(func() error {
		if err := a.cascade.SelectServer(ctx, name); err != nil {
			return err
		}
		return a.saveSettings()
	})
}

// ResetServerSelection clears the server, library and album selections.
func (a *App) ResetServerSelection() error {
	return a.with(func() error {
		a.cascade.ResetServerSelection()
		return a.saveSettings()
	})
}

// SelectLibrary selects the named library on the current server.
func (a *App) SelectLibrary(ctx context.Context, title string) error {
	return a.with(func() error {
		if err := a.cascade.SelectLibrary(ctx, title); err != nil {
			return err
		}
		return a.saveSettings()
	})
}

// ResetLibrarySelection clears the library selection and album cache.
func (a *App) ResetLibrarySelection() error {
	return a.with(func() error {
		a.cascade.ResetLibrarySelection()
		return a.saveSettings()
	})
}

// StartPlaying applies the play/pause rules to the album's book and returns
// the book afterwards. A pure pause/resume of the current book is neither
// persisted nor announced.
func (a *App) StartPlaying(albumKey string) (books.Book, error) {
	var book books.Book
	err := a.with(func() error {
		album, err := a.resolveAlbum(albumKey)
		if err != nil {
			return err
		}
		outcome, err := a.shelf.StartPlaying(album)
		if err != nil {
			return err
		}
		book, _ = a.shelf.Book(albumKey)
		if !outcome.Changed {
			return nil
		}
		return a.saveBooks(outcome, PlayerChanged)
	})
	return book, err
}

// Download records a local location for the book. Repeating it is a no-op.
func (a *App) Download(albumKey string) error {
	return a.with(func() error {
		outcome, err := a.shelf.Download(albumKey)
		if err != nil {
			return err
		}
		if !outcome.Changed {
			return nil
		}
		return a.saveBooks(outcome, DownloadChanged)
	})
}

// RemoveDownload forgets the book's local location.
func (a *App) RemoveDownload(albumKey string) error {
	return a.with(func() error {
		outcome, err := a.shelf.RemoveDownload(albumKey)
		if err != nil {
			return err
		}
		return a.saveBooks(outcome, DownloadChanged)
	})
}

// SetProgress records listening progress in [0,1] for the book.
func (a *App) SetProgress(albumKey string, progress float64) error {
	return a.with(func() error {
		outcome, err := a.shelf.SetProgress(albumKey, progress)
		if err != nil {
			return err
		}
		if !outcome.Changed {
			return nil
		}
		return a.saveBooks(outcome, PlayerChanged)
	})
}

// ThumbURL returns an authenticated artwork URL for the album.
func (a *App) ThumbURL(albumKey string) (string, error) {
	var u string
	err := a.with(func() error {
		album, err := a.resolveAlbum(albumKey)
		if err != nil {
			return err
		}
		u, err = a.cascade.AuthenticatedThumbURL(album.Thumb)
		return err
	})
	return u, err
}

// Snapshot copies the current state. It takes the same lock as every
// operation, so it waits behind slow network calls.
func (a *App) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := a.with(func() error {
		snap = a.snapshotLocked()
		return nil
	})
	return snap, err
}

// Close writes everything one last time. Failures are returned but the App
// holds no resources that need releasing.
func (a *App) Close() error {
	return a.with(func() error {
		all := a.shelf.Books()
		return errors.Join(
			a.repo.SaveSettings(a.cascade.Data()),
			a.repo.SaveBooks(all, a.shelf.Keys(), a.shelf.CurrentKey()),
		)
	})
}

func (a *App) snapshotLocked() Snapshot {
	snap := Snapshot{
		SignedIn:    a.cascade.HasUser(),
		PinStatus:   a.pins.Status(),
		Books:       a.shelf.Books(),
		CurrentBook: a.shelf.CurrentKey(),
	}
	if pin, ok := a.pins.Pending(); ok {
		snap.Pin = pin
		snap.HasPin = true
		snap.PinExpiresAt, _ = a.pins.ExpiresAt()
	}
	if servers, err := a.cascade.Servers(); err == nil {
		snap.Servers = servers
	}
	if conn, ok := a.cascade.SelectedConnection(); ok {
		snap.SelectedServer = conn.Name
		snap.SelectedURI = conn.URI
	}
	if titles, err := a.cascade.LibraryTitles(); err == nil {
		snap.Libraries = titles
	}
	snap.SelectedLibrary, _ = a.cascade.SelectedLibrary()
	if albums, err := a.cascade.Albums(); err == nil {
		snap.Albums = albums
	}
	a.refresh.apply(&snap)
	return snap
}

// resolveAlbum prefers the live album cache and falls back to the snapshot
// stored on an existing book, so books survive cache refreshes.
func (a *App) resolveAlbum(albumKey string) (plex.Album, error) {
	album, err := a.cascade.Album(albumKey)
	if err == nil {
		return album, nil
	}
	if b, ok := a.shelf.Book(albumKey); ok && b.Album.RatingKey != "" {
		return b.Album, nil
	}
	return plex.Album{}, err
}

func (a *App) saveSettings() error {
	if err := a.repo.SaveSettings(a.cascade.Data()); err != nil {
		a.log.Error().Err(err).Msg("persist settings failed")
		return err
	}
	a.emit(SettingsChanged)
	return nil
}

func (a *App) saveBooks(outcome books.Outcome, event Event) error {
	touched := make([]books.Book, 0, len(outcome.Touched))
	for _, key := range outcome.Touched {
		if b, ok := a.shelf.Book(key); ok {
			touched = append(touched, b)
		}
	}
	if err := a.repo.SaveBooks(touched, a.shelf.Keys(), a.shelf.CurrentKey()); err != nil {
		a.log.Error().Err(err).Msg("persist books failed")
		return err
	}
	a.emit(event)
	return nil
}

func (a *App) emit(e Event) {
	if a.notify == nil {
		return
	}
	a.notify.Notify(e)
}
