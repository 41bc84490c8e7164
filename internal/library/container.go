// Package library holds the progress state container: the single owner and
// writer of book metadata, settings and view state.
package library

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/zenread/internal/domain"
)

// Container is the single source of truth for books, settings and the current view.
// All mutations go through Dispatch: reduce, persist, commit, notify.
type Container struct {
	store  domain.StateStore
	blobs  domain.BlobStore
	logger *slog.Logger
	now    func() time.Time

	locks *KeyLock

	dispatchMu sync.Mutex // serialises whole dispatches, including notification

	mu        sync.RWMutex // protects state and observers
	state     domain.State
	observers map[int]domain.Observer
	nextObsID int
}

// Option configures a Container
type Option func(*Container)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

// New loads persisted books and settings and returns a container positioned
// on the library view with no active book.
func New(store domain.StateStore, blobs domain.BlobStore, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		store:     store,
		blobs:     blobs,
		logger:    logger,
		now:       time.Now,
		locks:     NewKeyLock(),
		observers: make(map[int]domain.Observer),
		state:     domain.State{Books: []domain.Book{}, CurrentView: domain.ViewLibrary},
	}
	for _, opt := range opts {
		opt(c)
	}

	ps, ok, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if ok {
		books := make([]domain.Book, 0, len(ps.Books))
		for _, b := range ps.Books {
			books = append(books, b.Normalize())
		}
		c.state.Books = books
		c.state.Settings = ps.Settings
	}

	logger.Debug("state loaded", "books", len(c.state.Books))
	return c, nil
}

// Dispatch applies an action. When the action touches books or settings the new
// snapshot is persisted before it is committed; a failed write leaves the
// in-memory state unchanged and returns a storage error.
// Observers run synchronously after commit.
func (c *Container) Dispatch(a Action) error {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.RLock()
	current := c.state.Clone()
	c.mu.RUnlock()

	next, persist, err := a.reduce(current, c.now().UnixMilli())
	if err != nil {
		return err
	}

	if persist {
		if err := c.store.SaveState(domain.PersistedState{Books: next.Books, Settings: next.Settings}); err != nil {
			c.logger.Error("failed to persist state", "error", err, "action", a.name())
			return err
		}
	}

	c.mu.Lock()
	c.state = next
	observers := make([]domain.Observer, 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	c.logger.Debug("dispatched", "action", a.name(), "view", next.CurrentView)

	for _, o := range observers {
		o.OnChange(next.Clone())
	}
	return nil
}

// Subscribe registers an observer and returns a function that removes it
func (c *Container) Subscribe(o domain.Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = o
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Container) AddBook(book domain.Book) error {
	return c.Dispatch(AddBook{Book: book})
}

func (c *Container) UpdateProgress(id string, page, total int) error {
	return c.Dispatch(UpdateProgress{ID: id, Page: page, Total: total})
}

func (c *Container) UpdateSettings(patch domain.SettingsPatch) error {
	return c.Dispatch(UpdateSettings{Patch: patch})
}

func (c *Container) SetView(view domain.View) error {
	return c.Dispatch(SetView{View: view})
}

func (c *Container) OpenBook(id string) error {
	return c.Dispatch(OpenBook{ID: id})
}

func (c *Container) ToggleDarkMode() error {
	return c.Dispatch(ToggleDarkMode{})
}
