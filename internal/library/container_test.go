package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/store"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingBlobs wraps a blob store and fails Delete
type failingBlobs struct {
	domain.BlobStore
	deletes int
}

func (f *failingBlobs) Delete(ctx context.Context, id string) error {
	f.deletes++
	return domain.StorageError("delete blob", errors.New("database unavailable"))
}

// failingState fails every save after the first n
type failingState struct {
	domain.StateStore
	allow int
}

func (f *failingState) SaveState(ps domain.PersistedState) error {
	if f.allow <= 0 {
		return domain.StorageError("save state", errors.New("quota exceeded"))
	}
	f.allow--
	return f.StateStore.SaveState(ps)
}

func newTestContainer(t *testing.T) (*Container, *store.Store) {
	t.Helper()
	s, err := store.Open("")
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(s.State, s.Blobs, testLogger(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, s
}

func book(id string) domain.Book {
	return domain.NewBook(id, "Title "+id, "", fixedNow.Add(-time.Hour))
}

func TestAddBookPrepends(t *testing.T) {
	c, _ := newTestContainer(t)

	c.AddBook(book("a"))
	c.AddBook(book("b"))

	books := c.Books()
	if len(books) != 2 || books[0].ID != "b" || books[1].ID != "a" {
		t.Fatalf("books = %+v, want [b a]", books)
	}
	if books[0].Author != domain.DefaultAuthor {
		t.Errorf("author = %q, want default", books[0].Author)
	}
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name        string
		page, total int
		wantPage    int
		wantTotal   int
		wantPercent int
	}{
		{"quarter", 45, 180, 45, 180, 25},
		{"first page", 1, 3, 1, 3, 33},
		{"rounds half up", 1, 8, 1, 8, 13},
		{"last page", 10, 10, 10, 10, 100},
		{"clamps above total", 15, 10, 10, 10, 100},
		{"clamps below one", 0, 10, 1, 10, 10},
		{"negative page", -4, 10, 1, 10, 10},
		{"zero total", 5, 0, 5, 0, 0},
		{"zero total zero page", 0, 0, 1, 0, 0},
		{"negative total", 3, -2, 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContainer(t)
			c.AddBook(book("x"))

			if err := c.UpdateProgress("x", tt.page, tt.total); err != nil {
				t.Fatalf("UpdateProgress failed: %v", err)
			}

			b, _ := c.Book("x")
			if b.CurrentPage != tt.wantPage || b.TotalPages != tt.wantTotal || b.ProgressPercent != tt.wantPercent {
				t.Errorf("got page=%d total=%d percent=%d, want %d/%d/%d",
					b.CurrentPage, b.TotalPages, b.ProgressPercent, tt.wantPage, tt.wantTotal, tt.wantPercent)
			}
			if b.LastRead != fixedNow.UnixMilli() {
				t.Errorf("LastRead = %d, want %d", b.LastRead, fixedNow.UnixMilli())
			}
		})
	}
}

func TestUpdateProgressPercentLaw(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for page := -1; page <= total+1; page++ {
			current, percent := domain.Progress(page, total)
			wantCurrent := min(max(page, 1), total)
			if current != wantCurrent {
				t.Fatalf("Progress(%d,%d) current = %d, want %d", page, total, current, wantCurrent)
			}
			want := (current*200 + total) / (2 * total) // integer round-half-up of current/total*100
			if percent != want {
				t.Fatalf("Progress(%d,%d) percent = %d, want %d", page, total, percent, want)
			}
		}
	}
}

func TestUpdateProgressUnknownIDIsNoop(t *testing.T) {
	c, _ := newTestContainer(t)
	c.AddBook(book("a"))

	calls := 0
	c.Subscribe(domain.ObserverFunc(func(domain.State) { calls++ }))

	if err := c.UpdateProgress("missing", 3, 10); err != nil {
		t.Fatalf("UpdateProgress on unknown id returned %v", err)
	}
	b, _ := c.Book("a")
	if b.CurrentPage != 1 || b.TotalPages != 0 {
		t.Errorf("unrelated book changed: %+v", b)
	}
	if calls != 1 {
		t.Errorf("observer calls = %d, want 1", calls)
	}
}

func TestRemoveBookDeletesBlobAndRecord(t *testing.T) {
	c, s := newTestContainer(t)
	ctx := context.Background()

	s.Blobs.Put(ctx, "a", []byte("pdf"))
	c.AddBook(book("a"))

	if err := c.RemoveBook(ctx, "a"); err != nil {
		t.Fatalf("RemoveBook failed: %v", err)
	}
	if len(c.Books()) != 0 {
		t.Errorf("books = %+v, want empty", c.Books())
	}
	if _, found, _ := s.Blobs.Get(ctx, "a"); found {
		t.Error("blob still present after RemoveBook")
	}
}

func TestRemoveBookSurvivesBlobFailure(t *testing.T) {
	s, _ := store.Open("")
	blobs := &failingBlobs{BlobStore: s.Blobs}
	c, err := New(s.State, blobs, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	c.AddBook(book("a"))
	c.AddBook(book("b"))

	if err := c.RemoveBook(context.Background(), "a"); err != nil {
		t.Fatalf("RemoveBook returned %v, want nil despite blob failure", err)
	}
	if blobs.deletes != 1 {
		t.Errorf("blob deletes = %d, want 1", blobs.deletes)
	}
	books := c.Books()
	if len(books) != 1 || books[0].ID != "b" {
		t.Errorf("books = %+v, want [b]", books)
	}
}

func TestRemoveActiveBookReturnsToLibrary(t *testing.T) {
	c, _ := newTestContainer(t)
	c.AddBook(book("a"))
	c.AddBook(book("b"))

	if err := c.OpenBook("a"); err != nil {
		t.Fatal(err)
	}
	if st := c.State(); st.CurrentView != domain.ViewReader || st.ActiveBookID != "a" {
		t.Fatalf("after OpenBook: %+v", st)
	}

	c.RemoveBook(context.Background(), "a")

	st := c.State()
	if st.CurrentView != domain.ViewLibrary || st.ActiveBookID != "" {
		t.Errorf("after removing active book: view=%s active=%q", st.CurrentView, st.ActiveBookID)
	}
}

func TestRemoveOtherBookKeepsReader(t *testing.T) {
	c, _ := newTestContainer(t)
	c.AddBook(book("a"))
	c.AddBook(book("b"))
	c.OpenBook("a")

	c.RemoveBook(context.Background(), "b")

	st := c.State()
	if st.CurrentView != domain.ViewReader || st.ActiveBookID != "a" {
		t.Errorf("view=%s active=%q, want reader/a", st.CurrentView, st.ActiveBookID)
	}
}

func TestConcurrentRemoveSameBook(t *testing.T) {
	c, s := newTestContainer(t)
	ctx := context.Background()
	s.Blobs.Put(ctx, "a", []byte("pdf"))
	c.AddBook(book("a"))
	c.AddBook(book("b"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RemoveBook(ctx, "a")
		}()
	}
	wg.Wait()

	if books := c.Books(); len(books) != 1 || books[0].ID != "b" {
		t.Errorf("books = %+v, want [b]", books)
	}
	if c.locks.Len() != 0 {
		t.Errorf("key locks leaked: %d", c.locks.Len())
	}
}

func TestSettingsMergeAndToggle(t *testing.T) {
	c, _ := newTestContainer(t)

	token := "123:abc"
	c.UpdateSettings(domain.SettingsPatch{TelegramBotToken: &token})
	chat := "42"
	c.UpdateSettings(domain.SettingsPatch{TelegramChatID: &chat})

	got := c.Settings()
	if got.TelegramBotToken != token || got.TelegramChatID != chat || got.DarkMode {
		t.Errorf("settings = %+v", got)
	}

	c.ToggleDarkMode()
	if !c.Settings().DarkMode {
		t.Error("dark mode not enabled")
	}
	c.ToggleDarkMode()
	if c.Settings().DarkMode {
		t.Error("dark mode not disabled")
	}
}

func TestViewTransitions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *Container)
		to      domain.View
		wantErr error
		want    domain.View
	}{
		{"library to settings", nil, domain.ViewSettings, nil, domain.ViewSettings},
		{"settings to library", func(c *Container) { c.SetView(domain.ViewSettings) }, domain.ViewLibrary, nil, domain.ViewLibrary},
		{"reader without book", nil, domain.ViewReader, domain.ErrInvalidTransition, domain.ViewLibrary},
		{"settings to reader", func(c *Container) {
			c.OpenBook("a")
			c.SetView(domain.ViewLibrary)
			c.SetView(domain.ViewSettings)
		}, domain.ViewReader, domain.ErrInvalidTransition, domain.ViewSettings},
		{"reader to settings", func(c *Container) { c.OpenBook("a") }, domain.ViewSettings, domain.ErrInvalidTransition, domain.ViewReader},
		{"reader to library", func(c *Container) { c.OpenBook("a") }, domain.ViewLibrary, nil, domain.ViewLibrary},
		{"back to reader keeps active book", func(c *Container) {
			c.OpenBook("a")
			c.SetView(domain.ViewLibrary)
		}, domain.ViewReader, nil, domain.ViewReader},
		{"unknown view", nil, domain.View("shelf"), domain.ErrInvalidTransition, domain.ViewLibrary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContainer(t)
			c.AddBook(book("a"))
			if tt.setup != nil {
				tt.setup(c)
			}

			err := c.SetView(tt.to)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SetView(%s) = %v", tt.to, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetView(%s) = %v, want %v", tt.to, err, tt.wantErr)
			}
			if got := c.State().CurrentView; got != tt.want {
				t.Errorf("view = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenBookUnknownID(t *testing.T) {
	c, _ := newTestContainer(t)
	if err := c.OpenBook("ghost"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("OpenBook(ghost) = %v, want ErrBookNotFound", err)
	}
	if st := c.State(); st.CurrentView != domain.ViewLibrary || st.ActiveBookID != "" {
		t.Errorf("state changed: %+v", st)
	}
}

func TestPersistReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	c, err := New(s.State, s.Blobs, testLogger(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatal(err)
	}
	c.AddBook(book("a"))
	c.AddBook(book("b"))
	c.UpdateProgress("a", 45, 180)
	chat := "99"
	c.UpdateSettings(domain.SettingsPatch{TelegramChatID: &chat})
	c.ToggleDarkMode()
	c.OpenBook("a")
	before := c.State()
	s.Close()

	s, err = store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	reloaded, err := New(s.State, s.Blobs, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	after := reloaded.State()

	if len(after.Books) != len(before.Books) {
		t.Fatalf("books = %d, want %d", len(after.Books), len(before.Books))
	}
	for i := range before.Books {
		if after.Books[i] != before.Books[i] {
			t.Errorf("book %d = %+v, want %+v", i, after.Books[i], before.Books[i])
		}
	}
	if after.Settings != before.Settings {
		t.Errorf("settings = %+v, want %+v", after.Settings, before.Settings)
	}
	if after.CurrentView != domain.ViewLibrary || after.ActiveBookID != "" {
		t.Errorf("view state restored: view=%s active=%q", after.CurrentView, after.ActiveBookID)
	}
}

func TestLoadRecomputesStalePercent(t *testing.T) {
	s, _ := store.Open("")
	s.State.SaveState(domain.PersistedState{Books: []domain.Book{
		{ID: "a", Title: "T", TotalPages: 180, CurrentPage: 45, ProgressPercent: 99},
		{ID: "b", Title: "U", TotalPages: 10, CurrentPage: 50, ProgressPercent: 0},
	}})

	c, err := New(s.State, s.Blobs, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	a, _ := c.Book("a")
	if a.ProgressPercent != 25 {
		t.Errorf("a.ProgressPercent = %d, want 25", a.ProgressPercent)
	}
	b, _ := c.Book("b")
	if b.CurrentPage != 10 || b.ProgressPercent != 100 {
		t.Errorf("b = %+v, want clamped to 10/100", b)
	}
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	s, _ := store.Open("")
	state := &failingState{StateStore: s.State, allow: 1}
	c, err := New(state, s.Blobs, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.AddBook(book("a")); err != nil {
		t.Fatalf("first AddBook failed: %v", err)
	}

	notified := false
	c.Subscribe(domain.ObserverFunc(func(domain.State) { notified = true }))

	err = c.AddBook(book("b"))
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("AddBook = %v, want ErrStorage", err)
	}
	if books := c.Books(); len(books) != 1 || books[0].ID != "a" {
		t.Errorf("books = %+v, want [a]", books)
	}
	if notified {
		t.Error("observer notified for uncommitted mutation")
	}

	// View changes are not persisted and keep working
	if err := c.SetView(domain.ViewSettings); err != nil {
		t.Errorf("SetView failed while storage is down: %v", err)
	}
}

func TestObserversReceiveSnapshots(t *testing.T) {
	c, _ := newTestContainer(t)

	var seen []domain.State
	unsubscribe := c.Subscribe(domain.ObserverFunc(func(s domain.State) { seen = append(seen, s) }))

	c.AddBook(book("a"))
	c.OpenBook("a")
	unsubscribe()
	c.SetView(domain.ViewLibrary)

	if len(seen) != 2 {
		t.Fatalf("observer saw %d changes, want 2", len(seen))
	}
	if seen[1].CurrentView != domain.ViewReader || seen[1].ActiveBookID != "a" {
		t.Errorf("second snapshot = %+v", seen[1])
	}

	// Snapshots must not alias container state
	seen[0].Books[0].Title = "mutated"
	if b, _ := c.Book("a"); b.Title == "mutated" {
		t.Error("observer snapshot aliases container state")
	}
}

func TestPruneOrphans(t *testing.T) {
	c, s := newTestContainer(t)
	ctx := context.Background()

	s.Blobs.Put(ctx, "kept", []byte("1"))
	s.Blobs.Put(ctx, "orphan", []byte("2"))
	c.AddBook(book("kept"))

	n, err := c.PruneOrphans(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PruneOrphans = (%d, %v), want (1, nil)", n, err)
	}
	if _, found, _ := s.Blobs.Get(ctx, "orphan"); found {
		t.Error("orphan blob still present")
	}
	if _, found, _ := s.Blobs.Get(ctx, "kept"); !found {
		t.Error("kept blob removed")
	}
}
