package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/store"
)

const fakePDF = "%PDF-1.4\n%fake\n"

// recordingBlobs counts Put calls and can be told to fail
type recordingBlobs struct {
	domain.BlobStore
	puts    atomic.Int32
	failPut bool
}

func (r *recordingBlobs) Put(ctx context.Context, id string, data []byte) error {
	r.puts.Add(1)
	if r.failPut {
		return domain.StorageError("put blob", errors.New("quota exceeded"))
	}
	return r.BlobStore.Put(ctx, id, data)
}

// recordingRegistry collects added books and can be told to fail
type recordingRegistry struct {
	mu    sync.Mutex
	books []domain.Book
	fail  bool
}

func (r *recordingRegistry) AddBook(b domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return domain.StorageError("save state", errors.New("disk full"))
	}
	r.books = append(r.books, b)
	return nil
}

type fixture struct {
	im       *Importer
	blobs    *recordingBlobs
	registry *recordingRegistry
	mem      *store.Store
	requests atomic.Int32
	lastURL  atomic.Value
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		target, _ := url.QueryUnescape(r.URL.RawQuery)
		f.lastURL.Store(target)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	mem, err := store.Open("")
	if err != nil {
		t.Fatal(err)
	}
	f.mem = mem
	f.blobs = &recordingBlobs{BlobStore: mem.Blobs}
	f.registry = &recordingRegistry{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.im = New(Config{ProxyURL: srv.URL + "/?", MaxBytes: 1024}, f.blobs, f.registry, logger)
	f.im.now = func() time.Time { return time.UnixMilli(1_000) }
	return f
}

func servePDF(contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		io.WriteString(w, fakePDF)
	}
}

func TestImportSuccess(t *testing.T) {
	f := newFixture(t, servePDF("application/pdf"))

	book, err := f.im.Import(context.Background(), "https://x/y.pdf", "Война и мир", "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if book.CurrentPage != 1 || book.TotalPages != 0 || book.ProgressPercent != 0 {
		t.Errorf("progress = %d/%d (%d%%), want 1/0 (0%%)", book.CurrentPage, book.TotalPages, book.ProgressPercent)
	}
	if book.Title != "Война и мир" || book.Author != domain.DefaultAuthor {
		t.Errorf("metadata = %q by %q", book.Title, book.Author)
	}
	if book.DateAdded != 1_000 || book.LastRead != 1_000 {
		t.Errorf("timestamps = %d/%d, want 1000", book.DateAdded, book.LastRead)
	}
	if len(book.ID) < 32 {
		t.Errorf("id %q looks too short", book.ID)
	}
	if got := f.lastURL.Load(); got != "https://x/y.pdf" {
		t.Errorf("proxy received target %v", got)
	}

	data, found, err := f.mem.Blobs.Get(context.Background(), book.ID)
	if err != nil || !found || string(data) != fakePDF {
		t.Errorf("stored blob = (%q, %v, %v)", data, found, err)
	}
	if len(f.registry.books) != 1 || f.registry.books[0].ID != book.ID {
		t.Errorf("registry = %+v", f.registry.books)
	}
}

func TestImportAcceptsContentTypeParameters(t *testing.T) {
	f := newFixture(t, servePDF("application/pdf; charset=binary"))

	if _, err := f.im.Import(context.Background(), "https://x/y.pdf", "T", "A"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
}

func TestImportRejectsEmptyInput(t *testing.T) {
	tests := []struct {
		name, url, title string
	}{
		{"empty url", "", "Title"},
		{"empty title", "https://x/y.pdf", ""},
		{"blank title", "https://x/y.pdf", "   "},
		{"not http", "ftp://x/y.pdf", "Title"},
		{"no host", "https:///y.pdf", "Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, servePDF("application/pdf"))

			_, err := f.im.Import(context.Background(), tt.url, tt.title, "")
			if !IsImportError(err, domain.KindInvalidInput) {
				t.Errorf("Import = %v, want invalid_input", err)
			}
			if f.requests.Load() != 0 {
				t.Errorf("network requests = %d, want 0", f.requests.Load())
			}
		})
	}
}

func TestImportNotAPDF(t *testing.T) {
	f := newFixture(t, servePDF("text/html; charset=utf-8"))

	_, err := f.im.Import(context.Background(), "https://x/page.html", "T", "")
	if !IsImportError(err, domain.KindNotPDF) {
		t.Fatalf("Import = %v, want not_a_pdf", err)
	}
	if !errors.Is(err, domain.ErrNotPDF) {
		t.Error("error does not match ErrNotPDF")
	}
	if f.blobs.puts.Load() != 0 {
		t.Errorf("blob Put called %d times", f.blobs.puts.Load())
	}
	if len(f.registry.books) != 0 {
		t.Errorf("AddBook called: %+v", f.registry.books)
	}
}

func TestImportFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"too large", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(make([]byte, 4096))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.handler)

			_, err := f.im.Import(context.Background(), "https://x/y.pdf", "T", "")
			if !IsImportError(err, domain.KindFetchFailed) {
				t.Fatalf("Import = %v, want fetch_failed", err)
			}
			if f.blobs.puts.Load() != 0 || len(f.registry.books) != 0 {
				t.Error("partial state written on fetch failure")
			}
		})
	}
}

func TestImportUnreachableProxy(t *testing.T) {
	mem, _ := store.Open("")
	reg := &recordingRegistry{}
	im := New(Config{ProxyURL: "http://127.0.0.1:1/?"}, mem.Blobs, reg, nil)

	_, err := im.Import(context.Background(), "https://x/y.pdf", "T", "")
	if !IsImportError(err, domain.KindFetchFailed) {
		t.Fatalf("Import = %v, want fetch_failed", err)
	}
}

func TestImportBlobFailureSkipsMetadata(t *testing.T) {
	f := newFixture(t, servePDF("application/pdf"))
	f.blobs.failPut = true

	_, err := f.im.Import(context.Background(), "https://x/y.pdf", "T", "")
	if !IsImportError(err, domain.KindStorageFailed) {
		t.Fatalf("Import = %v, want storage_failed", err)
	}
	if len(f.registry.books) != 0 {
		t.Errorf("metadata added despite blob failure: %+v", f.registry.books)
	}
}

func TestImportRegistryFailureRemovesBlob(t *testing.T) {
	f := newFixture(t, servePDF("application/pdf"))
	f.registry.fail = true

	_, err := f.im.Import(context.Background(), "https://x/y.pdf", "T", "")
	if !IsImportError(err, domain.KindStorageFailed) {
		t.Fatalf("Import = %v, want storage_failed", err)
	}

	ids, _ := f.mem.Blobs.IDs()
	if len(ids) != 0 {
		t.Errorf("orphan blobs left behind: %v", ids)
	}
}

func TestImportDirectWithoutProxy(t *testing.T) {
	srv := httptest.NewServer(servePDF("application/pdf"))
	defer srv.Close()

	mem, _ := store.Open("")
	reg := &recordingRegistry{}
	im := New(Config{}, mem.Blobs, reg, nil)

	if _, err := im.Import(context.Background(), srv.URL+"/book.pdf", "T", ""); err != nil {
		t.Fatalf("direct Import failed: %v", err)
	}
}

func TestImportSameURLConcurrently(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		servePDF("application/pdf")(w, r)
	})

	const callers = 5
	var wg sync.WaitGroup
	ids := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.im.Import(context.Background(), "https://x/y.pdf", "T", "")
			if err == nil {
				ids[i] = b.ID
			}
		}(i)
	}

	// Let every caller reach singleflight before the download finishes
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := f.requests.Load(); n != 1 {
		t.Errorf("downloads = %d, want 1", n)
	}
	if len(f.registry.books) != 1 {
		t.Errorf("books registered = %d, want 1", len(f.registry.books))
	}
	for i, id := range ids {
		if id != f.registry.books[0].ID {
			t.Errorf("caller %d got id %q, want %q", i, id, f.registry.books[0].ID)
		}
	}
}

func TestIsPDF(t *testing.T) {
	tests := map[string]bool{
		"application/pdf":                true,
		"Application/PDF":                true,
		"application/pdf; charset=utf-8": true,
		"application/octet-stream":       false,
		"text/html":                      false,
		"":                               false,
	}
	for ct, want := range tests {
		if got := IsPDF(ct); got != want {
			t.Errorf("IsPDF(%q) = %v, want %v", ct, got, want)
		}
	}
}
