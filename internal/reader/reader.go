// Package reader opens stored books for reading: it paginates the PDF, tracks
// the reader's page in the library and hands the document to an external viewer.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mmcdole/zenread/internal/domain"
)

// Library is the part of the state container the reader drives
type Library interface {
	Book(id string) (domain.Book, bool)
	UpdateProgress(id string, page, total int) error
	OpenBook(id string) error
	LockBook(id string) (unlock func())
}

// Viewer displays a PDF file at a page
type Viewer interface {
	Launch(path string, page int) error
}

// Reader opens books from the blob store
type Reader struct {
	lib     Library
	blobs   domain.BlobStore
	logger  *slog.Logger
	tempDir string
}

// New creates a Reader. Temporary files go to the OS temp dir.
func New(lib Library, blobs domain.BlobStore, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{lib: lib, blobs: blobs, logger: logger}
}

// Open loads the book's document, records its page count when it differs from the
// stored one and switches the library to the reader view.
// A missing blob yields ErrBlobNotFound; no view change happens on failure.
func (r *Reader) Open(ctx context.Context, id string) (*Session, error) {
	unlock := r.lib.LockBook(id)
	defer unlock()

	book, ok := r.lib.Book(id)
	if !ok {
		return nil, domain.ErrBookNotFound
	}

	data, found, err := r.blobs.Get(ctx, id)
	if err != nil {
		r.logger.Error("failed to load pdf", "error", err, "bookID", id)
		return nil, err
	}
	if !found {
		r.logger.Warn("book has no stored pdf", "bookID", id)
		return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, id)
	}

	pages, err := PageCount(data)
	if err != nil {
		// Keep reading without a page count; progress stays at 0%
		r.logger.Warn("failed to paginate pdf", "error", err, "bookID", id)
	} else if pages != book.TotalPages {
		if err := r.lib.UpdateProgress(id, book.CurrentPage, pages); err != nil {
			return nil, err
		}
	}

	if err := r.lib.OpenBook(id); err != nil {
		return nil, err
	}

	r.logger.Info("opened book", "bookID", id, "pages", pages)
	return &Session{reader: r, id: id, data: data}, nil
}

// Session is an open book. It is safe for use from one goroutine at a time
// together with concurrent Close.
type Session struct {
	reader *Reader
	id     string
	data   []byte

	mu     sync.Mutex
	handle *Handle
}

// ID returns the open book's id
func (s *Session) ID() string { return s.id }

// Book returns the current record of the open book
func (s *Session) Book() (domain.Book, error) {
	b, ok := s.reader.lib.Book(s.id)
	if !ok {
		return domain.Book{}, domain.ErrBookNotFound
	}
	return b, nil
}

// Next moves one page forward, stopping at the last page
func (s *Session) Next() (domain.Book, error) {
	b, err := s.Book()
	if err != nil {
		return b, err
	}
	return s.GoTo(b.CurrentPage + 1)
}

// Prev moves one page back, stopping at page 1
func (s *Session) Prev() (domain.Book, error) {
	b, err := s.Book()
	if err != nil {
		return b, err
	}
	return s.GoTo(b.CurrentPage - 1)
}

// GoTo records page as the reading position. Out of range pages are clamped.
func (s *Session) GoTo(page int) (domain.Book, error) {
	b, err := s.Book()
	if err != nil {
		return b, err
	}
	if err := s.reader.lib.UpdateProgress(s.id, page, b.TotalPages); err != nil {
		return b, err
	}
	return s.Book()
}

// Handle returns a file holding the document. Repeated calls return the same
// handle until the session is closed.
func (s *Session) Handle() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return s.handle, nil
	}

	f, err := os.CreateTemp(s.reader.tempDir, "zenread-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(s.data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	s.handle = &Handle{Path: f.Name()}
	return s.handle, nil
}

// Show opens the document in v at the current page
func (s *Session) Show(v Viewer) error {
	b, err := s.Book()
	if err != nil {
		return err
	}
	h, err := s.Handle()
	if err != nil {
		return err
	}
	if err := v.Launch(h.Path, b.CurrentPage); err != nil {
		s.reader.logger.Error("failed to launch viewer", "error", err, "bookID", s.id)
		return err
	}
	return nil
}

// Close releases the session's temporary file
func (s *Session) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

// Handle is a temporary file copy of a document
type Handle struct {
	Path string
	once sync.Once
	err  error
}

// Close removes the file. It is safe to call more than once.
func (h *Handle) Close() error {
	h.once.Do(func() {
		if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
			h.err = err
		}
	})
	return h.err
}
