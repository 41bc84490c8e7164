// Package importer downloads PDFs by URL and registers them in the library.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/zenread/internal/domain"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
)

// PDFMediaType is the only content type accepted on import
const PDFMediaType = "application/pdf"

// DefaultProxyURL is prepended to the escaped target URL
const DefaultProxyURL = "https://corsproxy.io/?"

// DefaultMaxBytes caps the size of a downloaded document
const DefaultMaxBytes = 200 << 20

// Registry receives the metadata of an imported book
type Registry interface {
	AddBook(book domain.Book) error
}

// Config controls how documents are fetched
type Config struct {
	ProxyURL   string       // empty fetches the target directly
	MaxBytes   int64        // <= 0 uses DefaultMaxBytes
	HTTPClient *http.Client // nil uses a client without timeout
	UserAgent  string
}

// Importer runs the fetch, validate, store, register pipeline.
type Importer struct {
	cfg      Config
	client   *http.Client
	blobs    domain.BlobStore
	registry Registry
	logger   *slog.Logger

	newID func() string
	now   func() time.Time

	inflight singleflight.Group
}

// New creates an Importer
func New(cfg Config, blobs domain.BlobStore, registry Registry, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Importer{
		cfg:      cfg,
		client:   client,
		blobs:    blobs,
		registry: registry,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Import fetches rawURL through the proxy and adds it to the library.
// Every failure is an *domain.ImportError. Concurrent imports of the same
// URL share one download and return the same book.
func (im *Importer) Import(ctx context.Context, rawURL, title, author string) (domain.Book, error) {
	rawURL = strings.TrimSpace(rawURL)
	title = norm.NFC.String(strings.TrimSpace(title))
	author = norm.NFC.String(strings.TrimSpace(author))

	if rawURL == "" || title == "" {
		return domain.Book{}, &domain.ImportError{Kind: domain.KindInvalidInput}
	}
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return domain.Book{}, &domain.ImportError{Kind: domain.KindInvalidInput, Err: fmt.Errorf("not an http(s) url: %q", rawURL)}
	}

	v, err, shared := im.inflight.Do(target.String(), func() (interface{}, error) {
		return im.run(ctx, target.String(), title, author)
	})
	if shared {
		im.logger.Debug("joined in-flight import", "url", rawURL)
	}
	if err != nil {
		return domain.Book{}, err
	}
	return v.(domain.Book), nil
}

func (im *Importer) run(ctx context.Context, target, title, author string) (domain.Book, error) {
	logger := im.logger.With("url", target)

	data, err := im.fetch(ctx, target)
	if err != nil {
		logger.Error("failed to fetch pdf", "error", err)
		return domain.Book{}, err
	}

	book := domain.NewBook(im.newID(), title, author, im.now())

	if err := im.blobs.Put(ctx, book.ID, data); err != nil {
		logger.Error("failed to save pdf blob", "error", err, "bookID", book.ID)
		return domain.Book{}, &domain.ImportError{Kind: domain.KindStorageFailed, Err: err}
	}

	if err := im.registry.AddBook(book); err != nil {
		logger.Error("failed to register book", "error", err, "bookID", book.ID)
		// Roll back so no blob is left without metadata
		if derr := im.blobs.Delete(context.WithoutCancel(ctx), book.ID); derr != nil {
			logger.Warn("best-effort cleanup failed", "op", "discard blob", "error", derr, "bookID", book.ID)
		}
		return domain.Book{}, &domain.ImportError{Kind: domain.KindStorageFailed, Err: err}
	}

	logger.Info("imported book", "bookID", book.ID, "title", book.Title, "bytes", len(data))
	return book, nil
}

// fetch downloads target through the configured proxy and checks its content type
func (im *Importer) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.proxied(target), nil)
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.KindFetchFailed, Err: err}
	}
	req.Header.Set("Accept", PDFMediaType)
	if im.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", im.cfg.UserAgent)
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.KindFetchFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ImportError{Kind: domain.KindFetchFailed, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if !IsPDF(resp.Header.Get("Content-Type")) {
		return nil, &domain.ImportError{Kind: domain.KindNotPDF, Err: fmt.Errorf("content type %q", resp.Header.Get("Content-Type"))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, im.cfg.MaxBytes+1))
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.KindFetchFailed, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(data)) > im.cfg.MaxBytes {
		return nil, &domain.ImportError{Kind: domain.KindFetchFailed, Err: fmt.Errorf("document exceeds %d bytes", im.cfg.MaxBytes)}
	}
	return data, nil
}

// proxied wraps target in the proxy URL, if one is configured
func (im *Importer) proxied(target string) string {
	if im.cfg.ProxyURL == "" {
		return target
	}
	return im.cfg.ProxyURL + url.QueryEscape(target)
}

// IsPDF reports whether a Content-Type header declares a PDF.
// Parameters such as charset are ignored.
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == PDFMediaType
}

// IsImportError reports whether err came from the pipeline with the given kind
func IsImportError(err error, kind domain.ErrorKind) bool {
	var ie *domain.ImportError
	return errors.As(err, &ie) && ie.Kind == kind
}
