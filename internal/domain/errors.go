package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrBookNotFound indicates no book with the requested id exists
	ErrBookNotFound = errors.New("book not found")

	// ErrBlobNotFound indicates the PDF content is missing from the blob store
	ErrBlobNotFound = errors.New("pdf not found in local storage")

	// ErrInvalidTransition indicates a view change the navigation rules forbid
	ErrInvalidTransition = errors.New("invalid view transition")

	// ErrInvalidInput indicates a required import field is empty
	ErrInvalidInput = errors.New("url and title are required")

	// ErrFetchFailed indicates the remote document could not be retrieved
	ErrFetchFailed = errors.New("could not download the pdf")

	// ErrNotPDF indicates the remote document is not served as a PDF
	ErrNotPDF = errors.New("link does not point to a pdf file")

	// ErrStorage indicates a local database read, write or delete failed
	ErrStorage = errors.New("local storage failed")

	// ErrSyncConfigMissing indicates the Telegram token or chat id is not set
	ErrSyncConfigMissing = errors.New("telegram bot token and chat id must be configured")

	// ErrSyncFailed indicates the progress message could not be sent
	ErrSyncFailed = errors.New("could not send progress")
)

// ErrorKind classifies failures surfaced to the UI
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindFetchFailed       ErrorKind = "fetch_failed"
	KindNotPDF            ErrorKind = "not_a_pdf"
	KindStorageFailed     ErrorKind = "storage_failed"
	KindSyncConfigMissing ErrorKind = "sync_config_missing"
	KindSyncFailed        ErrorKind = "sync_failed"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidInput:      ErrInvalidInput,
	KindFetchFailed:       ErrFetchFailed,
	KindNotPDF:            ErrNotPDF,
	KindStorageFailed:     ErrStorage,
	KindSyncConfigMissing: ErrSyncConfigMissing,
	KindSyncFailed:        ErrSyncFailed,
}

// ImportError is returned by the import pipeline
type ImportError struct {
	Kind ErrorKind
	Err  error // underlying cause, may be nil
}

func (e *ImportError) Error() string {
	return kindError(e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is
func (e *ImportError) Unwrap() []error {
	return kindUnwrap(e.Kind, e.Err)
}

// SyncError is returned by the progress notifier
type SyncError struct {
	Kind ErrorKind
	Err  error
}

func (e *SyncError) Error() string {
	return kindError(e.Kind, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return kindUnwrap(e.Kind, e.Err)
}

// StorageError wraps a blob or state store failure
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// KindOf returns the error kind of err, or "" when it carries none
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// Message returns a single human-readable line for display
func Message(err error) string {
	if err == nil {
		return ""
	}
	if sentinel, ok := kindSentinels[KindOf(err)]; ok {
		return capitalize(sentinel.Error())
	}
	return capitalize(err.Error())
}

func kindError(kind ErrorKind, cause error) string {
	msg := string(kind)
	if s, ok := kindSentinels[kind]; ok {
		msg = s.Error()
	}
	if cause != nil {
		return msg + ": " + cause.Error()
	}
	return msg
}

func kindUnwrap(kind ErrorKind, cause error) []error {
	errs := make([]error, 0, 2)
	if s, ok := kindSentinels[kind]; ok {
		errs = append(errs, s)
	}
	if cause != nil {
		errs = append(errs, cause)
	}
	return errs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
