package tui

import (
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/reader"
)

// Message types for the TUI

// ErrMsg represents an error from a background operation
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StateChangedMsg carries a new container snapshot
type StateChangedMsg struct {
	State domain.State
}

// ImportDoneMsg signals that an import finished
type ImportDoneMsg struct {
	Book domain.Book
	Err  error
}

// RemoveDoneMsg signals that a book was removed
type RemoveDoneMsg struct {
	ID    string
	Title string
	Err   error
}

// BookOpenedMsg signals that a book is ready to read
type BookOpenedMsg struct {
	Session *reader.Session
	Err     error
}

// ViewerLaunchedMsg signals that the external viewer was started
type ViewerLaunchedMsg struct {
	Err error
}

// SyncDoneMsg signals that progress was sent to Telegram
type SyncDoneMsg struct {
	Title string
	Err   error
}

// SettingsSavedMsg signals that the settings form was stored
type SettingsSavedMsg struct {
	Err error
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct {
	seq int
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
