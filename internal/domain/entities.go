package domain

import (
	"fmt"
	"time"
)

// DefaultAuthor is shown when a book is imported without an author
const DefaultAuthor = "Unknown author"

// ReadStatus distinguishes how far into a book the reader is
type ReadStatus int

const (
	ReadStatusUnread ReadStatus = iota
	ReadStatusInProgress
	ReadStatusFinished
)

// Book is one imported document's metadata record
type Book struct {
	ID              string `json:"id"`                 // Generated at import, immutable
	Title           string `json:"title"`              // Display title
	Author          string `json:"author"`             // Falls back to DefaultAuthor
	CoverURL        string `json:"coverUrl,omitempty"` // Optional thumbnail
	TotalPages      int    `json:"totalPages"`         // 0 until first paginated
	CurrentPage     int    `json:"currentPage"`        // 1-based
	ProgressPercent int    `json:"progressPercent"`    // Derived from CurrentPage/TotalPages
	DateAdded       int64  `json:"dateAdded"`          // Epoch milliseconds
	LastRead        int64  `json:"lastRead"`           // Epoch milliseconds
}

// NewBook returns a freshly imported book with zeroed progress
func NewBook(id, title, author string, now time.Time) Book {
	if author == "" {
		author = DefaultAuthor
	}
	ms := now.UnixMilli()
	return Book{
		ID:              id,
		Title:           title,
		Author:          author,
		TotalPages:      0,
		CurrentPage:     1,
		ProgressPercent: 0,
		DateAdded:       ms,
		LastRead:        ms,
	}
}

// Status returns the read status of the book
func (b Book) Status() ReadStatus {
	switch {
	case b.TotalPages > 0 && b.CurrentPage >= b.TotalPages:
		return ReadStatusFinished
	case b.CurrentPage > 1:
		return ReadStatusInProgress
	default:
		return ReadStatusUnread
	}
}

// PageLabel returns "12 / 340", or "12 / ?" before pagination
func (b Book) PageLabel() string {
	if b.TotalPages == 0 {
		return fmt.Sprintf("%d / ?", b.CurrentPage)
	}
	return fmt.Sprintf("%d / %d", b.CurrentPage, b.TotalPages)
}

// LastReadTime converts LastRead to a time.Time
func (b Book) LastReadTime() time.Time {
	return time.UnixMilli(b.LastRead)
}

// Settings is the singleton user settings record
type Settings struct {
	TelegramBotToken string `json:"telegramBotToken"`
	TelegramChatID   string `json:"telegramChatId"`
	DarkMode         bool   `json:"darkMode"`
}

// HasTelegram reports whether both bot token and chat destination are set
func (s Settings) HasTelegram() bool {
	return s.TelegramBotToken != "" && s.TelegramChatID != ""
}

// SettingsPatch is a partial Settings; nil fields are left untouched on merge
type SettingsPatch struct {
	TelegramBotToken *string
	TelegramChatID   *string
	DarkMode         *bool
}

// Apply shallow-merges the patch into s
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.TelegramBotToken != nil {
		s.TelegramBotToken = *p.TelegramBotToken
	}
	if p.TelegramChatID != nil {
		s.TelegramChatID = *p.TelegramChatID
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	return s
}

// View identifies the top-level screen
type View string

const (
	ViewLibrary  View = "library"
	ViewReader   View = "reader"
	ViewSettings View = "settings"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	switch v {
	case ViewLibrary, ViewReader, ViewSettings:
		return true
	}
	return false
}

// State is a full snapshot of the application model
type State struct {
	Books        []Book
	Settings     Settings
	CurrentView  View
	ActiveBookID string // empty when no book is active
}

// Clone returns a copy whose Books slice does not alias s
func (s State) Clone() State {
	books := make([]Book, len(s.Books))
	copy(books, s.Books)
	s.Books = books
	return s
}

// FindBook returns the index of the book with id, or -1
func (s State) FindBook(id string) int {
	for i := range s.Books {
		if s.Books[i].ID == id {
			return i
		}
	}
	return -1
}

// ActiveBook returns the active book, if any
func (s State) ActiveBook() (Book, bool) {
	if s.ActiveBookID == "" {
		return Book{}, false
	}
	if i := s.FindBook(s.ActiveBookID); i >= 0 {
		return s.Books[i], true
	}
	return Book{}, false
}

// PersistedState is the subset of State written to disk
type PersistedState struct {
	Books    []Book   `json:"books"`
	Settings Settings `json:"settings"`
}
