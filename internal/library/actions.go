package library

import (
	"fmt"

	"github.com/mmcdole/zenread/internal/domain"
)

// Action is a state transition applied by Container.Dispatch.
// reduce receives a private copy of the state and reports whether the
// persisted subset (books, settings) changed.
type Action interface {
	name() string
	reduce(s domain.State, nowMs int64) (next domain.State, persist bool, err error)
}

// AddBook prepends a book. Ids are not deduplicated.
type AddBook struct {
	Book domain.Book
}

func (AddBook) name() string { return "add_book" }

func (a AddBook) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	s.Books = append([]domain.Book{a.Book}, s.Books...)
	return s, true, nil
}

// RemoveBook drops the book record and leaves the reader if it was active.
// Blob cleanup happens in Container.RemoveBook before this is dispatched.
type RemoveBook struct {
	ID string
}

func (RemoveBook) name() string { return "remove_book" }

func (a RemoveBook) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	books := s.Books[:0]
	for _, b := range s.Books {
		if b.ID != a.ID {
			books = append(books, b)
		}
	}
	s.Books = books

	if s.ActiveBookID == a.ID {
		s.ActiveBookID = ""
		s.CurrentView = domain.ViewLibrary
	}
	return s, true, nil
}

// UpdateProgress records a page position. An unknown id is a no-op.
type UpdateProgress struct {
	ID    string
	Page  int
	Total int
}

func (UpdateProgress) name() string { return "update_progress" }

func (a UpdateProgress) reduce(s domain.State, nowMs int64) (domain.State, bool, error) {
	i := s.FindBook(a.ID)
	if i < 0 {
		return s, false, nil
	}
	s.Books[i] = s.Books[i].WithProgress(a.Page, a.Total, nowMs)
	return s, true, nil
}

// UpdateSettings shallow-merges a patch into the settings
type UpdateSettings struct {
	Patch domain.SettingsPatch
}

func (UpdateSettings) name() string { return "update_settings" }

func (a UpdateSettings) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	s.Settings = a.Patch.Apply(s.Settings)
	return s, true, nil
}

// ToggleDarkMode flips the dark mode flag
type ToggleDarkMode struct{}

func (ToggleDarkMode) name() string { return "toggle_dark_mode" }

func (ToggleDarkMode) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	s.Settings.DarkMode = !s.Settings.DarkMode
	return s, true, nil
}

// SetView navigates between top-level screens
type SetView struct {
	View domain.View
}

func (SetView) name() string { return "set_view" }

func (a SetView) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	if a.View == s.CurrentView {
		return s, false, nil
	}
	if err := checkTransition(s.CurrentView, a.View); err != nil {
		return s, false, err
	}
	if a.View == domain.ViewReader {
		if _, ok := s.ActiveBook(); !ok {
			return s, false, fmt.Errorf("%w: reader requires an open book", domain.ErrInvalidTransition)
		}
	}
	s.CurrentView = a.View
	return s, false, nil
}

// OpenBook makes id the active book and enters the reader
type OpenBook struct {
	ID string
}

func (OpenBook) name() string { return "open_book" }

func (a OpenBook) reduce(s domain.State, _ int64) (domain.State, bool, error) {
	if s.FindBook(a.ID) < 0 {
		return s, false, fmt.Errorf("%w: %s", domain.ErrBookNotFound, a.ID)
	}
	if s.CurrentView != domain.ViewReader {
		if err := checkTransition(s.CurrentView, domain.ViewReader); err != nil {
			return s, false, err
		}
	}
	s.ActiveBookID = a.ID
	s.CurrentView = domain.ViewReader
	return s, false, nil
}

// transitions lists the allowed view edges; everything returns through library
var transitions = map[domain.View][]domain.View{
	domain.ViewLibrary:  {domain.ViewSettings, domain.ViewReader},
	domain.ViewSettings: {domain.ViewLibrary},
	domain.ViewReader:   {domain.ViewLibrary},
}

func checkTransition(from, to domain.View) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown view %q", domain.ErrInvalidTransition, to)
	}
	for _, v := range transitions[from] {
		if v == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}
