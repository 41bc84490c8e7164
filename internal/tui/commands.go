package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/reader"
)

// Command factories for async operations

// importTimeout bounds a whole download
const importTimeout = 5 * time.Minute

// WaitForStateCmd waits for the next container snapshot
func WaitForStateCmd(updates <-chan domain.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return StateChangedMsg{State: s}
	}
}

// ImportCmd downloads and registers a PDF
func ImportCmd(svc Importer, rawURL, title, author string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		book, err := svc.Import(ctx, rawURL, title, author)
		return ImportDoneMsg{Book: book, Err: err}
	}
}

// RemoveCmd deletes a book and its document
func RemoveCmd(lib Library, id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := lib.RemoveBook(ctx, id)
		return RemoveDoneMsg{ID: id, Title: title, Err: err}
	}
}

// OpenBookCmd loads a book into a reading session
func OpenBookCmd(r Opener, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s, err := r.Open(ctx, id)
		return BookOpenedMsg{Session: s, Err: err}
	}
}

// ShowInViewerCmd opens the session's document in the external viewer
func ShowInViewerCmd(s *reader.Session, v reader.Viewer) tea.Cmd {
	return func() tea.Msg {
		return ViewerLaunchedMsg{Err: s.Show(v)}
	}
}

// SyncCmd sends the book's progress to Telegram
func SyncCmd(n Notifier, book domain.Book) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := n.Sync(ctx, book, book.TotalPages)
		return SyncDoneMsg{Title: book.Title, Err: err}
	}
}

// SaveSettingsCmd stores the Telegram credentials and returns to the library
func SaveSettingsCmd(lib Library, token, chatID string) tea.Cmd {
	return func() tea.Msg {
		if err := lib.UpdateSettings(domain.SettingsPatch{
			TelegramBotToken: &token,
			TelegramChatID:   &chatID,
		}); err != nil {
			return SettingsSavedMsg{Err: err}
		}
		return SettingsSavedMsg{Err: lib.SetView(domain.ViewLibrary)}
	}
}

// dispatchCmd runs a quick container mutation; failures surface as ErrMsg
func dispatchCmd(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return ErrMsg{Err: err, Context: op}
		}
		return nil
	}
}

// pageCmd moves the reading position
func pageCmd(fn func() (domain.Book, error)) tea.Cmd {
	return func() tea.Msg {
		if _, err := fn(); err != nil {
			return ErrMsg{Err: err, Context: "turning page"}
		}
		return nil
	}
}

// ClearStatusCmd clears the status message after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{seq: seq}
	})
}
