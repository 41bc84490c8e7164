package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/reader"
	"github.com/mmcdole/zenread/internal/search"
	"github.com/mmcdole/zenread/internal/tui/components"
	"github.com/mmcdole/zenread/internal/tui/styles"
)

// Library is the state container as seen by the TUI
type Library interface {
	State() domain.State
	SetView(view domain.View) error
	UpdateSettings(patch domain.SettingsPatch) error
	ToggleDarkMode() error
	RemoveBook(ctx context.Context, id string) error
}

// Importer adds books by URL
type Importer interface {
	Import(ctx context.Context, rawURL, title, author string) (domain.Book, error)
}

// Opener starts reading sessions
type Opener interface {
	Open(ctx context.Context, id string) (*reader.Session, error)
}

// Notifier sends reading progress
type Notifier interface {
	Sync(ctx context.Context, book domain.Book, pageCount int) error
}

// Services bundles everything the TUI drives
type Services struct {
	Library  Library
	Importer Importer
	Reader   Opener
	Notifier Notifier
	Viewer   reader.Viewer
	Updates  <-chan domain.State // container snapshots, see ChannelObserver
}

// Mode is the input mode layered over the current view
type Mode int

const (
	ModeBrowse Mode = iota
	ModeFilter
	ModeImport
	ModeConfirmDelete
	ModeGoTo
	ModeHelp
)

// statusDuration is how long a status message stays in the footer
const statusDuration = 4 * time.Second

// Vertical chrome: header line, blank line and footer
const chromeHeight = 3

// Model is the main Bubble Tea model for the application
type Model struct {
	svc Services

	// Latest container snapshot
	state domain.State
	theme styles.Theme
	mode  Mode

	// Library list
	cursor  int
	offset  int
	filter  textinput.Model
	results []search.Result

	// Modals
	form          components.FormModal
	pendingDelete domain.Book

	session *reader.Session

	// Status bar
	spinner     spinner.Model
	busy        int
	status      string
	statusIsErr bool
	statusSeq   int

	width  int
	height int
	ready  bool
}

// NewModel creates a new application model from the current container state
func NewModel(svc Services) Model {
	state := svc.Library.State()
	theme := styles.NewTheme(state.Settings.DarkMode)

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter by title or author"
	fi.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		svc:     svc,
		state:   state,
		filter:  fi,
		form:    components.NewFormModal(theme),
		spinner: sp,
	}
	m.setTheme(theme)
	m.refilter()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return WaitForStateCmd(m.svc.Updates)
}

// Close releases the open reading session, if any
func (m Model) Close() error {
	if m.session != nil {
		return m.session.Close()
	}
	return nil
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case StateChangedMsg:
		cmd := m.applyState(msg.State)
		return m, tea.Batch(cmd, WaitForStateCmd(m.svc.Updates))

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ImportDoneMsg:
		m.done()
		if msg.Err != nil {
			return m.withStatus(domain.Message(msg.Err), true)
		}
		m.selectBook(msg.Book.ID)
		return m.withStatus(fmt.Sprintf("Added %q", msg.Book.Title), false)

	case RemoveDoneMsg:
		m.done()
		if msg.Err != nil {
			return m.withStatus(domain.Message(msg.Err), true)
		}
		return m.withStatus(fmt.Sprintf("Removed %q", msg.Title), false)

	case BookOpenedMsg:
		m.done()
		if msg.Err != nil {
			return m.withStatus(domain.Message(msg.Err), true)
		}
		if m.session != nil && m.session != msg.Session {
			m.session.Close()
		}
		m.session = msg.Session
		return m, nil

	case ViewerLaunchedMsg:
		if msg.Err != nil {
			return m.withStatus("Could not start a PDF viewer", true)
		}
		return m.withStatus("Opened in viewer", false)

	case SyncDoneMsg:
		m.done()
		if msg.Err != nil {
			return m.withStatus(domain.Message(msg.Err), true)
		}
		return m.withStatus("Progress sent to Telegram", false)

	case SettingsSavedMsg:
		if msg.Err != nil {
			return m.withStatus(domain.Message(msg.Err), true)
		}
		return m.withStatus("Settings saved", false)

	case ErrMsg:
		return m.withStatus(domain.Message(msg.Err), true)

	case StatusMsg:
		return m.withStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusIsErr = false
		}
		return m, nil
	}

	// Forward anything else (cursor blink) to the focused input
	var cmd tea.Cmd
	switch {
	case m.form.IsVisible():
		m.form, cmd, _ = m.form.Update(msg)
	case m.mode == ModeFilter:
		m.filter, cmd = m.filter.Update(msg)
	}
	return m, cmd
}

// applyState installs a new snapshot, keeping the selection on the same book
func (m *Model) applyState(next domain.State) tea.Cmd {
	prev := m.state
	selected, hasSelection := m.selected()

	m.state = next
	if next.Settings.DarkMode != m.theme.Dark {
		m.setTheme(styles.NewTheme(next.Settings.DarkMode))
	}

	m.refilter()
	if hasSelection {
		m.selectBook(selected.ID)
	}
	m.ensureVisible()

	var cmd tea.Cmd
	if next.CurrentView != prev.CurrentView {
		cmd = m.enterView(prev.CurrentView, next.CurrentView)
	}
	if m.mode == ModeConfirmDelete && next.FindBook(m.pendingDelete.ID) < 0 {
		m.mode = ModeBrowse
	}
	return cmd
}

// enterView sets up per-view UI state after the container switched views
func (m *Model) enterView(from, to domain.View) tea.Cmd {
	if from == domain.ViewReader && m.session != nil {
		m.session.Close()
		m.session = nil
	}
	if from == domain.ViewSettings || m.mode == ModeGoTo {
		m.form.Hide()
	}
	m.mode = ModeBrowse

	if to == domain.ViewSettings {
		s := m.state.Settings
		return m.form.Show("Telegram progress sync",
			components.Field{Label: "Bot token", Placeholder: "123456:ABC-DEF…", Value: s.TelegramBotToken, Masked: true},
			components.Field{Label: "Chat id", Placeholder: "e.g. 123456789", Value: s.TelegramChatID, CharLimit: 64},
		)
	}
	return nil
}

func (m *Model) setTheme(t styles.Theme) {
	m.theme = t
	m.form.SetTheme(t)
	m.filter.PromptStyle = t.Accent
	m.filter.TextStyle = t.Title
	m.filter.PlaceholderStyle = t.Dim
	m.spinner.Style = t.Accent
}

// refilter recomputes the visible list from the filter text
func (m *Model) refilter() {
	m.results = search.Filter(m.filter.Value(), m.state.Books)
	if m.cursor >= len(m.results) {
		m.cursor = max(len(m.results)-1, 0)
	}
}

// selected returns the book under the cursor
func (m Model) selected() (domain.Book, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return domain.Book{}, false
	}
	return m.results[m.cursor].Book, true
}

// selectBook moves the cursor to id if it is visible
func (m *Model) selectBook(id string) {
	for i, r := range m.results {
		if r.Book.ID == id {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

// listHeight is the number of book rows that fit on screen
func (m Model) listHeight() int {
	h := m.height - chromeHeight
	if m.mode == ModeFilter || m.filter.Value() != "" {
		h--
	}
	return max(h, 1)
}

// ensureVisible scrolls so the cursor row is on screen
func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset > max(len(m.results)-h, 0) {
		m.offset = max(len(m.results)-h, 0)
	}
}

func (m *Model) moveCursor(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.results)-1)
	m.ensureVisible()
}

// startWith runs cmd as a background operation, starting the spinner if idle
func (m Model) startWith(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy++
	if m.busy == 1 {
		return m, tea.Batch(m.spinner.Tick, cmd)
	}
	return m, cmd
}

func (m *Model) done() {
	if m.busy > 0 {
		m.busy--
	}
}

// setStatus shows a footer message that clears itself
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = msg
	m.statusIsErr = isErr
	return ClearStatusCmd(m.statusSeq, statusDuration)
}

func (m Model) withStatus(msg string, isErr bool) (tea.Model, tea.Cmd) {
	cmd := m.setStatus(msg, isErr)
	return m, cmd
}
