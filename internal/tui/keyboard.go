package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle mode-specific keys
	switch m.mode {
	case ModeHelp:
		m.mode = ModeBrowse
		return m, nil

	case ModeConfirmDelete:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.mode = ModeBrowse
			b := m.pendingDelete
			return m.startWith(RemoveCmd(m.svc.Library, b.ID, b.Title))
		case key.Matches(msg, Keys.Deny):
			m.mode = ModeBrowse
		}
		return m, nil

	case ModeImport:
		return m.handleImportForm(msg)

	case ModeGoTo:
		return m.handleGoToForm(msg)

	case ModeFilter:
		return m.handleFilterKey(msg)
	}

	switch m.state.CurrentView {
	case domain.ViewSettings:
		return m.handleSettingsKey(msg)
	case domain.ViewReader:
		return m.handleReaderKey(msg)
	default:
		return m.handleLibraryKey(msg)
	}
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, Keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-len(m.results))
	case key.Matches(msg, Keys.End):
		m.moveCursor(len(m.results))

	case key.Matches(msg, Keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.refilter()
			m.ensureVisible()
		}

	case key.Matches(msg, Keys.Enter):
		if b, ok := m.selected(); ok {
			return m.startWith(OpenBookCmd(m.svc.Reader, b.ID))
		}

	case key.Matches(msg, Keys.Import):
		m.mode = ModeImport
		cmd := m.form.Show("Add a PDF",
			components.Field{Label: "URL", Placeholder: "https://example.com/book.pdf"},
			components.Field{Label: "Title", Placeholder: "Required", CharLimit: 256},
			components.Field{Label: "Author", Placeholder: domain.DefaultAuthor, CharLimit: 256},
		)
		return m, cmd

	case key.Matches(msg, Keys.Delete):
		if b, ok := m.selected(); ok {
			m.pendingDelete = b
			m.mode = ModeConfirmDelete
		}

	case key.Matches(msg, Keys.Filter):
		m.mode = ModeFilter
		cmd := m.filter.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Settings):
		lib := m.svc.Library
		return m, dispatchCmd("opening settings", func() error { return lib.SetView(domain.ViewSettings) })

	case key.Matches(msg, Keys.ToggleDark):
		return m, dispatchCmd("switching theme", m.svc.Library.ToggleDarkMode)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.SetValue("")
		m.filter.Blur()
		m.mode = ModeBrowse
		m.refilter()
		m.ensureVisible()
		return m, nil
	case "enter":
		// Keep the filter applied and go back to browsing
		m.filter.Blur()
		m.mode = ModeBrowse
		return m, nil
	case "up", "ctrl+k":
		m.moveCursor(-1)
		return m, nil
	case "down", "ctrl+j":
		m.moveCursor(1)
		return m, nil
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
		m.offset = 0
		m.refilter()
	}
	return m, cmd
}

func (m Model) handleImportForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.form, cmd, submitted = m.form.Update(msg)

	if !m.form.IsVisible() {
		m.mode = ModeBrowse
		return m, cmd
	}
	if !submitted {
		return m, cmd
	}

	vals := m.form.Values()
	rawURL, title, author := strings.TrimSpace(vals[0]), strings.TrimSpace(vals[1]), strings.TrimSpace(vals[2])
	if rawURL == "" || title == "" {
		return m.withStatus("URL and title are required", true)
	}

	m.form.Hide()
	m.mode = ModeBrowse
	status := m.setStatus("Downloading…", false)
	return m.startWith(tea.Batch(status, ImportCmd(m.svc.Importer, rawURL, title, author)))
}

func (m Model) handleGoToForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.form, cmd, submitted = m.form.Update(msg)

	if !m.form.IsVisible() {
		m.mode = ModeBrowse
		return m, cmd
	}
	if !submitted {
		return m, cmd
	}

	page, err := strconv.Atoi(strings.TrimSpace(m.form.Values()[0]))
	if err != nil {
		return m.withStatus("Enter a page number", true)
	}

	m.form.Hide()
	m.mode = ModeBrowse
	if m.session == nil {
		return m, nil
	}
	s := m.session
	return m, pageCmd(func() (domain.Book, error) { return s.GoTo(page) })
}

func (m Model) handleReaderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		lib := m.svc.Library
		return m, dispatchCmd("closing book", func() error { return lib.SetView(domain.ViewLibrary) })

	case key.Matches(msg, Keys.Sync):
		if b, ok := m.state.ActiveBook(); ok {
			return m.startWith(SyncCmd(m.svc.Notifier, b))
		}
		return m, nil
	}

	// The remaining keys need the document loaded
	if m.session == nil {
		return m, nil
	}
	s := m.session

	switch {
	case key.Matches(msg, Keys.PrevPage):
		return m, pageCmd(s.Prev)
	case key.Matches(msg, Keys.NextPage):
		return m, pageCmd(s.Next)
	case key.Matches(msg, Keys.GoTo):
		label := "Page"
		if b, ok := m.state.ActiveBook(); ok && b.TotalPages > 0 {
			label = fmt.Sprintf("Page (1-%d)", b.TotalPages)
		}
		m.mode = ModeGoTo
		cmd := m.form.Show("Go to page",
			components.Field{Label: label, Placeholder: "e.g. 42", CharLimit: 9},
		)
		return m, cmd
	case key.Matches(msg, Keys.OpenPDF):
		if m.svc.Viewer == nil {
			return m.withStatus("No PDF viewer configured", true)
		}
		return m, ShowInViewerCmd(s, m.svc.Viewer)
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.form.IsVisible() {
		// Form was dismissed but the view has not switched yet
		return m, nil
	}

	var cmd tea.Cmd
	var submitted bool
	m.form, cmd, submitted = m.form.Update(msg)

	lib := m.svc.Library
	if !m.form.IsVisible() {
		return m, dispatchCmd("leaving settings", func() error { return lib.SetView(domain.ViewLibrary) })
	}
	if submitted {
		vals := m.form.Values()
		return m, SaveSettingsCmd(lib, strings.TrimSpace(vals[0]), strings.TrimSpace(vals[1]))
	}
	return m, cmd
}
