package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/tui/styles"
)

// progressBarWidth is the bar width in library rows
const progressBarWidth = 12

// View renders the whole screen
func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	switch m.mode {
	case ModeHelp:
		return m.center(m.theme.Modal.Render(m.renderHelp()))
	case ModeConfirmDelete:
		return m.center(m.renderDeleteConfirmation())
	case ModeImport, ModeGoTo:
		return m.center(m.form.View())
	}

	var body string
	switch m.state.CurrentView {
	case domain.ViewSettings:
		body = m.renderSettings()
	case domain.ViewReader:
		body = m.renderReader()
	default:
		body = m.renderLibrary()
	}

	bodyHeight := max(m.height-1, 0)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) center(s string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m Model) renderLibrary() string {
	t := m.theme
	var lines []string

	count := len(m.state.Books)
	noun := "books"
	if count == 1 {
		noun = "book"
	}
	lines = append(lines, " "+t.Title.Render("ZenRead")+t.Dim.Render(fmt.Sprintf(" · %d %s", count, noun)), "")

	if m.mode == ModeFilter || m.filter.Value() != "" {
		lines = append(lines, " "+m.filter.View())
	}

	switch {
	case count == 0:
		lines = append(lines, " "+t.Dim.Render("No books yet. Press ")+t.HelpKey.Render("a")+t.Dim.Render(" to add a PDF by URL."))
	case len(m.results) == 0:
		lines = append(lines, " "+t.Dim.Render("No books match"))
	default:
		end := min(m.offset+m.listHeight(), len(m.results))
		for i := m.offset; i < end; i++ {
			lines = append(lines, m.renderBookRow(i, i == m.cursor))
		}
	}

	return strings.Join(lines, "\n")
}

// renderBookRow renders one library row: status, title, author, then progress on the right
func (m Model) renderBookRow(i int, selected bool) string {
	t := m.theme
	r := m.results[i]
	b := r.Book

	base := t.NormalItem
	if selected {
		base = t.SelectedItem
	}
	bg := lipgloss.NewStyle()
	if selected {
		bg = bg.Background(t.Palette.Raised)
	}

	right := t.RenderProgressBar(b.ProgressPercent, progressBarWidth) +
		base.Render(fmt.Sprintf(" %3d%%  %-11s", b.ProgressPercent, b.PageLabel()))
	rightWidth := lipgloss.Width(right)

	// 2 margin + status + space
	avail := m.width - rightWidth - 6
	author := " " + b.Author
	title := styles.Truncate(b.Title, max(avail, 8))
	if lipgloss.Width(title)+lipgloss.Width(author) > avail {
		author = ""
	}

	left := bg.Render(" ") + t.RenderStatus(b.Status()) + bg.Render(" ") +
		t.RenderHighlighted(title, r.MatchedIndexes, base) +
		t.Dim.Inherit(bg).Render(author)

	gap := m.width - lipgloss.Width(left) - rightWidth - 1
	return left + bg.Render(strings.Repeat(" ", max(gap, 1))) + right + bg.Render(" ")
}

func (m Model) renderReader() string {
	t := m.theme
	b, ok := m.state.ActiveBook()
	if !ok {
		return " " + t.Dim.Render("No book open")
	}

	barWidth := min(max(m.width-16, 10), 60)

	total := "?"
	if b.TotalPages > 0 {
		total = fmt.Sprint(b.TotalPages)
	}

	var lines []string
	lines = append(lines,
		t.Title.Render(b.Title),
		t.Subtitle.Render("by "+b.Author),
		"",
		t.Accent.Render(fmt.Sprintf("Page %d of %s", b.CurrentPage, total)),
		t.RenderProgressBar(b.ProgressPercent, barWidth)+t.Subtitle.Render(fmt.Sprintf(" %d%%", b.ProgressPercent)),
		"",
		t.Dim.Render("Last read "+b.LastReadTime().Format("Jan 2, 2006 15:04")),
		t.Dim.Render("Added "+time.UnixMilli(b.DateAdded).Format("Jan 2, 2006")),
	)
	if m.session == nil {
		lines = append(lines, "", t.Dim.Render("Loading document…"))
	}

	content := strings.Join(lines, "\n")
	return lipgloss.Place(m.width, max(m.height-1, 0), lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderSettings() string {
	t := m.theme
	note := t.Dim.Render("Progress is sent by your bot as a message to this chat.")
	content := lipgloss.JoinVertical(lipgloss.Center, m.form.View(), "", note)
	return lipgloss.Place(m.width, max(m.height-1, 0), lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderDeleteConfirmation() string {
	t := m.theme
	content := lipgloss.JoinVertical(lipgloss.Center,
		t.ModalTitle.Render("Delete book?"),
		t.Subtitle.Render(styles.Truncate(m.pendingDelete.Title, 40)),
		"",
		t.Dim.Render("The stored PDF and reading progress are removed."),
		"",
		t.HelpKey.Render("[Y]")+t.HelpDesc.Render(" Yes      ")+t.HelpKey.Render("[N]")+t.HelpDesc.Render(" No"),
	)
	return t.Modal.Render(content)
}

// renderFooter renders status on the left and key hints on the right
func (m Model) renderFooter() string {
	t := m.theme

	var left string
	switch {
	case m.busy > 0 && m.status != "":
		left = m.spinner.View() + " " + t.Dim.Render(m.status)
	case m.busy > 0:
		left = m.spinner.View() + " " + t.Dim.Render("Working…")
	case m.status != "" && m.statusIsErr:
		left = t.Error.Render(m.status)
	case m.status != "":
		left = t.Dim.Render(m.status)
	}

	var bindings []key.Binding
	switch m.state.CurrentView {
	case domain.ViewReader:
		bindings = []key.Binding{Keys.PrevPage, Keys.NextPage, Keys.GoTo, Keys.OpenPDF, Keys.Sync, Keys.Escape}
	case domain.ViewSettings:
		bindings = nil
	default:
		bindings = []key.Binding{Keys.Enter, Keys.Import, Keys.Delete, Keys.Filter, Keys.Settings, Keys.Help}
	}

	var hints []string
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, t.HelpKey.Render(h.Key)+" "+t.HelpDesc.Render(h.Desc))
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Not enough space, status wins
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	return `
LIBRARY                         READER
  j/k        Up/down               h/l    Previous/next page
  g/G        First/last book       g      Go to page
  Enter      Read                  o      Open in PDF viewer
  a          Add PDF by URL        S      Send progress to Telegram
  d          Delete                Esc    Back to library
  /          Filter
  s          Settings           OTHER
  t          Light/dark theme      ?      This help
                                   q      Quit

Press any key to return...
`
}
