package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/zenread/internal/tui/styles"
)

// Field describes one input of a FormModal
type Field struct {
	Label       string
	Placeholder string
	Value       string
	Masked      bool // hide typed characters, e.g. for tokens
	CharLimit   int
}

// FormModal is a modal with one or more labelled text inputs.
// tab/shift+tab and up/down move between fields.
type FormModal struct {
	visible bool
	title   string
	labels  []string
	inputs  []textinput.Model
	focus   int
	width   int
	theme   styles.Theme
}

// NewFormModal creates a hidden form modal
func NewFormModal(theme styles.Theme) FormModal {
	return FormModal{theme: theme, width: 48}
}

// SetTheme restyles the modal
func (m *FormModal) SetTheme(theme styles.Theme) {
	m.theme = theme
	for i := range m.inputs {
		m.styleInput(&m.inputs[i])
	}
}

func (m *FormModal) styleInput(ti *textinput.Model) {
	ti.TextStyle = lipgloss.NewStyle().Foreground(m.theme.Palette.Text)
	ti.PlaceholderStyle = m.theme.Dim
	ti.Cursor.Style = m.theme.Accent
}

// Show displays the modal with the given fields, focusing the first
func (m *FormModal) Show(title string, fields ...Field) tea.Cmd {
	m.visible = true
	m.title = title
	m.focus = 0
	m.labels = make([]string, len(fields))
	m.inputs = make([]textinput.Model, len(fields))

	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.Placeholder
		ti.CharLimit = f.CharLimit
		if ti.CharLimit == 0 {
			ti.CharLimit = 2048
		}
		ti.Width = m.width - 2
		if f.Masked {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		ti.SetValue(f.Value)
		ti.CursorEnd()
		m.styleInput(&ti)
		m.labels[i] = f.Label
		m.inputs[i] = ti
	}

	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[0].Focus()
}

// Hide dismisses the modal
func (m *FormModal) Hide() {
	m.visible = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// IsVisible returns whether the modal is shown
func (m FormModal) IsVisible() bool {
	return m.visible
}

// Values returns the current value of every field, in order
func (m FormModal) Values() []string {
	vals := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		vals[i] = in.Value()
	}
	return vals
}

// Focused returns the index of the focused field
func (m FormModal) Focused() int {
	return m.focus
}

// EchoMode returns the echo mode of field i
func (m FormModal) EchoMode(i int) textinput.EchoMode {
	return m.inputs[i].EchoMode
}

func (m *FormModal) moveFocus(delta int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

// Update handles input events, returns (modal, cmd, submitted).
// esc hides the modal without submitting.
func (m FormModal) Update(msg tea.Msg) (FormModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		case "tab", "down":
			return m, m.moveFocus(1), false
		case "shift+tab", "up":
			return m, m.moveFocus(-1), false
		}
	}

	if len(m.inputs) == 0 {
		return m, nil, false
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd, false
}

// View renders the form modal
func (m FormModal) View() string {
	if !m.visible {
		return ""
	}

	t := m.theme
	var rows []string
	rows = append(rows, t.ModalTitle.Render(m.title))

	for i, in := range m.inputs {
		label := t.Dim.Render(m.labels[i])
		if i == m.focus {
			label = t.Accent.Render(m.labels[i])
		}
		rows = append(rows, label, in.View(), "")
	}

	hints := t.HelpKey.Render("enter") + t.HelpDesc.Render(" save  ") +
		t.HelpKey.Render("tab") + t.HelpDesc.Render(" next  ") +
		t.HelpKey.Render("esc") + t.HelpDesc.Render(" cancel")
	rows = append(rows, hints)

	content := lipgloss.NewStyle().Width(m.width).Render(strings.Join(rows, "\n"))
	return t.Modal.Render(content)
}
