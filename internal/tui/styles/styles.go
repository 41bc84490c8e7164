package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/zenread/internal/domain"
)

// Palette is the set of colors a theme is built from
type Palette struct {
	Accent  lipgloss.Color
	Surface lipgloss.Color // modal and selection background
	Raised  lipgloss.Color
	Dim     lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Green   lipgloss.Color
	Red     lipgloss.Color
}

// Color palettes
var (
	DarkPalette = Palette{
		Accent:  lipgloss.Color("#D9A55B"),
		Surface: lipgloss.Color("#1F2937"),
		Raised:  lipgloss.Color("#374151"),
		Dim:     lipgloss.Color("#6B7280"),
		Muted:   lipgloss.Color("#9CA3AF"),
		Text:    lipgloss.Color("#F9FAFB"),
		Green:   lipgloss.Color("#10B981"),
		Red:     lipgloss.Color("#EF4444"),
	}

	LightPalette = Palette{
		Accent:  lipgloss.Color("#9A5B13"),
		Surface: lipgloss.Color("#F5F0E6"),
		Raised:  lipgloss.Color("#E7DFCF"),
		Dim:     lipgloss.Color("#A8A29E"),
		Muted:   lipgloss.Color("#57534E"),
		Text:    lipgloss.Color("#1C1917"),
		Green:   lipgloss.Color("#047857"),
		Red:     lipgloss.Color("#B91C1C"),
	}
)

// Raw read status characters (unstyled)
const (
	UnreadChar     = "●"
	InProgressChar = "◐"
	FinishedChar   = "✓"
)

// Theme holds every style the views render with
type Theme struct {
	Dark    bool
	Palette Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Dim      lipgloss.Style
	Accent   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	SelectedItem   lipgloss.Style
	NormalItem     lipgloss.Style
	MatchHighlight lipgloss.Style

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	ProgressFull  lipgloss.Style
	ProgressEmpty lipgloss.Style

	Unread     lipgloss.Style
	InProgress lipgloss.Style
	Finished   lipgloss.Style
}

// NewTheme builds the dark or light theme
func NewTheme(dark bool) Theme {
	p := LightPalette
	if dark {
		p = DarkPalette
	}

	return Theme{
		Dark:    dark,
		Palette: p,

		Title:    lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(p.Muted),
		Dim:      lipgloss.NewStyle().Foreground(p.Dim),
		Accent:   lipgloss.NewStyle().Foreground(p.Accent),
		Error:    lipgloss.NewStyle().Foreground(p.Red),
		Success:  lipgloss.NewStyle().Foreground(p.Green),

		SelectedItem: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Raised),
		NormalItem: lipgloss.NewStyle().
			Foreground(p.Muted),
		MatchHighlight: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(1, 2),
		ModalTitle: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true).
			MarginBottom(1),

		HelpKey:  lipgloss.NewStyle().Foreground(p.Accent),
		HelpDesc: lipgloss.NewStyle().Foreground(p.Dim),

		ProgressFull:  lipgloss.NewStyle().Foreground(p.Accent),
		ProgressEmpty: lipgloss.NewStyle().Foreground(p.Dim),

		Unread:     lipgloss.NewStyle().Foreground(p.Accent),
		InProgress: lipgloss.NewStyle().Foreground(p.Accent),
		Finished:   lipgloss.NewStyle().Foreground(p.Green),
	}
}

// RenderStatus renders the read status indicator
func (t Theme) RenderStatus(s domain.ReadStatus) string {
	switch s {
	case domain.ReadStatusFinished:
		return t.Finished.Render(FinishedChar)
	case domain.ReadStatusInProgress:
		return t.InProgress.Render(InProgressChar)
	default:
		return t.Unread.Render(UnreadChar)
	}
}

// RenderProgressBar renders a progress bar of the given cell width
func (t Theme) RenderProgressBar(percent int, width int) string {
	if width < 3 {
		return ""
	}

	filled := width * percent / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return t.ProgressFull.Render(strings.Repeat("█", filled)) +
		t.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

// RenderHighlighted renders s with the bytes at matched emphasised
func (t Theme) RenderHighlighted(s string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(s)
	}

	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}

	hl := t.MatchHighlight.Inherit(base)
	var b strings.Builder
	for i, r := range s {
		if set[i] {
			b.WriteString(hl.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// Truncate shortens s to width cells with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}

	runes := []rune(s)
	if width <= 1 {
		return string(runes[:1])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
