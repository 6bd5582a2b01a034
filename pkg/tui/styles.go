package tui

import "github.com/charmbracelet/lipgloss"

// Palette with light and dark terminal variants.
var (
	ColorAccent      = lipgloss.AdaptiveColor{Light: "#5A3FD6", Dark: "#7D56F4"}
	ColorSection     = lipgloss.AdaptiveColor{Light: "#17808C", Dark: "#56B6C2"}
	ColorDone        = lipgloss.AdaptiveColor{Light: "#1B7F4B", Dark: "#25A065"}
	ColorUrgent      = lipgloss.AdaptiveColor{Light: "#C53030", Dark: "#E05252"}
	ColorWarn        = lipgloss.AdaptiveColor{Light: "#A86B00", Dark: "#E5C07B"}
	ColorInfo        = lipgloss.AdaptiveColor{Light: "#1F5FCC", Dark: "#4285F4"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#FFFFFF"}
	ColorSubtle      = lipgloss.AdaptiveColor{Light: "#3A3A3A", Dark: "#D0D0D0"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#7A7A7A", Dark: "#626262"}
	ColorFaint       = lipgloss.AdaptiveColor{Light: "#C8C8C8", Dark: "#404040"}
	ColorSelectionBg = lipgloss.AdaptiveColor{Light: "#DCE6F5", Dark: "#2D3B4D"}
	ColorMatchRowBg  = lipgloss.AdaptiveColor{Light: "#F1EDFB", Dark: "#1E1A2E"}
	ColorMatchBg     = lipgloss.AdaptiveColor{Light: "#E2DAF8", Dark: "#2E2545"}
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	HeaderStyle  = fg(ColorAccent).Bold(true)
	CountStyle   = fg(ColorMuted)
	FooterStyle  = fg(ColorMuted)
	SectionStyle = fg(ColorSection).Bold(true)

	SelectedStyle  = fg(ColorText).Background(ColorSelectionBg).Bold(true)
	CheckedStyle   = fg(ColorDone)
	UncheckedStyle = fg(ColorSubtle)
	OverdueStyle   = fg(ColorUrgent)
	DueStyle       = fg(ColorMuted)

	SearchBarStyle          = fg(ColorText)
	SearchRowStyle          = lipgloss.NewStyle().Background(ColorMatchRowBg)
	SearchCharStyle         = fg(ColorAccent).Background(ColorMatchBg).Bold(true)
	SearchCharSelectedStyle = fg(ColorAccent).Background(ColorSelectionBg).Bold(true)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2)
	ModalTitleStyle = fg(ColorAccent).Bold(true)
)

// PriorityStyles colors the priority labels; p4 is unstyled.
var PriorityStyles = map[string]lipgloss.Style{
	"p1": fg(ColorUrgent).Bold(true),
	"p2": fg(ColorWarn),
	"p3": fg(ColorInfo),
}

// Table styles, also used by the -table action.
var (
	TableHeaderStyle = fg(ColorAccent).Bold(true).Padding(0, 1)
	TableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	TableBorderStyle = fg(ColorFaint)
)

const (
	IconChecked   = "✓"
	IconUnchecked = "○"
	IconRecurring = "↻"
)
