package term

import "github.com/charmbracelet/lipgloss"

// Palette colors, ANSI 256 codes.
const (
	ColorAccent = "86"
	ColorBorder = "241"
	ColorMuted  = "243"
	ColorDanger = "196"
	ColorOK     = "42"
)

// Styles are the shared styles used by the terminal components and layouts.
type Styles struct {
	Title     lipgloss.Style
	Panel     lipgloss.Style
	Label     lipgloss.Style
	Heading   lipgloss.Style
	Button    lipgloss.Style
	Disabled  lipgloss.Style
	Input     lipgloss.Style
	Badge     lipgloss.Style
	BadgeOK   lipgloss.Style
	BadgeBad  lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Divider   lipgloss.Style
	Muted     lipgloss.Style
}

// DefaultStyles returns the stock palette with accent as the highlight
// color. An empty accent uses ColorAccent.
func DefaultStyles(accent string) Styles {
	if accent == "" {
		accent = ColorAccent
	}
	highlight := lipgloss.Color(accent)
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),
		Label: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),
		Heading: lipgloss.NewStyle().
			Bold(true).
			Underline(true),
		Button: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		Input: lipgloss.NewStyle().
			Underline(true),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		BadgeOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorOK)),
		BadgeBad: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDanger)),
		Tab: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color(ColorMuted)),
		ActiveTab: lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(highlight),
		Divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBorder)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)).
			Italic(true),
	}
}
