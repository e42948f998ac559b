package treetable

import "github.com/charmbracelet/lipgloss"

// Glyphs drawn in the indicator and removal columns.
const (
	GlyphCollapsed = "▸"
	GlyphExpanded  = "▾"
	GlyphRemove    = "✕"
	glyphNest      = "│ "
)

// Styles controls how a table is drawn. Child tables inherit the styles of
// their parent.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Blank    lipgloss.Style
	Selected lipgloss.Style
	Toggle   lipgloss.Style
	Remove   lipgloss.Style
	Nest     lipgloss.Style
	Empty    lipgloss.Style
}

// DefaultStyles returns a neutral style set that reads on both light and
// dark terminals.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Header:   lipgloss.NewStyle().Bold(true).Underline(true),
		Cell:     lipgloss.NewStyle(),
		Blank:    lipgloss.NewStyle().Faint(true),
		Selected: lipgloss.NewStyle().Reverse(true),
		Toggle:   lipgloss.NewStyle().Bold(true),
		Remove:   lipgloss.NewStyle().Faint(true),
		Nest:     lipgloss.NewStyle().Faint(true),
		Empty:    lipgloss.NewStyle().Faint(true).Italic(true),
	}
}
