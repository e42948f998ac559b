package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/jsonview/internal/treetable"
)

// ────────────────────────────────────────────────────────────
// Color Palette - GitHub Dark aesthetic
// ────────────────────────────────────────────────────────────
//
// All colors are defined here. No ad-hoc color literals anywhere.

var (
	// Base
	colorBgSurface = lipgloss.Color("#1c2128")

	// Text
	colorText      = lipgloss.Color("#e6edf3")
	colorTextDim   = lipgloss.Color("#8b949e")
	colorTextMuted = lipgloss.Color("#484f58")

	// Accents
	colorBlue   = lipgloss.Color("#58a6ff")
	colorGreen  = lipgloss.Color("#3fb950")
	colorRed    = lipgloss.Color("#f85149")
	colorYellow = lipgloss.Color("#d29922")
	colorPurple = lipgloss.Color("#bc8cff")

	// Structural
	colorDivider   = lipgloss.Color("#30363d")
	colorHighlight = lipgloss.Color("#1f6feb")
)

// ────────────────────────────────────────────────────────────
// Component Styles
// ────────────────────────────────────────────────────────────

// Header bar
var (
	headerBarStyle = lipgloss.NewStyle().
			Background(colorBgSurface).
			Foreground(colorText).
			Padding(0, 1)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	headerSepStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	headerMetaStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// Panel chrome
var (
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.Border{Top: "─"}).
			BorderForeground(colorDivider)

	panelActiveStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.Border{Top: "─"}).
				BorderForeground(colorBlue)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)
)

// Detail pane
var (
	detailLabelStyle = lipgloss.NewStyle().
				Foreground(colorBlue)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(colorText)

	detailSectionStyle = lipgloss.NewStyle().
				Foreground(colorDivider)

	detailMissingStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted).
				Italic(true)

	detailHiddenStyle = lipgloss.NewStyle().
				Foreground(colorYellow)
)

// Footer / status bar
var (
	statusStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorBgSurface).
			Padding(0, 1)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Background(colorBgSurface).
			Padding(0, 1)

	hintKeyStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	hintDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)
)

// Library list
var (
	libraryItemStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Padding(0, 1)

	librarySelectedStyle = lipgloss.NewStyle().
				Background(colorHighlight).
				Foreground(colorText).
				Bold(true).
				Padding(0, 1)

	libraryDimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	emptyStateStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Padding(2, 4)
)

// Confirmation modal
var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(1, 3)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)

var spinnerStyle = lipgloss.NewStyle().Foreground(colorPurple)

// tableStyles maps the palette onto the tree table.
func tableStyles() treetable.Styles {
	return treetable.Styles{
		Title:    lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		Header:   lipgloss.NewStyle().Foreground(colorTextDim).Bold(true),
		Cell:     lipgloss.NewStyle().Foreground(colorText),
		Blank:    lipgloss.NewStyle().Foreground(colorTextMuted),
		Selected: lipgloss.NewStyle().Background(colorHighlight).Foreground(colorText).Bold(true),
		Toggle:   lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
		Remove:   lipgloss.NewStyle().Foreground(colorRed),
		Nest:     lipgloss.NewStyle().Foreground(colorDivider),
		Empty:    lipgloss.NewStyle().Foreground(colorTextMuted).Italic(true),
	}
}

// helpStyles maps the hint styles onto the help bubble.
func helpStyles() help.Styles {
	sep := lipgloss.NewStyle().Foreground(colorDivider)
	return help.Styles{
		Ellipsis:       sep,
		ShortKey:       hintKeyStyle,
		ShortDesc:      hintDescStyle,
		ShortSeparator: sep,
		FullKey:        hintKeyStyle,
		FullDesc:       hintDescStyle,
		FullSeparator:  sep,
	}
}
