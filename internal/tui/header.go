package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader produces the top bar:
//
//	JSONVIEW  |  Orders  |  Orders[0].Items[1]  |  3 records
func renderHeader(m *Model) string {
	brand := headerBrandStyle.Render("JSONVIEW")
	sep := headerSepStyle.Render(" │ ")

	parts := []string{brand}

	if m.screen == screenDocument && m.sess != nil {
		t := m.sess.table
		parts = append(parts, sep, headerMetaStyle.Render(t.Title()))

		rows := t.Rows()
		if cur, ok := current(rows, m.cursor); ok {
			parts = append(parts, sep, headerMetaStyle.Render(rowPath(rows, cur)))
		}
		parts = append(parts, sep, headerMetaStyle.Render(fmt.Sprintf("%d records", t.Len())))
	} else {
		parts = append(parts, sep, headerMetaStyle.Render("Library"))
	}

	content := strings.Join(parts, "")

	return headerBarStyle.Width(m.width).Render(content)
}

// renderFooter produces the bottom status bar with keyboard hints.
func renderFooter(m *Model) string {
	var left string
	status := m.statusMsg
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	if status != "" {
		if m.err != nil {
			left = statusErrStyle.Render(status)
		} else {
			left = statusStyle.Render(status)
		}
	}

	keys := screenKeys{keys: m.keys, screen: m.screen, library: m.store != nil}

	if m.help.ShowAll {
		full := m.help.View(keys)
		return lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Background(colorBgSurface).Width(m.width).Render(left),
			lipgloss.NewStyle().Padding(0, 1).Render(full))
	}

	right := m.help.ShortHelpView(keys.ShortHelp())

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return lipgloss.NewStyle().
		Background(colorBgSurface).
		Width(m.width).
		Render(bar)
}
