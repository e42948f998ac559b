package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/jsonview/pkg/timeutil"
)

// renderLibrary renders the document selection screen.
func renderLibrary(m *Model, height int) string {
	if len(m.docs) == 0 {
		msg := "No documents in the library.\n\n" +
			"Import one with `jsonview import <file>`,\n" +
			"or drop files into the daemon's watch directory."
		if m.loading {
			msg = m.spinner.View() + " Loading library..."
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			emptyStateStyle.Render(msg))
	}

	title := panelTitleStyle.Render("Documents")
	count := libraryDimStyle.Render(fmt.Sprintf("  %d total", len(m.docs)))

	lines := []string{title + count, ""}

	// Visible range for scrolling
	maxVisible := max(height-3, 5)

	startIdx := 0
	if m.selectedDoc >= maxVisible {
		startIdx = m.selectedDoc - maxVisible + 1
	}
	endIdx := min(startIdx+maxVisible, len(m.docs))

	for i := startIdx; i < endIdx; i++ {
		d := m.docs[i]

		id := libraryDimStyle.Render(shortID(d.ID, 8))
		shape := libraryDimStyle.Render(fmt.Sprintf("%s  %d records  depth %d", d.Title, d.Records, d.Depth))
		size := libraryDimStyle.Render(timeutil.FormatBytes(int64(len(d.Body))))
		ts := libraryDimStyle.Render(timeutil.RelativeTime(d.ImportedAt))

		content := fmt.Sprintf("%s  %s  %s  %s  %s", d.Name, id, shape, size, ts)

		style := libraryItemStyle
		if i == m.selectedDoc {
			style = librarySelectedStyle
		}
		lines = append(lines, style.Width(m.width-4).Render(content))
	}

	return strings.Join(lines, "\n")
}
