package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/jsonview/internal/treetable"
)

// renderDocument renders the tree table, scrolled so the selected row
// stays visible.
func renderDocument(m *Model, width, height int) string {
	rows := m.sess.table.Rows()
	sel, _ := current(rows, m.cursor)

	lines, at := m.sess.table.Render(width, sel)

	start := 0
	if at >= height {
		start = at - height + 1
	}
	end := min(start+height, len(lines))

	out := lines[start:end]
	if len(lines) > height && len(rows) > 0 {
		pct := 0
		if len(rows) > 1 {
			pct = m.cursor * 100 / (len(rows) - 1)
		}
		indicator := libraryDimStyle.Render(fmt.Sprintf(" %d/%d (%d%%)", m.cursor+1, len(rows), pct))
		if len(out) == height {
			out = out[:height-1]
		}
		out = append(out, indicator)
	}
	return strings.Join(out, "\n")
}

// renderDocumentPanel wraps the table in a styled panel.
func renderDocumentPanel(m *Model, width, height int) string {
	content := renderDocument(m, width-4, height-2)
	return panelActiveStyle.Width(width).Height(height).Render(content)
}

// renderModal asks whether the pending row should be removed.
func renderModal(m *Model, height int) string {
	target := ""
	if m.sess != nil && m.modal.Valid() {
		target = rowPath(m.sess.table.Rows(), *m.modal)
	}

	body := modalTitleStyle.Render("Remove row") + "\n\n" +
		treetable.RemovePrompt + "\n" +
		libraryDimStyle.Render(target) + "\n\n" +
		hintKeyStyle.Render("y") + " " + hintDescStyle.Render("remove") + "    " +
		hintKeyStyle.Render("n") + " " + hintDescStyle.Render("keep")

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, modalStyle.Render(body))
}
