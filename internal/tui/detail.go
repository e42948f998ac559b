package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Mr-Dark-debug/jsonview/internal/tree"
	"github.com/Mr-Dark-debug/jsonview/pkg/jsonutil"
	"github.com/Mr-Dark-debug/jsonview/pkg/timeutil"
)

// renderDetail renders the selected record (right side).
func renderDetail(m *Model, width, height int) string {
	title := panelTitleStyle.Render("Record")

	rows := m.sess.table.Rows()
	row, ok := current(rows, m.cursor)
	if !ok {
		return title + "\n\n" +
			emptyStateStyle.Render("No record selected.")
	}

	rec := row.Table.Record(row.Index)
	columns := row.Table.Columns()

	var lines []string
	lines = append(lines, title)
	lines = append(lines, "")

	lines = append(lines, detailRow("Path", rowPath(rows, row)))
	lines = append(lines, detailRow("Depth", fmt.Sprintf("%d", row.Table.Depth())))

	// ── Fields ──

	lines = append(lines, "")
	lines = append(lines, detailSectionStyle.Render("Fields"))
	for _, col := range columns {
		v, found := rec.Data.Get(col)
		if !found {
			lines = append(lines, detailLabelStyle.Render(col)+"  "+detailMissingStyle.Render("missing"))
			continue
		}
		lines = append(lines, detailRow(col, displayValue(v, width-len(col)-2)))
	}

	// Fields outside the frozen columns are not drawn by the table.
	for _, f := range rec.Data.All() {
		if slices.Contains(columns, f.Name) {
			continue
		}
		lines = append(lines, detailHiddenStyle.Render(f.Name)+"  "+
			detailValueStyle.Render(displayValue(f.Value, width-len(f.Name)-2))+
			detailMissingStyle.Render("  hidden"))
	}

	// ── Children ──

	if rec.Kids != nil {
		state := "collapsed"
		if row.Table.Expanded(row.Index) {
			state = "expanded"
		}
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Children"))
		lines = append(lines, detailRow("Group", rec.Kids.Title))
		lines = append(lines, detailRow("Records", fmt.Sprintf("%d", len(rec.Kids.Group))))
		lines = append(lines, detailRow("State", state))
	}

	// ── Source ──

	if doc := m.sess.doc; doc != nil {
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Source"))
		lines = append(lines, detailRow("Ref", m.label()))
		lines = append(lines, detailRow("Loaded", timeutil.RelativeTime(doc.LoadedAt.UnixNano())))
		if len(doc.Warnings) > 0 {
			lines = append(lines, detailRow("Warnings", fmt.Sprintf("%d", len(doc.Warnings))))
		}
		if len(doc.Ignored) > 0 {
			lines = append(lines, detailRow("Ignored", strings.Join(doc.Ignored, ", ")))
		}
	}

	// Truncate to available height
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// renderDetailPanel wraps detail in a styled panel.
func renderDetailPanel(m *Model, width, height int) string {
	content := renderDetail(m, width-4, height-2)
	return panelStyle.Width(width).Height(height).Render(content)
}

// ── helpers ──

func detailRow(label, value string) string {
	return detailLabelStyle.Render(label) + "  " + detailValueStyle.Render(value)
}

// displayValue shows strings as JSON literals so blanks and escapes are
// visible; other scalars use their cell text.
func displayValue(v tree.Scalar, width int) string {
	s := v.String()
	if v.Kind() == tree.KindString {
		s = jsonutil.CompactValue(s)
	}
	if v.Kind() == tree.KindNull {
		s = "null"
	}
	if width > 3 && len([]rune(s)) > width {
		s = string([]rune(s)[:width-1]) + "…"
	}
	return s
}
