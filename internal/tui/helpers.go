package tui

import (
	"strconv"

	"github.com/Mr-Dark-debug/jsonview/internal/treetable"
)

// ────────────────────────────────────────────────────────────
// Row navigation
// ────────────────────────────────────────────────────────────

// current returns the row under the cursor.
func current(rows []treetable.Row, cursor int) (treetable.Row, bool) {
	if cursor < 0 || cursor >= len(rows) {
		return treetable.Row{}, false
	}
	return rows[cursor], true
}

// parentRow finds the row whose sub-table is child.
func parentRow(rows []treetable.Row, child *treetable.Table) (treetable.Row, bool) {
	for _, r := range rows {
		if r.Table.Child(r.Index) == child {
			return r, true
		}
	}
	return treetable.Row{}, false
}

// rowIndex returns the position of row in rows, or 0.
func rowIndex(rows []treetable.Row, row treetable.Row) int {
	for i, r := range rows {
		if r == row {
			return i
		}
	}
	return 0
}

// rowPath labels a row by the titles and positions leading to it, such
// as "Orders[1].Items[0]".
func rowPath(rows []treetable.Row, row treetable.Row) string {
	label := row.Table.Title() + "[" + strconv.Itoa(row.Index) + "]"
	if parent, ok := parentRow(rows, row.Table); ok {
		return rowPath(rows, parent) + "." + label
	}
	return label
}

// ────────────────────────────────────────────────────────────
// String helpers
// ────────────────────────────────────────────────────────────

// shortID returns first n characters of an ID string.
func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// clamp restricts val to [lo, hi]. lo wins when hi < lo.
func clamp(val, lo, hi int) int {
	if val > hi {
		val = hi
	}
	if val < lo {
		val = lo
	}
	return val
}

// label is how the open document is named to the user.
func (m Model) label() string {
	if m.displayName != "" {
		return m.displayName
	}
	return m.ref
}
