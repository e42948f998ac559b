package treetable

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const (
	maxCellWidth = 40
	minCellWidth = 3
	cellSep      = "  "
	toggleWidth  = 2 // glyph + space
	removeWidth  = 3 // two spaces + glyph
	minNestWidth = 12
)

// Row addresses one record of one table in the flattened view.
type Row struct {
	Table *Table
	Index int
}

// Valid reports whether the row still points at an existing record.
func (r Row) Valid() bool {
	return r.Table != nil && r.Index >= 0 && r.Index < r.Table.Len()
}

// Rows flattens every visible row, depth-first in display order: each
// record is followed by the rows of its sub-table when expanded.
func (t *Table) Rows() []Row {
	var rows []Row
	t.appendRows(&rows)
	return rows
}

func (t *Table) appendRows(rows *[]Row) {
	for i := range t.records {
		*rows = append(*rows, Row{Table: t, Index: i})
		if c := t.children[i]; c != nil {
			c.appendRows(rows)
		}
	}
}

// View renders the table and its expanded sub-tables.
func (t *Table) View(width int, selected Row) string {
	lines, _ := t.Render(width, selected)
	return strings.Join(lines, "\n")
}

// Render returns the rendered lines and the index of the line holding the
// selected row (-1 when it is not visible). A width of 0 or less disables
// fitting.
func (t *Table) Render(width int, selected Row) ([]string, int) {
	r := &renderer{selected: selected, at: -1}
	r.table(t, width)
	return r.lines, r.at
}

type renderer struct {
	lines    []string
	selected Row
	at       int
}

func (r *renderer) table(t *Table, width int) {
	s := t.styles
	widths := t.columnWidths(width)

	title := t.source.Title
	if width > 0 {
		title = fit(title, width)
	}
	r.lines = append(r.lines, s.Title.Render(title))

	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = pad(fit(c, widths[i]), widths[i])
	}
	r.lines = append(r.lines, s.Header.Render(strings.Repeat(" ", toggleWidth)+strings.Join(header, cellSep)))

	if len(t.records) == 0 {
		r.lines = append(r.lines, s.Empty.Render("  no records"))
		return
	}

	for i, rec := range t.records {
		cells := make([]string, len(t.columns))
		for j, c := range t.columns {
			text := ""
			if v, ok := rec.Data.Get(c); ok {
				text = strings.ReplaceAll(v.String(), "\n", " ")
			}
			cells[j] = pad(fit(text, widths[j]), widths[j])
		}

		glyph := " "
		if rec.HasKids() {
			glyph = GlyphCollapsed
			if t.children[i] != nil {
				glyph = GlyphExpanded
			}
		}

		if r.selected.Table == t && r.selected.Index == i {
			r.at = len(r.lines)
			plain := glyph + " " + strings.Join(cells, cellSep) + "  " + GlyphRemove
			r.lines = append(r.lines, s.Selected.Render(plain))
		} else {
			styled := make([]string, len(cells))
			for j, c := range cells {
				if strings.TrimSpace(c) == "" {
					styled[j] = s.Blank.Render(c)
				} else {
					styled[j] = s.Cell.Render(c)
				}
			}
			r.lines = append(r.lines, s.Toggle.Render(glyph)+" "+strings.Join(styled, cellSep)+"  "+s.Remove.Render(GlyphRemove))
		}

		if c := t.children[i]; c != nil {
			start := len(r.lines)
			childWidth := width - runewidth.StringWidth(glyphNest)
			if width > 0 && childWidth < minNestWidth {
				childWidth = minNestWidth
			}
			r.table(c, childWidth)
			prefix := s.Nest.Render(glyphNest)
			for k := start; k < len(r.lines); k++ {
				r.lines[k] = prefix + r.lines[k]
			}
		}
	}
}

// columnWidths sizes each column to its widest cell, capped, then shrinks
// the widest columns until the row fits in width.
func (t *Table) columnWidths(width int) []int {
	w := make([]int, len(t.columns))
	for i, c := range t.columns {
		w[i] = runewidth.StringWidth(c)
	}
	for _, rec := range t.records {
		for i, c := range t.columns {
			if v, ok := rec.Data.Get(c); ok {
				w[i] = max(w[i], runewidth.StringWidth(v.String()))
			}
		}
	}
	for i := range w {
		w[i] = min(max(w[i], 1), maxCellWidth)
	}
	if width <= 0 || len(w) == 0 {
		return w
	}

	avail := width - toggleWidth - removeWidth - len(cellSep)*(len(w)-1)
	for sum(w) > avail {
		widest := 0
		for i := range w {
			if w[i] > w[widest] {
				widest = i
			}
		}
		if w[widest] <= minCellWidth {
			break
		}
		w[widest]--
	}
	return w
}

func sum(w []int) int {
	total := 0
	for _, n := range w {
		total += n
	}
	return total
}

func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
