// Package treetable implements the recursive expandable table that renders
// a tree.Tree.
//
// A Table owns a private copy of its input tree. Expanding a row that has
// children mounts a child Table seeded from a copy of those children; the
// child reports back through a single "emptied" callback when its last row
// is removed, and the parent reacts by clearing that row's children.
// Parent and child never share records.
package treetable

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

// RemovePrompt is the question asked before a row is removed.
const RemovePrompt = "Are you sure you want to remove this row?"

// ConfirmFunc makes a synchronous yes/no decision for a destructive action.
type ConfirmFunc func(prompt string) bool

// Approve answers yes to every prompt.
func Approve(string) bool { return true }

// Decline answers no to every prompt. It is the default, so a table built
// without a confirmation capability never removes rows.
func Decline(string) bool { return false }

// Option configures a Table.
type Option func(*Table)

// WithOnEmptied sets the callback invoked when row removal leaves the
// table's group empty.
func WithOnEmptied(fn func()) Option {
	return func(t *Table) { t.onEmptied = fn }
}

// WithConfirm sets the confirmation used by RemoveRow. Child tables share it.
func WithConfirm(fn ConfirmFunc) Option {
	return func(t *Table) {
		if fn != nil {
			t.confirm = fn
		}
	}
}

// WithLogger sets the logger for state transitions. Child tables share it.
func WithLogger(l *log.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithStyles sets the rendering styles. Child tables share them.
func WithStyles(s Styles) Option {
	return func(t *Table) { t.styles = s }
}

// Table is one level of the tree table.
type Table struct {
	// source is the input tree; title and columns come from it so they
	// stay put while rows are edited.
	source  tree.Tree
	columns []string

	records  tree.Group
	children []*Table // aligned with records; set while a row shows its sub-table

	depth     int
	onEmptied func()
	confirm   ConfirmFunc
	logger    *log.Logger
	styles    Styles
}

// New builds a table for t. The table works on a copy; t is never modified.
func New(t tree.Tree, opts ...Option) *Table {
	tt := &Table{
		confirm: Decline,
		logger:  log.New(io.Discard),
		styles:  DefaultStyles(),
	}
	for _, opt := range opts {
		opt(tt)
	}
	tt.reset(t)
	return tt
}

// SetTree replaces the input tree. All local edits, expansion state and
// mounted sub-tables are discarded and the table mirrors t again.
func (t *Table) SetTree(src tree.Tree) {
	t.logger.Debug("tree replaced", "title", src.Title, "records", len(src.Group))
	t.reset(src)
}

func (t *Table) reset(src tree.Tree) {
	t.source = src.Clone()
	t.columns = t.source.Columns()
	t.records = t.source.Group.Clone()
	t.children = make([]*Table, len(t.records))
	for i, r := range t.records {
		if r.Expanded && r.HasKids() {
			t.children[i] = t.mount(i)
		}
	}
}

// mount creates the sub-table for a row. Its emptied callback looks the
// row up again when it fires, since removals above it shift its index.
func (t *Table) mount(row int) *Table {
	child := &Table{
		depth:   t.depth + 1,
		confirm: t.confirm,
		logger:  t.logger,
		styles:  t.styles,
	}
	child.onEmptied = func() { t.cascade(child) }
	child.reset(*t.records[row].Kids)
	return child
}

func (t *Table) cascade(child *Table) {
	for i, c := range t.children {
		if c == child {
			t.logger.Debug("child group emptied", "title", t.source.Title, "row", i)
			t.ClearChildren(i)
			return
		}
	}
}

// Title is the first key of the input tree.
func (t *Table) Title() string { return t.source.Title }

// Columns are the field names of the input tree's first record. They do not
// change when rows are removed.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len returns the current number of rows.
func (t *Table) Len() int { return len(t.records) }

// Depth is 0 for the root table and grows by one per nesting level.
func (t *Table) Depth() int { return t.depth }

// Records returns a copy of the current rows.
func (t *Table) Records() tree.Group { return t.records.Clone() }

// Record returns a copy of one row.
func (t *Table) Record(index int) tree.Record {
	t.mustIndex(index)
	return t.records[index].Clone()
}

// Child returns the mounted sub-table of a row, or nil when the row is
// collapsed or has no children.
func (t *Table) Child(index int) *Table {
	t.mustIndex(index)
	return t.children[index]
}

// Expanded reports whether a row currently shows its sub-table.
func (t *Table) Expanded(index int) bool {
	t.mustIndex(index)
	return t.records[index].Expanded && t.records[index].HasKids()
}

// ToggleExpand flips the expand flag of a row with children. Expanding
// mounts a fresh sub-table from the row's children; collapsing unmounts
// it, dropping whatever was edited inside it. Rows without children are
// left alone.
func (t *Table) ToggleExpand(index int) {
	t.mustIndex(index)
	r := &t.records[index]
	if !r.HasKids() {
		return
	}
	r.Expanded = !r.Expanded
	if r.Expanded {
		t.children[index] = t.mount(index)
	} else {
		t.children[index] = nil
	}
	t.logger.Debug("row toggled", "title", t.source.Title, "row", index, "expanded", r.Expanded)
}

// RemoveRow asks for confirmation and, on yes, removes the row at index.
// Later rows move up by one. If the group becomes empty the emptied
// callback runs once. It reports whether a row was removed.
func (t *Table) RemoveRow(index int) bool {
	t.mustIndex(index)
	if !t.confirm(RemovePrompt) {
		t.logger.Debug("row removal declined", "title", t.source.Title, "row", index)
		return false
	}

	t.records = slices.Delete(slices.Clone(t.records), index, index+1)
	t.children = slices.Delete(t.children, index, index+1)
	t.logger.Debug("row removed", "title", t.source.Title, "row", index, "remaining", len(t.records))

	if len(t.records) == 0 && t.onEmptied != nil {
		t.onEmptied()
	}
	return true
}

// ClearChildren drops the children of a row and its sub-table. Child
// tables call it through their emptied callback.
func (t *Table) ClearChildren(index int) {
	t.mustIndex(index)
	t.records[index].Kids = nil
	t.children[index] = nil
	t.logger.Debug("children cleared", "title", t.source.Title, "row", index)
}

// Snapshot returns the tree as currently shown: local rows with the local
// state of every mounted sub-table folded in.
func (t *Table) Snapshot() tree.Tree {
	out := tree.Tree{Title: t.source.Title, Group: t.records.Clone()}
	for i, c := range t.children {
		if c == nil {
			continue
		}
		kids := c.Snapshot()
		out.Group[i].Kids = &kids
	}
	return out
}

func (t *Table) mustIndex(index int) {
	if index < 0 || index >= len(t.records) {
		panic(fmt.Sprintf("treetable: row %d out of range [0,%d)", index, len(t.records)))
	}
}
