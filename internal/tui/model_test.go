package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
	"github.com/Mr-Dark-debug/jsonview/internal/treetable"
)

func rec(name string, v tree.Scalar) tree.Record {
	return tree.Record{Data: tree.NewFields(tree.Field{Name: name, Value: v})}
}

// ordersTree is two orders; the first holds two items.
func ordersTree() tree.Tree {
	items := tree.New("Items", rec("sku", tree.String("A")), rec("sku", tree.String("B")))
	first := rec("id", tree.Number(1))
	first.Kids = &items
	return tree.New("Orders", first, rec("id", tree.Number(2)))
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		m = send(m, keyMsg(k))
	}
	return m
}

func openOrders(t *testing.T, opts ...Option) Model {
	t.Helper()
	m := NewModel(nil, append([]Option{WithRef("orders.json")}, opts...)...)
	m = send(m,
		tea.WindowSizeMsg{Width: 120, Height: 40},
		documentLoadedMsg{doc: &source.Document{Ref: "orders.json", Tree: ordersTree()}},
	)
	require.NotNil(t, m.sess)
	return m
}

func TestNewModelScreens(t *testing.T) {
	m := NewModel(nil)
	assert.Equal(t, screenLibrary, m.screen)
	assert.True(t, m.loading)
	assert.Equal(t, "Initializing...", m.View())

	m = NewModel(nil, WithRef("a.json"))
	assert.Equal(t, screenDocument, m.screen)
	assert.Contains(t, m.statusMsg, "a.json")
}

func TestCursorMovement(t *testing.T) {
	m := openOrders(t)
	m = press(m, "j", "j", "j")
	assert.Equal(t, 1, m.cursor, "cursor stops at the last row")
	m = press(m, "k", "up", "k")
	assert.Equal(t, 0, m.cursor)
}

func TestToggleKeys(t *testing.T) {
	m := openOrders(t)
	root := m.sess.table

	m = press(m, "enter")
	assert.True(t, root.Expanded(0))
	assert.Len(t, root.Rows(), 4)

	m = press(m, "down")
	assert.Equal(t, 1, m.cursor)
	m = press(m, "left")
	assert.Equal(t, 0, m.cursor, "left on a nested row jumps to its parent")
	m = press(m, "h")
	assert.False(t, root.Expanded(0))
	assert.Len(t, root.Rows(), 2)

	m = press(m, " ")
	assert.True(t, root.Expanded(0))
	m = press(m, "l")
	assert.False(t, root.Expanded(0))
	m = press(m, "right")
	assert.True(t, root.Expanded(0))
}

func TestRemoveThroughModal(t *testing.T) {
	m := openOrders(t)

	m = press(m, "x")
	require.NotNil(t, m.modal)
	assert.Contains(t, m.View(), treetable.RemovePrompt)

	m = press(m, "j", "n")
	assert.Nil(t, m.modal)
	assert.Equal(t, 2, m.sess.table.Len(), "decline leaves rows untouched")
	assert.Equal(t, 0, m.cursor, "keys other than y/n are ignored by the modal")
	assert.Equal(t, "Removal cancelled", m.statusMsg)

	m = press(m, "delete", "esc")
	assert.Equal(t, 2, m.sess.table.Len())

	m = press(m, "x", "y")
	assert.Nil(t, m.modal)
	require.Equal(t, 1, m.sess.table.Len())
	v, _ := m.sess.table.Record(0).Data.Get("id")
	assert.Equal(t, "2", v.String())
}

func TestRemoveNestedCascade(t *testing.T) {
	m := openOrders(t)
	root := m.sess.table

	m = press(m, "enter", "j", "x", "y")
	child := root.Child(0)
	require.NotNil(t, child)
	assert.Equal(t, 1, child.Len())

	m = press(m, "x", "y")
	assert.Nil(t, root.Record(0).Kids, "emptied child group clears the row's children")
	assert.False(t, root.Expanded(0))
	assert.Equal(t, 2, root.Len(), "siblings untouched")
	assert.Len(t, root.Rows(), 2)
	assert.Equal(t, 1, m.cursor)
	assert.NotEqual(t, statusEmpty, m.statusMsg)
}

func TestRootEmptied(t *testing.T) {
	m := openOrders(t)
	m = press(m, "x", "y", "x", "y")

	assert.Equal(t, 0, m.sess.table.Len())
	assert.Equal(t, statusEmpty, m.statusMsg)
	assert.Contains(t, m.View(), "no records")

	m = press(m, "x")
	assert.Nil(t, m.modal, "nothing to remove")
}

func TestConfirmRemovalOff(t *testing.T) {
	m := openOrders(t, WithConfirmRemoval(false))
	m = press(m, "x")
	assert.Nil(t, m.modal)
	assert.Equal(t, 1, m.sess.table.Len())
}

func TestNewDocumentResetsState(t *testing.T) {
	m := openOrders(t)
	m = press(m, "enter", "j", "x", "y", "j", "j")
	table := m.sess.table

	m = send(m, documentLoadedMsg{doc: &source.Document{Ref: "orders.json", Tree: ordersTree()}})
	assert.Same(t, table, m.sess.table)
	assert.Equal(t, 2, table.Len())
	assert.False(t, table.Expanded(0))
	assert.Len(t, table.Rows(), 2)
	assert.Equal(t, 0, m.cursor)
	assert.False(t, m.sess.emptied)
}

func TestReloadMsg(t *testing.T) {
	ch := make(chan struct{}, 1)
	m := openOrders(t, WithReloads(ch))

	next, cmd := m.Update(reloadMsg{})
	m = next.(Model)
	assert.True(t, m.loading)
	assert.NotNil(t, cmd)

	ch <- struct{}{}
	assert.Equal(t, reloadMsg{}, m.waitForReload()())
	close(ch)
	assert.Nil(t, m.waitForReload()())
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	m := openOrders(t, WithExportDir(dir))
	m = press(m, "j", "x", "y")

	_, cmd := m.Update(keyMsg("e"))
	require.NotNil(t, cmd)
	msg := cmd()
	exp, ok := msg.(exportedMsg)
	require.True(t, ok, "got %#v", msg)
	assert.Equal(t, filepath.Join(dir, "orders-view.json"), exp.path)

	raw, err := os.ReadFile(exp.path)
	require.NoError(t, err)
	res, err := tree.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "Orders", res.Tree.Title)
	require.Len(t, res.Tree.Group, 1)
	require.NotNil(t, res.Tree.Group[0].Kids)
	assert.Len(t, res.Tree.Group[0].Kids.Group, 2)

	m = send(m, msg)
	assert.Contains(t, m.statusMsg, "Exported")
}

func TestToggleRowWithoutChildren(t *testing.T) {
	dir := t.TempDir()
	m := openOrders(t, WithExportDir(dir))
	root := m.sess.table

	m = press(m, "j", "enter")
	assert.False(t, root.Expanded(1))
	assert.False(t, root.Record(1).Expanded)
	assert.Len(t, root.Rows(), 2)

	exp, ok := m.exportView()().(exportedMsg)
	require.True(t, ok)
	raw, err := os.ReadFile(exp.path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"expanded"`)
}

func TestDisplayNameForSpooledInput(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "stdin-123.json")
	require.NoError(t, os.WriteFile(spool, []byte(`{"Orders": [{"data": {"id": 1}}]}`), 0o644))

	m := NewModel(nil, WithRef(spool), WithDisplayName("stdin"), WithExportDir(dir))
	assert.Equal(t, "Loading stdin...", m.statusMsg)

	msg := m.loadDocument(spool)()
	m = send(m, tea.WindowSizeMsg{Width: 120, Height: 40}, msg)
	require.NotNil(t, m.sess)
	assert.NotContains(t, m.View(), "stdin-123")

	exp, ok := m.exportView()().(exportedMsg)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "stdin-view.json"), exp.path)
}

func TestLibraryScreen(t *testing.T) {
	store, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	defer store.Close()

	for _, name := range []string{"orders", "people"} {
		doc, err := database.NewDocument(name, name+".json", ordersTree())
		require.NoError(t, err)
		require.NoError(t, store.SaveDocument(doc))
	}

	m := NewModel(store)
	m = send(m, tea.WindowSizeMsg{Width: 120, Height: 30}, m.loadLibrary()())
	require.Len(t, m.docs, 2)
	assert.False(t, m.loading)
	view := m.View()
	assert.Contains(t, view, "orders")
	assert.Contains(t, view, "people")

	m = press(m, "j", "j")
	assert.Equal(t, 1, m.selectedDoc)

	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.True(t, m.loading)
	assert.Contains(t, m.statusMsg, source.StorePrefix+m.docs[1].Name)

	loaded := m.loadDocument(source.StorePrefix + "orders")()
	m = send(m, loaded)
	assert.Equal(t, screenDocument, m.screen)
	assert.Equal(t, "Orders", m.sess.table.Title())

	m = press(m, "esc")
	assert.Equal(t, screenLibrary, m.screen)
}

func TestLoadLibraryWithoutStore(t *testing.T) {
	msg := NewModel(nil).loadLibrary()()
	e, ok := msg.(errMsg)
	require.True(t, ok)
	assert.ErrorIs(t, e.err, source.ErrNoStore)
}

func TestLoadDocumentFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Ada"}]`), 0o644))

	msg := NewModel(nil, WithSourceOptions(source.Options{Title: "people"})).loadDocument(path)()
	loaded, ok := msg.(documentLoadedMsg)
	require.True(t, ok, "got %#v", msg)
	assert.Equal(t, "people", loaded.doc.Tree.Title)
	assert.Len(t, loaded.doc.Tree.Group, 1)
}

func TestErrorShownInStatus(t *testing.T) {
	m := openOrders(t)
	m = send(m, errMsg{errors.New("boom")})
	assert.Equal(t, "Error: boom", m.statusMsg)
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "Error: boom")
}

func TestHelpToggle(t *testing.T) {
	m := openOrders(t)
	short := m.View()
	m = press(m, "?")
	assert.True(t, m.help.ShowAll)
	assert.NotEqual(t, short, m.View())
	assert.Contains(t, m.View(), "export")
}

func TestModalConfirmConsumesAnswer(t *testing.T) {
	c := &modalConfirm{answer: true}
	assert.True(t, c.Confirm(treetable.RemovePrompt))
	assert.False(t, c.Confirm(treetable.RemovePrompt))
}

func TestRowPath(t *testing.T) {
	m := openOrders(t)
	m = press(m, "enter", "j", "j")
	rows := m.sess.table.Rows()
	cur, ok := current(rows, m.cursor)
	require.True(t, ok)
	assert.Equal(t, "Orders[0].Items[1]", rowPath(rows, cur))
	assert.Contains(t, m.View(), "Orders[0].Items[1]")
}
