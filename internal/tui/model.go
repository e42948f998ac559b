package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
	"github.com/Mr-Dark-debug/jsonview/internal/treetable"
)

// ────────────────────────────────────────────────────────────
// Screens
// ────────────────────────────────────────────────────────────

type screen int

const (
	screenLibrary screen = iota
	screenDocument
)

// statusEmpty is shown once the root group has no rows left.
const statusEmpty = "document is empty"

// ────────────────────────────────────────────────────────────
// Session
// ────────────────────────────────────────────────────────────

// modalConfirm answers the table's synchronous confirmation with the
// decision the user already made in the modal. Each answer is used once.
type modalConfirm struct {
	answer bool
}

func (c *modalConfirm) Confirm(string) bool {
	a := c.answer
	c.answer = false
	return a
}

// session is the open document. It is shared by pointer so the table's
// callbacks survive the value copies bubbletea makes of Model.
type session struct {
	doc     *source.Document
	table   *treetable.Table
	confirm *modalConfirm
	emptied bool
}

func newSession(doc *source.Document, confirmRemoval bool, logger *log.Logger) *session {
	s := &session{doc: doc, confirm: &modalConfirm{}}
	confirm := treetable.Approve
	if confirmRemoval {
		confirm = s.confirm.Confirm
	}
	s.table = treetable.New(doc.Tree,
		treetable.WithConfirm(confirm),
		treetable.WithOnEmptied(func() { s.emptied = true }),
		treetable.WithLogger(logger),
		treetable.WithStyles(tableStyles()),
	)
	return s
}

// reset shows a new document. The table drops all local state.
func (s *session) reset(doc *source.Document) {
	s.doc = doc
	s.emptied = false
	s.confirm.answer = false
	s.table.SetTree(doc.Tree)
}

// ────────────────────────────────────────────────────────────
// Options
// ────────────────────────────────────────────────────────────

// Option configures a Model.
type Option func(*Model)

// WithRef opens ref directly instead of the library screen.
func WithRef(ref string) Option {
	return func(m *Model) { m.ref = ref }
}

// WithDisplayName names the open document in the status bar, the detail
// panel and export file names when ref is a stand-in, such as a temp
// file holding stdin.
func WithDisplayName(name string) Option {
	return func(m *Model) { m.displayName = name }
}

// WithSourceOptions sets how references are loaded.
func WithSourceOptions(o source.Options) Option {
	return func(m *Model) { m.opts = o }
}

// WithConfirmRemoval controls the removal modal. When off, rows are
// removed as soon as the remove key is pressed.
func WithConfirmRemoval(on bool) Option {
	return func(m *Model) { m.confirmRemoval = on }
}

// WithLogger sets the logger. It must not write to the terminal.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithReloads reloads the open document on every receive from ch.
func WithReloads(ch <-chan struct{}) Option {
	return func(m *Model) { m.reloads = ch }
}

// WithExportDir sets where the export key writes.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Model is the root BubbleTea model for the jsonview TUI.
// State is organized by concern; rendering is delegated
// to component functions in separate files.
type Model struct {
	store  database.Store
	opts   source.Options
	logger *log.Logger

	ref            string
	displayName    string
	confirmRemoval bool
	exportDir      string
	reloads        <-chan struct{}

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	// Library
	docs        []*database.Document
	selectedDoc int

	// Document
	sess   *session
	cursor int
	modal  *treetable.Row // pending removal

	// UI state
	screen  screen
	loading bool
	width   int
	height  int

	// Status
	statusMsg string
	err       error
}

// NewModel creates a TUI model. store may be nil when only a reference
// is viewed.
func NewModel(store database.Store, opts ...Option) Model {
	h := help.New()
	h.Styles = helpStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		store:          store,
		logger:         log.New(io.Discard),
		confirmRemoval: true,
		exportDir:      ".",
		keys:           defaultKeyMap(),
		help:           h,
		spinner:        sp,
		loading:        true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.opts.Store == nil && store != nil {
		m.opts.Store = store
	}
	if m.opts.Logger == nil {
		m.opts.Logger = m.logger
	}
	if m.ref != "" {
		m.screen = screenDocument
		m.statusMsg = "Loading " + m.label() + "..."
	} else {
		m.screen = screenLibrary
		m.statusMsg = "Loading library..."
	}
	return m
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type libraryLoadedMsg []*database.Document
type documentLoadedMsg struct{ doc *source.Document }
type exportedMsg struct {
	path    string
	records int
}
type reloadMsg struct{}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.ref != "" {
		cmds = append(cmds, m.loadDocument(m.ref))
	} else {
		cmds = append(cmds, m.loadLibrary())
	}
	if m.reloads != nil {
		cmds = append(cmds, m.waitForReload())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadLibrary() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if store == nil {
			return errMsg{source.ErrNoStore}
		}
		docs, err := store.ListDocuments(database.DocumentFilter{Limit: 500})
		if err != nil {
			return errMsg{err}
		}
		return libraryLoadedMsg(docs)
	}
}

func (m Model) loadDocument(ref string) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		doc, err := source.Load(context.Background(), ref, opts)
		if err != nil {
			return errMsg{err}
		}
		return documentLoadedMsg{doc: doc}
	}
}

func (m Model) waitForReload() tea.Cmd {
	ch := m.reloads
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

// exportView writes the tree as currently shown, local edits included.
func (m Model) exportView() tea.Cmd {
	snap := m.sess.table.Snapshot()
	path := filepath.Join(m.exportDir, source.Name(m.label())+"-view.json")
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return errMsg{fmt.Errorf("creating export: %w", err)}
		}
		if err := tree.Encode(f, snap); err != nil {
			f.Close()
			return errMsg{fmt.Errorf("writing export: %w", err)}
		}
		if err := f.Close(); err != nil {
			return errMsg{fmt.Errorf("closing export: %w", err)}
		}
		return exportedMsg{path: path, records: tree.Measure(snap).Records}
	}
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case libraryLoadedMsg:
		m.loading = false
		m.docs = []*database.Document(msg)
		m.selectedDoc = clamp(m.selectedDoc, 0, len(m.docs)-1)
		if len(m.docs) > 0 {
			m.statusMsg = fmt.Sprintf("%d documents", len(m.docs))
		} else {
			m.statusMsg = "No documents"
		}
		return m, nil

	case documentLoadedMsg:
		m.loading = false
		m.err = nil
		m.ref = msg.doc.Ref
		if m.sess == nil {
			m.sess = newSession(msg.doc, m.confirmRemoval, m.logger)
		} else {
			m.sess.reset(msg.doc)
		}
		m.cursor = 0
		m.modal = nil
		m.screen = screenDocument
		for _, w := range msg.doc.Warnings {
			m.logger.Warn("document degraded", "ref", msg.doc.Ref, "detail", w)
		}
		m.statusMsg = fmt.Sprintf("%d records", m.sess.table.Len())
		if n := len(msg.doc.Warnings); n > 0 {
			m.statusMsg += fmt.Sprintf("  %d warnings", n)
		}
		return m, nil

	case reloadMsg:
		if m.ref == "" {
			return m, m.waitForReload()
		}
		m.logger.Debug("source changed", "ref", m.ref)
		m.loading = true
		m.statusMsg = "Source changed, reloading..."
		return m, tea.Batch(m.loadDocument(m.ref), m.waitForReload(), m.spinner.Tick)

	case exportedMsg:
		m.statusMsg = fmt.Sprintf("Exported %d records to %s", msg.records, msg.path)
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		m.logger.Error("tui", "err", msg.err)
		return m, nil
	}

	return m, nil
}

// handleKey routes keyboard input based on current mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ── Modal ──

	if m.modal != nil {
		switch msg.String() {
		case "y", "Y":
			m.remove(*m.modal, true)
			m.modal = nil
		case "n", "N", "esc":
			m.remove(*m.modal, false)
			m.modal = nil
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	// ── Global ──

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.screen == screenLibrary {
		return m.handleLibraryKey(msg)
	}
	return m.handleDocumentKey(msg)
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedDoc < len(m.docs)-1 {
			m.selectedDoc++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedDoc > 0 {
			m.selectedDoc--
		}
	case key.Matches(msg, m.keys.Open):
		if m.selectedDoc < len(m.docs) {
			ref := source.StorePrefix + m.docs[m.selectedDoc].Name
			m.loading = true
			m.statusMsg = "Loading " + ref + "..."
			return m, tea.Batch(m.loadDocument(ref), m.spinner.Tick)
		}
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, tea.Batch(m.loadLibrary(), m.spinner.Tick)
	}
	return m, nil
}

func (m Model) handleDocumentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) && m.store != nil {
		m.screen = screenLibrary
		m.modal = nil
		m.loading = true
		return m, tea.Batch(m.loadLibrary(), m.spinner.Tick)
	}
	if m.sess == nil {
		return m, nil
	}

	rows := m.sess.table.Rows()
	cur, ok := current(rows, m.cursor)

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Toggle):
		if ok {
			cur.Table.ToggleExpand(cur.Index)
		}
	case key.Matches(msg, m.keys.Collapse):
		if !ok {
			break
		}
		if cur.Table.Expanded(cur.Index) {
			cur.Table.ToggleExpand(cur.Index)
		} else if parent, found := parentRow(rows, cur.Table); found {
			m.cursor = rowIndex(rows, parent)
		}
	case key.Matches(msg, m.keys.Remove):
		if !ok {
			break
		}
		if m.confirmRemoval {
			m.modal = &cur
			return m, nil
		}
		m.remove(cur, true)
	case key.Matches(msg, m.keys.Reload):
		if m.ref != "" {
			m.loading = true
			m.statusMsg = "Reloading " + m.label() + "..."
			return m, tea.Batch(m.loadDocument(m.ref), m.spinner.Tick)
		}
	case key.Matches(msg, m.keys.Export):
		return m, m.exportView()
	}

	m.clampCursor()
	return m, nil
}

// remove hands the modal's decision to the table. A declined removal
// still goes through the table so it can record the refusal.
func (m *Model) remove(row treetable.Row, answer bool) {
	if !row.Valid() {
		return
	}
	m.sess.confirm.answer = answer
	if row.Table.RemoveRow(row.Index) {
		m.statusMsg = fmt.Sprintf("Removed row %d of %s", row.Index+1, row.Table.Title())
	} else {
		m.statusMsg = "Removal cancelled"
	}
	if m.sess.emptied {
		m.statusMsg = statusEmpty
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.sess == nil {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor, 0, len(m.sess.table.Rows())-1)
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := renderHeader(&m)
	footer := renderFooter(&m)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)

	var body string
	switch {
	case m.modal != nil:
		body = renderModal(&m, bodyHeight)
	case m.screen == screenLibrary:
		body = renderLibrary(&m, bodyHeight)
	case m.sess == nil:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			emptyStateStyle.Render(m.spinner.View()+" "+m.statusMsg))
	default:
		body = m.renderMainLayout(bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderMainLayout puts the record detail beside the table on wide
// terminals.
func (m Model) renderMainLayout(totalHeight int) string {
	if m.width < 100 {
		return renderDocumentPanel(&m, m.width, totalHeight)
	}

	leftWidth := m.width * 65 / 100
	rightWidth := m.width - leftWidth

	table := renderDocumentPanel(&m, leftWidth, totalHeight)
	detail := renderDetailPanel(&m, rightWidth, totalHeight)
	return lipgloss.JoinHorizontal(lipgloss.Top, table, detail)
}
