// Package database provides the document library for jsonview.
//
// Documents are decoded trees stored as their canonical JSON encoding
// together with a few precomputed counts, so listings never have to
// decode bodies. DBService implements Store on SQLite in WAL mode.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when no document matches an ID or name.
var ErrNotFound = errors.New("document not found")

// Store defines document persistence. The TUI, CLI and ingestion daemon
// depend on this interface rather than on SQLite.
type Store interface {
	// SaveDocument inserts or replaces the document with the same name.
	SaveDocument(doc *Document) error
	// BatchSaveDocuments saves several documents in one transaction.
	BatchSaveDocuments(docs []*Document) error
	// GetDocument looks a document up by ID, then by name.
	GetDocument(idOrName string) (*Document, error)
	// ListDocuments returns documents matching filter, newest first.
	ListDocuments(filter DocumentFilter) ([]*Document, error)
	// DeleteDocument removes a document by ID or name.
	DeleteDocument(idOrName string) error
	// GetDocumentStats returns the stored counts of one document.
	GetDocumentStats(idOrName string) (*DocumentStats, error)
	// GetLibraryStats aggregates over the whole library.
	GetLibraryStats() (*LibraryStats, error)

	// WritePendingPayload stages a raw payload for crash recovery.
	WritePendingPayload(source string, payload []byte) (int64, error)
	// CommitPendingPayload marks a staged payload as handled.
	CommitPendingPayload(writeID int64) error
	// GetPendingPayloads returns staged payloads not yet committed.
	GetPendingPayloads() ([]PendingWrite, error)

	Close() error
}

// Document is one stored tree.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	Body       []byte `json:"-"`
	Records    int    `json:"records"`
	Groups     int    `json:"groups"`
	Depth      int    `json:"depth"`
	Columns    int    `json:"columns"`
	ImportedAt int64  `json:"imported_at"` // Unix nanoseconds
}

// NewDocument encodes t and fills in its counts.
func NewDocument(name, source string, t tree.Tree) (*Document, error) {
	body, err := tree.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding document %s: %w", name, err)
	}
	st := tree.Measure(t)
	return &Document{
		Name:       name,
		Title:      t.Title,
		Source:     source,
		Body:       body,
		Records:    st.Records,
		Groups:     st.Groups,
		Depth:      st.Depth,
		Columns:    len(t.Columns()),
		ImportedAt: time.Now().UnixNano(),
	}, nil
}

// Tree decodes the stored body.
func (d *Document) Tree() (tree.Tree, error) {
	res, err := tree.DecodeBytes(d.Body)
	if err != nil {
		return tree.Tree{}, fmt.Errorf("decoding document %s: %w", d.Name, err)
	}
	return res.Tree, nil
}

// DocumentFilter defines query parameters for document listing.
type DocumentFilter struct {
	NamePrefix string `json:"name_prefix,omitempty"`
	Title      string `json:"title,omitempty"`
	Since      *int64 `json:"since,omitempty"` // Unix nanoseconds
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// DocumentStats holds the stored counts of a single document.
type DocumentStats struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Records    int    `json:"records"`
	Groups     int    `json:"groups"`
	Depth      int    `json:"depth"`
	Columns    int    `json:"columns"`
	BodyBytes  int    `json:"body_bytes"`
	ImportedAt int64  `json:"imported_at"`
}

// LibraryStats aggregates over all documents.
type LibraryStats struct {
	Documents     int    `json:"documents"`
	Records       int    `json:"records"`
	BodyBytes     int64  `json:"body_bytes"`
	Largest       string `json:"largest,omitempty"`
	LastImportAt  int64  `json:"last_import_at"`
	PendingWrites int    `json:"pending_writes"`
}

// PendingWrite represents a staged payload.
type PendingWrite struct {
	WriteID   int64  `json:"write_id"`
	Source    string `json:"source"`
	Payload   []byte `json:"payload"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// DBService implements Store using SQLite.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	stmtSaveDocument  *sql.Stmt
	stmtInsertPending *sql.Stmt
	stmtCommitPending *sql.Stmt
}

// NewDBService opens the database at path, applies the schema and
// prepares the hot statements. Use ":memory:" in tests.
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_cache_size=-64000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// exist per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{db: db, path: path}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}
	return svc, nil
}

// Path returns the database location.
func (s *DBService) Path() string { return s.path }

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtSaveDocument, err = s.db.Prepare(`
		INSERT INTO documents (doc_id, name, title, source, body,
			record_count, group_count, max_depth, column_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			body = excluded.body,
			record_count = excluded.record_count,
			group_count = excluded.group_count,
			max_depth = excluded.max_depth,
			column_count = excluded.column_count,
			imported_at = excluded.imported_at
		RETURNING doc_id
	`)
	if err != nil {
		return fmt.Errorf("preparing SaveDocument: %w", err)
	}

	s.stmtInsertPending, err = s.db.Prepare(`
		INSERT INTO pending_writes (source, payload, status, created_at) VALUES (?, ?, 'pending', ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertPending: %w", err)
	}

	s.stmtCommitPending, err = s.db.Prepare(`
		UPDATE pending_writes SET status = 'committed', committed_at = ? WHERE write_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing CommitPending: %w", err)
	}
	return nil
}

// SaveDocument inserts doc or, when a document with the same name exists,
// replaces its content while keeping its ID. doc.ID is set on return.
func (s *DBService) SaveDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveWith(s.stmtSaveDocument, doc)
}

// BatchSaveDocuments saves docs in a single transaction.
func (s *DBService) BatchSaveDocuments(docs []*Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch document transaction: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	stmt := tx.Stmt(s.stmtSaveDocument)
	for _, doc := range docs {
		if err := saveWith(stmt, doc); err != nil {
			return fmt.Errorf("batch %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch document transaction: %w", err)
	}
	return nil
}

func saveWith(stmt *sql.Stmt, doc *Document) error {
	if strings.TrimSpace(doc.Name) == "" {
		return errors.New("saving document: empty name")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.ImportedAt == 0 {
		doc.ImportedAt = time.Now().UnixNano()
	}
	err := stmt.QueryRow(
		doc.ID, doc.Name, doc.Title, doc.Source, doc.Body,
		doc.Records, doc.Groups, doc.Depth, doc.Columns, doc.ImportedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.Name, err)
	}
	return nil
}

const documentColumns = `doc_id, name, title, source, body,
	record_count, group_count, max_depth, column_count, imported_at`

// GetDocument returns the document whose ID or name is idOrName.
func (s *DBService) GetDocument(idOrName string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents
		WHERE doc_id = ? OR name = ?
		ORDER BY doc_id = ? DESC LIMIT 1`, idOrName, idOrName, idOrName)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", idOrName, err)
	}
	return doc, nil
}

// ListDocuments returns documents matching filter, most recently imported
// first. Bodies are included.
func (s *DBService) ListDocuments(filter DocumentFilter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := make([]any, 0)

	if filter.NamePrefix != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(filter.NamePrefix)+"%")
	}
	if filter.Title != "" {
		query += ` AND title = ?`
		args = append(args, filter.Title)
	}
	if filter.Since != nil {
		query += ` AND imported_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY imported_at DESC, name ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else {
		query += ` LIMIT 100`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document whose ID or name is idOrName.
func (s *DBService) DeleteDocument(idOrName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM documents WHERE doc_id = ? OR name = ?`, idOrName, idOrName)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", idOrName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", idOrName, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}
	return nil
}

// GetDocumentStats returns the stored counts of one document without
// loading its body.
func (s *DBService) GetDocumentStats(idOrName string) (*DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &DocumentStats{}
	err := s.db.QueryRow(`
		SELECT doc_id, name, record_count, group_count, max_depth, column_count,
			length(body), imported_at
		FROM documents
		WHERE doc_id = ? OR name = ?
		ORDER BY doc_id = ? DESC LIMIT 1
	`, idOrName, idOrName, idOrName).Scan(
		&st.ID, &st.Name, &st.Records, &st.Groups, &st.Depth, &st.Columns,
		&st.BodyBytes, &st.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document stats for %s: %w", idOrName, err)
	}
	return st, nil
}

// GetLibraryStats aggregates counts over all documents.
func (s *DBService) GetLibraryStats() (*LibraryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &LibraryStats{}
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(record_count), 0),
			COALESCE(SUM(length(body)), 0),
			COALESCE(MAX(imported_at), 0)
		FROM documents
	`).Scan(&st.Documents, &st.Records, &st.BodyBytes, &st.LastImportAt)
	if err != nil {
		return nil, fmt.Errorf("querying library stats: %w", err)
	}

	if st.Documents > 0 {
		err = s.db.QueryRow(`
			SELECT name FROM documents ORDER BY record_count DESC, name ASC LIMIT 1
		`).Scan(&st.Largest)
		if err != nil {
			return nil, fmt.Errorf("querying largest document: %w", err)
		}
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM pending_writes WHERE status = 'pending'`).Scan(&st.PendingWrites)
	if err != nil {
		return nil, fmt.Errorf("counting pending writes: %w", err)
	}
	return st, nil
}

// WritePendingPayload stages a raw payload read from source. Returns the
// write ID for later commitment.
func (s *DBService) WritePendingPayload(source string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.stmtInsertPending.Exec(source, payload, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("writing pending payload from %s: %w", source, err)
	}
	return result.LastInsertId()
}

// CommitPendingPayload marks a staged payload as committed.
func (s *DBService) CommitPendingPayload(writeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stmtCommitPending.Exec(time.Now().UnixNano(), writeID); err != nil {
		return fmt.Errorf("committing pending payload %d: %w", writeID, err)
	}
	return nil
}

// GetPendingPayloads returns all uncommitted payloads, oldest first.
func (s *DBService) GetPendingPayloads() ([]PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT write_id, source, payload, status, created_at
		FROM pending_writes
		WHERE status = 'pending'
		ORDER BY write_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending payloads: %w", err)
	}
	defer rows.Close()

	var writes []PendingWrite
	for rows.Next() {
		var w PendingWrite
		if err := rows.Scan(&w.WriteID, &w.Source, &w.Payload, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending write: %w", err)
		}
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

// Close closes the prepared statements and the connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []*sql.Stmt{s.stmtSaveDocument, s.stmtInsertPending, s.stmtCommitPending} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	d := &Document{}
	err := row.Scan(
		&d.ID, &d.Name, &d.Title, &d.Source, &d.Body,
		&d.Records, &d.Groups, &d.Depth, &d.Columns, &d.ImportedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
