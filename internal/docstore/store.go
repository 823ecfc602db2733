// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docstore persists fetched documents and citation checks in a
// local SQLite archive with FTS5 full-text search, so repeat reads and
// offline searches do not spend provider quota.
//
// Build with -tags sqlite_fts5: mattn/go-sqlite3 omits the FTS5 module
// otherwise and opening the schema fails with "no such module: fts5".
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintell/lexsearch/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "documents.db"
)

// Store manages the document archive database.
type Store struct {
	db *sql.DB
}

// New opens or creates the archive at dir/index/documents.db, creating
// the schema if it does not exist.
func New(dir string) (*Store, error) {
	dbDir := filepath.Join(dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			provider TEXT NOT NULL,
			citation TEXT,
			title TEXT,
			court TEXT,
			jurisdiction TEXT,
			document_type TEXT,
			date TEXT,
			content TEXT,
			fetched_at TEXT NOT NULL,
			UNIQUE(provider, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_citation ON documents(citation)`,
		`CREATE TABLE IF NOT EXISTS citation_checks (
			citation TEXT NOT NULL,
			provider TEXT NOT NULL,
			normalized TEXT,
			valid INTEGER NOT NULL,
			treatment TEXT,
			message TEXT,
			checked_at TEXT NOT NULL,
			PRIMARY KEY(citation, provider)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over title and content, kept in sync by
	// triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(title, content, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
				INSERT INTO documents_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

const dateFmt = "2006-01-02"

// SaveDocument upserts a fetched document. Re-fetching a document
// refreshes its content and fetch time.
func (s *Store) SaveDocument(ctx context.Context, doc types.Document) error {
	var date string
	if !doc.Date.IsZero() {
		date = doc.Date.Format(dateFmt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, provider, citation, title, court, jurisdiction, document_type, date, content, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider, id) DO UPDATE SET
			citation=excluded.citation, title=excluded.title, court=excluded.court,
			jurisdiction=excluded.jurisdiction, document_type=excluded.document_type,
			date=excluded.date, content=excluded.content, fetched_at=excluded.fetched_at`,
		doc.ID, doc.Provider, doc.Citation, doc.Title, doc.Court, doc.Jurisdiction,
		doc.DocumentType, date, doc.Content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving document %s/%s: %w", doc.Provider, doc.ID, err)
	}
	return nil
}

// GetDocument returns an archived document, with found=false when the
// archive has no copy.
func (s *Store) GetDocument(ctx context.Context, provider, id string) (types.Document, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, provider, citation, title, court, jurisdiction, document_type, date, content
		 FROM documents WHERE provider = ? AND id = ?`, provider, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return types.Document{}, false, nil
	}
	if err != nil {
		return types.Document{}, false, fmt.Errorf("reading document %s/%s: %w", provider, id, err)
	}
	return doc, true, nil
}

// SaveCitation records a citation check outcome.
func (s *Store) SaveCitation(ctx context.Context, v types.CitationValidation) error {
	valid := 0
	if v.Valid {
		valid = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO citation_checks (citation, provider, normalized, valid, treatment, message, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(citation, provider) DO UPDATE SET
			normalized=excluded.normalized, valid=excluded.valid,
			treatment=excluded.treatment, message=excluded.message, checked_at=excluded.checked_at`,
		v.Citation, v.Provider, v.Normalized, valid, v.Treatment, v.Message,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving citation check %q: %w", v.Citation, err)
	}
	return nil
}

// Search runs an FTS5 full-text query over archived documents, ranked
// by relevance, returning at most limit documents.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]types.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.provider, d.citation, d.title, d.court, d.jurisdiction, d.document_type, d.date, d.content
		 FROM documents_fts
		 JOIN documents d ON d.rowid = documents_fts.rowid
		 WHERE documents_fts MATCH ?
		 ORDER BY documents_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("archive search: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (types.Document, error) {
	var doc types.Document
	var date string
	err := row.Scan(&doc.ID, &doc.Provider, &doc.Citation, &doc.Title, &doc.Court,
		&doc.Jurisdiction, &doc.DocumentType, &date, &doc.Content)
	if err != nil {
		return types.Document{}, err
	}
	if date != "" {
		if t, parseErr := time.Parse(dateFmt, date); parseErr == nil {
			doc.Date = t
		}
	}
	return doc, nil
}
