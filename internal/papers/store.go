// Package papers provides the SQLite-backed research paper store and the
// directory watcher that registers uploaded paper files.
package papers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quillworks/quill/pkg/models"
)

// Store wraps an SQLite database holding paper records. Papers are unique
// by case-insensitive title; re-adding a known title merges metadata into
// the existing record instead of creating a second one.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DBPath returns the database path inside a papers directory.
func DBPath(papersDir string) string {
	return filepath.Join(papersDir, "papers.db")
}

// Open opens the paper database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create papers directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open paper database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{
		conn: conn,
		path: path,
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending schema migrations.
func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Papers},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// title_key holds the normalized title so uniqueness survives casing and
// whitespace differences; rowid order is insertion order.
const migrationV1Papers = `
CREATE TABLE IF NOT EXISTS papers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title_key TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	authors TEXT,
	year INTEGER NOT NULL DEFAULT 0,
	abstract TEXT,
	keywords TEXT,
	filepath TEXT,
	url TEXT,
	summary TEXT,
	key_findings TEXT,
	added_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year);
`

// Upsert inserts a paper or, when the title is already known, merges the
// non-empty fields of p into the existing record.
func (s *Store) Upsert(p *models.Paper) error {
	if p == nil {
		return fmt.Errorf("upsert paper: nil paper")
	}
	key := models.TitleKey(p.Title)
	if key == "" {
		return fmt.Errorf("upsert paper: empty title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	existing, err := scanPaper(tx.QueryRow(selectPaperColumns+" FROM papers WHERE title_key = ?", key))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("look up paper %q: %w", p.Title, err)
	}

	now := time.Now()
	if existing == nil {
		added := p.AddedAt
		if added.IsZero() {
			added = now
		}
		_, err = tx.Exec(`
			INSERT INTO papers (title_key, title, authors, year, abstract, keywords, filepath, url, summary, key_findings, added_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, key, strings.TrimSpace(p.Title), marshalList(p.Authors), p.Year, p.Abstract, marshalList(p.Keywords),
			p.Filepath, p.URL, p.Summary, marshalList(p.KeyFindings), formatTime(added), formatTime(now))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert paper %q: %w", p.Title, err)
		}
	} else {
		existing.Merge(p)
		_, err = tx.Exec(`
			UPDATE papers SET authors = ?, year = ?, abstract = ?, keywords = ?, filepath = ?, url = ?,
				summary = ?, key_findings = ?, updated_at = ?
			WHERE title_key = ?
		`, marshalList(existing.Authors), existing.Year, existing.Abstract, marshalList(existing.Keywords),
			existing.Filepath, existing.URL, existing.Summary, marshalList(existing.KeyFindings), formatTime(now), key)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("update paper %q: %w", p.Title, err)
		}
	}

	return tx.Commit()
}

// FindByTitle returns the paper with the given title (case-insensitive),
// or nil if none is stored.
func (s *Store) FindByTitle(title string) (*models.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPaper(s.conn.QueryRow(selectPaperColumns+" FROM papers WHERE title_key = ?", models.TitleKey(title)))
	if err != nil {
		return nil, fmt.Errorf("find paper %q: %w", title, err)
	}
	return p, nil
}

// List returns all papers in the order they were first added.
func (s *Store) List() ([]*models.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(selectPaperColumns + " FROM papers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var papers []*models.Paper
	for rows.Next() {
		p, err := scanPaperRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// Count returns the number of stored papers.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM papers").Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

// Summarize renders a Markdown digest of every stored paper, used as
// provider context for the outline and writing stages.
func (s *Store) Summarize() (string, error) {
	papers, err := s.List()
	if err != nil {
		return "", err
	}
	if len(papers) == 0 {
		return "No papers available.", nil
	}

	var b strings.Builder
	b.WriteString("# Papers Summary\n\n")

	for i, p := range papers {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, p.Title)

		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(p.Authors, ", "))
		}
		if p.Year != 0 {
			fmt.Fprintf(&b, "**Year:** %d\n\n", p.Year)
		}
		if p.Abstract != "" {
			fmt.Fprintf(&b, "**Abstract:** %s\n\n", p.Abstract)
		}
		if p.Summary != "" {
			fmt.Fprintf(&b, "**Summary:** %s\n\n", p.Summary)
		}
		if len(p.KeyFindings) > 0 {
			b.WriteString("**Key Findings:**\n")
			for _, finding := range p.KeyFindings {
				fmt.Fprintf(&b, "- %s\n", finding)
			}
			b.WriteString("\n")
		}

		b.WriteString("---\n\n")
	}

	return b.String(), nil
}

const selectPaperColumns = `SELECT title, authors, year, abstract, keywords, filepath, url, summary, key_findings, added_at, updated_at`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row *sql.Row) (*models.Paper, error) {
	p, err := scanPaperRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func scanPaperRow(row rowScanner) (*models.Paper, error) {
	var p models.Paper
	var authors, abstract, keywords, path, url, summary, findings sql.NullString
	var addedAt, updatedAt string

	err := row.Scan(&p.Title, &authors, &p.Year, &abstract, &keywords, &path, &url, &summary, &findings, &addedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Authors = unmarshalList(authors)
	p.Keywords = unmarshalList(keywords)
	p.KeyFindings = unmarshalList(findings)
	if abstract.Valid {
		p.Abstract = abstract.String
	}
	if path.Valid {
		p.Filepath = path.String
	}
	if url.Valid {
		p.URL = url.String
	}
	if summary.Valid {
		p.Summary = summary.String
	}
	p.AddedAt, _ = parseTime(addedAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}

// marshalList encodes a string slice as a JSON TEXT column, empty slices
// as the empty string.
func marshalList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func unmarshalList(col sql.NullString) []string {
	if !col.Valid || col.String == "" {
		return nil
	}
	var items []string
	json.Unmarshal([]byte(col.String), &items)
	return items
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
