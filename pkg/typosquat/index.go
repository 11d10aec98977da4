package typosquat

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	_ "modernc.org/sqlite" // SQLite driver
)

// ReadNames reads one package name per line, skipping blank lines and
// lines starting with '#'.
func ReadNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	return names, nil
}

// MemoryIndex is an in-memory [Index].
type MemoryIndex struct {
	mu       sync.RWMutex
	byLength map[int][]string
	seen     map[string]bool
}

// NewMemoryIndex returns an index holding names.
func NewMemoryIndex(names ...string) *MemoryIndex {
	m := &MemoryIndex{byLength: make(map[int][]string), seen: make(map[string]bool)}
	m.Add(names...)
	return m
}

// Add inserts names, ignoring duplicates.
func (m *MemoryIndex) Add(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		if n == "" || m.seen[n] {
			continue
		}
		m.seen[n] = true
		l := utf8.RuneCountInString(n)
		m.byLength[l] = append(m.byLength[l], n)
	}
}

// Len returns the number of names in the index.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}

func (m *MemoryIndex) Near(_ context.Context, length, slack int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for l := length - slack; l <= length+slack; l++ {
		out = append(out, m.byLength[l]...)
	}
	return out, nil
}

// SQLiteIndex is an [Index] backed by a SQLite database file.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	name   TEXT PRIMARY KEY,
	length INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS packages_length ON packages(length);
`

// OpenSQLiteIndex opens or creates the index at path.
func OpenSQLiteIndex(ctx context.Context, path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteIndex{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteIndex) Path() string { return s.path }

// Add inserts names in a single transaction and returns how many were new.
func (s *SQLiteIndex) Add(ctx context.Context, names []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO packages (name, length) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, n := range names {
		if n == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, n, utf8.RuneCountInString(n))
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", n, err)
		}
		if rows, _ := res.RowsAffected(); rows > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// Count returns the number of indexed names.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count packages: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) Near(ctx context.Context, length, slack int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM packages WHERE length BETWEEN ? AND ? ORDER BY name",
		length-slack, length+slack)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
