// Package db serves the content service contract from a SQLite snapshot of
// one or more wikis, for offline graph building and tests.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	source TEXT NOT NULL,
	title  TEXT NOT NULL,
	ns     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, title)
);
CREATE TABLE IF NOT EXISTS links (
	source     TEXT NOT NULL,
	from_title TEXT NOT NULL,
	to_title   TEXT NOT NULL,
	to_ns      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, from_title, to_title)
);
CREATE INDEX IF NOT EXISTS idx_links_to ON links (source, to_title);
CREATE TABLE IF NOT EXISTS extlinks (
	source TEXT NOT NULL,
	title  TEXT NOT NULL,
	url    TEXT NOT NULL,
	PRIMARY KEY (source, title, url)
);
CREATE TABLE IF NOT EXISTS categories (
	source   TEXT NOT NULL,
	title    TEXT NOT NULL,
	category TEXT NOT NULL,
	PRIMARY KEY (source, title, category)
);
CREATE INDEX IF NOT EXISTS idx_categories_category ON categories (source, category);
CREATE TABLE IF NOT EXISTS namespaces (
	source TEXT NOT NULL,
	ns     INTEGER NOT NULL,
	PRIMARY KEY (source, ns)
);
`

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens a SQLite database with WAL mode enabled and creates the
// schema if it is missing.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Stats counts the rows of each table.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	for _, q := range []struct {
		table string
		dest  *int
	}{
		{"pages", &s.Pages},
		{"links", &s.Links},
		{"extlinks", &s.ExternalLinks},
		{"categories", &s.Categories},
	} {
		if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("counting %s: %w", q.table, err)
		}
	}
	return s, nil
}
