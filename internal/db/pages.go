package db

import (
	"context"
	"database/sql"
	"fmt"

	"viki/vikigraph/internal/wiki"
)

var _ wiki.Client = (*DB)(nil)

// Rows are keyed by source title.
func sourceKey(src *wiki.Source) string { return src.Title }

// ExternalLinks implements wiki.Client.
func (d *DB) ExternalLinks(ctx context.Context, src *wiki.Source, title string) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT url FROM extlinks WHERE source = ? AND title = ? ORDER BY url`,
		sourceKey(src), title)
	if err != nil {
		return nil, fmt.Errorf("querying external links: %w", err)
	}
	return scanStrings(rows)
}

// OutgoingLinks implements wiki.Client.
func (d *DB) OutgoingLinks(ctx context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT to_title, to_ns FROM links WHERE source = ? AND from_title = ? ORDER BY to_title`,
		sourceKey(src), title)
	if err != nil {
		return nil, fmt.Errorf("querying outgoing links: %w", err)
	}
	return scanRefs(rows)
}

// IncomingLinks implements wiki.Client.
func (d *DB) IncomingLinks(ctx context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT l.from_title, COALESCE(p.ns, 0)
		FROM links l
		LEFT JOIN pages p ON p.source = l.source AND p.title = l.from_title
		WHERE l.source = ? AND l.to_title = ?
		ORDER BY l.from_title
	`, sourceKey(src), title)
	if err != nil {
		return nil, fmt.Errorf("querying incoming links: %w", err)
	}
	return scanRefs(rows)
}

// PageInfo implements wiki.Client. Categories carry the "Category:" prefix.
func (d *DB) PageInfo(ctx context.Context, src *wiki.Source, title string) (wiki.PageInfo, error) {
	var ns int
	err := d.conn.QueryRowContext(ctx,
		`SELECT ns FROM pages WHERE source = ? AND title = ?`, sourceKey(src), title).Scan(&ns)
	if err == sql.ErrNoRows {
		return wiki.PageInfo{Missing: true}, nil
	}
	if err != nil {
		return wiki.PageInfo{}, fmt.Errorf("querying page: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT category FROM categories WHERE source = ? AND title = ? ORDER BY category`,
		sourceKey(src), title)
	if err != nil {
		return wiki.PageInfo{}, fmt.Errorf("querying categories: %w", err)
	}
	cats, err := scanStrings(rows)
	if err != nil {
		return wiki.PageInfo{}, err
	}
	for i, c := range cats {
		cats[i] = wiki.CategoryPrefix + c
	}
	return wiki.PageInfo{Categories: cats}, nil
}

// ContentNamespaces implements wiki.Client. A source without namespace rows
// reports wiki.ErrUnknownAction.
func (d *DB) ContentNamespaces(ctx context.Context, src *wiki.Source) ([]int, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT ns FROM namespaces WHERE source = ? ORDER BY ns`, sourceKey(src))
	if err != nil {
		return nil, fmt.Errorf("querying namespaces: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var ns int
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, wiki.ErrUnknownAction
	}
	return out, nil
}

// CategoryMembers implements wiki.Client.
func (d *DB) CategoryMembers(ctx context.Context, src *wiki.Source, category string) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT title FROM categories WHERE source = ? AND category = ? ORDER BY title`,
		sourceKey(src), wiki.StripCategory(category))
	if err != nil {
		return nil, fmt.Errorf("querying category members: %w", err)
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanRefs(rows *sql.Rows) ([]wiki.PageRef, error) {
	defer rows.Close()
	var out []wiki.PageRef
	for rows.Next() {
		var r wiki.PageRef
		if err := rows.Scan(&r.Title, &r.NS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
