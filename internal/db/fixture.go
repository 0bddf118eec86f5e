package db

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"viki/vikigraph/internal/wiki"
)

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return DecodeFixture(f)
}

// DecodeFixture parses a YAML fixture.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	for i, s := range fx.Sources {
		if s.Title == "" {
			fx.Sources[i].Title = wiki.LocalTitle
		}
	}
	return &fx, nil
}

// Import writes a fixture in a single transaction. Existing rows for the
// same keys are replaced. The namespace of a link target is taken from the
// target page when the fixture defines it.
func (d *DB) Import(ctx context.Context, fx *Fixture) (Stats, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	var st Stats
	for _, src := range fx.Sources {
		for _, ns := range src.Namespaces {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO namespaces (source, ns) VALUES (?, ?)`, src.Title, ns); err != nil {
				return Stats{}, fmt.Errorf("inserting namespace: %w", err)
			}
		}

		nsOf := make(map[string]int, len(src.Pages))
		for _, p := range src.Pages {
			nsOf[p.Title] = p.NS
		}

		for _, p := range src.Pages {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO pages (source, title, ns) VALUES (?, ?, ?)`,
				src.Title, p.Title, p.NS); err != nil {
				return Stats{}, fmt.Errorf("inserting page %q: %w", p.Title, err)
			}
			st.Pages++
			for _, to := range p.Links {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO links (source, from_title, to_title, to_ns) VALUES (?, ?, ?, ?)`,
					src.Title, p.Title, to, nsOf[to]); err != nil {
					return Stats{}, fmt.Errorf("inserting link %q -> %q: %w", p.Title, to, err)
				}
				st.Links++
			}
			for _, u := range p.External {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO extlinks (source, title, url) VALUES (?, ?, ?)`,
					src.Title, p.Title, u); err != nil {
					return Stats{}, fmt.Errorf("inserting external link %q: %w", u, err)
				}
				st.ExternalLinks++
			}
			for _, c := range p.Categories {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO categories (source, title, category) VALUES (?, ?, ?)`,
					src.Title, p.Title, wiki.StripCategory(c)); err != nil {
					return Stats{}, fmt.Errorf("inserting category %q: %w", c, err)
				}
				st.Categories++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("committing import: %w", err)
	}
	return st, nil
}
