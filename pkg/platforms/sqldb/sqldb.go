// Package sqldb searches a platform's song table in a SQLite mirror.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/platforms"

	_ "modernc.org/sqlite"
)

// Source runs a parameterized LIKE search against one table.
type Source struct {
	name  string
	db    *sql.DB
	query string
}

// Open connects to the platform mirror described by p. When p.Query is
// empty the query is built from p.Table and the column mapped to p_track.
// A custom query must take the LIKE pattern as its only parameter.
func Open(p config.Platform) (*Source, error) {
	dsn := p.ResolvedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("platform %s: no dsn configured", p.Name)
	}
	query := p.Query
	if query == "" {
		track := p.SourceColumn(config.ColTrack)
		if p.Table == "" || track == "" {
			return nil, fmt.Errorf("platform %s: need a query or a table with a %s column", p.Name, config.ColTrack)
		}
		query = fmt.Sprintf(`SELECT * FROM %s WHERE %s LIKE ? ESCAPE '\'`, quoteIdent(p.Table), quoteIdent(track))
	}

	db, err := sql.Open("sqlite", "file:"+dsn+"?_pragma=busy_timeout(5000)&_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Source{name: p.Name, db: db, query: query}, nil
}

// New wraps an already open database.
func New(name string, db *sql.DB, query string) *Source {
	return &Source{name: name, db: db, query: query}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SearchSongs implements platforms.SongSource. SQLite's LIKE is
// case-insensitive for ASCII.
func (s *Source) SearchSongs(ctx context.Context, song string) ([]platforms.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, s.query, LikePattern(song))
	if err != nil {
		if strings.Contains(err.Error(), "no such table") || strings.Contains(err.Error(), "no such column") {
			return nil, platforms.Permanent(err)
		}
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []platforms.RawRow
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(platforms.RawRow, len(cols))
		for i, c := range cols {
			row[c] = vals[i].String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LikePattern builds a substring LIKE pattern with wildcards escaped.
func LikePattern(song string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(song)) + "%"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
