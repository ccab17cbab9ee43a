// Package dialect names the supported SQL dialects and holds the few
// behaviours that differ between them: placeholder syntax and the preset
// Go-type to column-type mappings used for DDL.
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//
// # Placeholders
//
// Compiled queries always use '?' placeholders. Rebind rewrites them to
// $1..$n for PostgreSQL right before execution:
//
//	dialect.Rebind(dialect.Postgres, "SELECT u.id FROM user AS u WHERE u.id = ?")
//	// SELECT u.id FROM user AS u WHERE u.id = $1
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormato/query"
)

// Dialect names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Normalize maps common spellings of a dialect name to its constant.
func Normalize(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported dialect %q", name)
}

// FromURL infers the dialect of a connection string: postgres:// and
// postgresql:// URLs are PostgreSQL; sqlite:// and file: URLs, ":memory:"
// and paths ending in .db, .sqlite or .sqlite3 are SQLite.
func FromURL(url string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite3://"),
		strings.HasPrefix(lower, "file:"), strings.HasPrefix(lower, ":memory:"):
		return SQLite, nil
	}
	path, _, _ := strings.Cut(lower, "?")
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(path, ext) {
			return SQLite, nil
		}
	}
	return "", fmt.Errorf("cannot infer dialect from %q", url)
}

// Rebind rewrites '?' placeholders for the dialect. Placeholders inside
// quoted text and comments are left alone. SQLite keeps '?'.
func Rebind(dialect, sql string) string {
	if dialect != Postgres {
		return sql
	}
	var (
		b    strings.Builder
		n    int
		last int
	)
	query.ScanPlaceholders(sql, func(offset int) {
		n++
		b.WriteString(sql[last:offset])
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
		last = offset + 1
	})
	if n == 0 {
		return sql
	}
	b.WriteString(sql[last:])
	return b.String()
}
