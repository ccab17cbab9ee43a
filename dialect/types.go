package dialect

import "fmt"

var postgresTypes = map[string]string{
	"int":       "BIGINT",
	"int8":      "SMALLINT",
	"int16":     "SMALLINT",
	"int32":     "INTEGER",
	"int64":     "BIGINT",
	"uint":      "BIGINT",
	"uint8":     "SMALLINT",
	"uint16":    "INTEGER",
	"uint32":    "BIGINT",
	"uint64":    "BIGINT",
	"string":    "TEXT",
	"float32":   "REAL",
	"float64":   "DOUBLE PRECISION",
	"bool":      "BOOLEAN",
	"time.Time": "TIMESTAMP",
	"[]byte":    "BYTEA",
	"uuid.UUID": "UUID",
}

var sqliteTypes = map[string]string{
	"int":       "INTEGER",
	"int8":      "INTEGER",
	"int16":     "INTEGER",
	"int32":     "INTEGER",
	"int64":     "INTEGER",
	"uint":      "INTEGER",
	"uint8":     "INTEGER",
	"uint16":    "INTEGER",
	"uint32":    "INTEGER",
	"uint64":    "INTEGER",
	"string":    "TEXT",
	"float32":   "REAL",
	"float64":   "REAL",
	"bool":      "INTEGER",
	"time.Time": "TEXT",
	"[]byte":    "BLOB",
	"uuid.UUID": "TEXT",
}

// TypeMapping returns a fresh copy of the preset Go-type to column-type
// mapping for the dialect. Callers may extend or override entries.
func TypeMapping(dialect string) (map[string]string, error) {
	var src map[string]string
	switch dialect {
	case Postgres:
		src = postgresTypes
	case SQLite:
		src = sqliteTypes
	default:
		return nil, fmt.Errorf("no type mapping for dialect %q", dialect)
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}
