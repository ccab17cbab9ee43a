package query

// RawQuery is SQL text with '?' positional placeholders. It is paired with
// an ordered parameter list at execution time.
type RawQuery struct {
	SQL string
}

// Raw wraps hand-written SQL.
func Raw(sql string) RawQuery { return RawQuery{SQL: sql} }

func (r RawQuery) String() string { return r.SQL }

// Placeholders counts the '?' placeholders outside quoted text and
// comments.
func (r RawQuery) Placeholders() int {
	n := 0
	ScanPlaceholders(r.SQL, func(int) { n++ })
	return n
}

// Check verifies that params has one value per placeholder.
func (r RawQuery) Check(params []any) error {
	if n := r.Placeholders(); n != len(params) {
		return invalidf("query has %d placeholders but %d parameters were given", n, len(params))
	}
	return nil
}

// ScanPlaceholders calls fn with the byte offset of every '?' placeholder
// in sql, skipping quoted strings, quoted identifiers and comments.
func ScanPlaceholders(sql string, fn func(offset int)) {
	for i := 0; i < len(sql); i++ {
		switch ch := sql[i]; ch {
		case '\'', '"', '`':
			// A doubled quote inside the literal escapes itself and is
			// handled by re-entering the literal on the next byte.
			for i++; i < len(sql) && sql[i] != ch; i++ {
			}
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				for i < len(sql) && sql[i] != '\n' {
					i++
				}
			}
		case '/':
			if i+1 < len(sql) && sql[i+1] == '*' {
				i += 2
				for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
					i++
				}
				i++
			}
		case '?':
			fn(i)
		}
	}
}
