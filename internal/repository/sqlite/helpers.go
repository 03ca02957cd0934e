package sqlite

import (
	"fmt"
	"strings"
)

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. modernc.org/sqlite exposes constraint failures only through the
// error string, so this match is the idiomatic check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// inClause expands a query containing a single %s into an IN (...) list of
// placeholders, returning the query and the matching args slice.
//
//	inClause("... WHERE id IN (%s)", []string{"a", "b"})
//	→ "... WHERE id IN (?, ?)", []any{"a", "b"}
func inClause(format string, ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return fmt.Sprintf(format, strings.Join(placeholders, ", ")), args
}

// escapeLike escapes the LIKE wildcards in a user-supplied search term so a
// query for "50%" matches the literal text instead of everything.
// Callers must pair the result with ESCAPE '\'.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
