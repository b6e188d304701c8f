package repository

import (
	"fmt"
	"strings"
)

// predicateBuilder accumulates optional WHERE predicates as (clause, value)
// pairs. Values are always bound through $n placeholders; user-supplied
// input never reaches the query text itself.
type predicateBuilder struct {
	clauses []string
	args    []any
}

// add appends a predicate. The clause must contain exactly one %d verb,
// which is replaced by the placeholder position of the bound value.
func (b *predicateBuilder) add(clause string, value any) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf(clause, len(b.args)))
}

// addRepeat appends a predicate whose clause references the bound value in
// more than one %d verb; the same placeholder position fills every verb.
func (b *predicateBuilder) addRepeat(clause string, verbs int, value any) {
	b.args = append(b.args, value)
	n := len(b.args)
	positions := make([]any, verbs)
	for i := range positions {
		positions[i] = n
	}
	b.clauses = append(b.clauses, fmt.Sprintf(clause, positions...))
}

// where renders the accumulated predicates as a WHERE clause, or an empty
// string when there are none.
func (b *predicateBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// next returns the next placeholder position for clauses appended after the
// WHERE section (LIMIT/OFFSET).
func (b *predicateBuilder) next(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}
