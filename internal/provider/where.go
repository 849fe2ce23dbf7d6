package provider

import "strings"

// Where accumulates filter clauses joined with AND and their positional args.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a clause. Each clause is parenthesized when rendered.
func (w *Where) Add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// Append adds every clause of other.
func (w *Where) Append(other Where) {
	w.clauses = append(w.clauses, other.clauses...)
	w.args = append(w.args, other.args...)
}

// Empty reports whether no clause was added.
func (w Where) Empty() bool {
	return len(w.clauses) == 0
}

// SQL renders the clauses and returns them with their args. An empty Where
// renders as "".
func (w Where) SQL() (string, []any) {
	if len(w.clauses) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, c := range w.clauses {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		b.WriteString(c)
		b.WriteString(")")
	}
	return b.String(), append([]any(nil), w.args...)
}

// clause renders w as a " WHERE ..." suffix.
func (w Where) clause() (string, []any) {
	sql, args := w.SQL()
	if sql == "" {
		return "", nil
	}
	return " WHERE " + sql, args
}
