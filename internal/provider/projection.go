package provider

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"sync"

	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// projection maps the public column names of a table to select expressions.
type projection struct {
	order []string
	exprs map[string]string
}

func (p *projection) add(name, expr string) {
	if _, ok := p.exprs[name]; ok {
		return
	}
	p.order = append(p.order, name)
	p.exprs[name] = expr
}

// Registry holds the column projection of every table. It is populated from
// static maps and extended once from the live schema.
type Registry struct {
	mu     sync.RWMutex
	tables map[model.Table]*projection
}

// NewRegistry returns a registry holding the static column maps.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[model.Table]*projection)}

	// The logo blob is served through the logo route only.
	channels := r.table(model.Channels)
	for _, col := range model.Columns[model.Channel]() {
		if col != model.ColLogo {
			channels.add(col, string(model.Channels)+"."+col)
		}
	}

	programs := r.table(model.Programs)
	for _, col := range model.Columns[model.Program]() {
		programs.add(col, col)
	}
	programs.add(model.ColSeasonNumber, model.ColSeasonDisplayNumber)
	programs.add(model.ColEpisodeNumber, model.ColEpisodeDisplayNumber)

	watched := r.table(model.WatchedPrograms)
	for _, col := range model.Columns[model.WatchedProgram]() {
		if col != model.ColPackageName {
			watched.add(col, col)
		}
	}

	identity(r.table(model.RecordedPrograms), model.Columns[model.RecordedProgram]())
	identity(r.table(model.PreviewPrograms), model.Columns[model.PreviewProgram]())
	identity(r.table(model.WatchNextPrograms), model.Columns[model.WatchNextProgram]())
	return r
}

func identity(p *projection, cols []string) {
	for _, col := range cols {
		p.add(col, col)
	}
}

func (r *Registry) table(t model.Table) *projection {
	p, ok := r.tables[t]
	if !ok {
		p = &projection{exprs: make(map[string]string)}
		r.tables[t] = p
	}
	return p
}

// blobColumns are served through the blob path only and never projected.
var blobColumns = map[model.Table]string{
	model.Channels: model.ColLogo,
}

// Extend adds every live column that is not mapped yet, qualified by table.
func (r *Registry) Extend(t model.Table, liveColumns []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.table(t)
	for _, col := range liveColumns {
		if blobColumns[t] == col {
			continue
		}
		p.add(col, string(t)+"."+col)
	}
}

// Probe reads the live column set of every table and extends the maps.
func (r *Registry) Probe(ctx context.Context, db *sql.DB) error {
	for _, t := range model.Tables {
		rows, err := db.QueryContext(ctx, "SELECT * FROM "+string(t)+" LIMIT 0")
		if err != nil {
			return tv.ErrStorage.Wrap(err)
		}
		cols, err := rows.Columns()
		rows.Close()
		if err != nil {
			return tv.ErrStorage.Wrap(err)
		}
		r.Extend(t, cols)
	}
	return nil
}

// Columns returns the mapped column names of t in registration order.
func (r *Registry) Columns(t model.Table) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tables[t]
	if !ok {
		return nil
	}
	return append([]string(nil), p.order...)
}

// Has reports whether col is a mapped column of t.
func (r *Registry) Has(t model.Table, col string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tables[t]
	if !ok {
		return false
	}
	_, ok = p.exprs[col]
	return ok
}

// Project returns the select list for the requested columns. A nil request
// selects every mapped column; unknown columns are selected as NULL.
func (r *Registry) Project(t model.Table, requested []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.tables[t]
	if requested == nil {
		requested = p.order
	}
	out := make([]string, 0, len(requested))
	for _, col := range requested {
		expr, ok := p.exprs[col]
		if !ok {
			out = append(out, "NULL AS "+quoteIdent(col))
			continue
		}
		out = append(out, expr+" AS "+quoteIdent(col))
	}
	return out
}

// Filter drops every key of values that is not a mapped column of t.
func (r *Registry) Filter(t model.Table, values model.Values) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.tables[t]
	for k := range values {
		if _, ok := p.exprs[k]; !ok {
			delete(values, k)
		}
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// ValidateSortOrder rejects an order clause naming a field outside the map of
// t. Direction keywords are ignored.
func (r *Registry) ValidateSortOrder(t model.Table, order string) error {
	if order == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tables[t]
	if !ok || len(p.exprs) == 0 {
		return nil
	}
	for _, part := range strings.Split(order, ",") {
		field := strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(part, " ")))
		field = strings.ReplaceAll(field, " asc", "")
		field = strings.ReplaceAll(field, " desc", "")
		if _, ok := p.exprs[field]; !ok {
			return tv.ErrInvalidArgument.New("illegal field in sort order %q", part)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
