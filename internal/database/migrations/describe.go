package migrations

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Schema is a comparable description of a store's tables. Column order is
// not part of it.
type Schema struct {
	Tables map[string]Table
}

// Table describes one table.
type Table struct {
	Columns     map[string]Column
	Indexes     map[string]Index
	ForeignKeys []ForeignKey
}

// Column describes one column as reported by table_info.
type Column struct {
	Type       string
	NotNull    bool
	Default    string // Empty when the column has no default
	PrimaryKey bool
}

// Index describes one index.
type Index struct {
	Columns []string
	Unique  bool
}

// ForeignKey describes one (possibly composite) foreign key.
type ForeignKey struct {
	Table    string
	From     []string
	To       []string
	OnUpdate string
	OnDelete string
}

// Describe reads the schema of every user table, ignoring migration bookkeeping.
func Describe(db *sql.DB) (*Schema, error) {
	names, err := tableNames(db)
	if err != nil {
		return nil, err
	}

	s := &Schema{Tables: make(map[string]Table, len(names))}
	for _, name := range names {
		t := Table{}
		if t.Columns, err = describeColumns(db, name); err != nil {
			return nil, err
		}
		if t.Indexes, err = describeIndexes(db, name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = describeForeignKeys(db, name); err != nil {
			return nil, err
		}
		s.Tables[name] = t
	}
	return s, nil
}

// String renders the schema as sorted text, one line per column, index and key.
func (s *Schema) String() string {
	var b strings.Builder
	for _, name := range sortedKeys(s.Tables) {
		t := s.Tables[name]
		fmt.Fprintf(&b, "%s\n", name)
		for _, col := range sortedKeys(t.Columns) {
			c := t.Columns[col]
			fmt.Fprintf(&b, "  column %s %s", col, c.Type)
			if c.PrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			if c.NotNull {
				b.WriteString(" NOT NULL")
			}
			if c.Default != "" {
				fmt.Fprintf(&b, " DEFAULT %s", c.Default)
			}
			b.WriteByte('\n')
		}
		for _, idx := range sortedKeys(t.Indexes) {
			i := t.Indexes[idx]
			unique := ""
			if i.Unique {
				unique = " UNIQUE"
			}
			fmt.Fprintf(&b, "  index %s(%s)%s\n", idx, strings.Join(i.Columns, ","), unique)
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "  foreign key (%s) -> %s(%s) ON UPDATE %s ON DELETE %s\n",
				strings.Join(fk.From, ","), fk.Table, strings.Join(fk.To, ","), fk.OnUpdate, fk.OnDelete)
		}
	}
	return b.String()
}

func tableNames(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func describeColumns(db *sql.DB, table string) (map[string]Column, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]Column)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		cols[name] = Column{
			Type:       strings.ToUpper(typ),
			NotNull:    notNull != 0,
			Default:    dflt.String,
			PrimaryKey: pk != 0,
		}
	}
	return cols, rows.Err()
}

func describeIndexes(db *sql.DB, table string) (map[string]Index, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA index_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %s: %w", table, err)
	}

	type entry struct {
		name   string
		unique bool
	}
	var entries []entry
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning index of %s: %w", table, err)
		}
		entries = append(entries, entry{name: name, unique: unique != 0})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make(map[string]Index, len(entries))
	for _, e := range entries {
		cols, err := indexColumns(db, e.name)
		if err != nil {
			return nil, err
		}
		indexes[e.name] = Index{Columns: cols, Unique: e.unique}
	}
	return indexes, nil
}

func indexColumns(db *sql.DB, index string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", index, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno int
			cid   int
			name  sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("scanning index %s: %w", index, err)
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

func describeForeignKeys(db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	byID := make(map[int]*ForeignKey)
	var ids []int
	for rows.Next() {
		var (
			id, seq                   int
			parent, from              string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &parent, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scanning foreign key of %s: %w", table, err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &ForeignKey{Table: parent, OnUpdate: onUpdate, OnDelete: onDelete}
			byID[id] = fk
			ids = append(ids, id)
		}
		fk.From = append(fk.From, from)
		fk.To = append(fk.To, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]ForeignKey, 0, len(ids))
	for _, id := range ids {
		fks = append(fks, *byID[id])
	}
	sort.Slice(fks, func(i, j int) bool {
		return fks[i].Table+strings.Join(fks[i].From, ",") < fks[j].Table+strings.Join(fks[j].From, ",")
	})
	return fks, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
