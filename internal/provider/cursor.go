package provider

import (
	"database/sql"

	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// Cursor is a fully read query result. URI is the identifier whose change
// notifications invalidate it.
type Cursor struct {
	URI     *tv.URI
	Columns []string
	Rows    [][]any
}

func readCursor(u *tv.URI, rows *sql.Rows) (*Cursor, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, tv.ErrStorage.Wrap(err)
	}
	c := &Cursor{URI: u, Columns: cols}
	for rows.Next() {
		row := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, tv.ErrStorage.Wrap(err)
		}
		c.Rows = append(c.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, tv.ErrStorage.Wrap(err)
	}
	return c, nil
}

// Len returns the number of rows.
func (c *Cursor) Len() int {
	return len(c.Rows)
}

// Values returns row i keyed by column name.
func (c *Cursor) Values(i int) model.Values {
	v := make(model.Values, len(c.Columns))
	for j, col := range c.Columns {
		v[col] = c.Rows[i][j]
	}
	return v
}

func (c *Cursor) Channels() ([]model.Channel, error) {
	return decode[model.Channel](c)
}

func (c *Cursor) Programs() ([]model.Program, error) {
	return decode[model.Program](c)
}

func (c *Cursor) WatchedPrograms() ([]model.WatchedProgram, error) {
	return decode[model.WatchedProgram](c)
}

func (c *Cursor) RecordedPrograms() ([]model.RecordedProgram, error) {
	return decode[model.RecordedProgram](c)
}

func (c *Cursor) PreviewPrograms() ([]model.PreviewProgram, error) {
	return decode[model.PreviewProgram](c)
}

func (c *Cursor) WatchNextPrograms() ([]model.WatchNextProgram, error) {
	return decode[model.WatchNextProgram](c)
}

func decode[T any](c *Cursor) ([]T, error) {
	out, err := model.Decode[T](c.Columns, c.Rows)
	if err != nil {
		return nil, tv.ErrDecode.Wrap(err)
	}
	return out, nil
}
