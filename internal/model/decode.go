package model

import (
	"fmt"
	"reflect"
	"sync"
)

var fieldCache sync.Map // reflect.Type -> map[string][]int

// Decode maps result rows onto values of T using the `col` struct tags.
// Columns without a matching field are ignored; fields without a column keep
// their zero value.
func Decode[T any](columns []string, rows [][]any) ([]T, error) {
	fields := fieldsOf(reflect.TypeFor[T]())
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		v := reflect.ValueOf(&item).Elem()
		for i, col := range columns {
			idx, ok := fields[col]
			if !ok || i >= len(row) {
				continue
			}
			if err := assign(v.FieldByIndex(idx), row[i]); err != nil {
				return nil, fmt.Errorf("decoding column %s: %w", col, err)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func fieldsOf(t reflect.Type) map[string][]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string][]int)
	}
	fields := make(map[string][]int)
	collectFields(t, nil, fields)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, prefix []int, fields map[string][]int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, idx, fields)
			continue
		}
		if name := f.Tag.Get("col"); name != "" {
			fields[name] = idx
		}
	}
}

func assign(f reflect.Value, src any) error {
	if src == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	if f.Kind() == reflect.Pointer {
		elem := reflect.New(f.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		f.Set(elem)
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(AsString(src))
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, ok := AsInt64(src)
		if !ok {
			return fmt.Errorf("cannot convert %T to integer", src)
		}
		f.SetInt(n)
	case reflect.Bool:
		n, ok := AsInt64(src)
		if !ok {
			return fmt.Errorf("cannot convert %T to bool", src)
		}
		f.SetBool(n != 0)
	case reflect.Slice:
		if f.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported field type %s", f.Type())
		}
		switch b := src.(type) {
		case []byte:
			f.SetBytes(append([]byte(nil), b...))
		case string:
			f.SetBytes([]byte(b))
		default:
			return fmt.Errorf("cannot convert %T to bytes", src)
		}
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

// Columns returns the column names tagged on T in field order, embedded
// structs first where they are declared first.
func Columns[T any]() []string {
	var cols []string
	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type)
				continue
			}
			if name := f.Tag.Get("col"); name != "" {
				cols = append(cols, name)
			}
		}
	}
	walk(reflect.TypeFor[T]())
	return cols
}
