package genre

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed broadcast.yaml
var defaultTable []byte

// Mapper translates free-text broadcast genres to canonical genres.
// It is safe for concurrent use.
type Mapper struct {
	table map[string]string
}

// NewMapper loads a mapping table: a YAML document keyed by canonical genre,
// each listing the broadcast names that map to it.
func NewMapper(r io.Reader) (*Mapper, error) {
	var doc map[string][]string
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding genre table: %w", err)
	}

	m := &Mapper{table: make(map[string]string)}
	for canonical, names := range doc {
		if !IsCanonical(canonical) {
			return nil, fmt.Errorf("genre table maps to non-canonical genre %q", canonical)
		}
		for _, name := range names {
			m.table[upper(name)] = canonical
		}
	}
	return m, nil
}

// DefaultMapper returns the mapper built from the embedded table.
func DefaultMapper() *Mapper {
	m, err := NewMapper(bytes.NewReader(defaultTable))
	if err != nil {
		panic(fmt.Sprintf("embedded genre table: %v", err))
	}
	return m
}

// Lookup returns the canonical genre for one broadcast genre, or "" when unmapped.
func (m *Mapper) Lookup(broadcast string) string {
	return m.table[upper(broadcast)]
}

// Canonicalize maps an encoded broadcast genre list to an encoded canonical
// list in vocabulary order, without duplicates. It returns "" when nothing maps.
func (m *Mapper) Canonicalize(encodedBroadcast string) string {
	seen := make(map[string]bool)
	for _, g := range Decode(encodedBroadcast) {
		if c := m.Lookup(g); c != "" {
			seen[c] = true
		}
	}
	if len(seen) == 0 {
		return ""
	}
	var out []string
	for _, g := range Vocabulary {
		if seen[g] {
			out = append(out, g)
		}
	}
	return Encode(out...)
}

// upper folds case without locale rules. Casers are stateful, so one is made per call.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}
