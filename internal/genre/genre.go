// Package genre implements the canonical program genre vocabulary and the
// comma separated encoding genres are stored in.
package genre

import "strings"

// Canonical genres, in vocabulary order.
const (
	FamilyKids     = "FAMILY_KIDS"
	Sports         = "SPORTS"
	Shopping       = "SHOPPING"
	Movies         = "MOVIES"
	Comedy         = "COMEDY"
	Travel         = "TRAVEL"
	Drama          = "DRAMA"
	Education      = "EDUCATION"
	AnimalWildlife = "ANIMAL_WILDLIFE"
	News           = "NEWS"
	Gaming         = "GAMING"
	Arts           = "ARTS"
	Entertainment  = "ENTERTAINMENT"
	LifeStyle      = "LIFE_STYLE"
	Music          = "MUSIC"
	Premier        = "PREMIER"
	TechScience    = "TECH_SCIENCE"
)

// Vocabulary is the fixed set of canonical genres.
var Vocabulary = []string{
	FamilyKids, Sports, Shopping, Movies, Comedy, Travel, Drama, Education,
	AnimalWildlife, News, Gaming, Arts, Entertainment, LifeStyle, Music,
	Premier, TechScience,
}

var rank = func() map[string]int {
	m := make(map[string]int, len(Vocabulary))
	for i, g := range Vocabulary {
		m[g] = i
	}
	return m
}()

// IsCanonical reports whether g belongs to the vocabulary.
func IsCanonical(g string) bool {
	_, ok := rank[g]
	return ok
}

// AllCanonical reports whether every genre in the encoded list is canonical.
// An empty list is trivially canonical.
func AllCanonical(encoded string) bool {
	for _, g := range Decode(encoded) {
		if !IsCanonical(g) {
			return false
		}
	}
	return true
}

const (
	delimiter = ','
	quote     = '"'
)

// Encode joins genres with commas. Commas and double quotes inside a genre are
// escaped with a preceding double quote.
func Encode(genres ...string) string {
	var b strings.Builder
	for i, g := range genres {
		if i > 0 {
			b.WriteByte(delimiter)
		}
		for _, r := range g {
			if r == quote || r == delimiter {
				b.WriteByte(quote)
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decode splits an encoded genre list. Entries are trimmed and empty entries dropped.
func Decode(encoded string) []string {
	if encoded == "" {
		return nil
	}
	if !strings.ContainsAny(encoded, `,"`) {
		if g := strings.TrimSpace(encoded); g != "" {
			return []string{g}
		}
		return nil
	}

	var (
		out    []string
		cur    strings.Builder
		escape bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range encoded {
		switch {
		case r == quote && !escape:
			escape = true
			continue
		case r == delimiter && !escape:
			flush()
			continue
		}
		cur.WriteRune(r)
		escape = false
	}
	flush()
	return out
}
