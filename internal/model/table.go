package model

import "fmt"

// Table names a relational table of the store.
type Table string

const (
	Channels          Table = "channels"
	Programs          Table = "programs"
	WatchedPrograms   Table = "watched_programs"
	RecordedPrograms  Table = "recorded_programs"
	PreviewPrograms   Table = "preview_programs"
	WatchNextPrograms Table = "watch_next_programs"
)

// Tables lists every table in creation order.
var Tables = []Table{Channels, Programs, WatchedPrograms, RecordedPrograms, PreviewPrograms, WatchNextPrograms}

// Kind returns the singular resource name used in identifiers and content types.
func (t Table) Kind() string {
	switch t {
	case Channels:
		return "channel"
	case Programs:
		return "program"
	case WatchedPrograms:
		return "watched_program"
	case RecordedPrograms:
		return "recorded_program"
	case PreviewPrograms:
		return "preview_program"
	case WatchNextPrograms:
		return "watch_next_program"
	}
	return string(t)
}

// TableForKind is the inverse of Kind.
func TableForKind(kind string) (Table, error) {
	for _, t := range Tables {
		if t.Kind() == kind {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind: %q", kind)
}

// Owned reports whether rows carry a package_name owner that access rules apply to.
func (t Table) Owned() bool {
	return t != WatchedPrograms
}
