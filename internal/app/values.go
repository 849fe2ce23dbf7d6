package app

import (
	"fmt"
	"strconv"
	"strings"

	"tvp-go/internal/model"
)

// ParseAssignments turns command-line "column=value" pairs into a value bag.
// Integers become int64, the literal NULL becomes a NULL value and anything
// else is kept as text.
func ParseAssignments(args []string) (model.Values, error) {
	values := model.Values{}
	for _, arg := range args {
		col, raw, ok := strings.Cut(arg, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("expected column=value, got %q", arg)
		}
		values.Set(col, parseScalar(raw))
	}
	return values, nil
}

func parseScalar(raw string) any {
	if raw == "NULL" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
