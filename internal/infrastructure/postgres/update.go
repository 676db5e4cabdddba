package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// buildUpdateSQL renders an UPDATE for the whitelisted columns in updates.
// Columns are sorted so the statement is stable; updated_at is always set
// and the key is bound last.
func buildUpdateSQL(table, keyColumn string, allowed map[string]bool, updates map[string]any, key string, now any) (string, []any, error) {
	if len(updates) == 0 {
		return "", nil, errors.New("no fields to update")
	}
	cols := make([]string, 0, len(updates))
	for c := range updates {
		if !allowed[c] {
			return "", nil, fmt.Errorf("unknown column %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, updates[c])
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, now)
	args = append(args, key)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", table, strings.Join(sets, ", "), keyColumn, len(args))
	return q, args, nil
}
