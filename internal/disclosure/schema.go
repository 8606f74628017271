package disclosure

import (
	"strings"

	"insider-radar/internal/types"
)

// roleKeywords lists, per role, keyword sets tried in order. A column binds
// to a set when its lowercase name contains every keyword of the set.
var roleKeywords = []struct {
	role types.Role
	sets [][]string
}{
	{types.RoleActor, [][]string{{"category", "person"}}},
	{types.RoleType, [][]string{{"transaction", "type"}, {"acquis", "dispos"}}},
	{types.RoleValue, [][]string{{"value", "security"}}},
	{types.RoleMode, [][]string{{"mode", "acquis"}}},
	{types.RoleSymbol, [][]string{{"symbol"}}},
}

// ResolveColumns binds every semantic role to a column name. If any role is
// left unbound it returns a *types.SchemaMismatchError naming all of them.
func ResolveColumns(columns []string) (types.ColumnBinding, error) {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = NormalizeHeader(c)
	}

	found := make(map[types.Role]string, len(roleKeywords))
	var missing []types.Role

	for _, rk := range roleKeywords {
		col := ""
		for _, set := range rk.sets {
			if col = findColumn(normalized, set); col != "" {
				break
			}
		}
		if col == "" {
			missing = append(missing, rk.role)
			continue
		}
		found[rk.role] = col
	}

	if len(missing) > 0 {
		return types.ColumnBinding{}, &types.SchemaMismatchError{Missing: missing, Columns: normalized}
	}

	return types.ColumnBinding{
		Actor:  found[types.RoleActor],
		Type:   found[types.RoleType],
		Value:  found[types.RoleValue],
		Mode:   found[types.RoleMode],
		Symbol: found[types.RoleSymbol],
	}, nil
}

func findColumn(columns []string, keywords []string) string {
	for _, col := range columns {
		lower := strings.ToLower(col)
		matched := true
		for _, k := range keywords {
			if !strings.Contains(lower, strings.ToLower(k)) {
				matched = false
				break
			}
		}
		if matched {
			return col
		}
	}
	return ""
}
