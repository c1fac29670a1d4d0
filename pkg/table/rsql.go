package table

import "strings"

// RSQL encodes column filters as an RSQL conjunction of case-insensitive
// contains matches, e.g. `name=="*mesa*";description=="*roble*"`.
func RSQL(filters []ColumnFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.ID == "" || f.Value == "" {
			continue
		}
		parts = append(parts, f.ID+"=="+quoteRSQL("*"+f.Value+"*"))
	}
	return strings.Join(parts, ";")
}

func quoteRSQL(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
