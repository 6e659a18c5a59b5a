package sharepoint

import (
	"fmt"
	"strings"

	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

var relations = map[query.Op]string{
	query.Equals:         "eq",
	query.NotEquals:      "ne",
	query.GreaterThan:    "gt",
	query.LessThan:       "lt",
	query.GreaterOrEqual: "ge",
	query.LessOrEqual:    "le",
}

var functions = map[query.Op]string{
	query.Contains:   "contains",
	query.StartsWith: "startsWith",
	query.EndsWith:   "endsWith",
}

// ODataFilter renders a filter as a Graph $filter expression over item fields.
func ODataFilter(l *List, f query.Filter) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(f))
	for _, c := range f {
		field := "fields/" + l.APIName(c.Field)
		value := literal(c.Value)
		if rel, ok := relations[c.Op]; ok {
			parts = append(parts, fmt.Sprintf("%s %s %s", field, rel, value))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(%s,%s)", functions[c.Op], field, value))
	}
	return strings.Join(parts, " and "), nil
}

func literal(v any) string {
	switch t := records.Normalize(v).(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return records.FormatValue(t)
	}
}
