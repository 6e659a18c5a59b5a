package sharepoint

import (
	"strings"

	"github.com/agentstation/fiscal/pkg/records"
)

// lookupSuffix is appended to a lookup column's name to address the referenced item id.
const lookupSuffix = "LookupId"

// Column is a list column as reported by Graph.
type Column struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// List is a discovered SharePoint list and its column names.
type List struct {
	ID   string
	Name string

	toAPI   map[string]string // display name -> api name
	display map[string]string // api name -> display name
}

func newList(id, name string, columns []Column) *List {
	l := &List{
		ID:      id,
		Name:    name,
		toAPI:   make(map[string]string, len(columns)),
		display: make(map[string]string, len(columns)),
	}
	for _, col := range columns {
		l.toAPI[col.DisplayName] = col.Name
		l.display[col.Name] = col.DisplayName
	}
	return l
}

// APIName maps a field name to the column's API name. Display names, API names and
// their lookup id forms are accepted. Unknown names are returned unchanged.
func (l *List) APIName(field string) string {
	if api, ok := l.toAPI[field]; ok {
		return api
	}
	if _, ok := l.display[field]; ok {
		return field
	}
	if base, ok := strings.CutSuffix(field, lookupSuffix); ok {
		return l.APIName(base) + lookupSuffix
	}
	return field
}

// DisplayName maps an API name back to the column's display name.
func (l *List) DisplayName(api string) string {
	if name, ok := l.display[api]; ok {
		return name
	}
	if base, ok := strings.CutSuffix(api, lookupSuffix); ok {
		if name, ok := l.display[base]; ok {
			return name + lookupSuffix
		}
	}
	return api
}

// FromAPI converts item fields to a record keyed by display names, dropping OData
// annotations.
func (l *List) FromAPI(fields map[string]any) records.Record {
	out := make(records.Record, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "@odata.") {
			continue
		}
		out[l.DisplayName(k)] = v
	}
	return out
}

// ToAPI converts a record to item fields keyed by API names.
func (l *List) ToAPI(r records.Record) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[l.APIName(k)] = v
	}
	return out
}
