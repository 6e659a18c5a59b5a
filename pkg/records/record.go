// Package records defines the record model shared by the source client, the remote
// list store client and the reconciliation engine.
//
// A Record is a flat mapping from field name to a scalar value. After normalization
// every value is one of: nil, string, float64 or bool. Dates are carried as strings in
// the single wire format constants.DateWireFormat so they compare by equality.
package records

import "maps"

// Fielder is implemented by every record flavor the diff engine can compare.
type Fielder interface {
	Fields() Record
}

// Record is a source-side record: field name to scalar value, no store identifier.
type Record map[string]any

// Fields implements Fielder.
func (r Record) Fields() Record {
	return r
}

// Get returns the value of a field, nil when absent.
func (r Record) Get(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

// Has reports whether the field is present, even when its value is nil.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// RemoteRecord is a record read from the remote list store. ID is assigned by the store
// and stable for the record's lifetime.
type RemoteRecord struct {
	ID     string
	Record Record
}

// Fields implements Fielder.
func (r RemoteRecord) Fields() Record {
	return r.Record
}

// SourceSet is an ordered set of source records of one entity type.
type SourceSet []Record

// RemoteSet is an ordered set of remote records of one entity type.
type RemoteSet []RemoteRecord

// IDs returns the store identifiers of the set in order.
func (s RemoteSet) IDs() []string {
	ids := make([]string, len(s))
	for i, r := range s {
		ids[i] = r.ID
	}
	return ids
}
