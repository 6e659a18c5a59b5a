package lookup

import (
	"net/http"

	"github.com/agentstation/fiscal/pkg/batch"
	"github.com/agentstation/fiscal/pkg/records"
)

// Stats reports the outcome of resolving one lookup field over a set.
type Stats struct {
	// Referenced counts records whose field held a natural key.
	Referenced int
	// Resolved counts references found in the parent map.
	Resolved int
	// Unresolved lists the natural keys missing from the parent map, in order.
	Unresolved []string
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Referenced += other.Referenced
	s.Resolved += other.Resolved
	s.Unresolved = append(s.Unresolved, other.Unresolved...)
}

// Resolve rewrites field of every child record from the parent's natural key into the
// parent's remote id. Unknown keys become nil so the rest of the record is still written.
// The input set is not modified.
func Resolve(parent *Map, field string, child records.SourceSet) (records.SourceSet, Stats) {
	var stats Stats
	out := make(records.SourceSet, len(child))
	for i, rec := range child {
		resolved, st := ResolveRecord(parent, field, rec)
		stats.Add(st)
		out[i] = resolved
	}
	return out, stats
}

// ResolveRecord resolves field of a single record. Records without the field are
// returned as they are.
func ResolveRecord(parent *Map, field string, rec records.Record) (records.Record, Stats) {
	var stats Stats
	v, present := rec[field]
	if !present {
		return rec, stats
	}

	out := rec.Clone()
	if v == nil {
		return out, stats
	}

	key := records.FormatValue(v)
	stats.Referenced++
	if id, ok := parent.Get(key); ok {
		out[field] = id
		stats.Resolved++
	} else {
		out[field] = nil
		stats.Unresolved = append(stats.Unresolved, key)
	}
	return out, stats
}

// Unresolve rewrites field of remote child records from the parent's remote id back to
// the parent's natural key, so both sides of a diff carry natural keys. Ids unknown to
// the parent map point at no parent item and become nil, so the next write replaces them
// with a resolvable reference once.
func Unresolve(parent *Map, field string, child records.RemoteSet) records.RemoteSet {
	out := make(records.RemoteSet, len(child))
	for i, rec := range child {
		out[i] = rec
		v := rec.Record.Get(field)
		if v == nil {
			continue
		}
		fields := rec.Record.Clone()
		fields[field] = nil
		if key, ok := parent.Key(records.FormatValue(v)); ok {
			fields[field] = key
		}
		out[i] = records.RemoteRecord{ID: rec.ID, Record: fields}
	}
	return out
}

// Extend adds the ids minted by successful inserts to the parent map. The natural key is
// read from the created record's returned fields, falling back to the submitted fields.
// It returns the number of entries added.
func Extend(parent *Map, results []batch.Result, key records.KeySpec) int {
	added := 0
	for _, res := range results {
		if res.Request.Method != http.MethodPost || !res.OK() || res.ID == "" {
			continue
		}
		k, ok := key.Of(res.Fields)
		if !ok {
			k, ok = key.Of(res.Request.Fields)
		}
		if !ok {
			continue
		}
		parent.Set(k, res.ID)
		added++
	}
	return added
}
