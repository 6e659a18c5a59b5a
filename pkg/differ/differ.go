// Package differ compares remote record sets against source record sets by natural key.
package differ

import (
	"errors"
	"fmt"
	"slices"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/records"
)

// Differ handles change detection between record sets.
type Differ interface {
	// Diff classifies every record of updated as an insert, an update or unchanged,
	// and every record of existing that no longer appears as a closure.
	// Both sides must already be normalized.
	Diff(existing records.RemoteSet, updated records.SourceSet, key records.KeySpec) (*Changeset, error)
}

// differ is the default implementation of Differ.
type differ struct {
	entity       string
	ignoreFields map[string]bool
	lastWins     bool
	tracking     bool
}

// New creates a Differ.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff is a convenience wrapper around New(opts...).Diff.
func Diff(existing records.RemoteSet, updated records.SourceSet, key records.KeySpec, opts ...Option) (*Changeset, error) {
	return New(opts...).Diff(existing, updated, key)
}

// Diff implements Differ.
func (d *differ) Diff(existing records.RemoteSet, updated records.SourceSet, key records.KeySpec) (*Changeset, error) {
	if len(key.Fields) == 0 {
		return nil, &pkgerrors.ValidationError{Field: "key", Message: "natural key has no fields"}
	}

	cs := newChangeset(d.entity)

	index, order, err := d.index(existing, key, cs)
	if err != nil {
		return nil, err
	}
	if err := d.checkSource(updated, key); err != nil {
		return nil, err
	}
	if d.lastWins {
		updated = dedupe(updated, key)
	}

	for _, rec := range updated {
		k, _ := key.Of(rec)
		old, found := index[k]
		if !found {
			cs.Inserts = append(cs.Inserts, rec)
			continue
		}
		delete(index, k)

		changes := d.compare(old.Record, rec)
		if len(changes) == 0 {
			cs.Unchanged++
			continue
		}
		cs.UpdateIDs = append(cs.UpdateIDs, old.ID)
		cs.Updates[old.ID] = rec
		if d.tracking {
			cs.Changes[old.ID] = changes
		}
	}

	// what is left in the index no longer exists in the source
	for _, k := range order {
		if old, ok := index[k]; ok {
			cs.Closures[k] = old
			cs.ClosureKeys = append(cs.ClosureKeys, k)
		}
	}

	return cs, nil
}

// index builds the working map of existing records, returning keys in first-seen order.
func (d *differ) index(existing records.RemoteSet, key records.KeySpec, cs *Changeset) (map[string]records.RemoteRecord, []string, error) {
	index := make(map[string]records.RemoteRecord, len(existing))
	order := make([]string, 0, len(existing))
	counts := make(map[string]int)

	for _, rec := range existing {
		k, ok := key.Of(rec)
		if !ok {
			cs.Unkeyed = append(cs.Unkeyed, rec)
			continue
		}
		counts[k]++
		if _, seen := index[k]; !seen {
			order = append(order, k)
		}
		index[k] = rec
	}

	if err := d.duplicates("remote", order, counts); err != nil {
		return nil, nil, err
	}
	return index, order, nil
}

// checkSource rejects source records that cannot be addressed or collide on their key.
func (d *differ) checkSource(updated records.SourceSet, key records.KeySpec) error {
	counts := make(map[string]int, len(updated))
	order := make([]string, 0, len(updated))
	for i, rec := range updated {
		k, ok := key.Of(rec)
		if !ok {
			return &pkgerrors.ValidationError{
				Field:   key.String(),
				Value:   i,
				Message: fmt.Sprintf("%s source record %d has no natural key", d.name(), i),
			}
		}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	return d.duplicates("source", order, counts)
}

func (d *differ) duplicates(side string, order []string, counts map[string]int) error {
	if d.lastWins {
		return nil
	}
	var errs []error
	for _, k := range order {
		if counts[k] > 1 {
			errs = append(errs, &pkgerrors.DuplicateKeyError{Entity: d.name(), Side: side, Key: k, Count: counts[k]})
		}
	}
	return errors.Join(errs...)
}

// dedupe keeps the last record for each key at the position of the first.
func dedupe(updated records.SourceSet, key records.KeySpec) records.SourceSet {
	pos := make(map[string]int, len(updated))
	out := make(records.SourceSet, 0, len(updated))
	for _, rec := range updated {
		k, _ := key.Of(rec)
		if i, ok := pos[k]; ok {
			out[i] = rec
			continue
		}
		pos[k] = len(out)
		out = append(out, rec)
	}
	return out
}

// compare returns the fields of updated whose value differs in existing.
// Fields absent from updated are never compared.
func (d *differ) compare(existing, updated records.Record) []FieldChange {
	fields := make([]string, 0, len(updated))
	for field := range updated {
		if !d.ignoreFields[field] {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)

	var changes []FieldChange
	for _, field := range fields {
		oldValue, newValue := existing.Get(field), updated[field]
		if equal(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		if !d.tracking {
			break
		}
	}
	return changes
}

func (d *differ) name() string {
	if d.entity == "" {
		return "record"
	}
	return d.entity
}

// equal compares two normalized scalars.
func equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return records.FormatValue(a) == records.FormatValue(b) && b != nil
	}
}
