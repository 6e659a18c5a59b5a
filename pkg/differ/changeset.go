package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/fiscal/pkg/records"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Field    string // Field name
	OldValue any    // Value in the remote record
	NewValue any    // Value in the source record
}

// Changeset is the classification of a new record set against an old one.
type Changeset struct {
	Entity string

	// Inserts are source records with no remote counterpart, in source order.
	Inserts []records.Record

	// Updates maps a remote id to the full source record that replaces it.
	Updates map[string]records.Record
	// UpdateIDs lists the keys of Updates in source order.
	UpdateIDs []string

	// Closures maps a natural key to the remote record absent from the source.
	Closures map[string]records.RemoteRecord
	// ClosureKeys lists the keys of Closures in remote order.
	ClosureKeys []string

	// Unchanged counts source records identical to their remote counterpart.
	Unchanged int

	// Changes holds the differing fields per updated id.
	Changes map[string][]FieldChange

	// Unkeyed are remote records without a natural key. They cannot be matched and are left alone.
	Unkeyed []records.RemoteRecord
}

func newChangeset(entity string) *Changeset {
	return &Changeset{
		Entity:   entity,
		Inserts:  []records.Record{},
		Updates:  map[string]records.Record{},
		Closures: map[string]records.RemoteRecord{},
		Changes:  map[string][]FieldChange{},
	}
}

// Summary provides counts for a changeset.
type Summary struct {
	Inserts   int
	Updates   int
	Closures  int
	Unchanged int
}

// Summary returns the changeset counts.
func (c *Changeset) Summary() Summary {
	return Summary{
		Inserts:   len(c.Inserts),
		Updates:   len(c.Updates),
		Closures:  len(c.Closures),
		Unchanged: c.Unchanged,
	}
}

// Total returns the number of source records covered by the changeset.
func (s Summary) Total() int {
	return s.Inserts + s.Updates + s.Unchanged
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return len(c.Inserts) > 0 || len(c.Updates) > 0 || len(c.Closures) > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return !c.HasChanges()
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if n := len(c.Inserts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d inserted", n))
	}
	if n := len(c.Updates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(c.Closures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d closed", n))
	}
	summary := strings.Join(parts, ", ")
	if c.Entity != "" {
		return fmt.Sprintf("%s: %s", c.Entity, summary)
	}
	return summary
}
