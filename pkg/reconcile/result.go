package reconcile

import (
	"fmt"
	"time"

	"github.com/agentstation/fiscal/pkg/batch"
	"github.com/agentstation/fiscal/pkg/differ"
	"github.com/agentstation/fiscal/pkg/lookup"
)

// Result is the outcome of a run.
type Result struct {
	RunID     string
	DryRun    bool
	StartTime time.Time
	Duration  time.Duration

	// Maps are the lookup maps of every processed entity type, extended with the ids
	// minted during the run.
	Maps lookup.Maps

	// Entities holds one result per processed entity type, in order.
	Entities []EntityResult
}

// Entity returns the result of an entity type, or nil.
func (r *Result) Entity(name string) *EntityResult {
	for i := range r.Entities {
		if r.Entities[i].Name == name {
			return &r.Entities[i]
		}
	}
	return nil
}

// Totals sums the entity results.
func (r *Result) Totals() EntityResult {
	total := EntityResult{Name: "total"}
	for _, e := range r.Entities {
		total.Inserted += e.Inserted
		total.Updated += e.Updated
		total.Closed += e.Closed
		total.Unchanged += e.Unchanged
		total.Failed += e.Failed
		total.Transient += e.Transient
	}
	return total
}

// EntityResult is the outcome for one entity type.
type EntityResult struct {
	Name string
	List string

	// Planned is the diff classification before any write.
	Planned differ.Summary

	Inserted      int // successful inserts
	Updated       int // successful updates
	Closed        int // successful closures
	AlreadyClosed int // closures skipped because they carry the terminal value
	Unchanged     int
	Failed        int // sub-requests rejected by the store
	Transient     int // sub-requests failed with a transient status
	Unkeyed       int // remote records without a natural key
	Unresolved    int // lookup references missing from their parent map

	Warnings []string

	UpdateResults batch.ResultSet // updates then closures
	InsertResults batch.ResultSet
	Duration      time.Duration
}

// String implements fmt.Stringer.
func (e EntityResult) String() string {
	return fmt.Sprintf("%s: %d inserted, %d updated, %d closed, %d unchanged, %d failed",
		e.Name, e.Inserted, e.Updated, e.Closed, e.Unchanged, e.Failed+e.Transient)
}
