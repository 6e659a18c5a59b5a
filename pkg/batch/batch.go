// Package batch builds mutation batches and submits them to a remote list store in
// physical batches no larger than the store's sub-request ceiling.
package batch

import (
	"net/http"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/records"
)

// Request is one write sub-request.
type Request struct {
	// Seq is the 1-based position in the logical batch.
	Seq int
	// ID is the sub-request id within its physical batch, "1" for the first.
	ID string
	// Method is http.MethodPatch for updates and http.MethodPost for inserts.
	Method string
	// TargetID is the remote id addressed by an update, empty for inserts.
	TargetID string
	// Fields are the values to write.
	Fields records.Record
}

// IsInsert reports whether the request creates a record.
func (r Request) IsInsert() bool {
	return r.Method == http.MethodPost
}

// Result is the outcome of one sub-request.
type Result struct {
	Request Request
	// Seq mirrors Request.Seq.
	Seq int
	// Status is the HTTP-like status of the sub-request.
	Status int
	// ID is the id of the created or updated record, when reported.
	ID string
	// Fields are the values returned by the store on success.
	Fields records.Record
	// Message is the store's error message on failure.
	Message string
	// Err is set for every non-success status.
	Err error
}

// OK reports a 2xx status.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transient reports a failure worth retrying on a later run.
func (r Result) Transient() bool {
	return !r.OK() && pkgerrors.IsTransientStatus(r.Status)
}

// ResultSet holds results in submission order.
type ResultSet []Result

// Succeeded returns the successful results.
func (rs ResultSet) Succeeded() ResultSet {
	return rs.filter(func(r Result) bool { return r.OK() })
}

// Failed returns the failed results.
func (rs ResultSet) Failed() ResultSet {
	return rs.filter(func(r Result) bool { return !r.OK() })
}

// Transient returns the results that failed with a transient status.
func (rs ResultSet) Transient() ResultSet {
	return rs.filter(Result.Transient)
}

// Rejected returns the results refused by the store for the record itself.
func (rs ResultSet) Rejected() ResultSet {
	return rs.filter(func(r Result) bool { return !r.OK() && !r.Transient() })
}

func (rs ResultSet) filter(keep func(Result) bool) ResultSet {
	var out ResultSet
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// MutationBatch pairs the updates and inserts of one entity type. An id is updated at
// most once per batch.
type MutationBatch struct {
	updates map[string]records.Record
	order   []string
	inserts []records.Record
}

// NewMutationBatch creates an empty batch.
func NewMutationBatch() *MutationBatch {
	return &MutationBatch{updates: make(map[string]records.Record)}
}

// Update adds or replaces the update of a remote id.
func (b *MutationBatch) Update(id string, fields records.Record) *MutationBatch {
	if _, ok := b.updates[id]; !ok {
		b.order = append(b.order, id)
	}
	b.updates[id] = fields
	return b
}

// Insert appends a record to create.
func (b *MutationBatch) Insert(fields records.Record) *MutationBatch {
	b.inserts = append(b.inserts, fields)
	return b
}

// Len returns the number of mutations.
func (b *MutationBatch) Len() int {
	return len(b.order) + len(b.inserts)
}

// Updates returns the number of updates.
func (b *MutationBatch) Updates() int {
	return len(b.order)
}

// Inserts returns the number of inserts.
func (b *MutationBatch) Inserts() int {
	return len(b.inserts)
}

// Requests returns one request per mutation: updates in the order added, then inserts.
// Seq starts at 1.
func (b *MutationBatch) Requests() []Request {
	reqs := make([]Request, 0, b.Len())
	for _, id := range b.order {
		reqs = append(reqs, Request{
			Seq:      len(reqs) + 1,
			Method:   http.MethodPatch,
			TargetID: id,
			Fields:   b.updates[id],
		})
	}
	for _, fields := range b.inserts {
		reqs = append(reqs, Request{
			Seq:    len(reqs) + 1,
			Method: http.MethodPost,
			Fields: fields,
		})
	}
	return reqs
}
