package batch

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
)

// Submitter sends one physical batch to a list and returns one result per request in
// request order. A returned error means the batch as a whole was not processed.
type Submitter interface {
	SubmitBatch(ctx context.Context, list string, reqs []Request) ([]Result, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, list string, reqs []Request) ([]Result, error)

// SubmitBatch implements Submitter.
func (f SubmitterFunc) SubmitBatch(ctx context.Context, list string, reqs []Request) ([]Result, error) {
	return f(ctx, list, reqs)
}

// Writer splits mutation batches and submits the pieces concurrently.
type Writer struct {
	submitter   Submitter
	list        string
	size        int
	concurrency int
}

// Option configures a Writer.
type Option func(*Writer)

// WithSize sets the sub-request ceiling per physical batch.
func WithSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.size = n
		}
	}
}

// WithConcurrency sets how many physical batches are in flight at once.
func WithConcurrency(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// NewWriter creates a writer for a list.
func NewWriter(submitter Submitter, list string, opts ...Option) *Writer {
	w := &Writer{
		submitter:   submitter,
		list:        list,
		size:        constants.MaxBatchRequests,
		concurrency: constants.DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// List returns the target list name.
func (w *Writer) List() string {
	return w.list
}

// Submit writes every mutation of b. Results are returned in submission order, one per
// mutation, so results[i].Seq == i+1 even when Submit fails. The requests of a physical
// batch that failed as a whole get results carrying that batch's error, with the
// error's status or 0 when the batch never got a response.
func (w *Writer) Submit(ctx context.Context, b *MutationBatch) (ResultSet, error) {
	if b == nil || b.Len() == 0 {
		return ResultSet{}, nil
	}
	chunks := Split(b.Requests(), w.size)
	parts := make([][]Result, len(chunks))
	errs := make([]error, len(chunks))

	logger := logging.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			logger.Debug().
				Str("list", w.list).
				Int("batch", i+1).
				Int("of", len(chunks)).
				Int("requests", len(chunk)).
				Msg("Submitting batch")

			results, err := w.submitter.SubmitBatch(gctx, w.list, chunk)
			if err == nil && len(results) != len(chunk) {
				err = fmt.Errorf("%d results for %d requests", len(results), len(chunk))
			}
			if err != nil {
				errs[i] = fmt.Errorf("batch %d of %d to %s: %w", i+1, len(chunks), w.list, err)
				return errs[i]
			}
			parts[i] = complete(chunk, results)
			return nil
		})
	}
	err := g.Wait()

	out := make(ResultSet, 0, b.Len())
	for i, part := range parts {
		if part == nil {
			part = failAll(chunks[i], errs[i], err)
		}
		out = append(out, part...)
	}
	return out, err
}

// failAll gives every request of a batch that was not processed a failed result.
func failAll(chunk []Request, err, fallback error) []Result {
	if err == nil {
		err = fallback
	}
	status := 0
	var apiErr *pkgerrors.APIError
	if stderrors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	out := make([]Result, len(chunk))
	for j, req := range chunk {
		out[j] = Result{Request: req, Seq: req.Seq, Status: status, Err: err}
	}
	return out
}

// Split cuts reqs into physical batches of at most size requests and numbers each
// request within its batch starting at 1.
func Split(reqs []Request, size int) [][]Request {
	if size <= 0 {
		size = constants.MaxBatchRequests
	}
	var chunks [][]Request
	for start := 0; start < len(reqs); start += size {
		end := min(start+size, len(reqs))
		chunk := make([]Request, end-start)
		copy(chunk, reqs[start:end])
		for j := range chunk {
			chunk[j].ID = strconv.Itoa(j + 1)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// complete ties each result to its request and classifies failures.
func complete(chunk []Request, results []Result) []Result {
	out := make([]Result, len(results))
	for j, res := range results {
		res.Request = chunk[j]
		res.Seq = chunk[j].Seq
		if res.ID == "" && res.OK() {
			res.ID = chunk[j].TargetID
		}
		if !res.OK() && res.Err == nil {
			res.Err = classify(chunk[j], res)
		}
		out[j] = res
	}
	return out
}

func classify(req Request, res Result) error {
	msg := res.Message
	if msg == "" {
		msg = http.StatusText(res.Status)
	}
	if pkgerrors.IsTransientStatus(res.Status) {
		return pkgerrors.NewAPIError("remote", res.Status, msg)
	}
	target := req.TargetID
	if target == "" {
		target = "new record"
	}
	return &pkgerrors.ValidationError{
		Field:   target,
		Value:   res.Status,
		Message: fmt.Sprintf("%s %s rejected: %s", req.Method, target, msg),
	}
}
