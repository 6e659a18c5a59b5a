package reconcile

import (
	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
)

// Recorder observes run outcomes, e.g. for metrics.
type Recorder interface {
	RecordEntity(runID string, result *EntityResult)
	RecordRun(result *Result)
}

// Options controls a run.
type Options struct {
	DryRun      bool     // Diff and resolve without submitting
	LastWins    bool     // Accept duplicate natural keys, last record wins
	BatchSize   int      // Sub-requests per physical batch
	Concurrency int      // Physical batches in flight
	Recorder    Recorder // Optional observer
}

// Option is a function that configures Options.
type Option func(*Options)

// Defaults returns the default run options.
func Defaults() *Options {
	return &Options{
		BatchSize:   constants.MaxBatchRequests,
		Concurrency: constants.DefaultBatchConcurrency,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the options are usable.
func (o *Options) Validate() error {
	if o.BatchSize <= 0 {
		return &pkgerrors.ValidationError{Field: "BatchSize", Value: o.BatchSize, Message: "must be positive"}
	}
	if o.Concurrency <= 0 {
		return &pkgerrors.ValidationError{Field: "Concurrency", Value: o.Concurrency, Message: "must be positive"}
	}
	return nil
}

// WithDryRun computes the changes without writing them.
func WithDryRun(enabled bool) Option {
	return func(o *Options) {
		o.DryRun = enabled
	}
}

// WithLastWins accepts duplicate natural keys.
func WithLastWins(enabled bool) Option {
	return func(o *Options) {
		o.LastWins = enabled
	}
}

// WithBatchSize sets the physical batch ceiling.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		o.BatchSize = n
	}
}

// WithConcurrency sets the number of physical batches in flight.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithRecorder sets the run observer.
func WithRecorder(r Recorder) Option {
	return func(o *Options) {
		o.Recorder = r
	}
}
