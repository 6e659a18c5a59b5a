// Package reconcile runs the synchronization of entity types from a source system into a
// remote list store, strictly in dependency order.
//
// Per entity type a run reads both sides, normalizes them, diffs them by natural key,
// resolves lookup fields against the maps of earlier entity types, submits updates and
// closures, then inserts, and finally extends the entity's lookup map with the ids the
// inserts minted. Nothing is deleted remotely: records gone from the source receive a
// closure status instead.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/fiscal/pkg/batch"
	"github.com/agentstation/fiscal/pkg/differ"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/lookup"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

// Stages reported in SyncError.
const (
	StageRead    = "read"
	StageDiff    = "diff"
	StageResolve = "resolve"
	StageWrite   = "write"
)

// Source reads the current source records of an entity type.
type Source interface {
	Query(ctx context.Context, entity string) (records.SourceSet, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, entity string) (records.SourceSet, error)

// Query implements Source.
func (f SourceFunc) Query(ctx context.Context, entity string) (records.SourceSet, error) {
	return f(ctx, entity)
}

// Store is the remote list store.
type Store interface {
	ReadAll(ctx context.Context, list string, filter query.Filter) (records.RemoteSet, error)
	batch.Submitter
}

// Orchestrator runs reconciliations.
type Orchestrator struct {
	source Source
	store  Store
	opts   *Options
}

// New creates an orchestrator.
func New(source Source, store Store, opts ...Option) (*Orchestrator, error) {
	if source == nil {
		return nil, &pkgerrors.ValidationError{Field: "source", Message: "cannot be nil"}
	}
	if store == nil {
		return nil, &pkgerrors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	options := Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{source: source, store: store, opts: options}, nil
}

// Run reconciles the entity types in the given order. A failure in entity type N leaves
// types 1..N-1 written. The partial result is returned together with the error.
func (o *Orchestrator) Run(ctx context.Context, specs []EntitySpec) (*Result, error) {
	if err := validateOrder(specs); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		DryRun:    o.opts.DryRun,
		StartTime: time.Now(),
		Maps:      lookup.Maps{},
	}
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.FromContext(ctx)
	logger.Info().
		Int("entities", len(specs)).
		Bool("dry_run", o.opts.DryRun).
		Msg("Starting reconciliation")

	var runErr error
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			runErr = pkgerrors.NewSyncError(spec.Name, StageRead, err)
			break
		}
		er, err := o.process(ctx, spec, result.Maps)
		if er != nil {
			result.Entities = append(result.Entities, *er)
			if o.opts.Recorder != nil {
				o.opts.Recorder.RecordEntity(result.RunID, er)
			}
		}
		if err != nil {
			runErr = err
			break
		}
	}

	result.Duration = time.Since(result.StartTime)
	if o.opts.Recorder != nil {
		o.opts.Recorder.RecordRun(result)
	}
	if runErr != nil {
		logger.Error().Err(runErr).Dur("duration", result.Duration).Msg("Reconciliation failed")
		return result, runErr
	}
	logger.Info().Dur("duration", result.Duration).Msg("Reconciliation complete")
	return result, nil
}

// process reconciles one entity type and registers its lookup map in maps.
func (o *Orchestrator) process(ctx context.Context, spec EntitySpec, maps lookup.Maps) (*EntityResult, error) {
	start := time.Now()
	ctx = logging.WithEntity(logging.WithList(ctx, spec.List), spec.Name)
	logger := logging.FromContext(ctx)
	er := &EntityResult{Name: spec.Name, List: spec.List}
	fail := func(stage string, err error) (*EntityResult, error) {
		er.Duration = time.Since(start)
		return er, pkgerrors.NewSyncError(spec.Name, stage, err)
	}

	remote, err := o.store.ReadAll(ctx, spec.List, spec.Filter)
	if err != nil {
		return fail(StageRead, err)
	}
	source, err := o.source.Query(ctx, spec.Name)
	if err != nil {
		return fail(StageRead, err)
	}
	logger.Debug().Int("remote", len(remote)).Int("source", len(source)).Msg("Read records")

	normalizer := records.NewNormalizer(spec.Schema)
	remote, err = normalizer.Remote(remote)
	warnNormalize(logger, er, "remote", err)
	source, err = normalizer.Set(source)
	warnNormalize(logger, er, "source", err)

	// the map is built before lookups are unresolved so it always holds remote ids
	maps[spec.Name] = lookup.FromRecords(spec.Name, remote, spec.Key)
	for _, l := range spec.Lookups {
		remote = lookup.Unresolve(maps[l.Parent], l.Field, remote)
	}

	diffOpts := []differ.Option{differ.WithEntity(spec.Name)}
	if o.opts.LastWins {
		diffOpts = append(diffOpts, differ.WithLastWins())
	}
	cs, err := differ.Diff(remote, source, spec.Key, diffOpts...)
	if err != nil {
		return fail(StageDiff, err)
	}
	er.Planned = cs.Summary()
	er.Unchanged = cs.Unchanged
	er.Unkeyed = len(cs.Unkeyed)

	inserts, updates, err := o.resolve(spec, cs, maps, er)
	if err != nil {
		return fail(StageResolve, err)
	}

	closures := o.closures(spec, cs, normalizer, er)
	for _, c := range closures {
		updates.Update(c.ID, c.Record)
	}

	logger.Info().
		Int("inserts", inserts.Len()).
		Int("updates", cs.Summary().Updates).
		Int("closures", len(closures)).
		Int("unchanged", cs.Unchanged).
		Msg("Planned changes")

	if o.opts.DryRun {
		er.Duration = time.Since(start)
		return er, nil
	}

	writer := batch.NewWriter(o.store, spec.List,
		batch.WithSize(o.opts.BatchSize),
		batch.WithConcurrency(o.opts.Concurrency))

	closed := make(map[string]bool, len(closures))
	for _, c := range closures {
		closed[c.ID] = true
	}

	er.UpdateResults, err = writer.Submit(ctx, updates)
	o.tally(logger, er, er.UpdateResults, closed)
	if err != nil {
		return fail(StageWrite, err)
	}

	// inserts go last so their ids can extend the map before the next entity type
	er.InsertResults, err = writer.Submit(ctx, inserts)
	o.tally(logger, er, er.InsertResults, closed)
	lookup.Extend(maps[spec.Name], er.InsertResults, spec.Key)
	if err != nil {
		return fail(StageWrite, err)
	}

	er.Duration = time.Since(start)
	logger.Info().
		Int("inserted", er.Inserted).
		Int("updated", er.Updated).
		Int("closed", er.Closed).
		Int("unchanged", er.Unchanged).
		Int("failed", er.Failed).
		Int("transient", er.Transient).
		Dur("duration", er.Duration).
		Msg("Entity reconciled")

	if er.Transient > 0 {
		return fail(StageWrite, transientError(er))
	}
	return er, nil
}

// resolve rewrites lookup fields of inserts and updates into parent ids and enforces
// required lookups.
func (o *Orchestrator) resolve(spec EntitySpec, cs *differ.Changeset, maps lookup.Maps, er *EntityResult) (*batch.MutationBatch, *batch.MutationBatch, error) {
	insertSet := records.SourceSet(cs.Inserts)
	updateSet := make(records.SourceSet, len(cs.UpdateIDs))
	for i, id := range cs.UpdateIDs {
		updateSet[i] = cs.Updates[id]
	}

	for _, l := range spec.Lookups {
		parent := maps[l.Parent]
		var stats lookup.Stats
		var st lookup.Stats
		insertSet, st = lookup.Resolve(parent, l.Field, insertSet)
		stats.Add(st)
		updateSet, st = lookup.Resolve(parent, l.Field, updateSet)
		stats.Add(st)

		er.Unresolved += len(stats.Unresolved)
		if err := checkRequired(spec, l, parent, stats); err != nil {
			if !o.opts.DryRun {
				return nil, nil, err
			}
			// parents are not written in a dry run, so their new ids cannot be known
			er.Warnings = append(er.Warnings, err.Error())
		}
	}

	inserts := batch.NewMutationBatch()
	for _, rec := range insertSet {
		inserts.Insert(rec)
	}
	updates := batch.NewMutationBatch()
	for i, id := range cs.UpdateIDs {
		updates.Update(id, updateSet[i])
	}
	return inserts, updates, nil
}

func checkRequired(spec EntitySpec, l LookupSpec, parent *lookup.Map, stats lookup.Stats) error {
	if !l.Required || stats.Referenced == 0 {
		return nil
	}
	if parent.Len() == 0 {
		return pkgerrors.NewOrderingError(spec.Name, l.Parent,
			fmt.Sprintf("%d records reference %s through %q but its lookup map is empty", stats.Referenced, l.Parent, l.Field))
	}
	if stats.Resolved == 0 {
		return pkgerrors.NewOrderingError(spec.Name, l.Parent,
			fmt.Sprintf("none of %d references through %q resolved", stats.Referenced, l.Field))
	}
	return nil
}

// closures returns the status updates for remote records gone from the source. Records
// that already carry the terminal value are skipped.
func (o *Orchestrator) closures(spec EntitySpec, cs *differ.Changeset, n *records.Normalizer, er *EntityResult) []records.RemoteRecord {
	if spec.Closure == nil {
		return nil
	}
	terminal := spec.Closure.Value
	if kind, ok := spec.Schema.Kind(spec.Closure.Field); ok {
		if v, err := n.Value(kind, terminal); err == nil {
			terminal = v
		}
	} else {
		terminal = records.Normalize(terminal)
	}

	var out []records.RemoteRecord
	for _, key := range cs.ClosureKeys {
		rec := cs.Closures[key]
		current := rec.Record.Get(spec.Closure.Field)
		if current != nil && records.FormatValue(current) == records.FormatValue(terminal) {
			er.AlreadyClosed++
			continue
		}
		out = append(out, records.RemoteRecord{
			ID:     rec.ID,
			Record: records.Record{spec.Closure.Field: terminal},
		})
	}
	return out
}

// tally counts sub-request outcomes and logs each rejection.
func (o *Orchestrator) tally(logger *zerolog.Logger, er *EntityResult, results batch.ResultSet, closed map[string]bool) {
	for _, res := range results {
		switch {
		case res.OK() && res.Request.IsInsert():
			er.Inserted++
		case res.OK() && closed[res.Request.TargetID]:
			er.Closed++
		case res.OK():
			er.Updated++
		case res.Transient():
			er.Transient++
		default:
			er.Failed++
			logger.Warn().
				Err(res.Err).
				Int("seq", res.Seq).
				Int("status", res.Status).
				Str("method", res.Request.Method).
				Str("target", res.Request.TargetID).
				Msg("Sub-request rejected")
		}
	}
}

func transientError(er *EntityResult) error {
	var first error
	for _, rs := range []batch.ResultSet{er.UpdateResults, er.InsertResults} {
		if t := rs.Transient(); len(t) > 0 && first == nil {
			first = t[0].Err
		}
	}
	return fmt.Errorf("%d sub-requests failed transiently: %w", er.Transient, first)
}

func warnNormalize(logger *zerolog.Logger, er *EntityResult, side string, err error) {
	if err == nil {
		return
	}
	var joined interface{ Unwrap() []error }
	count := 1
	if errors.As(err, &joined) {
		count = len(joined.Unwrap())
	}
	logger.Warn().Err(err).Str("side", side).Int("records", count).Msg("Values kept unnormalized")
	er.Warnings = append(er.Warnings, fmt.Sprintf("%s: %d records with unnormalized values", side, count))
}
