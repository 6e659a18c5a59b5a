// Package workflowtest provides an in-memory remote list store for workflow tests.
package workflowtest

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/agentstation/fiscal/pkg/batch"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

// Store is an in-memory reconcile.Store. Items get sequential ids across all lists.
type Store struct {
	mu      sync.Mutex
	lists   map[string]records.RemoteSet
	nextID  int
	submits int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{lists: map[string]records.RemoteSet{}}
}

// Seed adds items to a list with fresh ids and returns the ids.
func (s *Store) Seed(list string, items ...records.Record) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = s.add(list, item)
	}
	return ids
}

func (s *Store) add(list string, fields records.Record) string {
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.lists[list] = append(s.lists[list], records.RemoteRecord{ID: id, Record: fields.Clone()})
	return id
}

// Items returns a copy of a list's items.
func (s *Store) Items(list string) records.RemoteSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(records.RemoteSet, len(s.lists[list]))
	for i, rec := range s.lists[list] {
		out[i] = records.RemoteRecord{ID: rec.ID, Record: rec.Record.Clone()}
	}
	return out
}

// Find returns the first item of a list whose field equals value.
func (s *Store) Find(list, field string, value any) (records.RemoteRecord, bool) {
	for _, rec := range s.Items(list) {
		if rec.Record[field] == value {
			return rec, true
		}
	}
	return records.RemoteRecord{}, false
}

// Submits returns the number of physical batches received.
func (s *Store) Submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

// ReadAll implements reconcile.Store.
func (s *Store) ReadAll(_ context.Context, list string, filter query.Filter) (records.RemoteSet, error) {
	var out records.RemoteSet
	for _, rec := range s.Items(list) {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SubmitBatch implements batch.Submitter.
func (s *Store) SubmitBatch(_ context.Context, list string, reqs []batch.Request) ([]batch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++

	results := make([]batch.Result, len(reqs))
	for i, req := range reqs {
		switch req.Method {
		case http.MethodPatch:
			results[i] = s.patch(list, req)
		case http.MethodPost:
			id := s.add(list, req.Fields)
			results[i] = batch.Result{Status: http.StatusCreated, ID: id, Fields: req.Fields.Clone()}
		default:
			results[i] = batch.Result{Status: http.StatusMethodNotAllowed, Message: req.Method + " not supported"}
		}
	}
	return results, nil
}

func (s *Store) patch(list string, req batch.Request) batch.Result {
	for _, rec := range s.lists[list] {
		if rec.ID != req.TargetID {
			continue
		}
		for k, v := range req.Fields {
			rec.Record[k] = v
		}
		return batch.Result{Status: http.StatusOK, ID: rec.ID, Fields: rec.Record.Clone()}
	}
	return batch.Result{Status: http.StatusNotFound, Message: "item not found"}
}
