// Package lookup maps parent natural keys to remote ids and rewrites child lookup
// fields between the two representations.
package lookup

import (
	"maps"

	"github.com/agentstation/fiscal/pkg/records"
)

// Map is the natural key to remote id mapping of one parent entity type.
// It is owned by a single run and is not safe for concurrent mutation.
type Map struct {
	entity string
	ids    map[string]string
	keys   map[string]string
}

// New creates an empty map for an entity type.
func New(entity string) *Map {
	return &Map{
		entity: entity,
		ids:    make(map[string]string),
		keys:   make(map[string]string),
	}
}

// FromRecords builds a map from the remote records of the parent entity type.
// Records without a natural key are skipped.
func FromRecords(entity string, set records.RemoteSet, key records.KeySpec) *Map {
	m := New(entity)
	for _, rec := range set {
		if k, ok := key.Of(rec); ok {
			m.Set(k, rec.ID)
		}
	}
	return m
}

// Entity returns the parent entity type name.
func (m *Map) Entity() string {
	return m.entity
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.ids)
}

// Get returns the remote id of a natural key.
func (m *Map) Get(key string) (string, bool) {
	id, ok := m.ids[key]
	return id, ok
}

// Key returns the natural key of a remote id.
func (m *Map) Key(id string) (string, bool) {
	k, ok := m.keys[id]
	return k, ok
}

// Set adds or replaces an entry.
func (m *Map) Set(key, id string) {
	if prev, ok := m.ids[key]; ok {
		delete(m.keys, prev)
	}
	m.ids[key] = id
	m.keys[id] = key
}

// Snapshot returns a copy of the key to id entries.
func (m *Map) Snapshot() map[string]string {
	return maps.Clone(m.ids)
}

// Maps holds the lookup maps of every entity type processed so far in a run.
type Maps map[string]*Map

// Get returns the map of an entity type, or nil.
func (ms Maps) Get(entity string) *Map {
	return ms[entity]
}
