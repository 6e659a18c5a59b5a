package reconcile

import (
	"fmt"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

// EntitySpec describes how one entity type is reconciled.
type EntitySpec struct {
	// Name identifies the entity type, e.g. "Vendor".
	Name string
	// List is the remote list holding the entity.
	List string
	// Key is the natural key shared by source and remote records.
	Key records.KeySpec
	// Schema declares field kinds for normalization.
	Schema records.Schema
	// Lookups are the fields referencing parent entity types.
	Lookups []LookupSpec
	// Closure is the status update applied to remote records gone from the source.
	// Nil leaves such records untouched.
	Closure *ClosureSpec
	// Filter restricts the remote read.
	Filter query.Filter
}

// LookupSpec is a child field holding a parent natural key before resolution and the
// parent's remote id after.
type LookupSpec struct {
	Field  string
	Parent string
	// Required lookups abort the entity before any write when they cannot be resolved.
	Required bool
}

// ClosureSpec sets Field to Value on closed records.
type ClosureSpec struct {
	Field string
	Value any
}

// Validate checks an entity spec on its own.
func (s EntitySpec) Validate() error {
	if s.Name == "" {
		return &pkgerrors.ValidationError{Field: "Name", Message: "entity name is required"}
	}
	if s.List == "" {
		return &pkgerrors.ValidationError{Field: "List", Message: fmt.Sprintf("%s has no remote list", s.Name)}
	}
	if len(s.Key.Fields) == 0 {
		return &pkgerrors.ValidationError{Field: "Key", Message: fmt.Sprintf("%s has no natural key", s.Name)}
	}
	for _, l := range s.Lookups {
		if l.Field == "" || l.Parent == "" {
			return &pkgerrors.ValidationError{Field: "Lookups", Value: l, Message: fmt.Sprintf("%s lookup needs a field and a parent", s.Name)}
		}
	}
	if s.Closure != nil && s.Closure.Field == "" {
		return &pkgerrors.ValidationError{Field: "Closure", Message: fmt.Sprintf("%s closure has no field", s.Name)}
	}
	return s.Filter.Validate()
}

// validateOrder checks each spec and that every lookup parent is processed earlier.
func validateOrder(specs []EntitySpec) error {
	if len(specs) == 0 {
		return &pkgerrors.ValidationError{Field: "specs", Message: "no entity types to reconcile"}
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return &pkgerrors.ValidationError{Field: "Name", Value: s.Name, Message: "entity type listed twice"}
		}
		for _, l := range s.Lookups {
			if !seen[l.Parent] {
				return pkgerrors.NewOrderingError(s.Name, l.Parent, "parent is not processed earlier in the run")
			}
		}
		seen[s.Name] = true
	}
	return nil
}
