// Package workflows holds the reconciliation workflows and the helpers they share for
// projecting source rows into records.
package workflows

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/reconcile"
)

// Workflow is a named, ordered set of entity types reconciled from one source.
type Workflow interface {
	reconcile.Source

	// Name is the workflow's command name, e.g. "contract_management".
	Name() string

	// Specs returns the entity types in dependency order.
	Specs() []reconcile.EntitySpec
}

// Run reconciles a workflow into the store.
func Run(ctx context.Context, w Workflow, store reconcile.Store, opts ...reconcile.Option) (*reconcile.Result, error) {
	ctx = logging.WithField(ctx, "workflow", w.Name())

	o, err := reconcile.New(w, store, opts...)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Int("entities", len(w.Specs())).
		Msg("Running workflow")

	return o.Run(ctx, w.Specs())
}

// String returns the value of a nullable string, or nil.
func String(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

// Float returns the value of a nullable float, or nil.
func Float(f sql.NullFloat64) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

// Time returns the value of a nullable time, or nil.
func Time(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}

// Int returns the value of a nullable integer, or nil.
func Int(i sql.NullInt64) any {
	if !i.Valid {
		return nil
	}
	return i.Int64
}

// POTitle is the item title of a PO: P{nbr} for the PO itself, P{nbr}:{release} for a
// release.
func POTitle(poNumber string, release int64) string {
	if release == 0 {
		return "P" + poNumber
	}
	return fmt.Sprintf("P%s:%d", poNumber, release)
}

// PO types.
const (
	TypeMasterBlanket = "Master Blanket"
	TypeRelease       = "Release"
	TypeOpenMarket    = "Open Market"
)

// POType classifies a PO by its release number and whether it is on a contract.
func POType(release int64, onContract bool) string {
	switch {
	case release > 0:
		return TypeRelease
	case onContract:
		return TypeMasterBlanket
	default:
		return TypeOpenMarket
	}
}
