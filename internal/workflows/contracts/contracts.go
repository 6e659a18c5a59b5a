// Package contracts implements the contract_management workflow: active vendors,
// blanket contracts, and purchase orders from CitiBuy are reconciled into their
// SharePoint lists, in that order.
package contracts

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/reconcile"
	"github.com/agentstation/fiscal/pkg/records"
)

// Name is the workflow's command name.
const Name = "contract_management"

// Entity type names, in processing order.
const (
	Vendor        = "Vendor"
	Contract      = "Contract"
	PurchaseOrder = "PurchaseOrder"
)

// Source reads the PO projection from CitiBuy.
type Source interface {
	PurchaseOrders(ctx context.Context, asOf time.Time, closedWindow int) ([]citibuy.PurchaseOrder, error)
}

// Lists names the remote lists of the workflow.
type Lists struct {
	Vendor        string `mapstructure:"vendor"`
	Contract      string `mapstructure:"contract"`
	PurchaseOrder string `mapstructure:"po"`
}

// Config configures the workflow.
type Config struct {
	Lists Lists

	// ClosedWindow keeps contracts that ended within this many days.
	ClosedWindow int

	// Now returns the reference time of the run.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.Lists.Vendor == "" {
		c.Lists.Vendor = constants.VendorList
	}
	if c.Lists.Contract == "" {
		c.Lists.Contract = constants.ContractList
	}
	if c.Lists.PurchaseOrder == "" {
		c.Lists.PurchaseOrder = constants.PurchaseOrderList
	}
	if c.ClosedWindow <= 0 {
		c.ClosedWindow = constants.ContractClosedWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Workflow is the contract_management workflow.
type Workflow struct {
	src Source
	cfg Config

	mu         sync.Mutex
	projection *Projection
}

var _ workflows.Workflow = (*Workflow)(nil)

// New creates the workflow.
func New(src Source, cfg Config) *Workflow {
	cfg.defaults()
	return &Workflow{src: src, cfg: cfg}
}

// Name implements workflows.Workflow.
func (w *Workflow) Name() string {
	return Name
}

// Specs implements workflows.Workflow.
func (w *Workflow) Specs() []reconcile.EntitySpec {
	return Specs(w.cfg.Lists)
}

// Query implements reconcile.Source. The PO projection is read once per workflow and
// shared by the three entity types.
func (w *Workflow) Query(ctx context.Context, entity string) (records.SourceSet, error) {
	p, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	switch entity {
	case Vendor:
		return p.Vendors, nil
	case Contract:
		return p.Contracts, nil
	case PurchaseOrder:
		return p.PurchaseOrders, nil
	default:
		return nil, pkgerrors.NewNotFoundError("entity", entity)
	}
}

func (w *Workflow) load(ctx context.Context) (*Projection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.projection != nil {
		return w.projection, nil
	}
	rows, err := w.src.PurchaseOrders(ctx, w.cfg.Now(), w.cfg.ClosedWindow)
	if err != nil {
		return nil, err
	}
	w.projection = Project(rows)

	logging.FromContext(ctx).Info().
		Int("rows", len(rows)).
		Int("vendors", len(w.projection.Vendors)).
		Int("contracts", len(w.projection.Contracts)).
		Int("purchase_orders", len(w.projection.PurchaseOrders)).
		Msg("Loaded CitiBuy purchase orders")
	return w.projection, nil
}
