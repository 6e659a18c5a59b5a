package contracts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/workflowtest"
	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func nf(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }
func nt(t time.Time) sql.NullTime { return sql.NullTime{Time: t, Valid: true} }
func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type fakeSource struct {
	rows  []citibuy.PurchaseOrder
	calls int
}

func (f *fakeSource) PurchaseOrders(_ context.Context, asOf time.Time, window int) ([]citibuy.PurchaseOrder, error) {
	f.calls++
	return f.rows, nil
}

func blanket() citibuy.PurchaseOrder {
	return citibuy.PurchaseOrder{
		PONumber:       "001B1234",
		ReleaseNumber:  0,
		Agency:         ns("DGS"),
		Status:         ns("3PS"),
		Date:           nt(day(2023, 1, 5)),
		Cost:           nf(0),
		Description:    ns("Office supplies"),
		VendorID:       "00000111",
		VendorName:     ns("Acme Supply"),
		Email:          ns("ann@acme.test"),
		Street:         ns("1 Main St"),
		ContractAgency: ns("DGS"),
		StartDate:      nt(day(2023, 1, 1)),
		EndDate:        nt(day(2025, 1, 1)),
		DollarLimit:    nf(50000),
		DollarSpent:    nf(1250.5),
	}
}

func release() citibuy.PurchaseOrder {
	r := blanket()
	r.ReleaseNumber = 1
	r.Status = ns("3PI")
	r.Cost = nf(1250.5)
	r.Description = ns("Paper")
	return r
}

func openMarket() citibuy.PurchaseOrder {
	return citibuy.PurchaseOrder{
		PONumber:      "001B9999",
		ReleaseNumber: 0,
		Agency:        ns("DGS"),
		Status:        ns("3PRS"),
		Date:          nt(day(2024, 3, 1)),
		Cost:          nf(99),
		VendorID:      "00000222",
		VendorName:    ns("Beta Corp"),
	}
}

func TestProject(t *testing.T) {
	p := Project([]citibuy.PurchaseOrder{blanket(), release(), openMarket()})

	require.Len(t, p.Vendors, 2)
	require.Len(t, p.Contracts, 1)
	require.Len(t, p.PurchaseOrders, 3)

	assert.Equal(t, "00000111", p.Vendors[0][FieldVendorID])
	assert.Equal(t, "Acme Supply", p.Vendors[0][FieldTitle])
	assert.Nil(t, p.Vendors[0][FieldContact])
	assert.Equal(t, StatusActive, p.Vendors[0][FieldStatus])

	contract := p.Contracts[0]
	assert.Equal(t, "P001B1234", contract[FieldTitle])
	assert.Equal(t, 50000.0, contract[FieldDollarLimit])
	assert.Equal(t, "00000111", contract[FieldVendorLookup])

	tests := []struct {
		title    string
		poType   string
		status   string
		contract any
	}{
		{"P001B1234", workflows.TypeMasterBlanket, "3PS - Sent", "P001B1234"},
		{"P001B1234:1", workflows.TypeRelease, "3PI - In Progress", "P001B1234"},
		{"P001B9999", workflows.TypeOpenMarket, "3PRS - Ready to Send", nil},
	}
	for i, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			po := p.PurchaseOrders[i]
			assert.Equal(t, tt.title, po[FieldTitle])
			assert.Equal(t, tt.poType, po[FieldPOType])
			assert.Equal(t, tt.status, po[FieldStatus])
			assert.Equal(t, tt.contract, po[FieldContractLookup])
		})
	}
}

func TestProjectKeepsFirstDuplicate(t *testing.T) {
	agy := blanket()
	agy.ContractAgency = ns("AGY")
	agy.DollarLimit = nf(1)

	p := Project([]citibuy.PurchaseOrder{blanket(), agy})
	require.Len(t, p.Contracts, 1)
	require.Len(t, p.PurchaseOrders, 1)
	assert.Equal(t, "DGS", p.Contracts[0][FieldContractAgency])
}

func TestWorkflowRun(t *testing.T) {
	ctx := context.Background()
	store := workflowtest.NewStore()
	lists := Lists{Vendor: constants.VendorList, Contract: constants.ContractList, PurchaseOrder: constants.PurchaseOrderList}
	run := func(rows ...citibuy.PurchaseOrder) (*fakeSource, Result) {
		src := &fakeSource{rows: rows}
		w := New(src, Config{Lists: lists, Now: func() time.Time { return now }})
		res, err := workflows.Run(ctx, w, store)
		require.NoError(t, err)
		return src, Result{res.Entity(Vendor).Inserted, res.Entity(Contract).Inserted, res.Entity(PurchaseOrder).Inserted,
			res.Entity(Vendor).Closed, res.Entity(PurchaseOrder).Closed, res.Totals().Unchanged}
	}

	t.Run("first run inserts in dependency order", func(t *testing.T) {
		src, got := run(blanket(), release(), openMarket())
		assert.Equal(t, 1, src.calls)
		assert.Equal(t, Result{Vendors: 2, Contracts: 1, POs: 3}, got)

		vendor, ok := store.Find(lists.Vendor, FieldVendorID, "00000111")
		require.True(t, ok)
		contract, ok := store.Find(lists.Contract, FieldTitle, "P001B1234")
		require.True(t, ok)
		assert.Equal(t, vendor.ID, contract.Record[FieldVendorLookup])

		rel, ok := store.Find(lists.PurchaseOrder, FieldTitle, "P001B1234:1")
		require.True(t, ok)
		assert.Equal(t, vendor.ID, rel.Record[FieldVendorLookup])
		assert.Equal(t, contract.ID, rel.Record[FieldContractLookup])
		assert.Equal(t, "2023-01-05T00:00:00Z", rel.Record[FieldPODate])

		open, ok := store.Find(lists.PurchaseOrder, FieldTitle, "P001B9999")
		require.True(t, ok)
		assert.Nil(t, open.Record[FieldContractLookup])
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		_, got := run(blanket(), release(), openMarket())
		assert.Equal(t, Result{Unchanged: 6}, got)
	})

	t.Run("records gone from CitiBuy are closed", func(t *testing.T) {
		_, got := run(blanket())
		assert.Equal(t, Result{VendorsClosed: 1, POsClosed: 2, Unchanged: 3}, got)

		open, _ := store.Find(lists.PurchaseOrder, FieldTitle, "P001B9999")
		assert.Equal(t, StatusPOClosed, open.Record[FieldStatus])
		beta, _ := store.Find(lists.Vendor, FieldVendorID, "00000222")
		assert.Equal(t, StatusInactive, beta.Record[FieldStatus])
	})
}

// Result condenses a run for comparison.
type Result struct {
	Vendors, Contracts, POs  int
	VendorsClosed, POsClosed int
	Unchanged                int
}

func TestQueryUnknownEntity(t *testing.T) {
	w := New(&fakeSource{}, Config{})
	_, err := w.Query(context.Background(), "Invoice")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, Name, w.Name())

	specs := w.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, constants.PurchaseOrderList, specs[2].List)
}
