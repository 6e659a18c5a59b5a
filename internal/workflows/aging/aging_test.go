package aging

import (
	"bytes"
	"context"
	"encoding/csv"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/workflowtest"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/reconcile"
)

type fakeSource struct {
	invoices []citibuy.Invoice
	receipts []citibuy.Receipt
	err      error

	invoiceWindow, receiptWindow int
}

func (f *fakeSource) Invoices(_ context.Context, _ time.Time, window int) ([]citibuy.Invoice, error) {
	f.invoiceWindow = window
	return f.invoices, f.err
}

func (f *fakeSource) Receipts(_ context.Context, _ time.Time, window int) ([]citibuy.Receipt, error) {
	f.receiptWindow = window
	return f.receipts, f.err
}

func invoice(id, status string) citibuy.Invoice {
	return citibuy.Invoice{
		ID:             id,
		PONumber:       "001B1234",
		ReleaseNumber:  1,
		VendorID:       "00000111",
		VendorName:     sql.NullString{String: "Acme Supply", Valid: true},
		InvoiceDate:    sql.NullTime{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Valid: true},
		Amount:         sql.NullFloat64{Float64: 100, Valid: true},
		Status:         sql.NullString{String: status, Valid: true},
		POStatus:       sql.NullString{String: "3PS", Valid: true},
		ContractAgency: sql.NullString{String: "DGS", Valid: true},
	}
}

func TestInvoiceRecord(t *testing.T) {
	rec := InvoiceRecord(invoice("I1", "4IP"))

	assert.Equal(t, "I1", rec[FieldInvoiceID])
	assert.Equal(t, "4IP - Paid", rec[FieldInvoiceStatus])
	assert.Equal(t, "3PS - Sent", rec[FieldPOStatus])
	assert.Equal(t, workflows.TypeRelease, rec[FieldPOType])
	assert.Equal(t, StatusCurrent, rec[FieldExportStatus])
	assert.Nil(t, rec[FieldInvoiceNumber])
	assert.Nil(t, rec[FieldContractEndDate])
}

func TestReceiptRecord(t *testing.T) {
	rec := ReceiptRecord(citibuy.Receipt{
		ID:            "R1",
		ReleaseNumber: sql.NullInt64{Int64: 2, Valid: true},
		Owner:         sql.NullString{String: "jdoe", Valid: true},
	})
	assert.Equal(t, "R1", rec[FieldReceiptID])
	assert.Equal(t, int64(2), rec[FieldReleaseNumber])
	assert.Equal(t, "jdoe", rec[FieldOwner])
	assert.Nil(t, rec[FieldPONumber])
}

func TestWorkflowRun(t *testing.T) {
	ctx := context.Background()
	store := workflowtest.NewStore()
	src := &fakeSource{
		invoices: []citibuy.Invoice{invoice("I1", "4II"), invoice("I2", "4IA")},
		receipts: []citibuy.Receipt{{ID: "R1"}},
	}
	w := New(src, Config{})

	res, err := workflows.Run(ctx, w, store)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entity(InvoiceExport).Inserted)
	assert.Equal(t, 1, res.Entity(ReceiptExport).Inserted)
	assert.Equal(t, 45, src.invoiceWindow)
	assert.Equal(t, 1200, src.receiptWindow)

	t.Run("status change updates in place", func(t *testing.T) {
		src.invoices = []citibuy.Invoice{invoice("I1", "4IP"), invoice("I2", "4IA")}
		res, err := workflows.Run(ctx, w, store)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Entity(InvoiceExport).Updated)
		assert.Equal(t, 1, res.Entity(InvoiceExport).Unchanged)

		item, ok := store.Find(w.cfg.Lists.Invoice, FieldInvoiceID, "I1")
		require.True(t, ok)
		assert.Equal(t, "4IP - Paid", item.Record[FieldInvoiceStatus])
	})

	t.Run("dropped invoices are marked removed", func(t *testing.T) {
		src.invoices = []citibuy.Invoice{invoice("I2", "4IA")}
		res, err := workflows.Run(ctx, w, store)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Entity(InvoiceExport).Closed)

		item, _ := store.Find(w.cfg.Lists.Invoice, FieldInvoiceID, "I1")
		assert.Equal(t, StatusRemoved, item.Record[FieldExportStatus])

		res, err = workflows.Run(ctx, w, store)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Entity(InvoiceExport).Closed)
		assert.Equal(t, 1, res.Entity(InvoiceExport).AlreadyClosed)
	})
}

func TestWorkflowArchivesInvoiceExport(t *testing.T) {
	archiver := &workflowtest.Archiver{}
	src := &fakeSource{
		invoices: []citibuy.Invoice{invoice("I1", "4II"), invoice("I2", "4IA")},
		receipts: []citibuy.Receipt{{ID: "R1"}},
	}
	cfg := Config{
		Now:     func() time.Time { return time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC) },
		Archive: workflows.Archive{Archiver: archiver, Folder: "Aging Report"},
	}

	_, err := workflows.Run(context.Background(), New(src, cfg), workflowtest.NewStore())
	require.NoError(t, err)
	require.Equal(t, 1, archiver.Len())

	content, ok := archiver.File("Aging Report", "InvoiceExport_2024-06-03.csv")
	require.True(t, ok)
	lines, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, invoiceSchema.Names(), lines[0])

	names := invoiceSchema.Names()
	col := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	assert.Equal(t, "I1", lines[1][col(FieldInvoiceID)])
	assert.Equal(t, "Acme Supply", lines[1][col(FieldVendorName)])
	assert.Equal(t, "100", lines[1][col(FieldAmount)])
	assert.Equal(t, "", lines[1][col(FieldInvoiceNumber)])
	assert.Equal(t, "4IA - Approved for Payment", lines[2][col(FieldInvoiceStatus)])
}

func TestWorkflowSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	w := New(&fakeSource{err: boom}, Config{})

	res, err := workflows.Run(context.Background(), w, workflowtest.NewStore())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var serr *pkgerrors.SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, InvoiceExport, serr.Entity)
	assert.Equal(t, reconcile.StageRead, serr.Stage)
	require.Len(t, res.Entities, 1)
	assert.Zero(t, res.Entities[0].Inserted)
}

func TestQueryUnknownEntity(t *testing.T) {
	_, err := New(&fakeSource{}, Config{}).Query(context.Background(), "Vendor")
	assert.True(t, pkgerrors.IsNotFound(err))
}
