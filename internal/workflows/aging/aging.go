// Package aging implements the aging_report workflow: CitiBuy invoices and receipts
// are exported into SharePoint lists from which the aging report is built.
package aging

import (
	"context"
	"time"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/reconcile"
	"github.com/agentstation/fiscal/pkg/records"
)

// Name is the workflow's command name.
const Name = "aging_report"

// Entity type names.
const (
	InvoiceExport = "InvoiceExport"
	ReceiptExport = "ReceiptExport"
)

// Remote field names.
const (
	FieldInvoiceID           = "Invoice ID"
	FieldPONumber            = "PO Number"
	FieldReleaseNumber       = "Release Number"
	FieldVendorID            = "Vendor ID"
	FieldVendorName          = "Vendor Name"
	FieldInvoiceNumber       = "Invoice Number"
	FieldInvoiceDate         = "Invoice Date"
	FieldAmount              = "Amount"
	FieldInvoiceStatus       = "Invoice Status"
	FieldLastModified        = "Last Modified"
	FieldPOStatus            = "PO Status"
	FieldPODate              = "PO Date"
	FieldPOCost              = "PO Cost"
	FieldPOType              = "PO Type"
	FieldContractEndDate     = "Contract End Date"
	FieldContractDollarLimit = "Contract Dollar Limit"
	FieldContractAmountSpent = "Contract Amount Spent"

	FieldReceiptID     = "Receipt ID"
	FieldReceiptStatus = "Receipt Status"
	FieldOwner         = "Receipt Owner"
	FieldLocation      = "Location"
	FieldDescription   = "Description"
	FieldReceiptDate   = "Receipt Date"
	FieldCreated       = "Date Created"

	FieldExportStatus = "Export Status"
)

// Export status values.
const (
	StatusCurrent = "Current"
	StatusRemoved = "Removed"
)

// Source reads invoices and receipts from CitiBuy.
type Source interface {
	Invoices(ctx context.Context, asOf time.Time, modifiedWindow int) ([]citibuy.Invoice, error)
	Receipts(ctx context.Context, asOf time.Time, window int) ([]citibuy.Receipt, error)
}

// Lists names the export lists.
type Lists struct {
	Invoice string `mapstructure:"invoice_export"`
	Receipt string `mapstructure:"receipt_export"`
}

// Config configures the workflow.
type Config struct {
	Lists Lists

	// InvoiceWindow keeps paid or cancelled invoices modified within this many days.
	InvoiceWindow int

	// ReceiptWindow keeps receipts created within this many days.
	ReceiptWindow int

	Now func() time.Time

	// Archive receives a copy of each invoice export.
	Archive workflows.Archive
}

// ArchiveName is the file name of the invoice export archived on day.
func ArchiveName(day time.Time) string {
	return "InvoiceExport_" + day.Format(constants.DateOnlyFormat) + ".csv"
}

func (c *Config) defaults() {
	if c.Lists.Invoice == "" {
		c.Lists.Invoice = constants.InvoiceExportList
	}
	if c.Lists.Receipt == "" {
		c.Lists.Receipt = constants.ReceiptExportList
	}
	if c.InvoiceWindow <= 0 {
		c.InvoiceWindow = constants.InvoiceModifiedWindowDays
	}
	if c.ReceiptWindow <= 0 {
		c.ReceiptWindow = constants.ReceiptWindowDays
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

var (
	invoiceSchema = records.NewSchema(
		records.Field{Name: FieldInvoiceID, Kind: records.String},
		records.Field{Name: FieldPONumber, Kind: records.String},
		records.Field{Name: FieldReleaseNumber, Kind: records.Integer},
		records.Field{Name: FieldVendorID, Kind: records.String},
		records.Field{Name: FieldVendorName, Kind: records.String},
		records.Field{Name: FieldInvoiceNumber, Kind: records.String},
		records.Field{Name: FieldInvoiceDate, Kind: records.Date},
		records.Field{Name: FieldAmount, Kind: records.Number},
		records.Field{Name: FieldInvoiceStatus, Kind: records.String},
		records.Field{Name: FieldLastModified, Kind: records.Date},
		records.Field{Name: FieldPOStatus, Kind: records.String},
		records.Field{Name: FieldPODate, Kind: records.Date},
		records.Field{Name: FieldPOCost, Kind: records.Number},
		records.Field{Name: FieldPOType, Kind: records.String},
		records.Field{Name: FieldContractEndDate, Kind: records.Date},
		records.Field{Name: FieldContractDollarLimit, Kind: records.Number},
		records.Field{Name: FieldContractAmountSpent, Kind: records.Number},
		records.Field{Name: FieldExportStatus, Kind: records.String},
	)

	receiptSchema = records.NewSchema(
		records.Field{Name: FieldReceiptID, Kind: records.String},
		records.Field{Name: FieldPONumber, Kind: records.String},
		records.Field{Name: FieldReleaseNumber, Kind: records.Integer},
		records.Field{Name: FieldReceiptStatus, Kind: records.String},
		records.Field{Name: FieldOwner, Kind: records.String},
		records.Field{Name: FieldLocation, Kind: records.String},
		records.Field{Name: FieldDescription, Kind: records.String},
		records.Field{Name: FieldReceiptDate, Kind: records.Date},
		records.Field{Name: FieldCreated, Kind: records.Date},
		records.Field{Name: FieldLastModified, Kind: records.Date},
		records.Field{Name: FieldExportStatus, Kind: records.String},
	)
)

// Workflow is the aging_report workflow.
type Workflow struct {
	src Source
	cfg Config
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
	removed := &reconcile.ClosureSpec{Field: FieldExportStatus, Value: StatusRemoved}
	return []reconcile.EntitySpec{
		{
			Name:    InvoiceExport,
			List:    w.cfg.Lists.Invoice,
			Key:     records.Key(FieldInvoiceID),
			Schema:  invoiceSchema,
			Closure: removed,
		},
		{
			Name:    ReceiptExport,
			List:    w.cfg.Lists.Receipt,
			Key:     records.Key(FieldReceiptID),
			Schema:  receiptSchema,
			Closure: removed,
		},
	}
}

// Query implements reconcile.Source.
func (w *Workflow) Query(ctx context.Context, entity string) (records.SourceSet, error) {
	asOf := w.cfg.Now()
	switch entity {
	case InvoiceExport:
		rows, err := w.src.Invoices(ctx, asOf, w.cfg.InvoiceWindow)
		if err != nil {
			return nil, err
		}
		out := make(records.SourceSet, len(rows))
		for i, row := range rows {
			out[i] = InvoiceRecord(row)
		}
		if w.cfg.Archive.Enabled() {
			w.cfg.Archive.Store(ctx, ArchiveName(asOf), invoiceSchema.Names(), workflows.RecordRows(invoiceSchema, out))
		}
		return out, nil
	case ReceiptExport:
		rows, err := w.src.Receipts(ctx, asOf, w.cfg.ReceiptWindow)
		if err != nil {
			return nil, err
		}
		out := make(records.SourceSet, len(rows))
		for i, row := range rows {
			out[i] = ReceiptRecord(row)
		}
		return out, nil
	default:
		return nil, pkgerrors.NewNotFoundError("entity", entity)
	}
}

// InvoiceRecord projects an invoice row, with statuses recoded to their labels.
func InvoiceRecord(row citibuy.Invoice) records.Record {
	return records.Record{
		FieldInvoiceID:           row.ID,
		FieldPONumber:            row.PONumber,
		FieldReleaseNumber:       row.ReleaseNumber,
		FieldVendorID:            row.VendorID,
		FieldVendorName:          workflows.String(row.VendorName),
		FieldInvoiceNumber:       workflows.String(row.InvoiceNumber),
		FieldInvoiceDate:         workflows.Time(row.InvoiceDate),
		FieldAmount:              workflows.Float(row.Amount),
		FieldInvoiceStatus:       citibuy.Recode(citibuy.InvoiceStatus, row.Status.String),
		FieldLastModified:        workflows.Time(row.Modified),
		FieldPOStatus:            citibuy.Recode(citibuy.POStatus, row.POStatus.String),
		FieldPODate:              workflows.Time(row.PODate),
		FieldPOCost:              workflows.Float(row.POCost),
		FieldPOType:              workflows.POType(row.ReleaseNumber, row.ContractAgency.Valid),
		FieldContractEndDate:     workflows.Time(row.ContractEndDate),
		FieldContractDollarLimit: workflows.Float(row.ContractDollarLimit),
		FieldContractAmountSpent: workflows.Float(row.ContractAmountSpent),
		FieldExportStatus:        StatusCurrent,
	}
}

// ReceiptRecord projects a receipt row.
func ReceiptRecord(row citibuy.Receipt) records.Record {
	return records.Record{
		FieldReceiptID:     row.ID,
		FieldPONumber:      workflows.String(row.PONumber),
		FieldReleaseNumber: workflows.Int(row.ReleaseNumber),
		FieldReceiptStatus: workflows.String(row.Status),
		FieldOwner:         workflows.String(row.Owner),
		FieldLocation:      workflows.String(row.LocationID),
		FieldDescription:   workflows.String(row.Description),
		FieldReceiptDate:   workflows.Time(row.ReceiptDate),
		FieldCreated:       workflows.Time(row.Created),
		FieldLastModified:  workflows.Time(row.Modified),
		FieldExportStatus:  StatusCurrent,
	}
}
