// Package payment implements the prompt_payment workflow: the Prompt Payment report
// scraped from CoreIntegrator is reconciled into the Invoices list. Invoices that left
// the report are unflagged rather than removed.
package payment

import (
	"context"
	"time"

	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/reconcile"
	"github.com/agentstation/fiscal/pkg/records"
)

// Name is the workflow's command name.
const Name = "prompt_payment"

// Invoice is the entity type name.
const Invoice = "Invoice"

var invoiceSchema = records.NewSchema(
	records.Field{Name: FieldPONumber, Kind: records.String},
	records.Field{Name: FieldVendorID, Kind: records.String},
	records.Field{Name: FieldVendorName, Kind: records.String},
	records.Field{Name: FieldDocumentNumber, Kind: records.String},
	records.Field{Name: FieldInvoiceDate, Kind: records.Date},
	records.Field{Name: FieldInvoiceAmount, Kind: records.Number},
	records.Field{Name: FieldStatusAge, Kind: records.Integer},
	records.Field{Name: FieldDaysSinceCreation, Kind: records.Integer},
	records.Field{Name: FieldExecutionID, Kind: records.String},
	records.Field{Name: FieldLocation, Kind: records.String},
	records.Field{Name: FieldCreationDate, Kind: records.Date},
	records.Field{Name: FieldAssignedDate, Kind: records.Date},
	records.Field{Name: FieldDGSName, Kind: records.String},
	records.Field{Name: FieldDivision, Kind: records.String},
	records.Field{Name: FieldDaysOutstanding, Kind: records.String},
	records.Field{Name: FieldDaysWithBAPS, Kind: records.String},
	records.Field{Name: FieldAgeOfInvoice, Kind: records.Integer},
	records.Field{Name: FieldPromptPayment, Kind: records.Bool},
)

// Config configures the workflow.
type Config struct {
	List      string
	Locations []string
	Divisions map[string][]string
	Now       func() time.Time

	// Archive receives a copy of each loaded report.
	Archive workflows.Archive
}

// ArchiveName is the file name of the report archived on day.
func ArchiveName(day time.Time) string {
	return "PromptPayment_" + day.Format(constants.DateOnlyFormat) + ".csv"
}

// Workflow is the prompt_payment workflow.
type Workflow struct {
	report      Report
	cfg         Config
	transformer *Transformer
}

var _ workflows.Workflow = (*Workflow)(nil)

// New creates the workflow.
func New(report Report, cfg Config) *Workflow {
	if cfg.List == "" {
		cfg.List = constants.InvoiceList
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Workflow{
		report:      report,
		cfg:         cfg,
		transformer: NewTransformer(cfg.Locations, cfg.Divisions),
	}
}

// Name implements workflows.Workflow.
func (w *Workflow) Name() string {
	return Name
}

// Specs implements workflows.Workflow.
func (w *Workflow) Specs() []reconcile.EntitySpec {
	return []reconcile.EntitySpec{{
		Name:    Invoice,
		List:    w.cfg.List,
		Key:     records.Key(FieldPONumber, FieldDocumentNumber),
		Schema:  invoiceSchema,
		Closure: &reconcile.ClosureSpec{Field: FieldPromptPayment, Value: false},
		// yes/no columns filter as 0/1
		Filter: query.Where(FieldPromptPayment, query.Equals, 1),
	}}
}

// Query implements reconcile.Source.
func (w *Workflow) Query(ctx context.Context, entity string) (records.SourceSet, error) {
	if entity != Invoice {
		return nil, pkgerrors.NewNotFoundError("entity", entity)
	}
	rows, err := w.report.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := w.cfg.Now()
	if w.cfg.Archive.Enabled() {
		values := make([][]string, len(rows))
		for i, row := range rows {
			values[i] = row.Values()
		}
		w.cfg.Archive.Store(ctx, ArchiveName(now), ReportHeader, values)
	}
	set, skipped := w.transformer.Transform(rows, now)

	logger := logging.FromContext(ctx)
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("Report rows without PO or document number")
	}
	logger.Info().
		Int("rows", len(rows)).
		Int("invoices", len(set)).
		Msg("Loaded Prompt Payment report")
	return set, nil
}
