package payment

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/records"
)

// Remote field names of the Invoices list.
const (
	FieldPONumber          = "PO Number"
	FieldVendorID          = "Vendor ID"
	FieldVendorName        = "Vendor Name"
	FieldDocumentNumber    = "Document Number"
	FieldInvoiceDate       = "Invoice Date"
	FieldInvoiceAmount     = "Invoice Amount"
	FieldStatusAge         = "Status Age (days)"
	FieldDaysSinceCreation = "Days Since Creation"
	FieldExecutionID       = "Execution ID (Core)"
	FieldLocation          = "Location (Core)"
	FieldCreationDate      = "Creation Date (Core)"
	FieldAssignedDate      = "Assigned Date (Core)"
	FieldDGSName           = "DGS Name"
	FieldDivision          = "Division"
	FieldDaysOutstanding   = "Days Outstanding"
	FieldDaysWithBAPS      = "Days with BAPS"
	FieldAgeOfInvoice      = "Age of Invoice"
	FieldPromptPayment     = "Prompt Payment"
)

// Division labels for names without a single staff match.
const (
	DivisionMultiple = "Multiple people listed"
	DivisionNone     = "No matching division"
)

// AwaitingAgencyContact is the report status of invoices in the DGS queue.
const AwaitingAgencyContact = "Awaiting Agency Contact"

// DGSLocations are the CoreIntegrator locations of the DGS AP queues.
var DGSLocations = []string{
	"DGS - Building Mtce",
	"DGS - CitiBuy",
	"DGS--Fiscal",
	"DGS--Fleet AP",
	"Dept of Gen Serv",
}

// Divisions maps each division to its AP staff.
var Divisions = map[string][]string{
	"Fleet": {
		"Donna Howard", "Donna Jones", "Erlynda Parton", "Jacquelyn Powers",
		"Jennifer Millan", "Keith Davis", "Lakia Carrillo", "Latrice Thomas",
		"Rosa Gold", "Abrar Abukhdeir", "Asia Ali", "David Gold",
	},
	"Fiscal": {
		"Garrett Knight", "Rose Carter", "Benjamin Brosch", "Troy Parrish",
		"Tonay Davis", "Jonae Barnes", "Krystal Roberts-Saunders",
	},
	"Facilities": {
		"Darryl Ragin", "Jim Fisher", "Phillip Waclawski", "Richard Nelson",
		"Karl Rusk", "Jason Ludd",
	},
}

type bin struct {
	upper int // exclusive
	label string
}

var (
	outstandingBins = []bin{
		{30, "Less than 30"},
		{60, "30 to 60 days"},
		{90, "60 to 90 days"},
		{120, "90 to 120 days"},
		{10000, "Over 120 days"},
	}
	bapsBins = []bin{
		{10, "less than 10 days"},
		{10000, "at least 10 days"},
	}
)

// binLabel returns the label of the bin holding v, or nil outside every bin.
func binLabel(v int, bins []bin) any {
	if v < 0 {
		return nil
	}
	for _, b := range bins {
		if v < b.upper {
			return b.label
		}
	}
	return nil
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Transformer turns report rows into Invoices list records.
type Transformer struct {
	locations map[string]bool
	status    string
	divisions map[string]string // folded name -> division
	fold      cases.Caser
	dates     *records.Normalizer
}

// NewTransformer creates a transformer. Nil arguments select the defaults.
func NewTransformer(locations []string, divisions map[string][]string) *Transformer {
	if locations == nil {
		locations = DGSLocations
	}
	if divisions == nil {
		divisions = Divisions
	}
	t := &Transformer{
		locations: make(map[string]bool, len(locations)),
		status:    AwaitingAgencyContact,
		divisions: map[string]string{},
		fold:      cases.Fold(),
		dates:     records.NewNormalizer(records.NewSchema()),
	}
	for _, l := range locations {
		t.locations[l] = true
	}
	for division, names := range divisions {
		for _, name := range names {
			t.divisions[t.fold.String(strings.TrimSpace(name))] = division
		}
	}
	return t
}

// Include reports whether a row is in a DGS queue awaiting agency contact.
func (t *Transformer) Include(row Row) bool {
	return t.locations[row.Location] && row.Status == t.status
}

// Division returns the division of the AP staff named in the report.
func (t *Transformer) Division(name string) string {
	if division, ok := t.divisions[t.fold.String(strings.TrimSpace(name))]; ok {
		return division
	}
	if strings.Contains(name, ",") {
		return DivisionMultiple
	}
	return DivisionNone
}

// Transform filters rows and derives the list fields as of now. It returns the
// records and the number of included rows skipped for lacking a PO or document
// number.
func (t *Transformer) Transform(rows []Row, now time.Time) (records.SourceSet, int) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := records.SourceSet{}
	skipped := 0
	for _, row := range rows {
		if !t.Include(row) {
			continue
		}
		if row.PONumber == "" || row.DocumentNumber == "" {
			skipped++
			continue
		}
		out = append(out, t.record(row, today))
	}
	return out, skipped
}

func (t *Transformer) record(row Row, today time.Time) records.Record {
	var invoiceDate, age any
	if day := t.date(row.DocumentDate); day != nil {
		invoiceDate = *day
		age = int(today.Sub(*day).Hours() / 24)
	}

	return records.Record{
		FieldPONumber:          row.PONumber,
		FieldVendorID:          ZeroPad(row.VendorID, 8),
		FieldVendorName:        row.VendorName,
		FieldDocumentNumber:    row.DocumentNumber,
		FieldInvoiceDate:       invoiceDate,
		FieldInvoiceAmount:     row.Amount,
		FieldStatusAge:         row.StatusAge,
		FieldDaysSinceCreation: row.DaysSinceCreation,
		FieldExecutionID:       row.ExecutionID,
		FieldLocation:          row.Location,
		FieldCreationDate:      t.creationDate(row.CreationDate),
		FieldAssignedDate:      today.AddDate(0, 0, -row.StatusAge),
		FieldDGSName:           row.Name,
		FieldDivision:          t.Division(row.Name),
		FieldDaysOutstanding:   binLabel(row.DaysSinceCreation, outstandingBins),
		FieldDaysWithBAPS:      binLabel(row.DaysSinceCreation-row.StatusAge, bapsBins),
		FieldAgeOfInvoice:      age,
		FieldPromptPayment:     true,
	}
}

// date parses a report date to midnight UTC.
func (t *Transformer) date(s string) *time.Time {
	v, err := t.dates.Value(records.Date, s)
	if err != nil || v == nil {
		return nil
	}
	parsed, err := time.Parse(constants.DateWireFormat, v.(string))
	if err != nil {
		return nil
	}
	y, m, d := parsed.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

// creationDate converts a spreadsheet serial date, falling back to date strings.
func (t *Transformer) creationDate(s string) any {
	if s == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelEpoch.AddDate(0, 0, int(serial))
	}
	if day := t.date(s); day != nil {
		return *day
	}
	return nil
}

// ZeroPad left-pads s with zeros to width. Empty strings stay empty.
func ZeroPad(s string, width int) string {
	if s == "" || len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
