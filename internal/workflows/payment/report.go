package payment

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
)

// Report column headers.
const (
	ColExecutionID       = "Execution ID"
	ColLocation          = "Location"
	ColStatusAge         = "Status Age (days)"
	ColDaysSinceCreation = "Days Since Creation"
	ColStatus            = "Status"
	ColAmount            = "Amount"
	ColDocumentType      = "Document Type"
	ColName              = "Name"
	ColCreationDate      = "Creation Date"
	ColVendorID          = "Vendor ID"
	ColVendorName        = "Vendor Name"
	ColDocumentNumber    = "Document Number"
	ColDocumentDate      = "Document Date"
	ColPONumber          = "PO Number"
	ColEANumber          = "EA Number"
	ColNote              = "Note"
)

var requiredColumns = []string{
	ColLocation, ColStatus, ColStatusAge, ColDaysSinceCreation,
	ColVendorID, ColDocumentNumber, ColPONumber,
}

// Row is one line of the Prompt Payment report.
type Row struct {
	ExecutionID       string
	Location          string
	StatusAge         int
	DaysSinceCreation int
	Status            string
	Amount            string
	DocumentType      string
	Name              string
	CreationDate      string // Excel serial date or a date string
	VendorID          string
	VendorName        string
	DocumentNumber    string
	DocumentDate      string
	PONumber          string
	EANumber          string
	Note              string
}

// ReportHeader is the column order of an archived report.
var ReportHeader = []string{
	ColExecutionID, ColLocation, ColStatusAge, ColDaysSinceCreation, ColStatus,
	ColAmount, ColDocumentType, ColName, ColCreationDate, ColVendorID, ColVendorName,
	ColDocumentNumber, ColDocumentDate, ColPONumber, ColEANumber, ColNote,
}

// Values returns the row's fields in ReportHeader order.
func (r Row) Values() []string {
	return []string{
		r.ExecutionID, r.Location, strconv.Itoa(r.StatusAge), strconv.Itoa(r.DaysSinceCreation), r.Status,
		r.Amount, r.DocumentType, r.Name, r.CreationDate, r.VendorID, r.VendorName,
		r.DocumentNumber, r.DocumentDate, r.PONumber, r.EANumber, r.Note,
	}
}

// Report provides the latest Prompt Payment report. The report is scraped from
// CoreIntegrator outside this program.
type Report interface {
	Load(ctx context.Context) ([]Row, error)
}

// FileReport reads a report exported as CSV.
type FileReport struct {
	Path string
}

// Load implements Report.
func (f FileReport) Load(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, pkgerrors.WrapResource("open", "report", f.Path, err)
	}
	defer func() { _ = file.Close() }()
	return ParseReport(file, f.Path)
}

// ParseReport parses a CSV report with a header line. name identifies the source in
// errors.
func ParseReport(r io.Reader, name string) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, pkgerrors.NewParseError("csv", name, "report is empty", nil)
	}
	if err != nil {
		return nil, pkgerrors.WrapParse("csv", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, pkgerrors.NewParseError("csv", name, fmt.Sprintf("missing column %q", col), nil)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerrors.WrapParse("csv", name, err)
		}
		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(fields) {
				return strings.TrimSpace(fields[i])
			}
			return ""
		}

		row := Row{
			ExecutionID:    get(ColExecutionID),
			Location:       get(ColLocation),
			Status:         get(ColStatus),
			Amount:         get(ColAmount),
			DocumentType:   get(ColDocumentType),
			Name:           get(ColName),
			CreationDate:   get(ColCreationDate),
			VendorID:       get(ColVendorID),
			VendorName:     get(ColVendorName),
			DocumentNumber: get(ColDocumentNumber),
			DocumentDate:   get(ColDocumentDate),
			PONumber:       get(ColPONumber),
			EANumber:       get(ColEANumber),
			Note:           get(ColNote),
		}
		if row.StatusAge, err = days(get(ColStatusAge)); err != nil {
			return nil, lineError(name, line, ColStatusAge, err)
		}
		if row.DaysSinceCreation, err = days(get(ColDaysSinceCreation)); err != nil {
			return nil, lineError(name, line, ColDaysSinceCreation, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// days parses a whole day count. Spreadsheet exports may render it as "12.0".
func days(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func lineError(name string, line int, col string, err error) error {
	return &pkgerrors.ParseError{
		Format:  "csv",
		File:    name,
		Line:    line,
		Message: fmt.Sprintf("%s: %v", col, err),
		Err:     err,
	}
}
