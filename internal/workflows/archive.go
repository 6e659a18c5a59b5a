package workflows

import (
	"bytes"
	"context"
	"encoding/csv"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/records"
)

// Archiver keeps a dated copy of a workflow's input in a named document folder.
type Archiver interface {
	Archive(ctx context.Context, folder, name string, content []byte) error
}

// Archive describes where a workflow archives its input. A nil Archiver disables it.
type Archive struct {
	Archiver Archiver
	Folder   string
}

// Enabled reports whether the archive is configured.
func (a Archive) Enabled() bool {
	return a.Archiver != nil && a.Folder != ""
}

// Store uploads a CSV of header and rows. Failures are logged and do not fail the run.
func (a Archive) Store(ctx context.Context, name string, header []string, rows [][]string) {
	if !a.Enabled() {
		return
	}
	logger := logging.FromContext(ctx)
	content, err := EncodeCSV(header, rows)
	if err == nil {
		err = a.Archiver.Archive(ctx, a.Folder, name, content)
	}
	if err != nil {
		logger.Warn().Err(err).Str("folder", a.Folder).Str("file", name).Msg("Failed to archive export")
	}
}

// EncodeCSV renders a header line followed by rows.
func EncodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, pkgerrors.WrapParse("csv", "header", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, pkgerrors.WrapParse("csv", "rows", err)
	}
	return buf.Bytes(), nil
}

// RecordRows formats a record set as CSV rows in schema field order.
func RecordRows(schema records.Schema, set records.SourceSet) [][]string {
	names := schema.Names()
	out := make([][]string, len(set))
	for i, rec := range set {
		row := make([]string, len(names))
		for j, name := range names {
			row[j] = records.FormatValue(rec[name])
		}
		out[i] = row
	}
	return out
}
