package output

import (
	"strconv"
	"time"

	"github.com/agentstation/fiscal/pkg/reconcile"
)

// Summary is the printable outcome of a workflow run.
type Summary struct {
	Workflow string          `json:"workflow" yaml:"workflow"`
	RunID    string          `json:"run_id" yaml:"run_id"`
	DryRun   bool            `json:"dry_run" yaml:"dry_run"`
	Status   string          `json:"status" yaml:"status"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string          `json:"duration" yaml:"duration"`
	Entities []EntitySummary `json:"entities" yaml:"entities"`
}

// EntitySummary holds the counts of one entity type.
type EntitySummary struct {
	Name          string   `json:"name" yaml:"name"`
	List          string   `json:"list" yaml:"list"`
	Inserted      int      `json:"inserted" yaml:"inserted"`
	Updated       int      `json:"updated" yaml:"updated"`
	Closed        int      `json:"closed" yaml:"closed"`
	AlreadyClosed int      `json:"already_closed" yaml:"already_closed"`
	Unchanged     int      `json:"unchanged" yaml:"unchanged"`
	Failed        int      `json:"failed" yaml:"failed"`
	Transient     int      `json:"transient" yaml:"transient"`
	Unresolved    int      `json:"unresolved" yaml:"unresolved"`
	Warnings      []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewSummary summarizes a run. Dry runs report the planned counts. res may be nil
// when the run failed before starting.
func NewSummary(workflow string, res *reconcile.Result, status string, err error) Summary {
	s := Summary{Workflow: workflow, Status: status, Entities: []EntitySummary{}}
	if err != nil {
		s.Error = err.Error()
	}
	if res == nil {
		return s
	}
	s.RunID = res.RunID
	s.DryRun = res.DryRun
	s.Duration = res.Duration.Round(time.Millisecond).String()
	for _, e := range res.Entities {
		if res.DryRun {
			e.Inserted = e.Planned.Inserts
			e.Updated = e.Planned.Updates
			e.Closed = e.Planned.Closures - e.AlreadyClosed
		}
		s.Entities = append(s.Entities, EntitySummary{
			Name:          e.Name,
			List:          e.List,
			Inserted:      e.Inserted,
			Updated:       e.Updated,
			Closed:        e.Closed,
			AlreadyClosed: e.AlreadyClosed,
			Unchanged:     e.Unchanged,
			Failed:        e.Failed,
			Transient:     e.Transient,
			Unresolved:    e.Unresolved,
			Warnings:      e.Warnings,
		})
	}
	return s
}

// TableData implements Tabular.
func (s Summary) TableData(wide bool) Data {
	headers := []string{"Entity", "Inserted", "Updated", "Closed", "Unchanged", "Failed"}
	align := []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "List", "Already Closed", "Transient", "Unresolved")
		align = append(align, AlignLeft, AlignRight, AlignRight, AlignRight)
	}

	var total EntitySummary
	rows := make([][]string, 0, len(s.Entities))
	for _, e := range s.Entities {
		row := []string{e.Name, itoa(e.Inserted), itoa(e.Updated), itoa(e.Closed), itoa(e.Unchanged), itoa(e.Failed + e.Transient)}
		if wide {
			row = append(row, e.List, itoa(e.AlreadyClosed), itoa(e.Transient), itoa(e.Unresolved))
		}
		rows = append(rows, row)

		total.Inserted += e.Inserted
		total.Updated += e.Updated
		total.Closed += e.Closed
		total.Unchanged += e.Unchanged
		total.Failed += e.Failed + e.Transient
	}

	data := Data{Headers: headers, Rows: rows, ColumnAlignment: align}
	if len(s.Entities) > 1 {
		footer := []string{"Total", itoa(total.Inserted), itoa(total.Updated), itoa(total.Closed), itoa(total.Unchanged), itoa(total.Failed)}
		for len(footer) < len(headers) {
			footer = append(footer, "")
		}
		data.Footer = footer
	}
	return data
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
