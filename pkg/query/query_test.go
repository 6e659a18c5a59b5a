package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/records"
)

func TestFilterBuild(t *testing.T) {
	f := Where("Prompt Payment", Equals, true).And("Status", NotEquals, "Closed")
	assert.Len(t, f, 2)
	assert.Equal(t, "Prompt Payment equals true and Status not equals Closed", f.String())
	assert.NoError(t, f.Validate())
	assert.True(t, Filter(nil).IsEmpty())

	base := Where("A", Equals, 1)
	_ = base.And("B", Equals, 2)
	assert.Len(t, base, 1, "And does not modify the receiver")
}

func TestFilterValidate(t *testing.T) {
	err := Filter{{Op: Equals}}.Validate()
	assert.True(t, pkgerrors.IsValidationError(err))

	err = Where("A", Op("like"), "x").Validate()
	assert.ErrorContains(t, err, "unknown operator")
}

func TestFilterMatch(t *testing.T) {
	rec := records.Record{
		"Title":          "P1234:2",
		"Amount":         float64(150),
		"Prompt Payment": true,
		"Modified":       "2024-05-01T00:00:00Z",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", nil, true},
		{"equals", Where("Title", Equals, "P1234:2"), true},
		{"equals bool", Where("Prompt Payment", Equals, true), true},
		{"equals bool as number", Where("Prompt Payment", Equals, 1), true},
		{"not equals bool as number", Where("Prompt Payment", NotEquals, 0), true},
		{"equals missing", Where("Status", Equals, "Sent"), false},
		{"equals nil missing", Where("Status", Equals, nil), true},
		{"not equals", Where("Title", NotEquals, "P1"), true},
		{"greater", Where("Amount", GreaterThan, 100), true},
		{"less or equal", Where("Amount", LessOrEqual, 150), true},
		{"less", Where("Amount", LessThan, 150), false},
		{"date ge", Where("Modified", GreaterOrEqual, "2024-04-01T00:00:00Z"), true},
		{"compare missing", Where("Status", GreaterThan, "A"), false},
		{"contains", Where("Title", Contains, "234"), true},
		{"starts with", Where("Title", StartsWith, "P12"), true},
		{"ends with", Where("Title", EndsWith, ":3"), false},
		{"and", Where("Title", StartsWith, "P").And("Amount", GreaterThan, 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(rec))
		})
	}
}
