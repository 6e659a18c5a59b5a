// Package query describes remote read filters: field/operator/value clauses combined
// with logical AND.
package query

import (
	"fmt"
	"strings"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/records"
)

// Op is a comparison operator.
type Op string

// Operators supported by the remote list store.
const (
	Equals         Op = "equals"
	NotEquals      Op = "not equals"
	GreaterThan    Op = "greater than"
	LessThan       Op = "less than"
	GreaterOrEqual Op = "greater than or equal"
	LessOrEqual    Op = "less than or equal"
	Contains       Op = "contains"
	StartsWith     Op = "starts with"
	EndsWith       Op = "ends with"
)

var validOps = map[Op]bool{
	Equals: true, NotEquals: true,
	GreaterThan: true, LessThan: true, GreaterOrEqual: true, LessOrEqual: true,
	Contains: true, StartsWith: true, EndsWith: true,
}

// Clause is one field comparison.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// String implements fmt.Stringer.
func (c Clause) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Filter is a conjunction of clauses. The zero value matches everything.
type Filter []Clause

// Where starts a filter with one clause.
func Where(field string, op Op, value any) Filter {
	return Filter{{Field: field, Op: op, Value: value}}
}

// And returns the filter extended with another clause.
func (f Filter) And(field string, op Op, value any) Filter {
	out := make(Filter, len(f), len(f)+1)
	copy(out, f)
	return append(out, Clause{Field: field, Op: op, Value: value})
}

// IsEmpty reports whether the filter has no clauses.
func (f Filter) IsEmpty() bool {
	return len(f) == 0
}

// Validate checks every clause names a field and a known operator.
func (f Filter) Validate() error {
	for i, c := range f {
		if c.Field == "" {
			return &pkgerrors.ValidationError{Field: "filter", Value: i, Message: "clause has no field"}
		}
		if !validOps[c.Op] {
			return &pkgerrors.ValidationError{Field: c.Field, Value: c.Op, Message: fmt.Sprintf("unknown operator %q", c.Op)}
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}

// Match evaluates the filter against a record locally.
func (f Filter) Match(r records.Fielder) bool {
	fields := r.Fields()
	for _, c := range f {
		if !c.match(fields.Get(c.Field)) {
			return false
		}
	}
	return true
}

func (c Clause) match(v any) bool {
	want := records.Normalize(c.Value)
	got := records.Normalize(v)
	got, want = asBool(got, want), asBool(want, got)

	switch c.Op {
	case Equals:
		return records.FormatValue(got) == records.FormatValue(want) && (got == nil) == (want == nil)
	case NotEquals:
		return !(Clause{Field: c.Field, Op: Equals, Value: c.Value}).match(v)
	case Contains, StartsWith, EndsWith:
		s, sub := records.FormatValue(got), records.FormatValue(want)
		switch c.Op {
		case Contains:
			return strings.Contains(s, sub)
		case StartsWith:
			return strings.HasPrefix(s, sub)
		default:
			return strings.HasSuffix(s, sub)
		}
	}

	if got == nil || want == nil {
		return false
	}
	cmp := compare(got, want)
	switch c.Op {
	case GreaterThan:
		return cmp > 0
	case LessThan:
		return cmp < 0
	case GreaterOrEqual:
		return cmp >= 0
	case LessOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

// asBool turns a 0/1 number into a bool when the other side is a bool, matching how
// yes/no columns compare remotely.
func asBool(v, other any) any {
	if _, ok := other.(bool); !ok {
		return v
	}
	if f, ok := v.(float64); ok && (f == 0 || f == 1) {
		return f == 1
	}
	return v
}

// compare orders numbers numerically and everything else as text. Wire-format dates
// order correctly as text.
func compare(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(records.FormatValue(a), records.FormatValue(b))
}
