package records

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
)

// dateLayouts are tried in order when a date arrives as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	constants.DateOnlyFormat,
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// Normalizer coerces record values into their canonical representation according to a
// schema. Source and remote records must pass through the same normalizer before they
// are compared.
type Normalizer struct {
	schema Schema
	loc    *time.Location
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLocation sets the zone used for dates that carry no offset. Default UTC.
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// NewNormalizer creates a normalizer for a schema.
func NewNormalizer(schema Schema, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{schema: schema, loc: time.UTC}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Schema returns the schema the normalizer was built with.
func (n *Normalizer) Schema() Schema {
	return n.schema
}

// Record returns a normalized copy of r. Values that cannot be coerced to their declared
// kind are kept in their generic normalized form and reported in the returned error.
func (n *Normalizer) Record(r Record) (Record, error) {
	out := make(Record, len(r))
	var errs []error
	for name, v := range r {
		kind, ok := n.schema.Kind(name)
		if !ok {
			out[name] = Normalize(v)
			continue
		}
		nv, err := n.Value(kind, v)
		if err != nil {
			errs = append(errs, pkgerrors.NewValidationError(name, v, err.Error()))
			nv = Normalize(v)
		}
		out[name] = nv
	}
	return out, errors.Join(errs...)
}

// Set normalizes every record of a source set. Errors are collected across records.
func (n *Normalizer) Set(set SourceSet) (SourceSet, error) {
	out := make(SourceSet, len(set))
	var errs []error
	for i, r := range set {
		nr, err := n.Record(r)
		if err != nil {
			errs = append(errs, err)
		}
		out[i] = nr
	}
	return out, errors.Join(errs...)
}

// Remote normalizes every record of a remote set.
func (n *Normalizer) Remote(set RemoteSet) (RemoteSet, error) {
	out := make(RemoteSet, len(set))
	var errs []error
	for i, r := range set {
		nr, err := n.Record(r.Record)
		if err != nil {
			errs = append(errs, err)
		}
		out[i] = RemoteRecord{ID: r.ID, Record: nr}
	}
	return out, errors.Join(errs...)
}

// Value coerces a single value to kind.
func (n *Normalizer) Value(kind Kind, v any) (any, error) {
	v = Normalize(v)
	if v == nil {
		return nil, nil
	}
	switch kind {
	case String:
		return FormatValue(v), nil
	case Lookup:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		}
		return FormatValue(v), nil
	case Number:
		return toFloat(v)
	case Integer:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not a whole number", f)
		}
		return f, nil
	case Date:
		return n.toDate(v)
	case Bool:
		return toBool(v)
	default:
		return v, nil
	}
}

// Normalize applies the kind-independent rules: text is trimmed and NFC normalized with
// empty text becoming nil, numbers become float64, byte slices become text and times
// become wire-format strings.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := norm.NFC.String(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		return s
	case []byte:
		return Normalize(string(t))
	case *string:
		if t == nil {
			return nil
		}
		return Normalize(*t)
	case bool, float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format(constants.DateWireFormat)
	case *time.Time:
		if t == nil {
			return nil
		}
		return Normalize(*t)
	case fmt.Stringer:
		return Normalize(t.String())
	default:
		return Normalize(fmt.Sprint(t))
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.ReplaceAll(strings.TrimPrefix(t, "$"), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", t)
	default:
		return false, fmt.Errorf("%v is not a boolean", v)
	}
}

func (n *Normalizer) toDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%v is not a date", v)
	}
	for _, layout := range dateLayouts {
		if tm, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return tm.UTC().Format(constants.DateWireFormat), nil
		}
	}
	return nil, fmt.Errorf("%q is not a date", s)
}
