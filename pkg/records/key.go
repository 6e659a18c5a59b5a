package records

import (
	"strconv"
	"strings"
)

// keySeparator joins the values of a composite key. It cannot appear in list data.
const keySeparator = "\x1f"

// KeySpec names the field(s) forming the natural key of an entity type.
type KeySpec struct {
	Fields []string
}

// Key builds a KeySpec from field names.
func Key(fields ...string) KeySpec {
	return KeySpec{Fields: fields}
}

// Of returns the natural key of a record. ok is false when any key field is missing or nil.
func (k KeySpec) Of(r Fielder) (key string, ok bool) {
	fields := r.Fields()
	if len(k.Fields) == 1 {
		v := fields.Get(k.Fields[0])
		if v == nil {
			return "", false
		}
		s := FormatValue(v)
		return s, s != ""
	}

	parts := make([]string, len(k.Fields))
	for i, name := range k.Fields {
		v := fields.Get(name)
		if v == nil {
			return "", false
		}
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, keySeparator), true
}

// Split returns the parts of a key produced by Of.
func (k KeySpec) Split(key string) []string {
	if len(k.Fields) <= 1 {
		return []string{key}
	}
	return strings.Split(key, keySeparator)
}

// String implements fmt.Stringer.
func (k KeySpec) String() string {
	return strings.Join(k.Fields, "+")
}

// FormatValue renders a normalized scalar as a string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		n := Normalize(v)
		if s, ok := n.(string); ok {
			return s
		}
		return FormatValue(n)
	}
}
