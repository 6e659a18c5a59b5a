package records

// Kind is the declared type of a list column.
type Kind int

const (
	// String is free text.
	String Kind = iota
	// Number is a floating point amount.
	Number
	// Integer is a whole number, carried as float64 like any JSON number.
	Integer
	// Date is a timestamp carried in the date wire format.
	Date
	// Bool is a yes/no column.
	Bool
	// Lookup holds a parent natural key before resolution and a store id after.
	Lookup
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Date:
		return "date"
	case Bool:
		return "bool"
	case Lookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Field is one column of an entity schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered field table of an entity type.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema. Later duplicates of a name replace earlier ones.
func NewSchema(fields ...Field) Schema {
	s := Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := s.index[f.Name]; ok {
			s.fields[i] = f
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns the field table in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Kind returns the kind of a field.
func (s Schema) Kind(name string) (Kind, bool) {
	i, ok := s.index[name]
	if !ok {
		return String, false
	}
	return s.fields[i].Kind, true
}

// Len returns the number of fields.
func (s Schema) Len() int {
	return len(s.fields)
}

// With returns a copy of the schema with extra fields appended.
func (s Schema) With(fields ...Field) Schema {
	return NewSchema(append(s.Fields(), fields...)...)
}
