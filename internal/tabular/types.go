// Package tabular is a small in-memory columnar query engine: immutable
// tables of typed columns with projection, filtering, sorting and
// pagination. It is the execution layer behind the OData collection
// endpoints.
package tabular

import "fmt"

// DataType enumerates the physical column types the engine can carry.
// The set is closed: consumers dispatch over it with exhaustive switches,
// and adding a variant here forces a decision in every switch (the EDM
// mapper and the Atom value encoder have test-time completeness checks).
type DataType int

const (
	Boolean DataType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Utf8
	LargeUtf8
	Timestamp
	Date32
	Date64
	Time32
	Time64
	Duration
	Interval
	Binary
	FixedSizeBinary
	LargeBinary
	List
	FixedSizeList
	LargeList
	Struct
	Union
	Dictionary
	Decimal128
	Decimal256
	Map
	RunEndEncoded

	numDataTypes // sentinel, keep last
)

var dataTypeNames = [numDataTypes]string{
	Boolean:         "boolean",
	Int8:            "int8",
	Int16:           "int16",
	Int32:           "int32",
	Int64:           "int64",
	UInt8:           "uint8",
	UInt16:          "uint16",
	UInt32:          "uint32",
	UInt64:          "uint64",
	Float32:         "float32",
	Float64:         "float64",
	Utf8:            "string",
	LargeUtf8:       "large_string",
	Timestamp:       "timestamp",
	Date32:          "date32",
	Date64:          "date64",
	Time32:          "time32",
	Time64:          "time64",
	Duration:        "duration",
	Interval:        "interval",
	Binary:          "binary",
	FixedSizeBinary: "fixed_size_binary",
	LargeBinary:     "large_binary",
	List:            "list",
	FixedSizeList:   "fixed_size_list",
	LargeList:       "large_list",
	Struct:          "struct",
	Union:           "union",
	Dictionary:      "dictionary",
	Decimal128:      "decimal128",
	Decimal256:      "decimal256",
	Map:             "map",
	RunEndEncoded:   "run_end_encoded",
}

func (t DataType) String() string {
	if t < 0 || t >= numDataTypes {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// AllDataTypes returns every variant of the closed type set, in declaration
// order. Exists for exhaustiveness checks in consumers' tests.
func AllDataTypes() []DataType {
	all := make([]DataType, numDataTypes)
	for i := range all {
		all[i] = DataType(i)
	}
	return all
}

// ParseDataType resolves a type name as used in dataset schema definitions.
// Only types the CSV loader can populate are accepted.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "bool", "boolean":
		return Boolean, nil
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return UInt8, nil
	case "uint16":
		return UInt16, nil
	case "uint32":
		return UInt32, nil
	case "uint64":
		return UInt64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "string", "utf8":
		return Utf8, nil
	case "timestamp":
		return Timestamp, nil
	case "date32":
		return Date32, nil
	case "date64":
		return Date64, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", name)
	}
}

// Field is one named, typed column slot in a schema.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
}

// Schema is an ordered list of fields.
type Schema struct {
	fields []Field
}

func NewSchema(fields []Field) *Schema {
	return &Schema{fields: fields}
}

func (s *Schema) Len() int {
	return len(s.fields)
}

func (s *Schema) Fields() []Field {
	return s.fields
}

func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
