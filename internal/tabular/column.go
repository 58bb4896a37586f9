package tabular

import "time"

// Column is an immutable typed value vector. Value returns the Go
// representation matching the column's DataType: bool, int8..int64,
// uint8..uint64, float32/float64, string, time.Time (Timestamp, UTC),
// int32 epoch days (Date32) or int64 epoch milliseconds (Date64).
// The interface is sealed; columns are built through the constructors.
type Column interface {
	DataType() DataType
	Len() int
	IsNull(row int) bool
	Value(row int) any

	gather(rows []int) Column
}

type column[T any] struct {
	dtype DataType
	vals  []T
	valid []bool // nil means no nulls
}

func (c *column[T]) DataType() DataType { return c.dtype }

func (c *column[T]) Len() int { return len(c.vals) }

func (c *column[T]) IsNull(row int) bool {
	return c.valid != nil && !c.valid[row]
}

func (c *column[T]) Value(row int) any { return c.vals[row] }

func (c *column[T]) gather(rows []int) Column {
	vals := make([]T, len(rows))
	for i, r := range rows {
		vals[i] = c.vals[r]
	}
	var valid []bool
	if c.valid != nil {
		valid = make([]bool, len(rows))
		for i, r := range rows {
			valid[i] = c.valid[r]
		}
	}
	return &column[T]{dtype: c.dtype, vals: vals, valid: valid}
}

// NewColumn builds a column of an arbitrary physical type. The caller is
// responsible for matching the value type to dt; the typed constructors
// below cover the types the engine can actually load and compare, this one
// additionally allows constructing columns of unsupported physical types
// (binary, nested, ...) so that fallback policies can be exercised.
func NewColumn[T any](dt DataType, vals []T, valid []bool) Column {
	return &column[T]{dtype: dt, vals: vals, valid: valid}
}

func NewBooleanColumn(vals []bool, valid []bool) Column {
	return &column[bool]{dtype: Boolean, vals: vals, valid: valid}
}

func NewInt8Column(vals []int8, valid []bool) Column {
	return &column[int8]{dtype: Int8, vals: vals, valid: valid}
}

func NewInt16Column(vals []int16, valid []bool) Column {
	return &column[int16]{dtype: Int16, vals: vals, valid: valid}
}

func NewInt32Column(vals []int32, valid []bool) Column {
	return &column[int32]{dtype: Int32, vals: vals, valid: valid}
}

func NewInt64Column(vals []int64, valid []bool) Column {
	return &column[int64]{dtype: Int64, vals: vals, valid: valid}
}

func NewUInt8Column(vals []uint8, valid []bool) Column {
	return &column[uint8]{dtype: UInt8, vals: vals, valid: valid}
}

func NewUInt16Column(vals []uint16, valid []bool) Column {
	return &column[uint16]{dtype: UInt16, vals: vals, valid: valid}
}

func NewUInt32Column(vals []uint32, valid []bool) Column {
	return &column[uint32]{dtype: UInt32, vals: vals, valid: valid}
}

func NewUInt64Column(vals []uint64, valid []bool) Column {
	return &column[uint64]{dtype: UInt64, vals: vals, valid: valid}
}

func NewFloat32Column(vals []float32, valid []bool) Column {
	return &column[float32]{dtype: Float32, vals: vals, valid: valid}
}

func NewFloat64Column(vals []float64, valid []bool) Column {
	return &column[float64]{dtype: Float64, vals: vals, valid: valid}
}

func NewStringColumn(vals []string, valid []bool) Column {
	return &column[string]{dtype: Utf8, vals: vals, valid: valid}
}

func NewLargeStringColumn(vals []string, valid []bool) Column {
	return &column[string]{dtype: LargeUtf8, vals: vals, valid: valid}
}

// NewTimestampColumn stores instants; values are normalized to UTC.
func NewTimestampColumn(vals []time.Time, valid []bool) Column {
	utc := make([]time.Time, len(vals))
	for i, v := range vals {
		utc[i] = v.UTC()
	}
	return &column[time.Time]{dtype: Timestamp, vals: utc, valid: valid}
}

// NewDate32Column stores days since the Unix epoch.
func NewDate32Column(vals []int32, valid []bool) Column {
	return &column[int32]{dtype: Date32, vals: vals, valid: valid}
}

// NewDate64Column stores milliseconds since the Unix epoch.
func NewDate64Column(vals []int64, valid []bool) Column {
	return &column[int64]{dtype: Date64, vals: vals, valid: valid}
}
