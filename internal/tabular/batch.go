package tabular

import "fmt"

// Batch is an immutable horizontal slice of a table: a schema plus one
// column per field, all of equal length.
type Batch struct {
	schema *Schema
	cols   []Column
	rows   int
}

func NewBatch(schema *Schema, cols []Column) (*Batch, error) {
	if schema.Len() != len(cols) {
		return nil, fmt.Errorf("batch has %d columns for %d schema fields", len(cols), schema.Len())
	}
	rows := 0
	for i, c := range cols {
		if i == 0 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", schema.Field(i).Name, c.Len(), rows)
		}
	}
	return &Batch{schema: schema, cols: cols, rows: rows}, nil
}

func (b *Batch) Schema() *Schema { return b.schema }

func (b *Batch) NumRows() int { return b.rows }

func (b *Batch) Column(i int) Column { return b.cols[i] }

// ColumnByName returns the named column, or nil.
func (b *Batch) ColumnByName(name string) Column {
	i := b.schema.Index(name)
	if i < 0 {
		return nil
	}
	return b.cols[i]
}

// MemorySize approximates the raw value footprint of the batch in bytes.
// Used only for request logging.
func (b *Batch) MemorySize() int {
	size := 0
	for i, c := range b.cols {
		switch b.schema.Field(i).Type {
		case Boolean, Int8, UInt8:
			size += c.Len()
		case Int16, UInt16:
			size += 2 * c.Len()
		case Int32, UInt32, Float32, Date32, Time32:
			size += 4 * c.Len()
		case Utf8, LargeUtf8:
			for r := 0; r < c.Len(); r++ {
				if !c.IsNull(r) {
					if s, ok := c.Value(r).(string); ok {
						size += len(s)
					}
				}
			}
		default:
			size += 8 * c.Len()
		}
	}
	return size
}
