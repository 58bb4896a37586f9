package tabular

import (
	"context"
	"fmt"
	"sort"
)

// Frame is a derived, immutable view over a table: a column set plus an
// ordered window of source row indices. Every operation returns a new
// frame; the underlying column storage is shared, never copied, until
// Collect materializes the visible window.
type Frame struct {
	schema *Schema
	cols   []Column
	rows   []int
}

func (f *Frame) Schema() *Schema { return f.schema }

// NumRows reports the number of visible rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// WithColumn adds a column aliasing an existing source column. If name is
// already present its slot is replaced, otherwise the column is appended.
func (f *Frame) WithColumn(name, source string) (*Frame, error) {
	src := f.schema.Index(source)
	if src < 0 {
		return nil, fmt.Errorf("column %q not found", source)
	}

	srcField := f.schema.Field(src)
	field := Field{Name: name, Type: srcField.Type, Nullable: srcField.Nullable}

	fields := make([]Field, f.schema.Len(), f.schema.Len()+1)
	copy(fields, f.schema.Fields())
	cols := make([]Column, len(f.cols), len(f.cols)+1)
	copy(cols, f.cols)

	if i := f.schema.Index(name); i >= 0 {
		fields[i] = field
		cols[i] = f.cols[src]
	} else {
		fields = append(fields, field)
		cols = append(cols, f.cols[src])
	}

	return &Frame{schema: NewSchema(fields), cols: cols, rows: f.rows}, nil
}

// Select projects the frame to the named columns, in the given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	fields := make([]Field, 0, len(names))
	cols := make([]Column, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q in projection", name)
		}
		seen[name] = true

		i := f.schema.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		fields = append(fields, f.schema.Field(i))
		cols = append(cols, f.cols[i])
	}

	return &Frame{schema: NewSchema(fields), cols: cols, rows: f.rows}, nil
}

// Filter keeps the rows for which the predicate evaluates strictly true.
func (f *Frame) Filter(e Expr) (*Frame, error) {
	kept := make([]int, 0, len(f.rows))
	for _, src := range f.rows {
		v, err := f.evalPredicate(e, src)
		if err != nil {
			return nil, err
		}
		if v == triTrue {
			kept = append(kept, src)
		}
	}
	return &Frame{schema: f.schema, cols: f.cols, rows: kept}, nil
}

// SortKey orders by one column. NullsFirst places nulls at the start of
// the output regardless of direction.
type SortKey struct {
	Column     string
	Ascending  bool
	NullsFirst bool
}

// Sort applies a stable multi-key sort.
func (f *Frame) Sort(keys []SortKey) (*Frame, error) {
	type keyCol struct {
		SortKey
		col Column
	}

	kcols := make([]keyCol, len(keys))
	for i, k := range keys {
		ci := f.schema.Index(k.Column)
		if ci < 0 {
			return nil, fmt.Errorf("column %q not found", k.Column)
		}
		// Validate the column participates in ordering before sorting so
		// the comparator below cannot fail.
		if f.cols[ci].Len() > 0 {
			if _, err := columnOperand(f.cols[ci], 0); err != nil {
				return nil, err
			}
		}
		kcols[i] = keyCol{SortKey: k, col: f.cols[ci]}
	}

	rows := make([]int, len(f.rows))
	copy(rows, f.rows)

	sort.SliceStable(rows, func(a, b int) bool {
		for _, k := range kcols {
			if c := compareForSort(k.col, rows[a], rows[b], k.NullsFirst, k.Ascending); c != 0 {
				return c < 0
			}
		}
		return false
	})

	return &Frame{schema: f.schema, cols: f.cols, rows: rows}, nil
}

// compareForSort orders two rows under one sort key. Null placement
// follows nullsFirst regardless of direction; only value order is
// reversed for descending keys.
func compareForSort(col Column, i, j int, nullsFirst, ascending bool) int {
	ni, nj := col.IsNull(i), col.IsNull(j)
	switch {
	case ni && nj:
		return 0
	case ni:
		if nullsFirst {
			return -1
		}
		return 1
	case nj:
		if nullsFirst {
			return 1
		}
		return -1
	}

	// Identical column on both sides: operands share a kind and ordering
	// cannot fail (Sort validated the type upfront).
	l, _ := columnOperand(col, i)
	r, _ := columnOperand(col, j)
	c, _, _ := orderOperands(l, r)
	if !ascending {
		c = -c
	}
	return c
}

// Limit narrows the view to at most fetch rows starting after skip.
func (f *Frame) Limit(skip, fetch int) *Frame {
	if skip < 0 {
		skip = 0
	}
	if fetch < 0 {
		fetch = 0
	}
	if skip >= len(f.rows) {
		return &Frame{schema: f.schema, cols: f.cols, rows: nil}
	}
	end := skip + fetch
	if end > len(f.rows) || end < 0 {
		end = len(f.rows)
	}
	return &Frame{schema: f.schema, cols: f.cols, rows: f.rows[skip:end]}
}

// Collect materializes the visible window into record batches. The
// in-memory engine always produces a single batch, but callers must
// accept any number.
func (f *Frame) Collect(ctx context.Context) ([]*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.gather(f.rows)
	}
	batch, err := NewBatch(f.schema, cols)
	if err != nil {
		return nil, err
	}
	return []*Batch{batch}, nil
}
