package tabular

import (
	"fmt"
	"sort"
)

// Table is a named, fully materialized dataset. Tables are immutable once
// registered, which is what makes concurrent reads safe without locking.
type Table struct {
	schema *Schema
	batch  *Batch
}

func NewTable(schema *Schema, cols []Column) (*Table, error) {
	batch, err := NewBatch(schema, cols)
	if err != nil {
		return nil, err
	}
	return &Table{schema: schema, batch: batch}, nil
}

func (t *Table) Schema() *Schema { return t.schema }

func (t *Table) NumRows() int { return t.batch.NumRows() }

// Frame opens a derived view over the table with all rows and columns.
func (t *Table) Frame() *Frame {
	rows := make([]int, t.batch.NumRows())
	for i := range rows {
		rows[i] = i
	}
	return &Frame{
		schema: t.schema,
		cols:   t.batch.cols,
		rows:   rows,
	}
}

// Catalog is a flat name->table registry. There is exactly one namespace:
// collections map one-to-one onto registered tables. Registration happens
// at startup; afterwards the catalog is read-only.
type Catalog struct {
	tables map[string]*Table
}

func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// Register adds a table under the given name. Duplicate names are rejected.
func (c *Catalog) Register(name string, t *Table) error {
	if name == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if _, ok := c.tables[name]; ok {
		return fmt.Errorf("table %q already registered", name)
	}
	c.tables[name] = t
	return nil
}

// Table looks up a registered table.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Names lists registered table names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
