package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadCSVFile reads a headered CSV file into a table. With a nil schema
// the column types are inferred from the data.
func LoadCSVFile(path string, schema *Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := LoadCSV(f, schema)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// LoadCSV reads headered CSV data into a table. The first record names the
// columns. An explicit schema must list the columns in file order; empty
// cells load as nulls. Datasets are loaded whole at startup.
func LoadCSV(r io.Reader, schema *Schema) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header record")
	}

	header := records[0]
	data := records[1:]

	if schema == nil {
		schema = inferSchema(header, data)
	} else {
		if schema.Len() != len(header) {
			return nil, fmt.Errorf("schema has %d fields, csv header has %d columns", schema.Len(), len(header))
		}
		for i, f := range schema.Fields() {
			if f.Name != header[i] {
				return nil, fmt.Errorf("schema field %d is %q, csv header says %q", i, f.Name, header[i])
			}
		}
	}

	cols := make([]Column, schema.Len())
	for i, field := range schema.Fields() {
		cells := make([]string, len(data))
		for r, rec := range data {
			if i >= len(rec) {
				return nil, fmt.Errorf("record %d has %d columns, expected %d", r+1, len(rec), schema.Len())
			}
			cells[r] = rec[i]
		}
		col, err := buildColumn(field, cells)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name, err)
		}
		cols[i] = col
	}

	return NewTable(schema, cols)
}

func buildColumn(field Field, cells []string) (Column, error) {
	valid := make([]bool, len(cells))
	hasNull := false
	for i, c := range cells {
		if c == "" {
			if !field.Nullable {
				return nil, fmt.Errorf("empty value at row %d in non-nullable column", i+1)
			}
			hasNull = true
		} else {
			valid[i] = true
		}
	}
	if !hasNull {
		valid = nil
	}

	switch field.Type {
	case Boolean:
		vals := make([]bool, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := strconv.ParseBool(c)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = v
		}
		return NewBooleanColumn(vals, valid), nil
	case Int8, Int16, Int32, Int64:
		return buildIntColumn(field.Type, cells, valid)
	case UInt8, UInt16, UInt32, UInt64:
		return buildUintColumn(field.Type, cells, valid)
	case Float32:
		vals := make([]float32, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := strconv.ParseFloat(c, 32)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = float32(v)
		}
		return NewFloat32Column(vals, valid), nil
	case Float64:
		vals := make([]float64, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = v
		}
		return NewFloat64Column(vals, valid), nil
	case Utf8, LargeUtf8:
		vals := make([]string, len(cells))
		copy(vals, cells)
		if field.Type == LargeUtf8 {
			return NewLargeStringColumn(vals, valid), nil
		}
		return NewStringColumn(vals, valid), nil
	case Timestamp:
		vals := make([]time.Time, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := parseTimeCell(c)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = v
		}
		return NewTimestampColumn(vals, valid), nil
	case Date32:
		vals := make([]int32, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := time.Parse(time.DateOnly, c)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = int32(v.Unix() / 86400)
		}
		return NewDate32Column(vals, valid), nil
	case Date64:
		vals := make([]int64, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			v, err := time.Parse(time.DateOnly, c)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = v.Unix() * 1000
		}
		return NewDate64Column(vals, valid), nil
	default:
		return nil, fmt.Errorf("cannot load csv data into type %s", field.Type)
	}
}

func buildIntColumn(dt DataType, cells []string, valid []bool) (Column, error) {
	bits := map[DataType]int{Int8: 8, Int16: 16, Int32: 32, Int64: 64}[dt]
	vals := make([]int64, len(cells))
	for i, c := range cells {
		if c == "" {
			continue
		}
		v, err := strconv.ParseInt(c, 10, bits)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		vals[i] = v
	}
	switch dt {
	case Int8:
		out := make([]int8, len(vals))
		for i, v := range vals {
			out[i] = int8(v)
		}
		return NewInt8Column(out, valid), nil
	case Int16:
		out := make([]int16, len(vals))
		for i, v := range vals {
			out[i] = int16(v)
		}
		return NewInt16Column(out, valid), nil
	case Int32:
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		return NewInt32Column(out, valid), nil
	default:
		return NewInt64Column(vals, valid), nil
	}
}

func buildUintColumn(dt DataType, cells []string, valid []bool) (Column, error) {
	bits := map[DataType]int{UInt8: 8, UInt16: 16, UInt32: 32, UInt64: 64}[dt]
	vals := make([]uint64, len(cells))
	for i, c := range cells {
		if c == "" {
			continue
		}
		v, err := strconv.ParseUint(c, 10, bits)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		vals[i] = v
	}
	switch dt {
	case UInt8:
		out := make([]uint8, len(vals))
		for i, v := range vals {
			out[i] = uint8(v)
		}
		return NewUInt8Column(out, valid), nil
	case UInt16:
		out := make([]uint16, len(vals))
		for i, v := range vals {
			out[i] = uint16(v)
		}
		return NewUInt16Column(out, valid), nil
	case UInt32:
		out := make([]uint32, len(vals))
		for i, v := range vals {
			out[i] = uint32(v)
		}
		return NewUInt32Column(out, valid), nil
	default:
		return NewUInt64Column(vals, valid), nil
	}
}

func parseTimeCell(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", s)
}

// inferSchema picks a type per column by finding the first candidate every
// non-empty cell parses as: int64, float64, boolean, timestamp, then
// string. Empty cells make the column nullable and do not vote.
func inferSchema(header []string, data [][]string) *Schema {
	fields := make([]Field, len(header))
	for i, name := range header {
		var cells []string
		nullable := false
		for _, rec := range data {
			if i >= len(rec) || rec[i] == "" {
				nullable = true
				continue
			}
			cells = append(cells, rec[i])
		}

		dt := Utf8
		if len(cells) > 0 {
			for _, candidate := range []DataType{Int64, Float64, Boolean, Timestamp} {
				if allCellsParse(candidate, cells) {
					dt = candidate
					break
				}
			}
		} else {
			nullable = true
		}
		fields[i] = Field{Name: name, Type: dt, Nullable: nullable}
	}
	return NewSchema(fields)
}

func allCellsParse(dt DataType, cells []string) bool {
	for _, c := range cells {
		var err error
		switch dt {
		case Int64:
			_, err = strconv.ParseInt(c, 10, 64)
		case Float64:
			_, err = strconv.ParseFloat(c, 64)
		case Boolean:
			_, err = strconv.ParseBool(c)
		case Timestamp:
			_, err = parseTimeCell(c)
		}
		if err != nil {
			return false
		}
	}
	return true
}
