package odata

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zodata/odata-serve/internal/tabular"
)

func uptr(v uint64) *uint64 { return &v }

func sptr(v string) *string { return &v }

func TestDecodeSelect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "absent", input: "", expected: nil},
		{name: "two columns", input: "offset,close", expected: []string{"offset", "close"}},
		{name: "empty tokens dropped", input: "offset,,close,", expected: []string{"offset", "close"}},
		// Tokens are kept verbatim: a space after the comma stays part
		// of the column name.
		{name: "no trimming", input: "offset, close", expected: []string{"offset", " close"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := RawQueryParams{Select: tt.input}.Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, plan.Select)
		})
	}
}

func TestDecodeOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []OrderBy
	}{
		{name: "absent", input: "", expected: nil},
		{
			name:     "explicit asc",
			input:    "close asc",
			expected: []OrderBy{{Column: "close", Ascending: true}},
		},
		{
			name:     "explicit desc",
			input:    "close desc",
			expected: []OrderBy{{Column: "close", Ascending: false}},
		},
		{
			name:     "default ascending",
			input:    "close",
			expected: []OrderBy{{Column: "close", Ascending: true}},
		},
		{
			name:  "multiple keys",
			input: "province desc,offset",
			expected: []OrderBy{
				{Column: "province", Ascending: false},
				{Column: "offset", Ascending: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := RawQueryParams{OrderBy: tt.input}.Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, plan.OrderBy)
		})
	}
}

func TestDecodeFilter(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		plan, err := RawQueryParams{Filter: sptr("offset eq 1")}.Decode()
		require.NoError(t, err)
		assert.Equal(t,
			tabular.Eq(tabular.Col("offset"), tabular.Lit(tabular.Int64Scalar(1))),
			plan.Filter)
	})

	t.Run("absent", func(t *testing.T) {
		plan, err := RawQueryParams{}.Decode()
		require.NoError(t, err)
		assert.Nil(t, plan.Filter)
	})

	t.Run("grammar error", func(t *testing.T) {
		_, err := RawQueryParams{Filter: sptr("offset eq")}.Decode()
		var pe *FilterParsingError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})

	t.Run("fractional number", func(t *testing.T) {
		_, err := RawQueryParams{Filter: sptr("close eq 1.5")}.Decode()
		var pe *FilterParsingError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "Failed to parse number", pe.Message)
	})

	t.Run("function call", func(t *testing.T) {
		_, err := RawQueryParams{Filter: sptr("substringof('x', province)")}.Decode()
		var fe *UnsupportedFeature
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusNotImplemented, HTTPStatus(err))
	})

	t.Run("time literal", func(t *testing.T) {
		_, err := RawQueryParams{Filter: sptr("event_time eq 14:30:00")}.Decode()
		var fe *UnsupportedFeature
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Unsupported feature: Time value in filter is not supported", fe.Error())
	})
}

func testFrame(t *testing.T) *tabular.Frame {
	t.Helper()
	schema := tabular.NewSchema([]tabular.Field{
		{Name: "offset", Type: tabular.Int64},
		{Name: "close", Type: tabular.Float64, Nullable: true},
		{Name: "province", Type: tabular.Utf8},
	})
	table, err := tabular.NewTable(schema, []tabular.Column{
		tabular.NewInt64Column([]int64{0, 1, 2, 3, 4}, nil),
		tabular.NewFloat64Column(
			[]float64{135.5625, 134.5937, 0, 133, 131.25},
			[]bool{true, true, false, true, true}),
		tabular.NewStringColumn([]string{"ON", "QC", "ON", "BC", "QC"}, nil),
	})
	require.NoError(t, err)
	return table.Frame()
}

func collectOffsets(t *testing.T, f *tabular.Frame) []int64 {
	t.Helper()
	batches, err := f.Collect(context.Background())
	require.NoError(t, err)
	var out []int64
	for _, b := range batches {
		col := b.ColumnByName("offset")
		require.NotNil(t, col)
		for i := 0; i < b.NumRows(); i++ {
			out = append(out, col.Value(i).(int64))
		}
	}
	return out
}

const keyAlias = "__id__"

func TestApplyKeyAddressingIgnoresOtherOptions(t *testing.T) {
	plan := &QueryPlan{
		Select:  []string{"offset", "close"},
		OrderBy: []OrderBy{{Column: "close", Ascending: false}},
		Skip:    uptr(10),
		Top:     uptr(0),
		Filter:  tabular.Eq(tabular.Col("offset"), tabular.Lit(tabular.Int64Scalar(0))),
	}
	addr := &CollectionAddr{Name: "tickers.spy", Key: "3"}

	out, err := ApplyQueryPlan(plan, testFrame(t), addr, "offset", keyAlias, 100, 1000)
	require.NoError(t, err)

	// Filter, order and pagination are all skipped: the single row with
	// key 3 survives even though the filter and top would exclude it.
	assert.Equal(t, []int64{3}, collectOffsets(t, out))

	// The projection still applies, plus the key alias.
	names := make([]string, 0, out.Schema().Len())
	for _, f := range out.Schema().Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"offset", "close", keyAlias}, names)
}

func TestApplyKeyAddressingNoMatch(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "unknown key", key: "999999"},
		{name: "unparsable key", key: "abc"},
		{name: "quoted key over int column", key: "'1'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := &CollectionAddr{Name: "tickers.spy", Key: tt.key}
			out, err := ApplyQueryPlan(&QueryPlan{}, testFrame(t), addr, "offset", keyAlias, 100, 1000)
			require.NoError(t, err)
			assert.Equal(t, 0, out.NumRows())
		})
	}
}

func TestApplyLimit(t *testing.T) {
	tests := []struct {
		name     string
		plan     *QueryPlan
		defaults int
		max      int
		expected []int64
	}{
		{
			name:     "default rows when no top",
			plan:     &QueryPlan{},
			defaults: 2, max: 1000,
			expected: []int64{0, 1},
		},
		{
			name:     "top caps below default",
			plan:     &QueryPlan{Top: uptr(3)},
			defaults: 100, max: 1000,
			expected: []int64{0, 1, 2},
		},
		{
			name:     "max rows caps top",
			plan:     &QueryPlan{Top: uptr(10)},
			defaults: 100, max: 3,
			expected: []int64{0, 1, 2},
		},
		{
			name:     "skip offsets the window",
			plan:     &QueryPlan{Skip: uptr(3)},
			defaults: 100, max: 1000,
			expected: []int64{3, 4},
		},
		{
			name:     "skip beyond the data",
			plan:     &QueryPlan{Skip: uptr(10)},
			defaults: 100, max: 1000,
			expected: nil,
		},
		{
			name:     "top zero",
			plan:     &QueryPlan{Top: uptr(0)},
			defaults: 100, max: 1000,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := &CollectionAddr{Name: "tickers.spy"}
			out, err := ApplyQueryPlan(tt.plan, testFrame(t), addr, "offset", keyAlias, tt.defaults, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, collectOffsets(t, out))
		})
	}
}

func TestApplyFilterAndSort(t *testing.T) {
	t.Run("filter then sort desc", func(t *testing.T) {
		plan := &QueryPlan{
			Filter:  tabular.Eq(tabular.Col("province"), tabular.Lit(tabular.StringScalar("QC"))),
			OrderBy: []OrderBy{{Column: "close", Ascending: false}},
		}
		out, err := ApplyQueryPlan(plan, testFrame(t), &CollectionAddr{Name: "x"}, "offset", keyAlias, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4}, collectOffsets(t, out))
	})

	t.Run("nulls first in both directions", func(t *testing.T) {
		asc := &QueryPlan{OrderBy: []OrderBy{{Column: "close", Ascending: true}}}
		out, err := ApplyQueryPlan(asc, testFrame(t), &CollectionAddr{Name: "x"}, "offset", keyAlias, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4, 3, 1, 0}, collectOffsets(t, out))

		desc := &QueryPlan{OrderBy: []OrderBy{{Column: "close", Ascending: false}}}
		out, err = ApplyQueryPlan(desc, testFrame(t), &CollectionAddr{Name: "x"}, "offset", keyAlias, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 0, 1, 3, 4}, collectOffsets(t, out))
	})

	t.Run("filter on unselected column fails", func(t *testing.T) {
		// Projection runs before filtering, so a filter can only see
		// selected columns.
		plan := &QueryPlan{
			Select: []string{"close"},
			Filter: tabular.Eq(tabular.Col("province"), tabular.Lit(tabular.StringScalar("QC"))),
		}
		_, err := ApplyQueryPlan(plan, testFrame(t), &CollectionAddr{Name: "x"}, "offset", keyAlias, 100, 1000)
		assert.Error(t, err)
	})
}

func TestApplySelectUnknownColumn(t *testing.T) {
	plan := &QueryPlan{Select: []string{"nope"}}
	_, err := ApplyQueryPlan(plan, testFrame(t), &CollectionAddr{Name: "x"}, "offset", keyAlias, 100, 1000)
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "collection not found",
			err:    &CollectionNotFound{Collection: "tickers.spy"},
			status: http.StatusNotFound,
			body:   "Collection tickers.spy not found",
		},
		{
			name:   "filter parsing",
			err:    &FilterParsingError{Message: "Failed to parse number"},
			status: http.StatusBadRequest,
			body:   "Failed to parse number",
		},
		{
			name:   "unsupported data type",
			err:    &UnsupportedDataType{DataType: tabular.Binary},
			status: http.StatusNotImplemented,
			body:   "Unsupported data type: binary",
		},
		{
			name:   "unsupported feature",
			err:    &UnsupportedFeature{Feature: "Function within the filter is not supported"},
			status: http.StatusNotImplemented,
			body:   "Unsupported feature: Function within the filter is not supported",
		},
		{
			name:   "unsupported net protocol",
			err:    &UnsupportedNetProtocol{URL: "ftp://example.com/"},
			status: http.StatusNotImplemented,
			body:   "Unsupported net protocol: ftp://example.com/",
		},
		{
			name:   "key column not assigned",
			err:    ErrKeyColumnNotAssigned,
			status: http.StatusNotImplemented,
			body:   "Key column not assigned",
		},
		{
			name:   "collection address not assigned",
			err:    ErrCollectionAddressNotAssigned,
			status: http.StatusNotImplemented,
			body:   "Collection address not assigned",
		},
		{
			name:   "internal hides the cause",
			err:    Internal(errors.New("disk on fire")),
			status: http.StatusInternalServerError,
			body:   "Internal error",
		},
		{
			name:   "unclassified treated as internal",
			err:    errors.New("column \"nope\" not found"),
			status: http.StatusInternalServerError,
			body:   "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.body, ResponseBody(tt.err))
		})
	}
}
