package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

func uptr(v uint64) *uint64 { return &v }

// pricesTable builds an offset-keyed table with the given number of rows.
func pricesTable(t *testing.T, rows int) *tabular.Table {
	t.Helper()
	offsets := make([]int64, rows)
	closes := make([]float64, rows)
	for i := range offsets {
		offsets[i] = int64(i)
		closes[i] = 100 + float64(i)/4
	}
	schema := tabular.NewSchema([]tabular.Field{
		{Name: "offset", Type: tabular.Int64},
		{Name: "close", Type: tabular.Float64, Nullable: true},
	})
	table, err := tabular.NewTable(schema, []tabular.Column{
		tabular.NewInt64Column(offsets, nil),
		tabular.NewFloat64Column(closes, nil),
	})
	require.NoError(t, err)
	return table
}

func collectRows(t *testing.T, cctx odata.CollectionContext, plan *odata.QueryPlan) []*tabular.Batch {
	t.Helper()
	ctx := context.Background()
	frame, err := cctx.Query(ctx, plan)
	require.NoError(t, err)
	batches, err := frame.Collect(ctx)
	require.NoError(t, err)
	require.NoError(t, cctx.Validate(batches))
	return batches
}

func numRows(batches []*tabular.Batch) int {
	n := 0
	for _, b := range batches {
		n += b.NumRows()
	}
	return n
}

func TestRegister(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})

	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 2), "offset"))

	err := svc.Register("tickers.spy", pricesTable(t, 2), "offset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	err = svc.Register("tickers.qqq", pricesTable(t, 2), "no_such_column")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the schema")
}

func TestCollectionLookup(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 2), "offset"))

	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
	require.NoError(t, err)
	name, err := cctx.CollectionName()
	require.NoError(t, err)
	assert.Equal(t, "tickers.spy", name)

	_, err = svc.Collection(&odata.CollectionAddr{Name: "flows.raw"})
	var notFound *odata.CollectionNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Collection flows.raw not found", err.Error())
	assert.Equal(t, 404, odata.HTTPStatus(err))
}

func TestListCollectionsSorted(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 2), "offset"))
	require.NoError(t, svc.Register("covid19.canada", pricesTable(t, 2), "offset"))
	require.NoError(t, svc.Register("alerts.recent", pricesTable(t, 2), "offset"))

	colls, err := svc.ListCollections(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(colls))
	for _, c := range colls {
		name, err := c.CollectionName()
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"alerts.recent", "covid19.canada", "tickers.spy"}, names)
}

func TestCollectionBaseURL(t *testing.T) {
	for _, base := range []string{"http://example.com/odata", "http://example.com/odata/"} {
		svc := NewService(Options{BaseURL: base})
		require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 2), "offset"))

		cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
		require.NoError(t, err)
		url, err := cctx.CollectionBaseURL()
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/odata/tickers.spy", url)
	}
}

func TestKeyColumn(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("with.key", pricesTable(t, 2), "offset"))
	require.NoError(t, svc.Register("without.key", pricesTable(t, 2), ""))

	withKey, err := svc.Collection(&odata.CollectionAddr{Name: "with.key"})
	require.NoError(t, err)
	key, err := withKey.KeyColumn()
	require.NoError(t, err)
	assert.Equal(t, "offset", key)

	withoutKey, err := svc.Collection(&odata.CollectionAddr{Name: "without.key"})
	require.NoError(t, err)
	_, err = withoutKey.KeyColumn()
	assert.ErrorIs(t, err, odata.ErrKeyColumnNotAssigned)
}

func TestQueryRowLimits(t *testing.T) {
	svc := NewService(Options{
		BaseURL:     "http://example.com/odata",
		DefaultRows: 3,
		MaxRows:     5,
	})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 10), "offset"))
	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
	require.NoError(t, err)

	tests := []struct {
		name string
		plan odata.QueryPlan
		rows int
	}{
		{name: "default rows", plan: odata.QueryPlan{}, rows: 3},
		{name: "top under max", plan: odata.QueryPlan{Top: uptr(4)}, rows: 4},
		{name: "top capped at max", plan: odata.QueryPlan{Top: uptr(7)}, rows: 5},
		{name: "skip near the end", plan: odata.QueryPlan{Skip: uptr(8)}, rows: 2},
		{name: "skip past the end", plan: odata.QueryPlan{Skip: uptr(20)}, rows: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := collectRows(t, cctx, &tt.plan)
			assert.Equal(t, tt.rows, numRows(batches))
		})
	}
}

func TestQueryKeyAddressing(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 10), "offset"))

	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy", Key: "7"})
	require.NoError(t, err)

	batches := collectRows(t, cctx, &odata.QueryPlan{Top: uptr(0)})
	require.Equal(t, 1, numRows(batches))
	assert.Equal(t, int64(7), batches[0].ColumnByName("offset").Value(0))
}

func TestQueryAppendsKeyAlias(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 4), "offset"))
	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
	require.NoError(t, err)

	batches := collectRows(t, cctx, &odata.QueryPlan{Select: []string{"close"}})
	schema := batches[0].Schema()
	names := make([]string, 0, schema.Len())
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"close", cctx.KeyColumnAlias()}, names)
}

// Without a registered key column, identity aliases the first schema
// column so key addressing still works.
func TestQueryKeyFallsBackToFirstColumn(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 4), ""))

	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy", Key: "2"})
	require.NoError(t, err)

	batches := collectRows(t, cctx, &odata.QueryPlan{})
	require.Equal(t, 1, numRows(batches))
	assert.Equal(t, int64(2), batches[0].ColumnByName("offset").Value(0))
}

func TestValidate(t *testing.T) {
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 4), "offset"))
	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
	require.NoError(t, err)

	batches := collectRows(t, cctx, &odata.QueryPlan{})
	require.NoError(t, cctx.Validate(batches))

	other := collectRows(t, cctx, &odata.QueryPlan{})
	mixed := append(append([]*tabular.Batch{}, batches...), other...)
	err = cctx.Validate(mixed)
	require.Error(t, err)
	assert.Equal(t, 500, odata.HTTPStatus(err))
	assert.Equal(t, "Internal error", odata.ResponseBody(err))
}

func TestServiceDefaults(t *testing.T) {
	before := time.Now().UTC()
	svc := NewService(Options{BaseURL: "http://example.com/odata"})
	require.NoError(t, svc.Register("tickers.spy", pricesTable(t, 150), "offset"))

	cctx, err := svc.Collection(&odata.CollectionAddr{Name: "tickers.spy"})
	require.NoError(t, err)

	ns, err := cctx.CollectionNamespace()
	require.NoError(t, err)
	assert.Equal(t, "default", ns)

	updated := cctx.LastUpdatedTime(context.Background())
	assert.False(t, updated.Before(before))
	assert.Equal(t, time.UTC, updated.Location())

	batches := collectRows(t, cctx, &odata.QueryPlan{})
	assert.Equal(t, 100, numRows(batches))
}
