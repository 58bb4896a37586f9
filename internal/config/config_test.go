package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":3050", cfg.Addr)
	assert.Equal(t, "/", cfg.BasePath)
	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, 100, cfg.DefaultRows)
	assert.Equal(t, 1_000_000, cfg.MaxRows)
	assert.Equal(t, "error", cfg.OnUnsupported)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, odata.OnUnsupportedError, cfg.Policy())
}

func TestValidateNormalizesBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":        "/",
		"/":       "/",
		"odata":   "/odata",
		"/odata":  "/odata",
		"/odata/": "/odata",
	} {
		cfg := Default()
		cfg.BasePath = in
		require.NoError(t, cfg.Validate())
		assert.Equal(t, want, cfg.BasePath, "base path %q", in)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty addr",
			mutate:  func(c *Config) { c.Addr = "" },
			wantErr: "addr must not be empty",
		},
		{
			name:    "zero default rows",
			mutate:  func(c *Config) { c.DefaultRows = 0 },
			wantErr: "default-rows must be positive",
		},
		{
			name:    "negative max rows",
			mutate:  func(c *Config) { c.MaxRows = -1 },
			wantErr: "max-rows must be positive",
		},
		{
			name:    "default above max",
			mutate:  func(c *Config) { c.DefaultRows = 50; c.MaxRows = 10 },
			wantErr: "default-rows 50 exceeds max-rows 10",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.OnUnsupported = "ignore" },
			wantErr: `unknown unsupported-feature policy "ignore"`,
		},
		{
			name: "dataset without name",
			mutate: func(c *Config) {
				c.Datasets = []DatasetConfig{{Path: "data/t.csv"}}
			},
			wantErr: "dataset 0 has no name",
		},
		{
			name: "dataset without path",
			mutate: func(c *Config) {
				c.Datasets = []DatasetConfig{{Name: "tickers.spy"}}
			},
			wantErr: `dataset "tickers.spy" has no path`,
		},
		{
			name: "duplicate dataset",
			mutate: func(c *Config) {
				c.Datasets = []DatasetConfig{
					{Name: "tickers.spy", Path: "a.csv"},
					{Name: "tickers.spy", Path: "b.csv"},
				}
			},
			wantErr: `dataset "tickers.spy" listed twice`,
		},
		{
			name: "column without name",
			mutate: func(c *Config) {
				c.Datasets = []DatasetConfig{{
					Name: "tickers.spy", Path: "a.csv",
					Columns: []ColumnConfig{{Type: "int64"}},
				}}
			},
			wantErr: `dataset "tickers.spy" has a column with no name`,
		},
		{
			name: "column with unknown type",
			mutate: func(c *Config) {
				c.Datasets = []DatasetConfig{{
					Name: "tickers.spy", Path: "a.csv",
					Columns: []ColumnConfig{{Name: "offset", Type: "varchar"}},
				}}
			},
			wantErr: `unknown data type "varchar"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseDatasetFlag(t *testing.T) {
	ds, err := ParseDatasetFlag("tickers.spy=data/tickers.csv")
	require.NoError(t, err)
	assert.Equal(t, DatasetConfig{Name: "tickers.spy", Path: "data/tickers.csv"}, ds)

	ds, err = ParseDatasetFlag("tickers.spy=data/tickers.csv:offset")
	require.NoError(t, err)
	assert.Equal(t, DatasetConfig{Name: "tickers.spy", Path: "data/tickers.csv", KeyColumn: "offset"}, ds)

	// Only the last colon separates the key column.
	ds, err = ParseDatasetFlag("t=dir:sub/file.csv:offset")
	require.NoError(t, err)
	assert.Equal(t, "dir:sub/file.csv", ds.Path)
	assert.Equal(t, "offset", ds.KeyColumn)

	for _, bad := range []string{"", "tickers.spy", "tickers.spy=", "=data/t.csv"} {
		_, err := ParseDatasetFlag(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestValidateAcceptsWarnPolicy(t *testing.T) {
	cfg := Default()
	cfg.OnUnsupported = "warn"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, odata.OnUnsupportedWarn, cfg.Policy())
}

func TestDatasetSchema(t *testing.T) {
	ds := DatasetConfig{Name: "tickers.spy", Path: "t.csv"}
	schema, err := ds.Schema()
	require.NoError(t, err)
	assert.Nil(t, schema)

	ds.Columns = []ColumnConfig{
		{Name: "offset", Type: "int64"},
		{Name: "close", Type: "float64", Nullable: true},
	}
	schema, err = ds.Schema()
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, []tabular.Field{
		{Name: "offset", Type: tabular.Int64},
		{Name: "close", Type: tabular.Float64, Nullable: true},
	}, schema.Fields())

	ds.Columns[1].Type = "varchar"
	_, err = ds.Schema()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dataset "tickers.spy" column "close"`)
	assert.Contains(t, err.Error(), `unknown data type "varchar"`)
}
