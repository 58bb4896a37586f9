package config

import (
	"fmt"
	"strings"

	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

// Config holds all configuration options for the OData server
type Config struct {
	// HTTP listener
	Addr     string `mapstructure:"addr"`
	BasePath string `mapstructure:"base_path"`

	// BaseURL is the public URL advertised in service and Atom documents.
	// When empty the server derives it from each request's Host header.
	BaseURL string `mapstructure:"base_url"`

	// Schema namespace used in $metadata and entry category terms
	Namespace string `mapstructure:"namespace"`

	// Row limits applied to every collection query
	DefaultRows int `mapstructure:"default_rows"`
	MaxRows     int `mapstructure:"max_rows"`

	// OnUnsupported selects how columns with no EDM mapping are handled:
	// "error" fails the request, "warn" logs and drops the column.
	OnUnsupported string `mapstructure:"on_unsupported"`

	// Datasets to load at startup
	Datasets []DatasetConfig `mapstructure:"datasets"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatasetConfig describes one CSV-backed collection. Columns pins the
// schema; when absent the loader infers column types from the data.
type DatasetConfig struct {
	Name      string         `mapstructure:"name"`
	Path      string         `mapstructure:"path"`
	KeyColumn string         `mapstructure:"key_column"`
	Columns   []ColumnConfig `mapstructure:"columns"`
}

// ColumnConfig declares one column of a pinned dataset schema.
type ColumnConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Nullable bool   `mapstructure:"nullable"`
}

// Schema builds the declared schema, or nil when types are left to
// inference.
func (d DatasetConfig) Schema() (*tabular.Schema, error) {
	if len(d.Columns) == 0 {
		return nil, nil
	}
	fields := make([]tabular.Field, len(d.Columns))
	for i, col := range d.Columns {
		dt, err := tabular.ParseDataType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("dataset %q column %q: %w", d.Name, col.Name, err)
		}
		fields[i] = tabular.Field{Name: col.Name, Type: dt, Nullable: col.Nullable}
	}
	return tabular.NewSchema(fields), nil
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Addr:          constants.DefaultAddr,
		BasePath:      constants.DefaultBasePath,
		Namespace:     constants.DefaultNamespace,
		DefaultRows:   constants.DefaultRows,
		MaxRows:       constants.DefaultMaxRows,
		OnUnsupported: "error",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Validate checks field values and normalizes the base path. It is called
// once after flags, environment and config file have been merged.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	c.BasePath = normalizeBasePath(c.BasePath)
	if c.DefaultRows <= 0 {
		return fmt.Errorf("default-rows must be positive, got %d", c.DefaultRows)
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("max-rows must be positive, got %d", c.MaxRows)
	}
	if c.DefaultRows > c.MaxRows {
		return fmt.Errorf("default-rows %d exceeds max-rows %d", c.DefaultRows, c.MaxRows)
	}
	if _, err := odata.ParseOnUnsupported(c.OnUnsupported); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("dataset %d has no name", i)
		}
		if ds.Path == "" {
			return fmt.Errorf("dataset %q has no path", ds.Name)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("dataset %q listed twice", ds.Name)
		}
		seen[ds.Name] = struct{}{}
		for _, col := range ds.Columns {
			if col.Name == "" {
				return fmt.Errorf("dataset %q has a column with no name", ds.Name)
			}
			if _, err := tabular.ParseDataType(col.Type); err != nil {
				return fmt.Errorf("dataset %q column %q: %w", ds.Name, col.Name, err)
			}
		}
	}
	return nil
}

// Policy returns the parsed unsupported-column policy. Call Validate first.
func (c *Config) Policy() odata.OnUnsupported {
	p, _ := odata.ParseOnUnsupported(c.OnUnsupported)
	return p
}

// ParseDatasetFlag parses the "name=path[:keycolumn]" form used by the
// --dataset flag. The key column is split at the last colon, so paths
// containing colons must be configured through a config file instead.
func ParseDatasetFlag(s string) (DatasetConfig, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" || rest == "" {
		return DatasetConfig{}, fmt.Errorf("invalid dataset %q, want name=path[:keycolumn]", s)
	}
	ds := DatasetConfig{Name: name, Path: rest}
	if i := strings.LastIndex(rest, ":"); i > 0 && i < len(rest)-1 {
		ds.Path, ds.KeyColumn = rest[:i], rest[i+1:]
	}
	return ds, nil
}

// normalizeBasePath ensures a leading slash and strips the trailing one,
// keeping bare "/" as is.
func normalizeBasePath(p string) string {
	if p == "" {
		return constants.DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
