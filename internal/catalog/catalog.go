// Package catalog adapts the in-memory tabular catalog to the protocol
// context interfaces.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

// Options configures a Service. Zero values fall back to the protocol
// defaults.
type Options struct {
	BaseURL       string
	Namespace     string
	DefaultRows   int
	MaxRows       int
	OnUnsupported odata.OnUnsupported
	// LastUpdated stamps every collection's <updated> element. Zero
	// means the service construction time.
	LastUpdated time.Time
}

// Service implements odata.ServiceContext over registered tables.
// Registration happens during startup; afterwards the service is
// read-only and safe for concurrent requests.
type Service struct {
	catalog     *tabular.Catalog
	baseURL     string
	namespace   string
	defaultRows int
	maxRows     int
	policy      odata.OnUnsupported
	lastUpdated time.Time
	keyColumns  map[string]string
}

func NewService(opts Options) *Service {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = constants.DefaultNamespace
	}
	defaultRows := opts.DefaultRows
	if defaultRows <= 0 {
		defaultRows = constants.DefaultRows
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = constants.DefaultMaxRows
	}
	lastUpdated := opts.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}

	return &Service{
		catalog:     tabular.NewCatalog(),
		baseURL:     opts.BaseURL,
		namespace:   namespace,
		defaultRows: defaultRows,
		maxRows:     maxRows,
		policy:      opts.OnUnsupported,
		lastUpdated: lastUpdated.UTC(),
		keyColumns:  make(map[string]string),
	}
}

// Register adds a table as a collection. keyColumn may be empty, in
// which case entity identity falls back to the first schema column.
func (s *Service) Register(name string, table *tabular.Table, keyColumn string) error {
	if keyColumn != "" && table.Schema().Index(keyColumn) < 0 {
		return fmt.Errorf("key column %q is not in the schema of table %q", keyColumn, name)
	}
	if err := s.catalog.Register(name, table); err != nil {
		return err
	}
	if keyColumn != "" {
		s.keyColumns[name] = keyColumn
	}
	return nil
}

func (s *Service) ServiceBaseURL() string { return s.baseURL }

// WithBaseURL returns a view of the service that resolves URLs against
// the given base. Used when the public URL is derived per request rather
// than configured.
func (s *Service) WithBaseURL(base string) *Service {
	if base == "" || base == s.baseURL {
		return s
	}
	view := *s
	view.baseURL = base
	return &view
}

func (s *Service) ListCollections(ctx context.Context) ([]odata.CollectionContext, error) {
	names := s.catalog.Names()
	colls := make([]odata.CollectionContext, 0, len(names))
	for _, name := range names {
		coll, err := s.Collection(&odata.CollectionAddr{Name: name})
		if err != nil {
			return nil, err
		}
		colls = append(colls, coll)
	}
	return colls, nil
}

func (s *Service) OnUnsupportedFeature() odata.OnUnsupported { return s.policy }

// Collection resolves an address against the registry.
func (s *Service) Collection(addr *odata.CollectionAddr) (odata.CollectionContext, error) {
	table, ok := s.catalog.Table(addr.Name)
	if !ok {
		return nil, &odata.CollectionNotFound{Collection: addr.Name}
	}
	return &Collection{svc: s, addr: addr, table: table}, nil
}

// Collection implements odata.CollectionContext for one registered
// table.
type Collection struct {
	svc   *Service
	addr  *odata.CollectionAddr
	table *tabular.Table
}

func (c *Collection) Addr() (*odata.CollectionAddr, error) { return c.addr, nil }

func (c *Collection) ServiceBaseURL() (string, error) { return c.svc.baseURL, nil }

func (c *Collection) CollectionBaseURL() (string, error) {
	return strings.TrimSuffix(c.svc.baseURL, "/") + "/" + c.addr.Name, nil
}

func (c *Collection) CollectionNamespace() (string, error) { return c.svc.namespace, nil }

func (c *Collection) CollectionName() (string, error) { return c.addr.Name, nil }

func (c *Collection) KeyColumnAlias() string { return constants.DefaultKeyColumnAlias }

func (c *Collection) KeyColumn() (string, error) {
	key, ok := c.svc.keyColumns[c.addr.Name]
	if !ok {
		return "", odata.ErrKeyColumnNotAssigned
	}
	return key, nil
}

func (c *Collection) LastUpdatedTime(ctx context.Context) time.Time { return c.svc.lastUpdated }

func (c *Collection) Schema(ctx context.Context) (*tabular.Schema, error) {
	return c.table.Schema(), nil
}

func (c *Collection) Query(ctx context.Context, plan *odata.QueryPlan) (*tabular.Frame, error) {
	keyColumn, err := c.keyColumn()
	if err != nil {
		return nil, err
	}
	return odata.ApplyQueryPlan(
		plan,
		c.table.Frame(),
		c.addr,
		keyColumn,
		c.KeyColumnAlias(),
		c.svc.defaultRows,
		c.svc.maxRows,
	)
}

// keyColumn is the column entity identity aliases: the registered key
// column, or the first schema column.
func (c *Collection) keyColumn() (string, error) {
	if key, err := c.KeyColumn(); err == nil {
		return key, nil
	}
	if c.table.Schema().Len() == 0 {
		return "", odata.ErrKeyColumnNotAssigned
	}
	return c.table.Schema().Field(0).Name, nil
}

func (c *Collection) OnUnsupportedFeature() odata.OnUnsupported { return c.svc.policy }

// Validate checks that collected batches agree on one schema before
// encoding starts.
func (c *Collection) Validate(batches []*tabular.Batch) error {
	for i := 1; i < len(batches); i++ {
		if batches[i].Schema() != batches[0].Schema() {
			return odata.Internal(fmt.Errorf("batch %d schema differs from batch 0", i))
		}
	}
	return nil
}
