package odata

import (
	"context"
	"fmt"
	"time"

	"github.com/zodata/odata-serve/internal/tabular"
)

// OnUnsupported selects how a context reacts to protocol surface the
// pipeline cannot represent, such as a column type without an EDM
// mapping.
type OnUnsupported int

const (
	// OnUnsupportedError fails the whole request.
	OnUnsupportedError OnUnsupported = iota
	// OnUnsupportedWarn logs the problem and recovers, dropping the
	// offending column from the output.
	OnUnsupportedWarn
)

func (p OnUnsupported) String() string {
	switch p {
	case OnUnsupportedError:
		return "error"
	case OnUnsupportedWarn:
		return "warn"
	default:
		return fmt.Sprintf("OnUnsupported(%d)", int(p))
	}
}

// ParseOnUnsupported reads the configuration spelling of the policy.
func ParseOnUnsupported(s string) (OnUnsupported, error) {
	switch s {
	case "error":
		return OnUnsupportedError, nil
	case "warn":
		return OnUnsupportedWarn, nil
	default:
		return 0, fmt.Errorf("unknown unsupported-feature policy %q (want \"error\" or \"warn\")", s)
	}
}

// ServiceContext is the service-level view handed to the service document
// and metadata builders.
type ServiceContext interface {
	ServiceBaseURL() string

	ListCollections(ctx context.Context) ([]CollectionContext, error)

	OnUnsupportedFeature() OnUnsupported
}

// CollectionContext is the per-collection view the pipeline runs against.
// Accessors that depend on state a given context instance does not carry
// return ErrCollectionAddressNotAssigned or ErrKeyColumnNotAssigned.
type CollectionContext interface {
	Addr() (*CollectionAddr, error)

	ServiceBaseURL() (string, error)

	CollectionBaseURL() (string, error)

	CollectionNamespace() (string, error)

	CollectionName() (string, error)

	// KeyColumnAlias names the synthetic column that propagates entity
	// identity through the query plan.
	KeyColumnAlias() string

	KeyColumn() (string, error)

	LastUpdatedTime(ctx context.Context) time.Time

	Schema(ctx context.Context) (*tabular.Schema, error)

	Query(ctx context.Context, plan *QueryPlan) (*tabular.Frame, error)

	OnUnsupportedFeature() OnUnsupported

	// Validate checks the collected batches before they are encoded.
	Validate(batches []*tabular.Batch) error
}
