// Package odata implements the protocol pipeline: collection addressing,
// query option decoding, filter translation, and plan application against
// the tabular engine.
package odata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zodata/odata-serve/internal/tabular"
)

// Error texts below are part of the HTTP surface and keep their exact
// wording and capitalization.

// CollectionNotFound reports an address that does not name a registered
// collection, or a key that matches no row.
type CollectionNotFound struct {
	Collection string
}

func (e *CollectionNotFound) Error() string {
	return fmt.Sprintf("Collection %s not found", e.Collection)
}

// FilterParsingError reports a $filter string the grammar or the
// translator rejected.
type FilterParsingError struct {
	Message string
}

func (e *FilterParsingError) Error() string {
	return e.Message
}

// UnsupportedDataType reports a column whose physical type has no EDM
// mapping.
type UnsupportedDataType struct {
	DataType tabular.DataType
}

func (e *UnsupportedDataType) Error() string {
	return fmt.Sprintf("Unsupported data type: %s", e.DataType)
}

// UnsupportedFeature reports protocol surface the pipeline does not
// implement, such as filter functions or time-of-day literals.
type UnsupportedFeature struct {
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("Unsupported feature: %s", e.Feature)
}

// UnsupportedNetProtocol reports a configured base URL whose scheme is
// neither http nor https.
type UnsupportedNetProtocol struct {
	URL string
}

func (e *UnsupportedNetProtocol) Error() string {
	return fmt.Sprintf("Unsupported net protocol: %s", e.URL)
}

var (
	// ErrKeyColumnNotAssigned is returned by context accessors when the
	// current context carries no key column.
	ErrKeyColumnNotAssigned = errors.New("Key column not assigned")

	// ErrCollectionAddressNotAssigned is returned by context accessors
	// when the current context carries no collection address.
	ErrCollectionAddressNotAssigned = errors.New("Collection address not assigned")
)

// InternalError wraps a failure whose cause must stay out of the
// response body. The cause is for server-side logs only.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "Internal error" }

func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an InternalError, passing nil through.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Err: err}
}

// HTTPStatus maps a pipeline error to its response status code. Errors
// outside the closed taxonomy are treated as internal.
func HTTPStatus(err error) int {
	var (
		notFound    *CollectionNotFound
		filterErr   *FilterParsingError
		dataType    *UnsupportedDataType
		feature     *UnsupportedFeature
		netProtocol *UnsupportedNetProtocol
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &filterErr):
		return http.StatusBadRequest
	case errors.As(err, &dataType),
		errors.As(err, &feature),
		errors.As(err, &netProtocol),
		errors.Is(err, ErrKeyColumnNotAssigned),
		errors.Is(err, ErrCollectionAddressNotAssigned):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// ResponseBody returns the error text sent to the caller. Internal and
// unclassified errors collapse to a fixed message.
func ResponseBody(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "Internal error"
	}
	return err.Error()
}
