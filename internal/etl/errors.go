package etl

import "errors"

// Errors returned by the merge pipeline. Callers match them with errors.Is;
// the wrapped message names the failing table, column or resource.
var (
	// ErrResourceUnavailable is returned when an input cannot be opened for
	// reading or the output cannot be opened for writing.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrMissingKeyColumn is returned when a table header lacks the
	// configured join key column.
	ErrMissingKeyColumn = errors.New("missing key column")

	// ErrMalformedRow is returned when a matched secondary record lacks a
	// column required by the overlay spec.
	ErrMalformedRow = errors.New("malformed row")

	// ErrExtraColumn is returned by a destination when a record carries a
	// column outside the output schema and the policy is to reject it.
	ErrExtraColumn = errors.New("column outside output schema")

	// ErrUnsupportedResource is returned when a resource reference does not
	// map to any registered source or destination.
	ErrUnsupportedResource = errors.New("unsupported resource")
)
