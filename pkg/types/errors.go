package types

import "errors"

// Domain errors shared across packages.
var (
	// ErrMissingQuery is reported when the CLI is invoked without a query
	// argument. Nothing is searched in that case.
	ErrMissingQuery = errors.New("missing query argument")

	// ErrEmptyQuery is reported for a query that is present but blank.
	ErrEmptyQuery = errors.New("query cannot be empty")
)
