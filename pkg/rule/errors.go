package rule

import "errors"

var (
	// ErrValidation is wrapped by all rule validation failures; surfaced
	// synchronously to the caller and never retried
	ErrValidation = errors.New("rule validation failed")

	// ErrNotFound is returned when a rule does not exist in the store
	ErrNotFound = errors.New("rule not found")

	// ErrStoreNil is returned when a service is constructed without a store
	ErrStoreNil = errors.New("rule store cannot be nil")
)
