package suppress

import "errors"

var (
	// ErrStoreNil is returned when a limiter is constructed without a store
	ErrStoreNil = errors.New("suppression store cannot be nil")
)
