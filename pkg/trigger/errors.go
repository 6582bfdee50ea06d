package trigger

import "errors"

var (
	// ErrDependencyNil is returned when the service is constructed with a
	// missing collaborator
	ErrDependencyNil = errors.New("trigger service dependency cannot be nil")

	// ErrAlertNotFound is returned by alert stores for unknown ids
	ErrAlertNotFound = errors.New("alert not found")
)
