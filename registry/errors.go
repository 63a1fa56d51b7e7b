package registry

import "errors"

var (
	//Returned when a registry is created without a root path
	ErrMissingRootPath = errors.New("Failed to create registry: a root path must be provided")
	//Returned by registry operations invoked after Close
	ErrClosed = errors.New("Registry operation failed: registry is closed")
)
