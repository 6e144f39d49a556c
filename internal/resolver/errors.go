package resolver

import "errors"

// ErrInvalidService is returned when the service name cannot be used as a directory name.
var ErrInvalidService = errors.New("service name must be a non-empty single path element")
