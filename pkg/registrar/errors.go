package registrar

import "errors"

var (
	// ErrInvalidSnapshot is returned when a cached snapshot cannot be decoded
	// or lacks the alias table (an entry written by an older format). The
	// registrar treats it as a cache miss and rebuilds.
	ErrInvalidSnapshot = errors.New("permission cache snapshot is invalid")
)
