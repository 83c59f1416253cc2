package board

import "errors"

// Domain-specific errors for board configuration.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidIdentifier is returned when a board identifier is empty.
	ErrInvalidIdentifier = errors.New("board: identifier cannot be empty")

	// ErrInvalidPort is returned when a broker port is outside the
	// unprivileged range 1024-65535.
	ErrInvalidPort = errors.New("board: port must be between 1024 and 65535")
)
