package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotRegistered) {
//	    // handle unregistered device
//	}
var (
	// ErrNotRegistered is returned when a device performs a publish or
	// subscribe operation before it has been registered with a board.
	ErrNotRegistered = errors.New("device: not registered with a board")

	// ErrInvalidName is returned when a device name is empty.
	ErrInvalidName = errors.New("device: name cannot be empty")

	// ErrInvalidDirection is returned when a pin direction is not IN or OUT.
	ErrInvalidDirection = errors.New("device: invalid direction")
)
