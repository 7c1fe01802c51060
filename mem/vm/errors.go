package vm

import "errors"

var (
	// ErrInvalidConfiguration is returned when a hierarchy is sized with
	// values it cannot be built from.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAddressOutOfRange is returned when a virtual page number does not
	// fit in the configured page table.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrAddressLengthMismatch is returned when an address cannot be
	// interpreted at the configured width.
	ErrAddressLengthMismatch = errors.New("address length mismatch")

	// ErrInvalidStepSequence is returned when translation steps are invoked
	// out of order.
	ErrInvalidStepSequence = errors.New("invalid step sequence")
)
