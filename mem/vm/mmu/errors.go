package mmu

import "errors"

var (
	// ErrNotConfigured is returned when translating before the engine has a
	// configuration.
	ErrNotConfigured = errors.New("engine not configured")

	// ErrNoPendingAddress is returned by the driver when there is nothing
	// left to translate.
	ErrNoPendingAddress = errors.New("no pending address")
)
