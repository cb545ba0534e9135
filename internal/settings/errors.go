package settings

import "errors"

var (
	// ErrPersist wraps any failure to write settings durably.
	ErrPersist = errors.New("settings: persist failed")

	// ErrRegistry is returned by LoadRegistry for an unreadable or
	// malformed roof registry file.
	ErrRegistry = errors.New("settings: invalid roof registry")
)
