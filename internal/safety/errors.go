package safety

import "errors"

var (
	// ErrPersistence wraps a settings store save failure.
	ErrPersistence = errors.New("safety: saving settings failed")

	// ErrUnknownRoof is returned when selecting a roof not in the registry.
	ErrUnknownRoof = errors.New("safety: roof not in registry")

	// ErrInvalidSettings is returned for out-of-range operator input.
	ErrInvalidSettings = errors.New("safety: invalid settings")
)
