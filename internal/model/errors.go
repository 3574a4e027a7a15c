package model

import "errors"

// Domain error sentinels. Handlers map these onto HTTP statuses; batch
// operations record them per item instead of failing the whole batch.
var (
	// ErrNotFound indicates the referenced entity does not exist for the
	// given tenant (wrong tenant counts as absent).
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates malformed input. Never retried.
	ErrValidation = errors.New("validation failed")
)
