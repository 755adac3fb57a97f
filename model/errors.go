package model

import "errors"

// Error taxonomy of the adaptive layer. Validation errors are rejected at
// the boundary and never retried; transient store errors fail a single
// update without aborting its siblings; ErrAlreadyResolved is the
// non-fatal result of losing a status-transition race.
var (
	ErrValidation      = errors.New("validation error")
	ErrTransientStore  = errors.New("transient store error")
	ErrAlreadyResolved = errors.New("relationship already resolved")
)
