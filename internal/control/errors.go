package control

import "errors"

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid training control configuration")
)
