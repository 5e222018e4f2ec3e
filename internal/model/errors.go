package model

import "errors"

// ErrInvalidInput marks malformed dates, amounts, factors or catalogues.
var ErrInvalidInput = errors.New("invalid input")
