package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrNotFound       = errors.New("not_found")
	ErrMalformedScale = errors.New("malformed_scale_table")
)
