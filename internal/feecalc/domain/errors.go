package domain

import "errors"

// The engine's error taxonomy. Configuration errors are author-time and
// must be fixed in the template or barème; input errors are recoverable by
// the caller resubmitting a corrected context. None are retried.
var (
	ErrConfiguration  = errors.New("configuration_error")
	ErrMissingInput   = errors.New("missing_input")
	ErrInvalidContext = errors.New("invalid_context")
)
