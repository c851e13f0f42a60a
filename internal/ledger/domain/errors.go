package domain

import "errors"

var (
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceID   = errors.New("invalid_source_id")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidOccurredAt = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines = errors.New("invalid_entry_lines")
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInvalidLineAmount = errors.New("invalid_line_amount")
	ErrUnbalancedEntry   = errors.New("unbalanced_entry")
)
