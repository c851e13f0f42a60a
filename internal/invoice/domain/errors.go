package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrEmptyEvaluation  = errors.New("empty_evaluation")
	ErrInvalidPayment   = errors.New("invalid_payment")
	ErrInvoiceCancelled = errors.New("invoice_cancelled")
	ErrInvoicePaid      = errors.New("invoice_paid")
	ErrNotCancellable   = errors.New("invoice_not_cancellable")
	ErrNotDraft         = errors.New("invoice_not_draft")
)
