package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidTaxCode  = errors.New("invalid_tax_code")
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
	ErrInvalidTaxBasis = errors.New("invalid_tax_basis")
	ErrNotFound        = errors.New("not_found")
	ErrReferenced      = errors.New("tax_referenced_by_invoice")
)
