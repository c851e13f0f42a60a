package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidKind     = errors.New("invalid_item_kind")
	ErrInvalidValue    = errors.New("invalid_item_value")
	ErrInvalidCategory = errors.New("invalid_section_category")
	ErrInvalidScale    = errors.New("invalid_scale_reference")
	ErrNotFound        = errors.New("not_found")
	ErrReferenced      = errors.New("template_referenced_by_invoice")
)
