package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Well-known tax codes seeded for a new étude.
// These codes are ENGINE-CONSTANTS. Do NOT rename or repurpose once
// referenced by issued invoices.
const (
	TaxCodeTVA = "TVA"

	// Contribution au programme de rénovation (example levy, disabled by default).
	TaxCodeCPR = "CPR"
)

// TaxBasis describes what a tax rate applies to. Line amount (HT) is the
// only basis the engine supports: taxes attached to one item are additive
// on the HT base and never compound on each other.
type TaxBasis string

const (
	TaxBasisLineAmount TaxBasis = "lineAmount"
)

// TaxDefinition is a named tax referenced by calculation items.
//
// Amounts on issued invoices are snapshots, so editing a definition never
// rewrites history; rate changes on a referenced definition must go through
// disable-and-recreate (see service.Update).
type TaxDefinition struct {
	ID snowflake.ID `gorm:"primaryKey"`

	Code    string   `gorm:"type:text;not null;index"`
	Name    string   `gorm:"type:text;not null"`
	RatePct float64  `gorm:"column:rate_pct;not null"` // percent, e.g. 18 for 18%
	Basis   TaxBasis `gorm:"type:text;not null;default:'lineAmount'"`

	IsEnabled bool `gorm:"column:is_enabled;not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxDefinition) TableName() string { return "tax_definitions" }

func (t *TaxDefinition) Validate() error {
	if t.Code == "" {
		return ErrInvalidTaxCode
	}
	if t.RatePct < 0 {
		return ErrInvalidTaxRate
	}
	if t.Basis != "" && t.Basis != TaxBasisLineAmount {
		return ErrInvalidTaxBasis
	}
	return nil
}
