// Package domain contains persistence models for act fee templates.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ItemKind is the closed set of calculation item kinds. The engine handles
// every kind exhaustively; an unknown kind is a configuration error, never a
// silent zero.
type ItemKind string

const (
	ItemKindPercentage ItemKind = "PERCENTAGE"
	ItemKindFixed      ItemKind = "FIXED"
	ItemKindScale      ItemKind = "SCALE"
	ItemKindUserInput  ItemKind = "USER_INPUT"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindPercentage, ItemKindFixed, ItemKindScale, ItemKindUserInput:
		return true
	default:
		return false
	}
}

// SectionCategory determines which invoice total a section's items roll up
// into. Disbursement-flagged items roll up to débours regardless of section.
type SectionCategory string

const (
	SectionCategoryEmoluments SectionCategory = "EMOLUMENTS"
	SectionCategoryDroits     SectionCategory = "DROITS"
	SectionCategoryAutres     SectionCategory = "AUTRES"
)

func (c SectionCategory) Valid() bool {
	switch c {
	case SectionCategoryEmoluments, SectionCategoryDroits, SectionCategoryAutres:
		return true
	default:
		return false
	}
}

// ActTemplate is a named set of sections evaluated against a transaction
// context. Templates are read-only to the engine: evaluation never mutates
// them, and issued invoices keep their own snapshot of the computed lines.
type ActTemplate struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	Code  string       `gorm:"type:text;not null;uniqueIndex"`
	Label string       `gorm:"type:text;not null"`

	Sections []ActSection `gorm:"foreignKey:TemplateID;references:ID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ActTemplate) TableName() string { return "act_templates" }

// ActSection groups ordered calculation items under one category.
type ActSection struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	TemplateID snowflake.ID    `gorm:"not null;index"`
	Position   int             `gorm:"not null"`
	Label      string          `gorm:"type:text;not null"`
	Category   SectionCategory `gorm:"type:text;not null"`

	Items []CalculationItem `gorm:"foreignKey:SectionID;references:ID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ActSection) TableName() string { return "act_sections" }

// CalculationItem is one priced line of a template.
//
// Value is a percentage for PERCENTAGE, a fixed amount for FIXED; it is
// ignored for SCALE (resolved through ScaleTableID) and USER_INPUT
// (supplied in the evaluation context).
type CalculationItem struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	SectionID snowflake.ID `gorm:"not null;index"`
	Position  int          `gorm:"not null"`

	Label          string        `gorm:"type:text;not null"`
	Kind           ItemKind      `gorm:"type:text;not null"`
	Value          float64       `gorm:"not null;default:0"`
	ScaleTableID   *snowflake.ID `gorm:"index"`
	AccountCode    string        `gorm:"type:text;not null"`
	IsDisbursement bool          `gorm:"not null;default:false"`

	Taxes []CalculationItemTax `gorm:"foreignKey:ItemID;references:ID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CalculationItem) TableName() string { return "calculation_items" }

// TaxIDs returns the attached tax definition ids in declaration order.
func (i CalculationItem) TaxIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(i.Taxes))
	for _, t := range i.Taxes {
		ids = append(ids, t.TaxDefinitionID)
	}
	return ids
}

// CalculationItemTax attaches a tax definition to a calculation item.
type CalculationItemTax struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ItemID          snowflake.ID `gorm:"not null;index"`
	TaxDefinitionID snowflake.ID `gorm:"not null;index"`
}

func (CalculationItemTax) TableName() string { return "calculation_item_taxes" }
