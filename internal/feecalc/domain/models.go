// Package domain defines the evaluation contract of the fee engine.
package domain

import (
	"github.com/bwmarrin/snowflake"
)

// LineCategory is the invoice bucket a computed line rolls up into.
type LineCategory string

const (
	CategoryEmoluments LineCategory = "EMOLUMENTS"
	CategoryDebours    LineCategory = "DEBOURS"
	CategoryDroits     LineCategory = "DROITS"
)

// Context supplies the transaction inputs for one evaluation.
// UserInputs are keyed by calculation item id.
type Context struct {
	BaseAmount int64
	UserInputs map[snowflake.ID]int64
}

// AppliedTax records one tax applied to a computed line.
type AppliedTax struct {
	TaxDefinitionID snowflake.ID `json:"tax_definition_id"`
	Code            string       `json:"code"`
	RatePct         float64      `json:"rate_pct"`
	Amount          int64        `json:"amount"`
}

// LineItem is a computed, never hand-edited, priced line. Amounts are in
// currency minor units, already rounded: totals are integer sums of lines.
type LineItem struct {
	SourceItemID   snowflake.ID `json:"source_item_id"`
	Label          string       `json:"label"`
	Category       LineCategory `json:"category"`
	Quantity       int64        `json:"quantity"`
	UnitBaseAmount int64        `json:"unit_base_amount"`
	TotalHT        int64        `json:"total_ht"`
	TaxRatePct     float64      `json:"tax_rate_pct"`
	TaxAmount      int64        `json:"tax_amount"`
	TotalTTC       int64        `json:"total_ttc"`
	AccountCode    string       `json:"account_code"`
	IsDisbursement bool         `json:"is_disbursement"`
	Taxes          []AppliedTax `json:"taxes,omitempty"`
}

// Totals aggregates rounded line items by category.
type Totals struct {
	Emoluments int64 `json:"emoluments"`
	Debours    int64 `json:"debours"`
	Droits     int64 `json:"droits"`
	TVA        int64 `json:"tva"`
	HT         int64 `json:"ht"`
	TTC        int64 `json:"ttc"`
}

// Result is the full output of one evaluation.
type Result struct {
	TemplateID   snowflake.ID `json:"template_id"`
	TemplateCode string       `json:"template_code"`
	BaseAmount   int64        `json:"base_amount"`
	LineItems    []LineItem   `json:"line_items"`
	Totals       Totals       `json:"totals"`
}
