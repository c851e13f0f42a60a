// Package engine implements the pure fee computation. Evaluate has no
// shared state and no clock or randomness: identical inputs always produce
// identical outputs, and it is safe to call concurrently.
package engine

import (
	"fmt"
	"math"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
)

// Evaluate prices every calculation item of the template in declaration
// order against the supplied context.
//
// Rounding discipline: each line's HT and each tax amount are rounded
// half-away-from-zero to the minor unit before aggregation, and totals are
// integer sums of the rounded lines. That is what makes
// Σ line.TotalTTC == Totals.TTC hold exactly.
func Evaluate(
	template *templatedomain.ActTemplate,
	taxes map[snowflake.ID]taxdomain.TaxDefinition,
	scales map[snowflake.ID]baremedomain.ScaleTable,
	evalCtx feedomain.Context,
) (*feedomain.Result, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: template is nil", feedomain.ErrConfiguration)
	}
	if evalCtx.BaseAmount < 0 {
		return nil, fmt.Errorf("%w: negative base amount %d", feedomain.ErrInvalidContext, evalCtx.BaseAmount)
	}

	result := &feedomain.Result{
		TemplateID:   template.ID,
		TemplateCode: template.Code,
		BaseAmount:   evalCtx.BaseAmount,
	}

	for _, section := range template.Sections {
		for _, item := range section.Items {
			line, err := evaluateItem(section, item, taxes, scales, evalCtx)
			if err != nil {
				return nil, err
			}

			result.LineItems = append(result.LineItems, *line)

			switch line.Category {
			case feedomain.CategoryDebours:
				result.Totals.Debours += line.TotalHT
			case feedomain.CategoryDroits:
				result.Totals.Droits += line.TotalHT
			default:
				result.Totals.Emoluments += line.TotalHT
			}
			result.Totals.TVA += line.TaxAmount
		}
	}

	result.Totals.HT = result.Totals.Emoluments + result.Totals.Debours + result.Totals.Droits
	result.Totals.TTC = result.Totals.HT + result.Totals.TVA

	return result, nil
}

func evaluateItem(
	section templatedomain.ActSection,
	item templatedomain.CalculationItem,
	taxes map[snowflake.ID]taxdomain.TaxDefinition,
	scales map[snowflake.ID]baremedomain.ScaleTable,
	evalCtx feedomain.Context,
) (*feedomain.LineItem, error) {
	var totalHT int64
	unitBase := evalCtx.BaseAmount

	switch item.Kind {
	case templatedomain.ItemKindPercentage:
		if item.Value < 0 {
			return nil, fmt.Errorf("%w: item %s has negative percentage %v", feedomain.ErrConfiguration, item.ID, item.Value)
		}
		totalHT = roundHalfAway(float64(evalCtx.BaseAmount) * item.Value / 100)
	case templatedomain.ItemKindFixed:
		if item.Value < 0 {
			return nil, fmt.Errorf("%w: item %s has negative fixed amount %v", feedomain.ErrConfiguration, item.ID, item.Value)
		}
		totalHT = roundHalfAway(item.Value)
		unitBase = totalHT
	case templatedomain.ItemKindScale:
		if item.ScaleTableID == nil {
			return nil, fmt.Errorf("%w: item %s has no scale table", feedomain.ErrConfiguration, item.ID)
		}
		table, ok := scales[*item.ScaleTableID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s references unknown scale table %s", feedomain.ErrConfiguration, item.ID, item.ScaleTableID)
		}
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", feedomain.ErrConfiguration, err)
		}
		totalHT = computeScale(table, evalCtx.BaseAmount)
	case templatedomain.ItemKindUserInput:
		value, ok := evalCtx.UserInputs[item.ID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s requires a user input value", feedomain.ErrMissingInput, item.ID)
		}
		// Negative lines would break the sign conventions of the ledger
		// derivation (debits and credits are non-negative by construction).
		if value < 0 {
			return nil, fmt.Errorf("%w: item %s has negative input %d", feedomain.ErrInvalidContext, item.ID, value)
		}
		totalHT = value
		unitBase = value
	default:
		return nil, fmt.Errorf("%w: item %s has unknown kind %q", feedomain.ErrConfiguration, item.ID, item.Kind)
	}

	line := &feedomain.LineItem{
		SourceItemID:   item.ID,
		Label:          item.Label,
		Category:       categorize(section, item),
		Quantity:       1,
		UnitBaseAmount: unitBase,
		TotalHT:        totalHT,
		AccountCode:    item.AccountCode,
		IsDisbursement: item.IsDisbursement,
	}

	// Taxes are additive on the HT base, never compounded on each other,
	// so the attachment order cannot change the result.
	for _, attached := range item.Taxes {
		def, ok := taxes[attached.TaxDefinitionID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s references unknown tax %s", feedomain.ErrConfiguration, item.ID, attached.TaxDefinitionID)
		}
		amount := roundHalfAway(float64(totalHT) * def.RatePct / 100)
		line.Taxes = append(line.Taxes, feedomain.AppliedTax{
			TaxDefinitionID: def.ID,
			Code:            def.Code,
			RatePct:         def.RatePct,
			Amount:          amount,
		})
		line.TaxRatePct += def.RatePct
		line.TaxAmount += amount
	}
	line.TotalTTC = line.TotalHT + line.TaxAmount

	return line, nil
}

// computeScale accumulates marginal brackets: each segment contributes its
// rate applied to the slice of the base falling inside the bracket, plus
// any fixed amount once the base reaches the bracket. A flat-rate lookup of
// the final bracket would break continuity at boundaries.
func computeScale(table baremedomain.ScaleTable, baseAmount int64) int64 {
	var sum float64
	for _, seg := range table.Segments {
		if baseAmount <= seg.LowerBound {
			break
		}
		reach := baseAmount
		if seg.UpperBound != nil && *seg.UpperBound < reach {
			reach = *seg.UpperBound
		}
		if seg.RatePct != nil {
			sum += *seg.RatePct * float64(reach-seg.LowerBound) / 100
		}
		if seg.FixedAmount != nil {
			sum += float64(*seg.FixedAmount)
		}
	}
	return roundHalfAway(sum)
}

func categorize(section templatedomain.ActSection, item templatedomain.CalculationItem) feedomain.LineCategory {
	if item.IsDisbursement {
		return feedomain.CategoryDebours
	}
	if section.Category == templatedomain.SectionCategoryDroits {
		return feedomain.CategoryDroits
	}
	return feedomain.CategoryEmoluments
}

// roundHalfAway rounds to the nearest minor unit, ties away from zero.
func roundHalfAway(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return -int64(math.Floor(-x + 0.5))
}
