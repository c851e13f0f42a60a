package engine

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

// saleFixture builds a property-sale template: a 5% proportional émolument
// taxed at 18%, a user-supplied disbursement, and a registration duty
// resolved from a marginal barème.
func saleFixture(node *snowflake.Node) (
	*templatedomain.ActTemplate,
	map[snowflake.ID]taxdomain.TaxDefinition,
	map[snowflake.ID]baremedomain.ScaleTable,
	snowflake.ID, // disbursement item id
) {
	tva := taxdomain.TaxDefinition{
		ID:      node.Generate(),
		Code:    taxdomain.TaxCodeTVA,
		Name:    "TVA",
		RatePct: 18,
		Basis:   taxdomain.TaxBasisLineAmount,
	}

	scale := baremedomain.ScaleTable{
		ID:    node.Generate(),
		Code:  "DROITS",
		Label: "Droits d'enregistrement",
	}
	scale.Segments = []baremedomain.ScaleSegment{
		{ID: node.Generate(), ScaleTableID: scale.ID, Position: 0, LowerBound: 0, UpperBound: ptrI(2_000_000), RatePct: ptrF(2)},
		{ID: node.Generate(), ScaleTableID: scale.ID, Position: 1, LowerBound: 2_000_000, UpperBound: nil, RatePct: ptrF(1)},
	}

	template := &templatedomain.ActTemplate{
		ID:    node.Generate(),
		Code:  "VENTE",
		Label: "Vente immobilière",
	}

	honoraires := templatedomain.CalculationItem{
		ID:          node.Generate(),
		Position:    0,
		Label:       "Honoraires proportionnels",
		Kind:        templatedomain.ItemKindPercentage,
		Value:       5,
		AccountCode: "706",
	}
	honoraires.Taxes = []templatedomain.CalculationItemTax{
		{ID: node.Generate(), ItemID: honoraires.ID, TaxDefinitionID: tva.ID},
	}

	debours := templatedomain.CalculationItem{
		ID:             node.Generate(),
		Position:       1,
		Label:          "État hypothécaire",
		Kind:           templatedomain.ItemKindUserInput,
		AccountCode:    "467",
		IsDisbursement: true,
	}

	droits := templatedomain.CalculationItem{
		ID:           node.Generate(),
		Position:     0,
		Label:        "Droits d'enregistrement",
		Kind:         templatedomain.ItemKindScale,
		ScaleTableID: &scale.ID,
		AccountCode:  "447",
	}

	template.Sections = []templatedomain.ActSection{
		{
			ID:       node.Generate(),
			Position: 0,
			Label:    "Émoluments",
			Category: templatedomain.SectionCategoryEmoluments,
			Items:    []templatedomain.CalculationItem{honoraires, debours},
		},
		{
			ID:       node.Generate(),
			Position: 1,
			Label:    "Droits",
			Category: templatedomain.SectionCategoryDroits,
			Items:    []templatedomain.CalculationItem{droits},
		},
	}

	taxes := map[snowflake.ID]taxdomain.TaxDefinition{tva.ID: tva}
	scales := map[snowflake.ID]baremedomain.ScaleTable{scale.ID: scale}
	return template, taxes, scales, debours.ID
}

func TestEvaluate_StandardSale(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)

	result, err := Evaluate(template, taxes, scales, feedomain.Context{
		BaseAmount: 50_000_000,
		UserInputs: map[snowflake.ID]int64{deboursID: 10_000},
	})
	require.NoError(t, err)
	require.Len(t, result.LineItems, 3)

	// 5% of 50,000,000
	assert.Equal(t, int64(2_500_000), result.LineItems[0].TotalHT)
	assert.Equal(t, int64(450_000), result.LineItems[0].TaxAmount)
	assert.Equal(t, int64(2_950_000), result.LineItems[0].TotalTTC)

	// user-supplied disbursement, untaxed
	assert.Equal(t, int64(10_000), result.LineItems[1].TotalHT)
	assert.Equal(t, feedomain.CategoryDebours, result.LineItems[1].Category)

	// 2% of 2,000,000 + 1% of 48,000,000
	assert.Equal(t, int64(520_000), result.LineItems[2].TotalHT)
	assert.Equal(t, feedomain.CategoryDroits, result.LineItems[2].Category)

	assert.Equal(t, int64(2_500_000), result.Totals.Emoluments)
	assert.Equal(t, int64(10_000), result.Totals.Debours)
	assert.Equal(t, int64(520_000), result.Totals.Droits)
	assert.Equal(t, int64(450_000), result.Totals.TVA)
	assert.Equal(t, int64(3_030_000), result.Totals.HT)
	assert.Equal(t, int64(3_480_000), result.Totals.TTC)
}

func TestEvaluate_SaleWithFixedDisbursement(t *testing.T) {
	node := newNode(t)

	tva := taxdomain.TaxDefinition{
		ID:      node.Generate(),
		Code:    taxdomain.TaxCodeTVA,
		Name:    "TVA",
		RatePct: 18,
	}

	honoraires := templatedomain.CalculationItem{
		ID:          node.Generate(),
		Position:    0,
		Label:       "Honoraires proportionnels",
		Kind:        templatedomain.ItemKindPercentage,
		Value:       5,
		AccountCode: "706",
	}
	honoraires.Taxes = []templatedomain.CalculationItemTax{
		{ID: node.Generate(), ItemID: honoraires.ID, TaxDefinitionID: tva.ID},
	}
	frais := templatedomain.CalculationItem{
		ID:             node.Generate(),
		Position:       1,
		Label:          "Frais fixes",
		Kind:           templatedomain.ItemKindFixed,
		Value:          10_000,
		AccountCode:    "467",
		IsDisbursement: true,
	}

	template := &templatedomain.ActTemplate{
		ID:   node.Generate(),
		Code: "VENTE_SIMPLE",
		Sections: []templatedomain.ActSection{{
			ID:       node.Generate(),
			Label:    "Émoluments",
			Category: templatedomain.SectionCategoryEmoluments,
			Items:    []templatedomain.CalculationItem{honoraires, frais},
		}},
	}

	taxes := map[snowflake.ID]taxdomain.TaxDefinition{tva.ID: tva}
	result, err := Evaluate(template, taxes, nil, feedomain.Context{BaseAmount: 50_000_000})
	require.NoError(t, err)

	assert.Equal(t, int64(2_500_000), result.Totals.Emoluments)
	assert.Equal(t, int64(10_000), result.Totals.Debours)
	assert.Equal(t, int64(450_000), result.Totals.TVA)
	assert.Equal(t, int64(2_510_000), result.Totals.HT)
	assert.Equal(t, int64(2_960_000), result.Totals.TTC)
}

func TestEvaluate_TotalsAreSumsOfRoundedLines(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)

	// An awkward base amount that forces fractional intermediate values.
	result, err := Evaluate(template, taxes, scales, feedomain.Context{
		BaseAmount: 1_234_567,
		UserInputs: map[snowflake.ID]int64{deboursID: 333},
	})
	require.NoError(t, err)

	var sumHT, sumTVA, sumTTC int64
	for _, line := range result.LineItems {
		sumHT += line.TotalHT
		sumTVA += line.TaxAmount
		sumTTC += line.TotalTTC
		assert.Equal(t, line.TotalHT+line.TaxAmount, line.TotalTTC)
	}
	assert.Equal(t, sumHT, result.Totals.HT)
	assert.Equal(t, sumTVA, result.Totals.TVA)
	assert.Equal(t, sumTTC, result.Totals.TTC)
	assert.Equal(t, result.Totals.HT+result.Totals.TVA, result.Totals.TTC)
}

func TestEvaluate_Deterministic(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)
	evalCtx := feedomain.Context{
		BaseAmount: 7_777_777,
		UserInputs: map[snowflake.ID]int64{deboursID: 4_200},
	}

	first, err := Evaluate(template, taxes, scales, evalCtx)
	require.NoError(t, err)
	second, err := Evaluate(template, taxes, scales, evalCtx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRoundHalfAway(t *testing.T) {
	assert.Equal(t, int64(2), roundHalfAway(1.5))
	assert.Equal(t, int64(1), roundHalfAway(1.4))
	assert.Equal(t, int64(-2), roundHalfAway(-1.5))
	assert.Equal(t, int64(-1), roundHalfAway(-1.4))
	assert.Equal(t, int64(0), roundHalfAway(0))
	assert.Equal(t, int64(3), roundHalfAway(2.5))
}

func TestComputeScale_MarginalAccumulation(t *testing.T) {
	node := newNode(t)
	table := baremedomain.ScaleTable{ID: node.Generate(), Code: "S", Label: "s"}
	table.Segments = []baremedomain.ScaleSegment{
		{LowerBound: 0, UpperBound: ptrI(2_000_000), RatePct: ptrF(2)},
		{LowerBound: 2_000_000, UpperBound: nil, RatePct: ptrF(1)},
	}

	// below the first bound
	assert.Equal(t, int64(20_000), computeScale(table, 1_000_000))
	// exactly at the bound
	assert.Equal(t, int64(40_000), computeScale(table, 2_000_000))
	// one unit above: only that unit is charged at the higher bracket
	assert.Equal(t, int64(40_000), computeScale(table, 2_000_001))
	assert.Equal(t, int64(50_000), computeScale(table, 3_000_000))
	assert.Equal(t, int64(0), computeScale(table, 0))

	// 2% of the first million, 1% of the second
	low := baremedomain.ScaleTable{ID: node.Generate(), Code: "S2", Label: "s2"}
	low.Segments = []baremedomain.ScaleSegment{
		{LowerBound: 0, UpperBound: ptrI(1_000_000), RatePct: ptrF(2)},
		{LowerBound: 1_000_000, UpperBound: nil, RatePct: ptrF(1)},
	}
	assert.Equal(t, int64(30_000), computeScale(low, 2_000_000))
}

// The fee owed must not jump at a bracket boundary: only the marginal
// slice is charged at the next rate.
func TestComputeScale_BoundaryContinuity(t *testing.T) {
	node := newNode(t)
	table := baremedomain.ScaleTable{ID: node.Generate(), Code: "S", Label: "s"}
	table.Segments = []baremedomain.ScaleSegment{
		{LowerBound: 0, UpperBound: ptrI(5_000_000), RatePct: ptrF(5)},
		{LowerBound: 5_000_000, UpperBound: ptrI(20_000_000), RatePct: ptrF(4)},
		{LowerBound: 20_000_000, UpperBound: nil, RatePct: ptrF(3)},
	}

	for _, boundary := range []int64{5_000_000, 20_000_000} {
		below := computeScale(table, boundary-1)
		at := computeScale(table, boundary)
		above := computeScale(table, boundary+1)
		assert.LessOrEqual(t, at-below, int64(1), "jump below boundary %d", boundary)
		assert.LessOrEqual(t, above-at, int64(1), "jump above boundary %d", boundary)
	}
}

func TestComputeScale_FixedAmountSegments(t *testing.T) {
	node := newNode(t)
	table := baremedomain.ScaleTable{ID: node.Generate(), Code: "S", Label: "s"}
	table.Segments = []baremedomain.ScaleSegment{
		{LowerBound: 0, UpperBound: ptrI(1_000_000), FixedAmount: ptrI(25_000)},
		{LowerBound: 1_000_000, UpperBound: nil, RatePct: ptrF(1)},
	}

	assert.Equal(t, int64(25_000), computeScale(table, 500_000))
	// fixed amount plus 1% of the slice above the bound
	assert.Equal(t, int64(35_000), computeScale(table, 2_000_000))
}

func TestEvaluate_AdditiveTaxesNeverCompound(t *testing.T) {
	node := newNode(t)

	tva := taxdomain.TaxDefinition{ID: node.Generate(), Code: "TVA", Name: "TVA", RatePct: 18}
	cpr := taxdomain.TaxDefinition{ID: node.Generate(), Code: "CPR", Name: "CPR", RatePct: 2}

	item := templatedomain.CalculationItem{
		ID:          node.Generate(),
		Label:       "Honoraires",
		Kind:        templatedomain.ItemKindFixed,
		Value:       1000,
		AccountCode: "706",
	}
	item.Taxes = []templatedomain.CalculationItemTax{
		{ID: node.Generate(), ItemID: item.ID, TaxDefinitionID: tva.ID},
		{ID: node.Generate(), ItemID: item.ID, TaxDefinitionID: cpr.ID},
	}

	template := &templatedomain.ActTemplate{
		ID:   node.Generate(),
		Code: "T",
		Sections: []templatedomain.ActSection{{
			ID:       node.Generate(),
			Label:    "Émoluments",
			Category: templatedomain.SectionCategoryEmoluments,
			Items:    []templatedomain.CalculationItem{item},
		}},
	}

	taxes := map[snowflake.ID]taxdomain.TaxDefinition{tva.ID: tva, cpr.ID: cpr}

	result, err := Evaluate(template, taxes, nil, feedomain.Context{BaseAmount: 0})
	require.NoError(t, err)
	require.Len(t, result.LineItems, 1)

	// 18% + 2% of 1000, not 2% of 1180
	assert.Equal(t, int64(200), result.LineItems[0].TaxAmount)
	assert.Equal(t, float64(20), result.LineItems[0].TaxRatePct)
	assert.Equal(t, int64(1200), result.LineItems[0].TotalTTC)
	require.Len(t, result.LineItems[0].Taxes, 2)
	assert.Equal(t, int64(180), result.LineItems[0].Taxes[0].Amount)
	assert.Equal(t, int64(20), result.LineItems[0].Taxes[1].Amount)
}

func TestEvaluate_MissingUserInput(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, _ := saleFixture(node)

	_, err := Evaluate(template, taxes, scales, feedomain.Context{BaseAmount: 1_000_000})
	assert.ErrorIs(t, err, feedomain.ErrMissingInput)
}

func TestEvaluate_UnknownTaxReference(t *testing.T) {
	node := newNode(t)
	template, _, scales, deboursID := saleFixture(node)

	_, err := Evaluate(template, nil, scales, feedomain.Context{
		BaseAmount: 1_000_000,
		UserInputs: map[snowflake.ID]int64{deboursID: 0},
	})
	assert.ErrorIs(t, err, feedomain.ErrConfiguration)
}

func TestEvaluate_UnknownScaleReference(t *testing.T) {
	node := newNode(t)
	template, taxes, _, deboursID := saleFixture(node)

	_, err := Evaluate(template, taxes, nil, feedomain.Context{
		BaseAmount: 1_000_000,
		UserInputs: map[snowflake.ID]int64{deboursID: 0},
	})
	assert.ErrorIs(t, err, feedomain.ErrConfiguration)
}

func TestEvaluate_MalformedScale(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)

	// break the partition: gap between 2,000,000 and 3,000,000
	for id, table := range scales {
		table.Segments[1].LowerBound = 3_000_000
		scales[id] = table
	}

	_, err := Evaluate(template, taxes, scales, feedomain.Context{
		BaseAmount: 1_000_000,
		UserInputs: map[snowflake.ID]int64{deboursID: 0},
	})
	assert.ErrorIs(t, err, feedomain.ErrConfiguration)
}

func TestEvaluate_UnknownItemKind(t *testing.T) {
	node := newNode(t)

	template := &templatedomain.ActTemplate{
		ID:   node.Generate(),
		Code: "T",
		Sections: []templatedomain.ActSection{{
			ID:       node.Generate(),
			Label:    "Émoluments",
			Category: templatedomain.SectionCategoryEmoluments,
			Items: []templatedomain.CalculationItem{{
				ID:    node.Generate(),
				Label: "bogus",
				Kind:  templatedomain.ItemKind("LEGACY"),
			}},
		}},
	}

	_, err := Evaluate(template, nil, nil, feedomain.Context{BaseAmount: 100})
	assert.ErrorIs(t, err, feedomain.ErrConfiguration)
}

// Items in an AUTRES section roll up with the émoluments unless flagged
// as disbursements.
func TestEvaluate_AutresSectionRollsToEmoluments(t *testing.T) {
	node := newNode(t)

	template := &templatedomain.ActTemplate{
		ID:   node.Generate(),
		Code: "T",
		Sections: []templatedomain.ActSection{{
			ID:       node.Generate(),
			Label:    "Divers",
			Category: templatedomain.SectionCategoryAutres,
			Items: []templatedomain.CalculationItem{{
				ID:          node.Generate(),
				Label:       "Frais divers",
				Kind:        templatedomain.ItemKindFixed,
				Value:       15_000,
				AccountCode: "706",
			}},
		}},
	}

	result, err := Evaluate(template, nil, nil, feedomain.Context{BaseAmount: 0})
	require.NoError(t, err)
	require.Len(t, result.LineItems, 1)
	assert.Equal(t, feedomain.CategoryEmoluments, result.LineItems[0].Category)
	assert.Equal(t, int64(15_000), result.Totals.Emoluments)
}

// Negative line amounts never reach an invoice: the ledger derivation
// assumes non-negative debits and credits.
func TestEvaluate_NegativeUserInput(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)

	_, err := Evaluate(template, taxes, scales, feedomain.Context{
		BaseAmount: 1_000_000,
		UserInputs: map[snowflake.ID]int64{deboursID: -500},
	})
	assert.ErrorIs(t, err, feedomain.ErrInvalidContext)
}

func TestEvaluate_NegativeItemValue(t *testing.T) {
	node := newNode(t)

	template := &templatedomain.ActTemplate{
		ID:   node.Generate(),
		Code: "T",
		Sections: []templatedomain.ActSection{{
			ID:       node.Generate(),
			Label:    "Émoluments",
			Category: templatedomain.SectionCategoryEmoluments,
			Items: []templatedomain.CalculationItem{{
				ID:          node.Generate(),
				Label:       "Remise",
				Kind:        templatedomain.ItemKindFixed,
				Value:       -5_000,
				AccountCode: "706",
			}},
		}},
	}

	_, err := Evaluate(template, nil, nil, feedomain.Context{BaseAmount: 100})
	assert.ErrorIs(t, err, feedomain.ErrConfiguration)
}

func TestEvaluate_NegativeBaseAmount(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, _ := saleFixture(node)

	_, err := Evaluate(template, taxes, scales, feedomain.Context{BaseAmount: -1})
	assert.ErrorIs(t, err, feedomain.ErrInvalidContext)
}

func TestEvaluate_ZeroBaseAmount(t *testing.T) {
	node := newNode(t)
	template, taxes, scales, deboursID := saleFixture(node)

	result, err := Evaluate(template, taxes, scales, feedomain.Context{
		BaseAmount: 0,
		UserInputs: map[snowflake.ID]int64{deboursID: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Totals.TTC)
}
