// Package seed installs the étude's default reference data so a fresh
// installation can evaluate and invoice a standard act out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"gorm.io/gorm"
)

const (
	defaultScaleCode    = "DROITS_ENREGISTREMENT"
	defaultTemplateCode = "VENTE_IMMOBILIERE"
)

// EnsureDefaults seeds the default tax definitions, the registration-duty
// barème, a standard sale template and the chart of accounts. Every step
// is create-if-missing, so repeated startups are no-ops.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tva, err := ensureTaxTx(ctx, tx, node, taxdomain.TaxCodeTVA, "TVA", 18)
		if err != nil {
			return err
		}
		scale, err := ensureScaleTableTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureTemplateTx(ctx, tx, node, tva, scale); err != nil {
			return err
		}
		return ensureLedgerAccountsTx(ctx, tx, node)
	})
}

func ensureTaxTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, code, name string, ratePct float64) (*taxdomain.TaxDefinition, error) {
	var def taxdomain.TaxDefinition
	err := tx.WithContext(ctx).Where("code = ?", code).First(&def).Error
	if err == nil {
		return &def, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	def = taxdomain.TaxDefinition{
		ID:        node.Generate(),
		Code:      code,
		Name:      name,
		RatePct:   ratePct,
		Basis:     taxdomain.TaxBasisLineAmount,
		IsEnabled: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// ensureScaleTableTx installs the registration-duty barème: a marginal
// scale over the transaction amount.
func ensureScaleTableTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*baremedomain.ScaleTable, error) {
	var table baremedomain.ScaleTable
	err := tx.WithContext(ctx).Where("code = ?", defaultScaleCode).First(&table).Error
	if err == nil {
		return &table, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	table = baremedomain.ScaleTable{
		ID:        node.Generate(),
		Code:      defaultScaleCode,
		Label:     "Droits d'enregistrement",
		CreatedAt: now,
		UpdatedAt: now,
	}

	segments := []struct {
		lower int64
		upper *int64
		rate  float64
	}{
		{0, i64(5_000_000), 5},
		{5_000_000, i64(20_000_000), 4},
		{20_000_000, nil, 3},
	}
	for i, seg := range segments {
		rate := seg.rate
		table.Segments = append(table.Segments, baremedomain.ScaleSegment{
			ID:           node.Generate(),
			ScaleTableID: table.ID,
			Position:     i,
			LowerBound:   seg.lower,
			UpperBound:   seg.upper,
			RatePct:      &rate,
			CreatedAt:    now,
		})
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// ensureTemplateTx installs the standard property-sale template: a
// proportional émolument, a fixed drafting fee, a pass-through
// disbursement and the registration duty computed from the barème.
func ensureTemplateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tva *taxdomain.TaxDefinition, scale *baremedomain.ScaleTable) error {
	var existing templatedomain.ActTemplate
	err := tx.WithContext(ctx).Where("code = ?", defaultTemplateCode).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	template := templatedomain.ActTemplate{
		ID:        node.Generate(),
		Code:      defaultTemplateCode,
		Label:     "Vente immobilière",
		CreatedAt: now,
		UpdatedAt: now,
	}

	emoluments := templatedomain.ActSection{
		ID:         node.Generate(),
		TemplateID: template.ID,
		Position:   0,
		Label:      "Émoluments",
		Category:   templatedomain.SectionCategoryEmoluments,
		CreatedAt:  now,
	}
	honoraires := templatedomain.CalculationItem{
		ID:          node.Generate(),
		SectionID:   emoluments.ID,
		Position:    0,
		Label:       "Honoraires proportionnels",
		Kind:        templatedomain.ItemKindPercentage,
		Value:       5,
		AccountCode: ledgerdomain.AccountCodeEmoluments,
		CreatedAt:   now,
	}
	honoraires.Taxes = []templatedomain.CalculationItemTax{{
		ID:              node.Generate(),
		ItemID:          honoraires.ID,
		TaxDefinitionID: tva.ID,
	}}
	redaction := templatedomain.CalculationItem{
		ID:          node.Generate(),
		SectionID:   emoluments.ID,
		Position:    1,
		Label:       "Frais de rédaction",
		Kind:        templatedomain.ItemKindFixed,
		Value:       50_000,
		AccountCode: ledgerdomain.AccountCodeEmoluments,
		CreatedAt:   now,
	}
	redaction.Taxes = []templatedomain.CalculationItemTax{{
		ID:              node.Generate(),
		ItemID:          redaction.ID,
		TaxDefinitionID: tva.ID,
	}}
	debours := templatedomain.CalculationItem{
		ID:             node.Generate(),
		SectionID:      emoluments.ID,
		Position:       2,
		Label:          "État hypothécaire",
		Kind:           templatedomain.ItemKindUserInput,
		AccountCode:    ledgerdomain.AccountCodeDebours,
		IsDisbursement: true,
		CreatedAt:      now,
	}
	emoluments.Items = []templatedomain.CalculationItem{honoraires, redaction, debours}

	droits := templatedomain.ActSection{
		ID:         node.Generate(),
		TemplateID: template.ID,
		Position:   1,
		Label:      "Droits et taxes",
		Category:   templatedomain.SectionCategoryDroits,
		CreatedAt:  now,
	}
	droits.Items = []templatedomain.CalculationItem{{
		ID:           node.Generate(),
		SectionID:    droits.ID,
		Position:     0,
		Label:        "Droits d'enregistrement",
		Kind:         templatedomain.ItemKindScale,
		ScaleTableID: &scale.ID,
		AccountCode:  ledgerdomain.AccountCodeDroits,
		CreatedAt:    now,
	}}

	template.Sections = []templatedomain.ActSection{emoluments, droits}
	return tx.WithContext(ctx).Create(&template).Error
}

func ensureLedgerAccountsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	accounts := []struct {
		code string
		name string
	}{
		{ledgerdomain.AccountCodeClients, "Clients"},
		{ledgerdomain.AccountCodeEmoluments, "Émoluments et honoraires"},
		{ledgerdomain.AccountCodeDebours, "Débours pour le compte de tiers"},
		{ledgerdomain.AccountCodeDroits, "Droits et taxes collectés"},
		{ledgerdomain.AccountCodeTVACollectee, "TVA collectée"},
		{ledgerdomain.AccountCodeCaisse, "Caisse"},
		{ledgerdomain.AccountCodeBanque, "Banque"},
	}

	for _, acc := range accounts {
		var existing ledgerdomain.LedgerAccount
		err := tx.WithContext(ctx).Where("code = ?", acc.code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.WithContext(ctx).Create(&ledgerdomain.LedgerAccount{
			ID:        node.Generate(),
			Code:      acc.code,
			Name:      acc.name,
			CreatedAt: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func i64(v int64) *int64 { return &v }
