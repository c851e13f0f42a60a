package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	"github.com/notalys/notalys/internal/acttemplate/repository"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	baremerepository "github.com/notalys/notalys/internal/bareme/repository"
	"github.com/notalys/notalys/internal/clock"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	taxrepository "github.com/notalys/notalys/internal/tax/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  templatedomain.Service
	db   *gorm.DB
	node *snowflake.Node
	tva  taxdomain.TaxDefinition
	bar  baremedomain.ScaleTable
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&taxdomain.TaxDefinition{},
		&baremedomain.ScaleTable{},
		&baremedomain.ScaleSegment{},
		&templatedomain.ActTemplate{},
		&templatedomain.ActSection{},
		&templatedomain.CalculationItem{},
		&templatedomain.CalculationItemTax{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tva := taxdomain.TaxDefinition{
		ID: node.Generate(), Code: "TVA", Name: "TVA", RatePct: 18,
		Basis: taxdomain.TaxBasisLineAmount, IsEnabled: true,
	}
	require.NoError(t, db.Create(&tva).Error)

	rate := 2.0
	bar := baremedomain.ScaleTable{ID: node.Generate(), Code: "DROITS", Label: "Droits"}
	bar.Segments = []baremedomain.ScaleSegment{{
		ID: node.Generate(), ScaleTableID: bar.ID, LowerBound: 0, RatePct: &rate,
	}}
	require.NoError(t, db.Create(&bar).Error)

	svc := NewService(serviceParam{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)),
		Repository: repository.NewRepository(db),
		TaxRepo:    taxrepository.NewRepository(db),
		BaremeRepo: baremerepository.NewRepository(db),
	})

	return &fixture{svc: svc, db: db, node: node, tva: tva, bar: bar}
}

func (f *fixture) saleRequest() templatedomain.CreateRequest {
	taxID := f.tva.ID.String()
	scaleID := f.bar.ID.String()
	return templatedomain.CreateRequest{
		Code:  "VENTE",
		Label: "Vente immobilière",
		Sections: []templatedomain.SectionRequest{
			{
				Label:    "Émoluments",
				Category: "EMOLUMENTS",
				Items: []templatedomain.ItemRequest{
					{Label: "Honoraires", Kind: "PERCENTAGE", Value: 5, AccountCode: "706", TaxIDs: []string{taxID}},
					{Label: "État hypothécaire", Kind: "USER_INPUT", AccountCode: "467", IsDisbursement: true},
				},
			},
			{
				Label:    "Droits",
				Category: "DROITS",
				Items: []templatedomain.ItemRequest{
					{Label: "Droits d'enregistrement", Kind: "SCALE", ScaleTableID: &scaleID, AccountCode: "447"},
				},
			},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.saleRequest())
	require.NoError(t, err)
	assert.Equal(t, "VENTE", created.Code)
	require.Len(t, created.Sections, 2)
	require.Len(t, created.Sections[0].Items, 2)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	// order preserved through the preloads
	assert.Equal(t, "Honoraires", got.Sections[0].Items[0].Label)
	require.Len(t, got.Sections[0].Items[0].TaxIDs, 1)
	assert.Equal(t, f.tva.ID.String(), got.Sections[0].Items[0].TaxIDs[0])
	require.NotNil(t, got.Sections[1].Items[0].ScaleTableID)
	assert.Equal(t, f.bar.ID.String(), *got.Sections[1].Items[0].ScaleTableID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.saleRequest()
	req.Code = " "
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, templatedomain.ErrInvalidCode)

	req = f.saleRequest()
	req.Sections[0].Category = "HONORAIRES"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, templatedomain.ErrInvalidCategory)

	req = f.saleRequest()
	req.Sections[0].Items[0].Kind = "LEGACY"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, templatedomain.ErrInvalidKind)

	req = f.saleRequest()
	req.Sections[0].Items[0].Value = -5
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, templatedomain.ErrInvalidValue)

	req = f.saleRequest()
	req.Sections[1].Items[0].ScaleTableID = nil
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, templatedomain.ErrInvalidScale)

	// referenced tax must exist
	req = f.saleRequest()
	req.Sections[0].Items[0].TaxIDs = []string{f.node.Generate().String()}
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, taxdomain.ErrNotFound)

	// referenced barème must exist
	unknown := f.node.Generate().String()
	req = f.saleRequest()
	req.Sections[1].Items[0].ScaleTableID = &unknown
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, baremedomain.ErrNotFound)
}

func TestCreate_AutresCategory(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), templatedomain.CreateRequest{
		Code:  "DIVERS",
		Label: "Actes divers",
		Sections: []templatedomain.SectionRequest{{
			Label:    "Divers",
			Category: "AUTRES",
			Items: []templatedomain.ItemRequest{
				{Label: "Frais divers", Kind: "FIXED", Value: 15_000, AccountCode: "706"},
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, templatedomain.SectionCategoryAutres, created.Sections[0].Category)
}

func TestUpdate_ReplacesDefinition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.saleRequest())
	require.NoError(t, err)

	req := f.saleRequest()
	req.Label = "Vente immobilière (révisée)"
	req.Sections = req.Sections[:1]
	updated, err := f.svc.Update(ctx, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Len(t, updated.Sections, 1)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vente immobilière (révisée)", got.Label)
	assert.Len(t, got.Sections, 1)

	// no orphaned rows from the replaced tree
	var sections int64
	require.NoError(t, f.db.Model(&templatedomain.ActSection{}).Count(&sections).Error)
	assert.Equal(t, int64(1), sections)
}

func TestDelete_GuardedByInvoiceReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.saleRequest())
	require.NoError(t, err)
	templateID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&invoicedomain.Invoice{
		ID:         f.node.Generate(),
		Number:     "FAC-2026-000001",
		ActeID:     f.node.Generate(),
		DossierID:  f.node.Generate(),
		ClientID:   f.node.Generate(),
		TemplateID: templateID,
		Currency:   "XOF",
		Status:     invoicedomain.InvoiceStatusDraft,
	}).Error)

	err = f.svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, templatedomain.ErrReferenced)

	// unreferenced templates can be deleted
	other, err := f.svc.Create(ctx, templatedomain.CreateRequest{
		Code:  "DONATION",
		Label: "Donation",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, other.ID))
	_, err = f.svc.Get(ctx, other.ID)
	assert.ErrorIs(t, err, templatedomain.ErrNotFound)
}
