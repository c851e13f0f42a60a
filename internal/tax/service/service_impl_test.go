package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/notalys/notalys/internal/clock"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"github.com/notalys/notalys/internal/tax/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixtureTime = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (taxdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&taxdomain.TaxDefinition{},
		&invoicedomain.InvoiceLineItemTax{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(serviceParam{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(fixtureTime),
		Repository: repository.NewRepository(db),
	})
	return svc, db, node
}

func TestCreateAndGet(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, taxdomain.CreateRequest{
		Code:    taxdomain.TaxCodeTVA,
		Name:    "TVA",
		RatePct: 18,
	})
	require.NoError(t, err)
	assert.Equal(t, taxdomain.TaxCodeTVA, created.Code)
	assert.Equal(t, float64(18), created.RatePct)
	assert.Equal(t, taxdomain.TaxBasisLineAmount, created.Basis)
	assert.True(t, created.IsEnabled)
	// timestamps come from the injected clock
	assert.True(t, created.CreatedAt.Equal(fixtureTime))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, taxdomain.CreateRequest{Name: "no code", RatePct: 18})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidTaxCode)

	_, err = svc.Create(ctx, taxdomain.CreateRequest{Code: "TVA", Name: "TVA", RatePct: -1})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidTaxRate)
}

func TestUpdate_RateChangeAllowedWhileUnreferenced(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, taxdomain.CreateRequest{Code: "TVA", Name: "TVA", RatePct: 18})
	require.NoError(t, err)

	rate := 19.25
	updated, err := svc.Update(ctx, taxdomain.UpdateRequest{ID: created.ID, RatePct: &rate})
	require.NoError(t, err)
	assert.Equal(t, 19.25, updated.RatePct)
}

// Once an issued invoice references a definition the rate is frozen; the
// étude disables the old definition and recreates the code with the new
// rate instead.
func TestUpdate_RateChangeRejectedWhenReferenced(t *testing.T) {
	svc, db, node := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, taxdomain.CreateRequest{Code: "TVA", Name: "TVA", RatePct: 18})
	require.NoError(t, err)
	taxID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&invoicedomain.InvoiceLineItemTax{
		ID:              node.Generate(),
		LineItemID:      node.Generate(),
		TaxDefinitionID: taxID,
		TaxCode:         "TVA",
		RatePct:         18,
		Amount:          13_500,
	}).Error)

	rate := 19.25
	_, err = svc.Update(ctx, taxdomain.UpdateRequest{ID: created.ID, RatePct: &rate})
	assert.ErrorIs(t, err, taxdomain.ErrReferenced)

	// renaming stays allowed, it does not rewrite snapshots
	name := "TVA (taux normal)"
	updated, err := svc.Update(ctx, taxdomain.UpdateRequest{ID: created.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, float64(18), updated.RatePct)

	// disable-and-recreate path
	disabled, err := svc.Disable(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, disabled.IsEnabled)

	recreated, err := svc.Create(ctx, taxdomain.CreateRequest{Code: "TVA", Name: "TVA", RatePct: 19.25})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, recreated.ID)
	assert.Equal(t, 19.25, recreated.RatePct)
}

func TestList_Filters(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, taxdomain.CreateRequest{Code: "TVA", Name: "TVA", RatePct: 18})
	require.NoError(t, err)
	created, err := svc.Create(ctx, taxdomain.CreateRequest{Code: "CPR", Name: "CPR", RatePct: 2})
	require.NoError(t, err)
	_, err = svc.Disable(ctx, created.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, taxdomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled := true
	active, err := svc.List(ctx, taxdomain.ListRequest{IsEnabled: &enabled})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "TVA", active[0].Code)

	byCode, err := svc.List(ctx, taxdomain.ListRequest{Code: "CPR"})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.False(t, byCode[0].IsEnabled)
}

func TestGet_Errors(t *testing.T) {
	svc, _, node := newFixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, taxdomain.ErrInvalidID)

	_, err = svc.Get(ctx, node.Generate().String())
	assert.ErrorIs(t, err, taxdomain.ErrNotFound)
}
