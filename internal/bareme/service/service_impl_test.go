package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	"github.com/notalys/notalys/internal/bareme/repository"
	"github.com/notalys/notalys/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixtureTime = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (baremedomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&baremedomain.ScaleTable{},
		&baremedomain.ScaleSegment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(serviceParam{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(fixtureTime),
		Repository: repository.NewRepository(db),
	})
	return svc, db
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func TestCreateAndGet(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, baremedomain.CreateRequest{
		Code:  "DROITS_ENREGISTREMENT",
		Label: "Droits d'enregistrement",
		Segments: []baremedomain.SegmentRequest{
			{LowerBound: 0, UpperBound: ptrI(5_000_000), RatePct: ptrF(5)},
			{LowerBound: 5_000_000, UpperBound: ptrI(20_000_000), RatePct: ptrF(4)},
			{LowerBound: 20_000_000, RatePct: ptrF(3)},
		},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Segments, 3)

	// segments come back in bracket order
	assert.Equal(t, int64(0), got.Segments[0].LowerBound)
	assert.Equal(t, int64(5_000_000), got.Segments[1].LowerBound)
	assert.Equal(t, int64(20_000_000), got.Segments[2].LowerBound)
	assert.Nil(t, got.Segments[2].UpperBound)

	// timestamps come from the injected clock
	assert.True(t, got.CreatedAt.Equal(fixtureTime))
}

// A malformed barème must never be persisted: templates could otherwise
// reference it and break every later evaluation.
func TestCreate_RejectsMalformedScale(t *testing.T) {
	svc, db := newFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, baremedomain.CreateRequest{
		Code:  "BROKEN",
		Label: "broken",
		Segments: []baremedomain.SegmentRequest{
			{LowerBound: 0, UpperBound: ptrI(1_000), RatePct: ptrF(1)},
			{LowerBound: 2_000, RatePct: ptrF(2)},
		},
	})
	assert.ErrorIs(t, err, baremedomain.ErrMalformedScale)

	var count int64
	require.NoError(t, db.Model(&baremedomain.ScaleTable{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreate_RejectsMissingCode(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Create(context.Background(), baremedomain.CreateRequest{
		Label: "no code",
		Segments: []baremedomain.SegmentRequest{
			{LowerBound: 0, RatePct: ptrF(1)},
		},
	})
	assert.ErrorIs(t, err, baremedomain.ErrInvalidCode)
}

func TestGet_Errors(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, baremedomain.ErrInvalidID)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	_, err = svc.Get(ctx, node.Generate().String())
	assert.ErrorIs(t, err, baremedomain.ErrNotFound)
}
