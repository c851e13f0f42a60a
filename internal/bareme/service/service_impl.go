package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	"github.com/notalys/notalys/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParam struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repository baremedomain.Repository
}

type service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  baremedomain.Repository
}

func NewService(p serviceParam) baremedomain.Service {
	return &service{
		log:   p.Log.Named("bareme.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repository,
	}
}

// Create validates the partition invariant before anything is persisted:
// a malformed barème must never be referenceable by a template.
func (s *service) Create(ctx context.Context, req baremedomain.CreateRequest) (*baremedomain.Response, error) {
	now := s.clock.Now()
	table := &baremedomain.ScaleTable{
		ID:        s.genID.Generate(),
		Code:      strings.TrimSpace(req.Code),
		Label:     strings.TrimSpace(req.Label),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, seg := range req.Segments {
		table.Segments = append(table.Segments, baremedomain.ScaleSegment{
			ID:          s.genID.Generate(),
			Position:    i,
			LowerBound:  seg.LowerBound,
			UpperBound:  seg.UpperBound,
			RatePct:     seg.RatePct,
			FixedAmount: seg.FixedAmount,
			CreatedAt:   now,
		})
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, table); err != nil {
		return nil, err
	}

	s.log.Info("scale table created",
		zap.String("scale_table_id", table.ID.String()),
		zap.String("code", table.Code),
		zap.Int("segments", len(table.Segments)),
	)

	return toResponse(table), nil
}

func (s *service) Get(ctx context.Context, id string) (*baremedomain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, baremedomain.ErrInvalidID
	}
	table, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, baremedomain.ErrNotFound
	}
	return toResponse(table), nil
}

func (s *service) List(ctx context.Context) ([]baremedomain.Response, error) {
	tables, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]baremedomain.Response, 0, len(tables))
	for i := range tables {
		out = append(out, *toResponse(&tables[i]))
	}
	return out, nil
}

func toResponse(table *baremedomain.ScaleTable) *baremedomain.Response {
	resp := &baremedomain.Response{
		ID:        table.ID.String(),
		Code:      table.Code,
		Label:     table.Label,
		CreatedAt: table.CreatedAt,
		UpdatedAt: table.UpdatedAt,
	}
	for _, seg := range table.Segments {
		resp.Segments = append(resp.Segments, baremedomain.SegmentResponse{
			ID:          seg.ID.String(),
			LowerBound:  seg.LowerBound,
			UpperBound:  seg.UpperBound,
			RatePct:     seg.RatePct,
			FixedAmount: seg.FixedAmount,
		})
	}
	return resp
}
