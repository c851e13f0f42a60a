package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/notalys/notalys/internal/clock"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParam struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repository taxdomain.Repository
}

type service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  taxdomain.Repository
}

func NewService(p serviceParam) taxdomain.Service {
	return &service{
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repository,
	}
}

func (s *service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.Response, error) {
	now := s.clock.Now()
	def := &taxdomain.TaxDefinition{
		ID:        s.genID.Generate(),
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		RatePct:   req.RatePct,
		Basis:     taxdomain.TaxBasisLineAmount,
		IsEnabled: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsEnabled != nil {
		def.IsEnabled = *req.IsEnabled
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, def); err != nil {
		return nil, err
	}

	s.log.Info("tax definition created",
		zap.String("tax_definition_id", def.ID.String()),
		zap.String("code", def.Code),
		zap.Float64("rate_pct", def.RatePct),
	)

	return toResponse(def), nil
}

func (s *service) Get(ctx context.Context, id string) (*taxdomain.Response, error) {
	def, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(def), nil
}

func (s *service) List(ctx context.Context, req taxdomain.ListRequest) ([]taxdomain.Response, error) {
	defs, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]taxdomain.Response, 0, len(defs))
	for i := range defs {
		out = append(out, *toResponse(&defs[i]))
	}
	return out, nil
}

// Update edits a definition in place only while nothing references it.
// Once an issued invoice snapshots the definition, a rate change must be a
// disable-and-recreate so history stays intact.
func (s *service) Update(ctx context.Context, req taxdomain.UpdateRequest) (*taxdomain.Response, error) {
	def, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.RatePct != nil && *req.RatePct != def.RatePct {
		referenced, err := s.repo.IsReferenced(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, taxdomain.ErrReferenced
		}
		def.RatePct = *req.RatePct
	}
	if req.Name != nil {
		def.Name = strings.TrimSpace(*req.Name)
	}
	def.UpdatedAt = s.clock.Now()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, def); err != nil {
		return nil, err
	}
	return toResponse(def), nil
}

func (s *service) Disable(ctx context.Context, id string) (*taxdomain.Response, error) {
	def, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	def.IsEnabled = false
	def.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, def); err != nil {
		return nil, err
	}

	s.log.Info("tax definition disabled", zap.String("tax_definition_id", def.ID.String()))
	return toResponse(def), nil
}

func (s *service) load(ctx context.Context, id string) (*taxdomain.TaxDefinition, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, taxdomain.ErrInvalidID
	}
	def, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, taxdomain.ErrNotFound
	}
	return def, nil
}

func toResponse(def *taxdomain.TaxDefinition) *taxdomain.Response {
	return &taxdomain.Response{
		ID:        def.ID.String(),
		Code:      def.Code,
		Name:      def.Name,
		RatePct:   def.RatePct,
		Basis:     def.Basis,
		IsEnabled: def.IsEnabled,
		CreatedAt: def.CreatedAt,
		UpdatedAt: def.UpdatedAt,
	}
}
