package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	"github.com/notalys/notalys/internal/feecalc/domain"
	"github.com/notalys/notalys/internal/feecalc/engine"
	obsmetrics "github.com/notalys/notalys/internal/observability/metrics"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParam struct {
	fx.In

	Log          *zap.Logger
	TemplateRepo templatedomain.Repository
	TaxRepo      taxdomain.Repository
	BaremeRepo   baremedomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log          *zap.Logger
	templateRepo templatedomain.Repository
	taxRepo      taxdomain.Repository
	baremeRepo   baremedomain.Repository
	metrics      *obsmetrics.Metrics
}

func NewService(p serviceParam) domain.Service {
	return &service{
		log:          p.Log.Named("feecalc.service"),
		templateRepo: p.TemplateRepo,
		taxRepo:      p.TaxRepo,
		baremeRepo:   p.BaremeRepo,
		metrics:      p.Metrics,
	}
}

// Evaluate loads the template with its tax and barème references and runs
// the pure engine. The template is only read; no invoice is created here.
func (s *service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.Result, error) {
	templateID, err := snowflake.ParseString(strings.TrimSpace(req.TemplateID))
	if err != nil {
		return nil, templatedomain.ErrInvalidID
	}

	template, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, templatedomain.ErrNotFound
	}

	evalCtx := domain.Context{
		BaseAmount: req.BaseAmount,
		UserInputs: make(map[snowflake.ID]int64, len(req.UserInputs)),
	}
	for rawID, value := range req.UserInputs {
		itemID, err := snowflake.ParseString(strings.TrimSpace(rawID))
		if err != nil {
			return nil, templatedomain.ErrInvalidID
		}
		evalCtx.UserInputs[itemID] = value
	}

	taxes, scales, err := s.loadReferences(ctx, template)
	if err != nil {
		return nil, err
	}

	result, err := engine.Evaluate(template, taxes, scales, evalCtx)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEvaluation(ctx, template.Code)
	s.log.Debug("template evaluated",
		zap.String("template_id", template.ID.String()),
		zap.Int64("base_amount", req.BaseAmount),
		zap.Int64("total_ttc", result.Totals.TTC),
	)

	return result, nil
}

func (s *service) loadReferences(ctx context.Context, template *templatedomain.ActTemplate) (
	map[snowflake.ID]taxdomain.TaxDefinition,
	map[snowflake.ID]baremedomain.ScaleTable,
	error,
) {
	var taxIDs, scaleIDs []snowflake.ID
	for _, section := range template.Sections {
		for _, item := range section.Items {
			taxIDs = append(taxIDs, item.TaxIDs()...)
			if item.ScaleTableID != nil {
				scaleIDs = append(scaleIDs, *item.ScaleTableID)
			}
		}
	}

	taxes, err := s.taxRepo.FindByIDs(ctx, taxIDs)
	if err != nil {
		return nil, nil, err
	}
	scales, err := s.baremeRepo.FindByIDs(ctx, scaleIDs)
	if err != nil {
		return nil, nil, err
	}
	return taxes, scales, nil
}
