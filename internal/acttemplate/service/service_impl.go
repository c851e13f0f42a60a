package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
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
	Repository templatedomain.Repository
	TaxRepo    taxdomain.Repository
	BaremeRepo baremedomain.Repository
}

type service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       templatedomain.Repository
	taxRepo    taxdomain.Repository
	baremeRepo baremedomain.Repository
}

func NewService(p serviceParam) templatedomain.Service {
	return &service{
		log:        p.Log.Named("acttemplate.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repository,
		taxRepo:    p.TaxRepo,
		baremeRepo: p.BaremeRepo,
	}
}

func (s *service) Create(ctx context.Context, req templatedomain.CreateRequest) (*templatedomain.Response, error) {
	template, err := s.build(ctx, s.genID.Generate(), req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, err
	}

	s.log.Info("act template created",
		zap.String("template_id", template.ID.String()),
		zap.String("code", template.Code),
		zap.Int("sections", len(template.Sections)),
	)

	return toResponse(template), nil
}

func (s *service) Get(ctx context.Context, id string) (*templatedomain.Response, error) {
	template, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(template), nil
}

func (s *service) List(ctx context.Context) ([]templatedomain.Response, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]templatedomain.Response, 0, len(templates))
	for i := range templates {
		out = append(out, *toResponse(&templates[i]))
	}
	return out, nil
}

// Update replaces the template definition wholesale. Invoices issued from
// the previous definition keep their frozen snapshots.
func (s *service) Update(ctx context.Context, id string, req templatedomain.CreateRequest) (*templatedomain.Response, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	template, err := s.build(ctx, existing.ID, req)
	if err != nil {
		return nil, err
	}
	template.CreatedAt = existing.CreatedAt
	template.UpdatedAt = s.clock.Now()

	if err := s.repo.Replace(ctx, template); err != nil {
		return nil, err
	}
	return toResponse(template), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	template, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	referenced, err := s.repo.IsReferenced(ctx, template.ID)
	if err != nil {
		return err
	}
	if referenced {
		return templatedomain.ErrReferenced
	}
	return s.repo.Delete(ctx, template.ID)
}

func (s *service) load(ctx context.Context, id string) (*templatedomain.ActTemplate, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, templatedomain.ErrInvalidID
	}
	template, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, templatedomain.ErrNotFound
	}
	return template, nil
}

// build assembles and validates a template tree from a request, checking
// that every referenced tax definition and scale table exists.
func (s *service) build(ctx context.Context, id snowflake.ID, req templatedomain.CreateRequest) (*templatedomain.ActTemplate, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, templatedomain.ErrInvalidCode
	}

	now := s.clock.Now()
	template := &templatedomain.ActTemplate{
		ID:        id,
		Code:      code,
		Label:     strings.TrimSpace(req.Label),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var taxIDs, scaleIDs []snowflake.ID
	for si, sectionReq := range req.Sections {
		category := templatedomain.SectionCategory(strings.ToUpper(strings.TrimSpace(sectionReq.Category)))
		if !category.Valid() {
			return nil, templatedomain.ErrInvalidCategory
		}

		section := templatedomain.ActSection{
			ID:        s.genID.Generate(),
			Position:  si,
			Label:     strings.TrimSpace(sectionReq.Label),
			Category:  category,
			CreatedAt: now,
		}

		for ii, itemReq := range sectionReq.Items {
			kind := templatedomain.ItemKind(strings.ToUpper(strings.TrimSpace(itemReq.Kind)))
			if !kind.Valid() {
				return nil, templatedomain.ErrInvalidKind
			}
			if itemReq.Value < 0 {
				return nil, templatedomain.ErrInvalidValue
			}

			item := templatedomain.CalculationItem{
				ID:             s.genID.Generate(),
				Position:       ii,
				Label:          strings.TrimSpace(itemReq.Label),
				Kind:           kind,
				Value:          itemReq.Value,
				AccountCode:    strings.TrimSpace(itemReq.AccountCode),
				IsDisbursement: itemReq.IsDisbursement,
				CreatedAt:      now,
			}

			if kind == templatedomain.ItemKindScale {
				if itemReq.ScaleTableID == nil {
					return nil, templatedomain.ErrInvalidScale
				}
				scaleID, err := snowflake.ParseString(strings.TrimSpace(*itemReq.ScaleTableID))
				if err != nil {
					return nil, templatedomain.ErrInvalidScale
				}
				item.ScaleTableID = &scaleID
				scaleIDs = append(scaleIDs, scaleID)
			}

			for _, rawTaxID := range itemReq.TaxIDs {
				taxID, err := snowflake.ParseString(strings.TrimSpace(rawTaxID))
				if err != nil {
					return nil, taxdomain.ErrInvalidID
				}
				item.Taxes = append(item.Taxes, templatedomain.CalculationItemTax{
					ID:              s.genID.Generate(),
					TaxDefinitionID: taxID,
				})
				taxIDs = append(taxIDs, taxID)
			}

			section.Items = append(section.Items, item)
		}
		template.Sections = append(template.Sections, section)
	}

	if len(taxIDs) > 0 {
		known, err := s.taxRepo.FindByIDs(ctx, taxIDs)
		if err != nil {
			return nil, err
		}
		for _, taxID := range taxIDs {
			if _, ok := known[taxID]; !ok {
				return nil, taxdomain.ErrNotFound
			}
		}
	}
	if len(scaleIDs) > 0 {
		known, err := s.baremeRepo.FindByIDs(ctx, scaleIDs)
		if err != nil {
			return nil, err
		}
		for _, scaleID := range scaleIDs {
			if _, ok := known[scaleID]; !ok {
				return nil, baremedomain.ErrNotFound
			}
		}
	}

	return template, nil
}

func toResponse(template *templatedomain.ActTemplate) *templatedomain.Response {
	resp := &templatedomain.Response{
		ID:        template.ID.String(),
		Code:      template.Code,
		Label:     template.Label,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}
	for _, section := range template.Sections {
		sectionResp := templatedomain.SectionResponse{
			ID:       section.ID.String(),
			Label:    section.Label,
			Category: section.Category,
		}
		for _, item := range section.Items {
			itemResp := templatedomain.ItemResponse{
				ID:             item.ID.String(),
				Label:          item.Label,
				Kind:           item.Kind,
				Value:          item.Value,
				AccountCode:    item.AccountCode,
				IsDisbursement: item.IsDisbursement,
			}
			if item.ScaleTableID != nil {
				scaleID := item.ScaleTableID.String()
				itemResp.ScaleTableID = &scaleID
			}
			for _, tax := range item.Taxes {
				itemResp.TaxIDs = append(itemResp.TaxIDs, tax.TaxDefinitionID.String())
			}
			sectionResp.Items = append(sectionResp.Items, itemResp)
		}
		resp.Sections = append(resp.Sections, sectionResp)
	}
	return resp
}
