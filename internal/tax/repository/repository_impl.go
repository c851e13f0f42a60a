package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, def *taxdomain.TaxDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*taxdomain.TaxDefinition, error) {
	var def taxdomain.TaxDefinition
	err := r.db.WithContext(ctx).First(&def, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]taxdomain.TaxDefinition, error) {
	result := make(map[snowflake.ID]taxdomain.TaxDefinition, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var defs []taxdomain.TaxDefinition
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&defs).Error; err != nil {
		return nil, err
	}
	for _, def := range defs {
		result[def.ID] = def
	}
	return result, nil
}

func (r *repository) List(ctx context.Context, filter taxdomain.ListRequest) ([]taxdomain.TaxDefinition, error) {
	var items []taxdomain.TaxDefinition
	stmt := r.db.WithContext(ctx).Model(&taxdomain.TaxDefinition{})

	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.IsEnabled != nil {
		stmt = stmt.Where("is_enabled = ?", *filter.IsEnabled)
	}

	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, def *taxdomain.TaxDefinition) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_definitions
		 SET name = ?, rate_pct = ?, is_enabled = ?, updated_at = ?
		 WHERE id = ?`,
		def.Name,
		def.RatePct,
		def.IsEnabled,
		def.UpdatedAt,
		def.ID,
	).Error
}

func (r *repository) IsReferenced(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoice_line_item_taxes WHERE tax_definition_id = ?`,
		id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
