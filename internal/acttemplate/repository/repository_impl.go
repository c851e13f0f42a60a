package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) templatedomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, template *templatedomain.ActTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertTemplateTx(tx, template)
	})
}

func insertTemplateTx(tx *gorm.DB, template *templatedomain.ActTemplate) error {
	if err := tx.Omit("Sections").Create(template).Error; err != nil {
		return err
	}
	for si := range template.Sections {
		section := &template.Sections[si]
		section.TemplateID = template.ID
		if err := tx.Omit("Items").Create(section).Error; err != nil {
			return err
		}
		for ii := range section.Items {
			item := &section.Items[ii]
			item.SectionID = section.ID
			if err := tx.Omit("Taxes").Create(item).Error; err != nil {
				return err
			}
			for ti := range item.Taxes {
				item.Taxes[ti].ItemID = item.ID
				if err := tx.Create(&item.Taxes[ti]).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*templatedomain.ActTemplate, error) {
	var template templatedomain.ActTemplate
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Sections.Items.Taxes").
		First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *repository) List(ctx context.Context) ([]templatedomain.ActTemplate, error) {
	var templates []templatedomain.ActTemplate
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Sections.Items.Taxes").
		Order("code ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Replace swaps the full section tree of a template in one transaction.
// Issued invoices are unaffected: they carry their own line snapshots.
func (r *repository) Replace(ctx context.Context, template *templatedomain.ActTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteTemplateTreeTx(tx, template.ID); err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM act_templates WHERE id = ?`, template.ID).Error; err != nil {
			return err
		}
		return insertTemplateTx(tx, template)
	})
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteTemplateTreeTx(tx, id); err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM act_templates WHERE id = ?`, id).Error
	})
}

func deleteTemplateTreeTx(tx *gorm.DB, id snowflake.ID) error {
	if err := tx.Exec(
		`DELETE FROM calculation_item_taxes WHERE item_id IN (
			SELECT i.id FROM calculation_items i
			JOIN act_sections s ON s.id = i.section_id
			WHERE s.template_id = ?
		)`, id).Error; err != nil {
		return err
	}
	if err := tx.Exec(
		`DELETE FROM calculation_items WHERE section_id IN (
			SELECT id FROM act_sections WHERE template_id = ?
		)`, id).Error; err != nil {
		return err
	}
	return tx.Exec(`DELETE FROM act_sections WHERE template_id = ?`, id).Error
}

func (r *repository) IsReferenced(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE template_id = ?`,
		id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
