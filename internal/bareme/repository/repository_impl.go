package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) baremedomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, table *baremedomain.ScaleTable) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Segments").Create(table).Error; err != nil {
			return err
		}
		for i := range table.Segments {
			table.Segments[i].ScaleTableID = table.ID
			if err := tx.Create(&table.Segments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*baremedomain.ScaleTable, error) {
	var table baremedomain.ScaleTable
	err := r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&table, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]baremedomain.ScaleTable, error) {
	result := make(map[snowflake.ID]baremedomain.ScaleTable, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var tables []baremedomain.ScaleTable
	err := r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id IN ?", ids).
		Find(&tables).Error
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		result[table.ID] = table
	}
	return result, nil
}

func (r *repository) List(ctx context.Context) ([]baremedomain.ScaleTable, error) {
	var tables []baremedomain.ScaleTable
	err := r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("code ASC").
		Find(&tables).Error
	if err != nil {
		return nil, err
	}
	return tables, nil
}
