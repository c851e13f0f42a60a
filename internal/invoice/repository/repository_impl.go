package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	"github.com/notalys/notalys/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) invoicedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := r.preloaded(ctx).First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := r.preloaded(ctx).First(&inv, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, filter invoicedomain.ListFilter) ([]invoicedomain.Invoice, *pagination.PageInfo, error) {
	stmt := r.preloaded(ctx).Model(&invoicedomain.Invoice{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.DossierID != 0 {
		stmt = stmt.Where("dossier_id = ?", filter.DossierID)
	}

	if filter.Pagination.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.Pagination.PageToken)
		if err != nil {
			return nil, nil, err
		}
		if cursor.ID != "" {
			lastID, err := snowflake.ParseString(cursor.ID)
			if err != nil {
				return nil, nil, err
			}
			stmt = stmt.Where("id < ?", lastID)
		}
	}

	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = 10
	}

	var invoices []invoicedomain.Invoice
	if err := stmt.Order("id DESC").Limit(limit + 1).Find(&invoices).Error; err != nil {
		return nil, nil, err
	}

	pageInfo, invoices := pagination.BuildCursorPageInfo(invoices, limit, func(inv invoicedomain.Invoice) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: inv.ID.String()})
		return token
	})
	return invoices, pageInfo, nil
}

func (r *repository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_line_items.position ASC")
		}).
		Preload("LineItems.Taxes").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payments.id ASC")
		})
}
