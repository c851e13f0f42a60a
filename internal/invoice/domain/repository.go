package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/notalys/notalys/pkg/db/pagination"
)

// ListFilter narrows invoice listings. Zero values mean "no filter".
type ListFilter struct {
	Status     InvoiceStatus
	ClientID   snowflake.ID
	DossierID  snowflake.ID
	Pagination pagination.Pagination
}

// Repository reads invoices with their line items and payments preloaded.
// Mutations go through the service, which owns the transactions.
type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, *pagination.PageInfo, error)
}
