package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, def *TaxDefinition) error
	FindByID(ctx context.Context, id snowflake.ID) (*TaxDefinition, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]TaxDefinition, error)
	List(ctx context.Context, filter ListRequest) ([]TaxDefinition, error)
	Update(ctx context.Context, def *TaxDefinition) error

	// IsReferenced reports whether any issued invoice line snapshotted this
	// definition. Referenced definitions are immutable apart from disabling.
	IsReferenced(ctx context.Context, id snowflake.ID) (bool, error)
}
