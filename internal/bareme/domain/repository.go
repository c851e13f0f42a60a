package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, table *ScaleTable) error
	FindByID(ctx context.Context, id snowflake.ID) (*ScaleTable, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]ScaleTable, error)
	List(ctx context.Context) ([]ScaleTable, error)
}
