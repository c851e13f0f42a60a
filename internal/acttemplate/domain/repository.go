package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, template *ActTemplate) error
	FindByID(ctx context.Context, id snowflake.ID) (*ActTemplate, error)
	List(ctx context.Context) ([]ActTemplate, error)
	Replace(ctx context.Context, template *ActTemplate) error
	Delete(ctx context.Context, id snowflake.ID) error

	// IsReferenced reports whether any invoice was created from this template.
	IsReferenced(ctx context.Context, id snowflake.ID) (bool, error)
}
