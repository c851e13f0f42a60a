package domain

import (
	"context"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Disable(ctx context.Context, id string) (*Response, error)
}

type ListRequest struct {
	Code      string
	IsEnabled *bool
}

type CreateRequest struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	RatePct   float64 `json:"rate_pct"`
	IsEnabled *bool   `json:"is_enabled"`
}

type UpdateRequest struct {
	ID      string   `json:"id"`
	Name    *string  `json:"name,omitempty"`
	RatePct *float64 `json:"rate_pct,omitempty"`
}

type Response struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	RatePct   float64   `json:"rate_pct"`
	Basis     TaxBasis  `json:"basis"`
	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
