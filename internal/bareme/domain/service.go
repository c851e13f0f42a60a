package domain

import (
	"context"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context) ([]Response, error)
}

type CreateRequest struct {
	Code     string           `json:"code"`
	Label    string           `json:"label"`
	Segments []SegmentRequest `json:"segments"`
}

type SegmentRequest struct {
	LowerBound  int64    `json:"lower_bound"`
	UpperBound  *int64   `json:"upper_bound,omitempty"`
	RatePct     *float64 `json:"rate_pct,omitempty"`
	FixedAmount *int64   `json:"fixed_amount,omitempty"`
}

type Response struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Label     string            `json:"label"`
	Segments  []SegmentResponse `json:"segments"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type SegmentResponse struct {
	ID          string   `json:"id"`
	LowerBound  int64    `json:"lower_bound"`
	UpperBound  *int64   `json:"upper_bound,omitempty"`
	RatePct     *float64 `json:"rate_pct,omitempty"`
	FixedAmount *int64   `json:"fixed_amount,omitempty"`
}
