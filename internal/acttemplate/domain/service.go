package domain

import (
	"context"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Update(ctx context.Context, id string, req CreateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Code     string           `json:"code"`
	Label    string           `json:"label"`
	Sections []SectionRequest `json:"sections"`
}

type SectionRequest struct {
	Label    string        `json:"label"`
	Category string        `json:"category"`
	Items    []ItemRequest `json:"items"`
}

type ItemRequest struct {
	Label          string   `json:"label"`
	Kind           string   `json:"kind"`
	Value          float64  `json:"value"`
	ScaleTableID   *string  `json:"scale_table_id,omitempty"`
	AccountCode    string   `json:"account_code"`
	IsDisbursement bool     `json:"is_disbursement"`
	TaxIDs         []string `json:"tax_ids"`
}

type Response struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Label     string            `json:"label"`
	Sections  []SectionResponse `json:"sections"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type SectionResponse struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Category SectionCategory `json:"category"`
	Items    []ItemResponse  `json:"items"`
}

type ItemResponse struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	Kind           ItemKind `json:"kind"`
	Value          float64  `json:"value"`
	ScaleTableID   *string  `json:"scale_table_id,omitempty"`
	AccountCode    string   `json:"account_code"`
	IsDisbursement bool     `json:"is_disbursement"`
	TaxIDs         []string `json:"tax_ids"`
}
