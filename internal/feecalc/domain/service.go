package domain

import "context"

type Service interface {
	// Evaluate prices a template against a transaction context. It creates
	// nothing: invoice creation consumes the returned result separately.
	Evaluate(ctx context.Context, req EvaluateRequest) (*Result, error)
}

type EvaluateRequest struct {
	TemplateID string           `json:"template_id"`
	BaseAmount int64            `json:"base_amount"`
	UserInputs map[string]int64 `json:"user_inputs,omitempty"`
}
