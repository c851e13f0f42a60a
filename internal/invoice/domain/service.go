package domain

import (
	"context"
	"time"

	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	"github.com/notalys/notalys/pkg/db/pagination"
)

// CreateRequest issues a new DRAFT invoice from one engine evaluation of
// the given template against the given base amount.
type CreateRequest struct {
	TemplateID string           `json:"template_id" binding:"required"`
	ActeID     string           `json:"acte_id" binding:"required"`
	DossierID  string           `json:"dossier_id" binding:"required"`
	ClientID   string           `json:"client_id" binding:"required"`
	BaseAmount int64            `json:"base_amount" binding:"required"`
	UserInputs map[string]int64 `json:"user_inputs,omitempty"`
	DueInDays  int              `json:"due_in_days,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

type ListRequest struct {
	Status    string `form:"status"`
	ClientID  string `form:"client_id"`
	DossierID string `form:"dossier_id"`
	pagination.Pagination
}

// InvoiceResult pairs an invoice with its derived overdue flag. Overdue is
// computed at read time and never stored.
type InvoiceResult struct {
	Invoice *Invoice `json:"invoice"`
	Overdue bool     `json:"overdue"`
}

type ListResponse struct {
	Invoices []InvoiceResult      `json:"invoices"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type RecordPaymentRequest struct {
	InvoiceID string     `json:"-"`
	Amount    int64      `json:"amount" binding:"required"`
	Method    string     `json:"method" binding:"required"`
	Reference *string    `json:"reference,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// RecordAdjustmentRequest corrects an erroneous payment by appending a
// signed adjustment; the original payment row is left untouched.
type RecordAdjustmentRequest struct {
	InvoiceID string  `json:"-"`
	Amount    int64   `json:"amount" binding:"required"`
	Reason    string  `json:"reason" binding:"required"`
	Reference *string `json:"reference,omitempty"`
}

// RecordPaymentResponse reports the appended payment and the invoice
// state after recomputation. Overpaid flags PaidAmount above TotalTTC.
type RecordPaymentResponse struct {
	Invoice  *Invoice `json:"invoice"`
	Payment  *Payment `json:"payment"`
	Overpaid bool     `json:"overpaid"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*InvoiceResult, error)
	Get(ctx context.Context, id string) (*InvoiceResult, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	MarkSent(ctx context.Context, id string) (*InvoiceResult, error)
	Cancel(ctx context.Context, id string) (*InvoiceResult, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResponse, error)
	RecordAdjustment(ctx context.Context, req RecordAdjustmentRequest) (*RecordPaymentResponse, error)
	LedgerLines(ctx context.Context, id string) ([]ledgerdomain.LedgerLine, error)
	PostLedger(ctx context.Context, id string) (*InvoiceResult, error)
}
