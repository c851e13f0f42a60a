// Package domain contains persistence models for invoicing and payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. OVERDUE is not a
// status: it is a derived flag, see IsOverdue.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// PaymentMethod is how a payment was settled.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "CASH"
	PaymentMethodCheque      PaymentMethod = "CHEQUE"
	PaymentMethodTransfer    PaymentMethod = "TRANSFER"
	PaymentMethodMobileMoney PaymentMethod = "MOBILE_MONEY"

	// Adjustments correct an erroneous payment with a signed amount;
	// recorded payments themselves are never edited or deleted.
	PaymentMethodAdjustment PaymentMethod = "ADJUSTMENT"
)

// Invoice is created once from a single engine evaluation. Line items and
// totals are a frozen snapshot: re-running the engine against an edited
// template never alters an issued invoice. Only payments, the derived
// amounts and the status ever change, and only through the service.
type Invoice struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	Number string       `gorm:"type:text;not null;uniqueIndex"`

	ActeID     snowflake.ID `gorm:"not null;index"`
	DossierID  snowflake.ID `gorm:"not null;index"`
	ClientID   snowflake.ID `gorm:"not null;index"`
	TemplateID snowflake.ID `gorm:"not null;index"`

	Currency  string    `gorm:"type:text;not null"`
	IssueDate time.Time `gorm:"not null"`
	DueDate   time.Time `gorm:"not null"`

	Status      InvoiceStatus `gorm:"type:text;not null;default:'DRAFT'"`
	SentAt      *time.Time    `gorm:""`
	CancelledAt *time.Time    `gorm:""`

	BaseAmount      int64 `gorm:"not null"`
	TotalEmoluments int64 `gorm:"not null;default:0"`
	TotalDebours    int64 `gorm:"not null;default:0"`
	TotalDroits     int64 `gorm:"not null;default:0"`
	TotalTVA        int64 `gorm:"not null;default:0"`
	TotalHT         int64 `gorm:"not null;default:0"`
	TotalTTC        int64 `gorm:"not null;default:0"`

	PaidAmount      int64 `gorm:"not null;default:0"`
	RemainingAmount int64 `gorm:"not null;default:0"`

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments  []Payment         `gorm:"foreignKey:InvoiceID;references:ID"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceLineItem is the persisted snapshot of one computed line.
type InvoiceLineItem struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"not null;index"`
	Position  int          `gorm:"not null"`

	SourceItemID   snowflake.ID           `gorm:"not null"`
	Label          string                 `gorm:"type:text;not null"`
	Category       feedomain.LineCategory `gorm:"type:text;not null"`
	Quantity       int64                  `gorm:"not null;default:1"`
	UnitBaseAmount int64                  `gorm:"not null"`
	TotalHT        int64                  `gorm:"not null"`
	TaxRatePct     float64                `gorm:"not null;default:0"`
	TaxAmount      int64                  `gorm:"not null;default:0"`
	TotalTTC       int64                  `gorm:"not null"`
	AccountCode    string                 `gorm:"type:text;not null"`
	IsDisbursement bool                   `gorm:"not null;default:false"`

	Taxes []InvoiceLineItemTax `gorm:"foreignKey:LineItemID;references:ID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InvoiceLineItem) TableName() string { return "invoice_line_items" }

// InvoiceLineItemTax captures one tax applied to a snapshot line.
type InvoiceLineItemTax struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	LineItemID      snowflake.ID `gorm:"not null;index"`
	TaxDefinitionID snowflake.ID `gorm:"not null;index"`
	TaxCode         string       `gorm:"type:text;not null"`
	RatePct         float64      `gorm:"not null"`
	Amount          int64        `gorm:"not null"`
}

func (InvoiceLineItemTax) TableName() string { return "invoice_line_item_taxes" }

// Payment is append-only: once recorded it is never edited or deleted.
// Adjustments carry a negative amount under PaymentMethodAdjustment.
type Payment struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	InvoiceID snowflake.ID  `gorm:"not null;index"`
	Amount    int64         `gorm:"not null"`
	Method    PaymentMethod `gorm:"type:text;not null"`
	Reference *string       `gorm:"type:text"`
	Reason    *string       `gorm:"type:text"`
	PaidAt    time.Time     `gorm:"not null"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

// InvoiceSequence allocates sequential invoice numbers per year.
type InvoiceSequence struct {
	Year int   `gorm:"primaryKey"`
	Next int64 `gorm:"not null;default:1"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
