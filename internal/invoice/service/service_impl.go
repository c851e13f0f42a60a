package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/notalys/notalys/internal/clock"
	"github.com/notalys/notalys/internal/config"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	obsmetrics "github.com/notalys/notalys/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultDueInDays = 30

type Params struct {
	fx.In

	Cfg     config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    invoicedomain.Repository
	FeeCalc feedomain.Service
	Ledger  ledgerdomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    invoicedomain.Repository
	feecalc feedomain.Service
	ledger  ledgerdomain.Service
	metrics *obsmetrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		cfg:     p.Cfg,
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		feecalc: p.FeeCalc,
		ledger:  p.Ledger,
		metrics: p.Metrics,
	}
}

// Create evaluates the template once and freezes the result into a DRAFT
// invoice. Later template or tax edits never touch the stored snapshot.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.InvoiceResult, error) {
	acteID, err := parseID(req.ActeID)
	if err != nil {
		return nil, err
	}
	dossierID, err := parseID(req.DossierID)
	if err != nil {
		return nil, err
	}
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return nil, err
	}

	result, err := s.feecalc.Evaluate(ctx, feedomain.EvaluateRequest{
		TemplateID: req.TemplateID,
		BaseAmount: req.BaseAmount,
		UserInputs: req.UserInputs,
	})
	if err != nil {
		return nil, err
	}
	if len(result.LineItems) == 0 {
		return nil, invoicedomain.ErrEmptyEvaluation
	}

	dueInDays := req.DueInDays
	if dueInDays <= 0 {
		dueInDays = defaultDueInDays
	}

	now := s.clock.Now()
	inv := &invoicedomain.Invoice{
		ID:         s.genID.Generate(),
		ActeID:     acteID,
		DossierID:  dossierID,
		ClientID:   clientID,
		TemplateID: result.TemplateID,
		Currency:   s.cfg.Currency,
		IssueDate:  now,
		DueDate:    now.AddDate(0, 0, dueInDays),
		Status:     invoicedomain.InvoiceStatusDraft,

		BaseAmount:      result.BaseAmount,
		TotalEmoluments: result.Totals.Emoluments,
		TotalDebours:    result.Totals.Debours,
		TotalDroits:     result.Totals.Droits,
		TotalTVA:        result.Totals.TVA,
		TotalHT:         result.Totals.HT,
		TotalTTC:        result.Totals.TTC,
		RemainingAmount: result.Totals.TTC,

		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, line := range result.LineItems {
		item := invoicedomain.InvoiceLineItem{
			ID:             s.genID.Generate(),
			InvoiceID:      inv.ID,
			Position:       i,
			SourceItemID:   line.SourceItemID,
			Label:          line.Label,
			Category:       line.Category,
			Quantity:       line.Quantity,
			UnitBaseAmount: line.UnitBaseAmount,
			TotalHT:        line.TotalHT,
			TaxRatePct:     line.TaxRatePct,
			TaxAmount:      line.TaxAmount,
			TotalTTC:       line.TotalTTC,
			AccountCode:    line.AccountCode,
			IsDisbursement: line.IsDisbursement,
			CreatedAt:      now,
		}
		for _, tax := range line.Taxes {
			item.Taxes = append(item.Taxes, invoicedomain.InvoiceLineItemTax{
				ID:              s.genID.Generate(),
				LineItemID:      item.ID,
				TaxDefinitionID: tax.TaxDefinitionID,
				TaxCode:         tax.Code,
				RatePct:         tax.RatePct,
				Amount:          tax.Amount,
			})
		}
		inv.LineItems = append(inv.LineItems, item)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.nextNumberTx(tx, now.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		return tx.Omit("Payments").Create(inv).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceCreated(ctx)
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.Int64("total_ttc", inv.TotalTTC),
	)
	return s.result(inv), nil
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.InvoiceResult, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return s.result(inv), nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (*invoicedomain.ListResponse, error) {
	filter := invoicedomain.ListFilter{
		Status:     invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		Pagination: req.Pagination,
	}
	if req.ClientID != "" {
		id, err := parseID(req.ClientID)
		if err != nil {
			return nil, err
		}
		filter.ClientID = id
	}
	if req.DossierID != "" {
		id, err := parseID(req.DossierID)
		if err != nil {
			return nil, err
		}
		filter.DossierID = id
	}

	invoices, pageInfo, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &invoicedomain.ListResponse{
		Invoices: make([]invoicedomain.InvoiceResult, 0, len(invoices)),
		PageInfo: pageInfo,
	}
	for i := range invoices {
		resp.Invoices = append(resp.Invoices, *s.result(&invoices[i]))
	}
	return resp, nil
}

// MarkSent moves a DRAFT invoice to SENT. Re-sending an already sent
// invoice is a no-op.
func (s *Service) MarkSent(ctx context.Context, id string) (*invoicedomain.InvoiceResult, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var inv *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoiceTx(tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.CancelledAt != nil {
			return invoicedomain.ErrInvoiceCancelled
		}
		if inv.SentAt != nil {
			return nil
		}

		now := s.clock.Now()
		inv.SentAt = &now
		inv.UpdatedAt = now
		inv.Recompute()
		return s.saveDerivedTx(tx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice sent",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("status", string(inv.Status)),
	)
	return s.result(inv), nil
}

// Cancel voids an invoice from any state short of PAID, recorded partial
// payments included. CANCELLED is terminal; cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) (*invoicedomain.InvoiceResult, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var inv *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoiceTx(tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.CancelledAt != nil {
			return nil
		}
		if inv.Status == invoicedomain.InvoiceStatusPaid {
			return fmt.Errorf("%w: invoice is fully paid", invoicedomain.ErrNotCancellable)
		}

		now := s.clock.Now()
		inv.CancelledAt = &now
		inv.UpdatedAt = now
		inv.Recompute()
		return s.saveDerivedTx(tx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice cancelled", zap.String("invoice_id", inv.ID.String()))
	return s.result(inv), nil
}

// RecordPayment appends one payment and recomputes the derived amounts
// and status under a row lock. Overpayment is accepted and flagged, never
// rejected: the étude refunds or carries the credit forward out of band.
func (s *Service) RecordPayment(ctx context.Context, req invoicedomain.RecordPaymentRequest) (*invoicedomain.RecordPaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", invoicedomain.ErrInvalidPayment)
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	paidAt := s.clock.Now()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	payment := &invoicedomain.Payment{
		ID:        s.genID.Generate(),
		Amount:    req.Amount,
		Method:    method,
		Reference: req.Reference,
		PaidAt:    paidAt,
		CreatedAt: s.clock.Now(),
	}

	inv, err := s.appendPayment(ctx, req.InvoiceID, payment)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, string(method))
	s.log.Info("payment recorded",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("status", string(inv.Status)),
	)

	s.postPaymentEntry(ctx, inv, payment)

	return &invoicedomain.RecordPaymentResponse{
		Invoice:  inv,
		Payment:  payment,
		Overpaid: inv.RemainingAmount < 0,
	}, nil
}

// RecordAdjustment corrects an erroneous payment by appending a signed
// adjustment. The original payment row stays untouched; the adjustment
// may not push the total paid below zero.
func (s *Service) RecordAdjustment(ctx context.Context, req invoicedomain.RecordAdjustmentRequest) (*invoicedomain.RecordPaymentResponse, error) {
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", invoicedomain.ErrInvalidPayment)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", invoicedomain.ErrInvalidPayment)
	}

	now := s.clock.Now()
	payment := &invoicedomain.Payment{
		ID:        s.genID.Generate(),
		Amount:    req.Amount,
		Method:    invoicedomain.PaymentMethodAdjustment,
		Reference: req.Reference,
		Reason:    &reason,
		PaidAt:    now,
		CreatedAt: now,
	}

	inv, err := s.appendPayment(ctx, req.InvoiceID, payment)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, string(invoicedomain.PaymentMethodAdjustment))
	s.log.Info("payment adjustment recorded",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("reason", reason),
	)

	return &invoicedomain.RecordPaymentResponse{
		Invoice:  inv,
		Payment:  payment,
		Overpaid: inv.RemainingAmount < 0,
	}, nil
}

func (s *Service) appendPayment(ctx context.Context, rawInvoiceID string, payment *invoicedomain.Payment) (*invoicedomain.Invoice, error) {
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return nil, err
	}

	var inv *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoiceTx(tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.CancelledAt != nil {
			return invoicedomain.ErrInvoiceCancelled
		}
		if inv.PaidAmount+payment.Amount < 0 {
			return fmt.Errorf("%w: adjustment exceeds recorded payments", invoicedomain.ErrInvalidPayment)
		}

		payment.InvoiceID = inv.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		inv.Payments = append(inv.Payments, *payment)
		inv.UpdatedAt = s.clock.Now()
		inv.Recompute()
		return s.saveDerivedTx(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) LedgerLines(ctx context.Context, id string) ([]ledgerdomain.LedgerLine, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildInvoiceLedgerLines(res.Invoice), nil
}

// PostLedger posts the invoice journal entry. The entry is keyed by
// (source_type, source_id), so posting the same invoice twice is a no-op.
func (s *Service) PostLedger(ctx context.Context, id string) (*invoicedomain.InvoiceResult, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := res.Invoice

	if inv.CancelledAt != nil {
		return nil, invoicedomain.ErrInvoiceCancelled
	}
	if inv.SentAt == nil {
		return nil, fmt.Errorf("%w: only sent invoices are posted", invoicedomain.ErrNotDraft)
	}

	lines := BuildInvoiceLedgerLines(inv)
	if err := s.ledger.CreateEntry(ctx, ledgerdomain.SourceTypeInvoice, inv.ID, inv.Currency, inv.IssueDate, lines); err != nil {
		return nil, err
	}
	return res, nil
}

// postPaymentEntry mirrors a settled payment into the journal. The
// payment itself is already committed; a posting failure is logged and
// retried by re-posting, never rolled back.
func (s *Service) postPaymentEntry(ctx context.Context, inv *invoicedomain.Invoice, payment *invoicedomain.Payment) {
	lines := BuildPaymentLedgerLines(inv, payment)
	if lines == nil {
		return
	}
	if err := s.ledger.CreateEntry(ctx, ledgerdomain.SourceTypePayment, payment.ID, inv.Currency, payment.PaidAt, lines); err != nil {
		s.log.Warn("payment ledger posting failed",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

// lockInvoiceTx reads the invoice with a row lock. SQLite has no FOR
// UPDATE; its single-writer transaction serializes the update instead.
func (s *Service) lockInvoiceTx(tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	stmt := tx
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inv invoicedomain.Invoice
	if err := stmt.First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}

	var payments []invoicedomain.Payment
	if err := tx.Where("invoice_id = ?", id).Order("id ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	inv.Payments = payments
	inv.Recompute()
	return &inv, nil
}

// saveDerivedTx writes only the derived fields; snapshot columns are
// immutable after creation.
func (s *Service) saveDerivedTx(tx *gorm.DB, inv *invoicedomain.Invoice) error {
	return tx.Exec(
		`UPDATE invoices
		 SET status = ?, paid_amount = ?, remaining_amount = ?, sent_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(inv.Status),
		inv.PaidAmount,
		inv.RemainingAmount,
		inv.SentAt,
		inv.CancelledAt,
		inv.UpdatedAt,
		inv.ID,
	).Error
}

// nextNumberTx allocates the next invoice number for the year. The
// conflict-update keeps the counter race-free inside the transaction.
func (s *Service) nextNumberTx(tx *gorm.DB, year int) (string, error) {
	if err := tx.Exec(
		`INSERT INTO invoice_sequences (year, next) VALUES (?, 2)
		 ON CONFLICT (year) DO UPDATE SET next = invoice_sequences.next + 1`,
		year,
	).Error; err != nil {
		return "", err
	}

	var next int64
	if err := tx.Raw(`SELECT next FROM invoice_sequences WHERE year = ?`, year).Scan(&next).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("FAC-%d-%06d", year, next-1), nil
}

func (s *Service) result(inv *invoicedomain.Invoice) *invoicedomain.InvoiceResult {
	return &invoicedomain.InvoiceResult{
		Invoice: inv,
		Overdue: invoicedomain.IsOverdue(inv.Status, inv.DueDate, s.clock.Now()),
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

func parseMethod(raw string) (invoicedomain.PaymentMethod, error) {
	method := invoicedomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	switch method {
	case invoicedomain.PaymentMethodCash,
		invoicedomain.PaymentMethodCheque,
		invoicedomain.PaymentMethodTransfer,
		invoicedomain.PaymentMethodMobileMoney:
		return method, nil
	default:
		return "", fmt.Errorf("%w: unknown method %q", invoicedomain.ErrInvalidPayment, raw)
	}
}
