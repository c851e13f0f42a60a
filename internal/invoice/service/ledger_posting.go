package service

import (
	"fmt"

	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
)

// BuildInvoiceLedgerLines derives the balanced journal entry for an
// invoice: debit the client receivable for the TTC total, credit each
// revenue or pass-through account for its HT share, credit collected VAT.
// Credits are grouped by account code in first-seen line order, so the
// derivation is deterministic for a given snapshot.
func BuildInvoiceLedgerLines(inv *invoicedomain.Invoice) []ledgerdomain.LedgerLine {
	lines := []ledgerdomain.LedgerLine{{
		AccountCode: ledgerdomain.AccountCodeClients,
		Debit:       inv.TotalTTC,
		Label:       fmt.Sprintf("Facture %s", inv.Number),
	}}

	index := make(map[string]int)
	for _, item := range inv.LineItems {
		if item.TotalHT == 0 {
			continue
		}
		code := creditAccountCode(item)
		if at, ok := index[code]; ok {
			lines[at].Credit += item.TotalHT
			continue
		}
		index[code] = len(lines)
		lines = append(lines, ledgerdomain.LedgerLine{
			AccountCode: code,
			Credit:      item.TotalHT,
			Label:       fmt.Sprintf("Facture %s", inv.Number),
		})
	}

	if inv.TotalTVA > 0 {
		lines = append(lines, ledgerdomain.LedgerLine{
			AccountCode: ledgerdomain.AccountCodeTVACollectee,
			Credit:      inv.TotalTVA,
			Label:       fmt.Sprintf("TVA collectée facture %s", inv.Number),
		})
	}
	return lines
}

// BuildPaymentLedgerLines derives the settlement entry for one payment:
// debit cash or bank, credit the client receivable. Adjustments and other
// non-positive amounts produce no entry.
func BuildPaymentLedgerLines(inv *invoicedomain.Invoice, payment *invoicedomain.Payment) []ledgerdomain.LedgerLine {
	if payment.Amount <= 0 || payment.Method == invoicedomain.PaymentMethodAdjustment {
		return nil
	}

	treasury := ledgerdomain.AccountCodeBanque
	if payment.Method == invoicedomain.PaymentMethodCash {
		treasury = ledgerdomain.AccountCodeCaisse
	}

	label := fmt.Sprintf("Règlement facture %s", inv.Number)
	return []ledgerdomain.LedgerLine{
		{AccountCode: treasury, Debit: payment.Amount, Label: label},
		{AccountCode: ledgerdomain.AccountCodeClients, Credit: payment.Amount, Label: label},
	}
}

func creditAccountCode(item invoicedomain.InvoiceLineItem) string {
	if item.AccountCode != "" {
		return item.AccountCode
	}
	switch item.Category {
	case feedomain.CategoryDebours:
		return ledgerdomain.AccountCodeDebours
	case feedomain.CategoryDroits:
		return ledgerdomain.AccountCodeDroits
	default:
		return ledgerdomain.AccountCodeEmoluments
	}
}
