package domain

import "time"

// DeriveStatus is the single source of truth for invoice status. Every
// mutation path recomputes through it; nothing writes status directly.
func DeriveStatus(totalTTC, paidAmount int64, cancelled, sent bool) InvoiceStatus {
	switch {
	case cancelled:
		return InvoiceStatusCancelled
	case paidAmount > 0 && paidAmount >= totalTTC:
		return InvoiceStatusPaid
	case paidAmount > 0:
		return InvoiceStatusPartiallyPaid
	case sent:
		return InvoiceStatusSent
	default:
		return InvoiceStatusDraft
	}
}

// IsOverdue reports the derived, non-exclusive overdue flag.
func IsOverdue(status InvoiceStatus, dueDate time.Time, now time.Time) bool {
	if status == InvoiceStatusPaid || status == InvoiceStatusCancelled {
		return false
	}
	return now.After(dueDate)
}

// Recompute refreshes the derived payment fields and status from the
// append-only payment list.
func (inv *Invoice) Recompute() {
	var paid int64
	for _, p := range inv.Payments {
		paid += p.Amount
	}
	inv.PaidAmount = paid
	inv.RemainingAmount = inv.TotalTTC - paid
	inv.Status = DeriveStatus(inv.TotalTTC, paid, inv.CancelledAt != nil, inv.SentAt != nil)
}
