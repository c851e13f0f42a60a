// Package domain contains the double-entry posting contract and the
// minimal journal models that accept balanced entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SYSCOHADA-style account codes used by the étude's chart of accounts.
// Calculation items may carry finer-grained codes; these are the defaults
// the seed installs and the posting derivation falls back to.
const (
	AccountCodeClients       = "411" // accounts receivable (clients)
	AccountCodeEmoluments    = "706" // service revenue (notary's fees)
	AccountCodeDebours       = "467" // pass-through disbursements
	AccountCodeDroits        = "447" // duties collected for the treasury
	AccountCodeTVACollectee  = "443" // VAT collected, owed to the state
	AccountCodeCaisse        = "571" // cash
	AccountCodeBanque        = "521" // bank
)

// LedgerSourceType identifies the business event behind a journal entry.
type LedgerSourceType string

const (
	SourceTypeInvoice LedgerSourceType = "invoice"
	SourceTypePayment LedgerSourceType = "payment"
)

// LedgerLine is one posting line of the contract exposed to the accounting
// module: exactly one of Debit/Credit is non-zero.
type LedgerLine struct {
	AccountCode string `json:"account_code"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
	Label       string `json:"label"`
}

// LedgerAccount defines a chart-of-accounts entry.
type LedgerAccount struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Code      string       `gorm:"type:text;not null;uniqueIndex"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry is the immutable header for one accepted journal entry.
type LedgerEntry struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	SourceType LedgerSourceType `gorm:"type:text;not null;index;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SourceID   snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_ledger_entries_source,priority:2"`
	Currency   string           `gorm:"type:text;not null"`
	OccurredAt time.Time        `gorm:"not null"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is one persisted posting line of an accepted entry.
type LedgerEntryLine struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID `gorm:"not null;index"`
	AccountCode   string       `gorm:"type:text;not null"`
	Debit         int64        `gorm:"not null;default:0"`
	Credit        int64        `gorm:"not null;default:0"`
	Label         string       `gorm:"type:text;not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }

// ValidateBalanced enforces the double-entry precondition: at least two
// lines, every line one-sided and non-negative, and Σdebit == Σcredit.
func ValidateBalanced(lines []LedgerLine) error {
	if len(lines) < 2 {
		return ErrInvalidEntryLines
	}

	var debit, credit int64
	for _, line := range lines {
		if line.AccountCode == "" {
			return ErrInvalidAccount
		}
		if line.Debit < 0 || line.Credit < 0 {
			return ErrInvalidLineAmount
		}
		if (line.Debit == 0) == (line.Credit == 0) {
			return ErrInvalidLineAmount
		}
		debit += line.Debit
		credit += line.Credit
	}

	if debit != credit {
		return ErrUnbalancedEntry
	}
	return nil
}
