package migration

import (
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
)

// Models lists every persisted model. Non-postgres databases (local
// SQLite, tests) are migrated through gorm instead of the SQL files.
func Models() []any {
	return []any{
		&taxdomain.TaxDefinition{},
		&baremedomain.ScaleTable{},
		&baremedomain.ScaleSegment{},
		&templatedomain.ActTemplate{},
		&templatedomain.ActSection{},
		&templatedomain.CalculationItem{},
		&templatedomain.CalculationItemTax{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&invoicedomain.InvoiceLineItemTax{},
		&invoicedomain.Payment{},
		&invoicedomain.InvoiceSequence{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
	}
}
