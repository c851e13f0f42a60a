package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service accepts balanced journal entries. It stands in for the external
// accounting module: entries are validated and stored idempotently, and the
// general ledger beyond that is out of scope.
type Service interface {
	CreateEntry(ctx context.Context, sourceType LedgerSourceType, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []LedgerLine) error
}
