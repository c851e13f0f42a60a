package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/notalys/notalys/internal/clock"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	obsmetrics "github.com/notalys/notalys/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// CreateEntry validates and persists one balanced journal entry.
// Idempotency: the unique (source_type, source_id) index plus
// ON CONFLICT DO NOTHING make re-posting the same source a no-op.
func (s *Service) CreateEntry(
	ctx context.Context,
	sourceType ledgerdomain.LedgerSourceType,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	lines []ledgerdomain.LedgerLine,
) error {
	if strings.TrimSpace(string(sourceType)) == "" {
		return ledgerdomain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return ledgerdomain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return ledgerdomain.ErrInvalidOccurredAt
	}

	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return err
	}

	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entryID := s.genID.Generate()
		now := s.clock.Now()

		result := tx.Exec(
			`INSERT INTO ledger_entries (
				id, source_type, source_id, currency, occurred_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_type, source_id) DO NOTHING`,
			entryID,
			string(sourceType),
			sourceID,
			currency,
			occurredAt.UTC(),
			now,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			s.log.Info("ledger entry already exists",
				zap.String("source_type", string(sourceType)),
				zap.String("source_id", sourceID.String()),
			)
			return nil
		}
		inserted = true

		for _, line := range lines {
			if err := tx.Exec(
				`INSERT INTO ledger_entry_lines (
					id, ledger_entry_id, account_code, debit, credit, label, created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				s.genID.Generate(),
				entryID,
				line.AccountCode,
				line.Debit,
				line.Credit,
				line.Label,
				now,
			).Error; err != nil {
				return err
			}
		}

		s.log.Info("posted ledger entry",
			zap.String("ledger_entry_id", entryID.String()),
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", sourceID.String()),
			zap.Int("lines", len(lines)),
		)
		return nil
	})
	if err != nil {
		return err
	}
	if inserted {
		s.metrics.RecordLedgerEntry(ctx, string(sourceType))
	}
	return nil
}
