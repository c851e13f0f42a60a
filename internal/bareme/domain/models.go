// Package domain contains persistence models for progressive scale tables
// (barèmes) used by SCALE calculation items.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ScaleTable is an ordered set of segments partitioning [0, ∞).
type ScaleTable struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	Code  string       `gorm:"type:text;not null;uniqueIndex"`
	Label string       `gorm:"type:text;not null"`

	Segments []ScaleSegment `gorm:"foreignKey:ScaleTableID;references:ID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ScaleTable) TableName() string { return "scale_tables" }

// ScaleSegment is one bracket of a scale table. UpperBound nil means ∞.
// Either RatePct (marginal percent applied to the slice of the base amount
// falling inside the bracket) or FixedAmount (flat amount owed once the base
// reaches the bracket) must be set.
type ScaleSegment struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ScaleTableID snowflake.ID `gorm:"not null;index"`
	Position     int          `gorm:"not null"`

	LowerBound  int64    `gorm:"not null"`
	UpperBound  *int64   `gorm:""`
	RatePct     *float64 `gorm:"column:rate_pct"`
	FixedAmount *int64   `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ScaleSegment) TableName() string { return "scale_segments" }

// Validate enforces the partition invariant: segments are ordered, start at
// zero, leave no gap and no overlap, and the last segment is unbounded.
func (t *ScaleTable) Validate() error {
	if t.Code == "" {
		return ErrInvalidCode
	}
	if len(t.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrMalformedScale)
	}

	for i, seg := range t.Segments {
		if seg.RatePct == nil && seg.FixedAmount == nil {
			return fmt.Errorf("%w: segment %d has neither rate nor fixed amount", ErrMalformedScale, i)
		}
		if seg.RatePct != nil && *seg.RatePct < 0 {
			return fmt.Errorf("%w: segment %d has negative rate", ErrMalformedScale, i)
		}
		if seg.FixedAmount != nil && *seg.FixedAmount < 0 {
			return fmt.Errorf("%w: segment %d has negative fixed amount", ErrMalformedScale, i)
		}

		if i == 0 {
			if seg.LowerBound != 0 {
				return fmt.Errorf("%w: first segment must start at 0, got %d", ErrMalformedScale, seg.LowerBound)
			}
		} else {
			prev := t.Segments[i-1]
			if prev.UpperBound == nil {
				return fmt.Errorf("%w: segment %d follows an unbounded segment", ErrMalformedScale, i)
			}
			switch {
			case seg.LowerBound > *prev.UpperBound:
				return fmt.Errorf("%w: gap before segment %d", ErrMalformedScale, i)
			case seg.LowerBound < *prev.UpperBound:
				return fmt.Errorf("%w: overlap at segment %d", ErrMalformedScale, i)
			}
		}

		if seg.UpperBound != nil && *seg.UpperBound <= seg.LowerBound {
			return fmt.Errorf("%w: segment %d has empty range", ErrMalformedScale, i)
		}
	}

	last := t.Segments[len(t.Segments)-1]
	if last.UpperBound != nil {
		return fmt.Errorf("%w: last segment must be unbounded", ErrMalformedScale)
	}

	return nil
}
