package ports

import (
	"context"

	"zonebot/internal/domain"
)

// TradeJournal stores one row per executed order. Callers treat write failures
// as non-fatal.
type TradeJournal interface {
	// Record appends entry.
	Record(ctx context.Context, entry *domain.TradeEntry) error
	// FindByTag returns the most recent entries for tag, newest first, up to limit.
	FindByTag(ctx context.Context, tag int64, limit int) ([]*domain.TradeEntry, error)
}
