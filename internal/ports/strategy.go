package ports

import (
	"context"

	"zonebot/internal/domain"
)

// Strategy turns market data into a trading decision.
type Strategy interface {
	// Name returns the configured strategy name.
	Name() string
	// RequiredDataPoints returns the minimum number of candles a cycle needs.
	RequiredDataPoints() int
	// Snapshot computes the indicator values for candles.
	Snapshot(candles []domain.Candle, point float64) (domain.IndicatorSnapshot, error)
	// Evaluate returns exactly one decision for snap. It has no side effects.
	Evaluate(ctx context.Context, snap domain.IndicatorSnapshot) domain.Decision
}
