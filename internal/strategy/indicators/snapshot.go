package indicators

import (
	"fmt"
	"math"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
)

// Snapshot computes every average and distance the evaluator needs from one
// candle series. Averages that lack history stay NaN and their distances stay 0.
func Snapshot(candles []domain.Candle, cfg domain.StrategyConfig, point float64) (domain.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return domain.IndicatorSnapshot{}, fmt.Errorf("%w: no candles", ports.ErrInsufficientData)
	}
	if point <= 0 || !isFinite(point) {
		return domain.IndicatorSnapshot{}, fmt.Errorf("%w: point size %v", ports.ErrInvalidRequest, point)
	}

	avg := NewZoneAverages(cfg)
	snap := domain.IndicatorSnapshot{
		CurrentPrice: candles[len(candles)-1].Close,
		Support:      avg.Support.Latest(candles),
		Resistance:   avg.Resistance.Latest(candles),
		Trailing:     avg.Trailing.Latest(candles),
		Filter:       avg.Filter.Latest(candles),
		Trend:        avg.Trend.Latest(candles),
		Point:        point,
	}

	price := snap.CurrentPrice
	snap.Distances = domain.Distances{
		Support:    distanceOrZero(price, snap.Support, point),
		Resistance: distanceOrZero(price, snap.Resistance, point),
		Trailing:   distanceOrZero(price, snap.Trailing, point),
		Filter:     distanceOrZero(price, snap.Filter, point),
		Trend:      distanceOrZero(price, snap.Trend, point),
	}
	return snap, nil
}

// Complete reports whether every average in snap is defined.
func Complete(snap domain.IndicatorSnapshot) bool {
	for _, v := range []float64{snap.CurrentPrice, snap.Support, snap.Resistance, snap.Trailing, snap.Filter, snap.Trend} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func distanceOrZero(a, b, point float64) int {
	d, err := DistancePoints(a, b, point)
	if err != nil {
		return 0
	}
	return d
}
