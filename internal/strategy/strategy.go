package strategy

import (
	"context"
	"fmt"
	"math"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
	"zonebot/internal/strategy/indicators"
)

// Hold reasons. Buy and sell reasons carry the measured distance instead.
const (
	ReasonInsufficientData = "insufficient data"
	ReasonNoClearTrend     = "no clear trend"
	ReasonTooFarFromZone   = "too far from zone"
	ReasonVolatilityGate   = "volatility gate"
)

// Strategy implements the moving-average zone logic: trade in the direction
// of a stacked trend, only while price sits close to the short average that
// acts as support (uptrend) or resistance (downtrend).
type Strategy struct {
	cfg      domain.StrategyConfig
	logger   ports.Logger
	averages indicators.ZoneAverages
}

// New creates a new Strategy instance.
func New(cfg domain.StrategyConfig, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.SupportPeriod <= 0 || cfg.ResistancePeriod <= 0 || cfg.TrailingPeriod <= 0 || cfg.FilterPeriod <= 0 || cfg.TrendPeriod <= 0 {
		return nil, fmt.Errorf("strategy periods must be positive")
	}
	if cfg.MovingAverage != domain.EMA && cfg.MovingAverage != domain.SMA {
		return nil, fmt.Errorf("unsupported moving average type: %q", cfg.MovingAverage)
	}
	if cfg.ZoneThreshold < 0 {
		return nil, fmt.Errorf("zone threshold must not be negative")
	}
	return &Strategy{cfg: cfg, logger: logger, averages: indicators.NewZoneAverages(cfg)}, nil
}

// Name returns the configured strategy name.
func (s *Strategy) Name() string {
	return s.cfg.Name
}

// RequiredDataPoints returns the longest period plus headroom.
func (s *Strategy) RequiredDataPoints() int {
	return s.averages.RequiredDataPoints() + domain.Headroom
}

// Snapshot computes the indicator values for candles.
func (s *Strategy) Snapshot(candles []domain.Candle, point float64) (domain.IndicatorSnapshot, error) {
	return indicators.Snapshot(candles, s.cfg, point)
}

// ClassifyTrend applies the strict ordering rule. Any NaN makes both
// comparisons false, which yields consolidation.
func ClassifyTrend(snap domain.IndicatorSnapshot) domain.Trend {
	p := snap.CurrentPrice
	switch {
	case p > snap.Support && snap.Support > snap.Filter && snap.Filter > snap.Trend:
		return domain.TrendBullish
	case p < snap.Resistance && snap.Resistance < snap.Filter && snap.Filter < snap.Trend:
		return domain.TrendBearish
	default:
		return domain.TrendConsolidation
	}
}

// Evaluate returns exactly one decision for snap.
func (s *Strategy) Evaluate(ctx context.Context, snap domain.IndicatorSnapshot) domain.Decision {
	if !indicators.Complete(snap) || math.IsNaN(snap.Point) || snap.Point <= 0 {
		return hold(domain.TrendConsolidation, ReasonInsufficientData)
	}

	trend := ClassifyTrend(snap)
	if trend == domain.TrendConsolidation {
		return hold(trend, ReasonNoClearTrend)
	}

	zoneName, zoneDistance := "support", snap.Distances.Support
	if trend == domain.TrendBearish {
		zoneName, zoneDistance = "resistance", snap.Distances.Resistance
	}
	if zoneDistance > s.cfg.ZoneThreshold {
		return hold(trend, fmt.Sprintf("%s: %d points from %s (max %d)", ReasonTooFarFromZone, zoneDistance, zoneName, s.cfg.ZoneThreshold))
	}

	if gate := s.cfg.VolatilityGate; gate.Enabled {
		if snap.Ranges == nil {
			return hold(trend, ReasonVolatilityGate+": ranges unavailable")
		}
		if snap.Ranges.H1 > gate.MaxH1Range || snap.Ranges.H4 > gate.MaxH4Range {
			return hold(trend, fmt.Sprintf("%s: H1 %d/%d, H4 %d/%d points",
				ReasonVolatilityGate, snap.Ranges.H1, gate.MaxH1Range, snap.Ranges.H4, gate.MaxH4Range))
		}
	}

	signal := domain.SignalBuy
	if trend == domain.TrendBearish {
		signal = domain.SignalSell
	}
	return domain.Decision{
		Signal: signal,
		Trend:  trend,
		Reason: fmt.Sprintf("%s trend, price %d points from %s", trend, zoneDistance, zoneName),
	}
}

func hold(trend domain.Trend, reason string) domain.Decision {
	return domain.Decision{Signal: domain.SignalHold, Trend: trend, Reason: reason}
}
