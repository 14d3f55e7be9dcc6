package risk

import (
	"fmt"
	"math"

	"zonebot/internal/domain"

	"github.com/shopspring/decimal"
)

// RiskConfig holds the point distances that govern protective levels
type RiskConfig struct {
	SLPoints                 int // Stop loss distance from entry
	TPPoints                 int // Take profit distance from entry, 0 disables the target
	TrailingActivationPoints int // Profit needed before the trailing stop engages
	TrailingStopDistance     int // Distance kept between the trailing reference and the stop
}

// ConfigFrom extracts the risk settings of a strategy.
func ConfigFrom(cfg domain.StrategyConfig) RiskConfig {
	return RiskConfig{
		SLPoints:                 cfg.SLPoints,
		TPPoints:                 cfg.TPPoints,
		TrailingActivationPoints: cfg.TrailingActivationPoints,
		TrailingStopDistance:     cfg.TrailingStopDistance,
	}
}

// RiskManager converts point distances into prices for one symbol
type RiskManager struct {
	config RiskConfig
	symbol domain.SymbolInfo
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig, symbol domain.SymbolInfo) (*RiskManager, error) {
	if symbol.Point <= 0 || math.IsNaN(symbol.Point) || math.IsInf(symbol.Point, 0) {
		return nil, fmt.Errorf("invalid point size %v for %s", symbol.Point, symbol.Symbol)
	}
	if symbol.Digits < 0 {
		return nil, fmt.Errorf("invalid digits %d for %s", symbol.Digits, symbol.Symbol)
	}
	return &RiskManager{config: config, symbol: symbol}, nil
}

// Round rounds price to the symbol digits.
func (r *RiskManager) Round(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	return decimal.NewFromFloat(price).Round(int32(r.symbol.Digits)).InexactFloat64()
}

// GetStopLoss calculates the stop loss price for an entry at price
func (r *RiskManager) GetStopLoss(price float64, side domain.OrderSide) float64 {
	offset := float64(r.config.SLPoints) * r.symbol.Point
	if side == domain.Buy {
		return r.Round(price - offset)
	}
	return r.Round(price + offset)
}

// GetTakeProfit calculates the take profit price for an entry at price.
// Returns 0 when the target is disabled.
func (r *RiskManager) GetTakeProfit(price float64, side domain.OrderSide) float64 {
	if r.config.TPPoints <= 0 {
		return 0
	}
	offset := float64(r.config.TPPoints) * r.symbol.Point
	if side == domain.Buy {
		return r.Round(price + offset)
	}
	return r.Round(price - offset)
}

// EntryPrice picks the side of the book an entry fills on: ask for buys, bid for sells.
func EntryPrice(tick domain.Tick, side domain.OrderSide) float64 {
	if side == domain.Buy {
		return tick.Ask
	}
	return tick.Bid
}

// ExitPrice picks the side of the book a close fills on: bid for longs, ask for shorts.
func ExitPrice(tick domain.Tick, side domain.OrderSide) float64 {
	if side == domain.Buy {
		return tick.Bid
	}
	return tick.Ask
}

// ProfitPoints measures the open profit of pos at the price it could be closed at.
// Decimal arithmetic keeps an exact threshold hit from landing a hair below it.
func (r *RiskManager) ProfitPoints(pos *domain.Position, tick domain.Tick) float64 {
	exit := decimal.NewFromFloat(ExitPrice(tick, pos.Side))
	open := decimal.NewFromFloat(pos.OpenPrice)
	diff := exit.Sub(open)
	if !pos.IsLong() {
		diff = open.Sub(exit)
	}
	return diff.Div(decimal.NewFromFloat(r.symbol.Point)).InexactFloat64()
}

// TrailingActive reports whether profit has reached the activation threshold.
func (r *RiskManager) TrailingActive(profitPoints float64) bool {
	return profitPoints >= float64(r.config.TrailingActivationPoints)
}

// TrailingStop returns the candidate stop for a position on side given the
// trailing reference average.
func (r *RiskManager) TrailingStop(side domain.OrderSide, reference float64) float64 {
	offset := float64(r.config.TrailingStopDistance) * r.symbol.Point
	if side == domain.Buy {
		return r.Round(reference - offset)
	}
	return r.Round(reference + offset)
}

// Improves reports whether candidate tightens the current stop. A current
// stop of 0 means no stop is set and any finite candidate improves on it.
func Improves(side domain.OrderSide, candidate, current float64) bool {
	if math.IsNaN(candidate) || math.IsInf(candidate, 0) || candidate <= 0 {
		return false
	}
	if current == 0 {
		return true
	}
	if side == domain.Buy {
		return candidate > current
	}
	return candidate < current
}

// TakeProfitReached reports whether tick has touched the target of pos.
func TakeProfitReached(pos *domain.Position, tick domain.Tick) bool {
	if pos.TakeProfit <= 0 {
		return false
	}
	if pos.IsLong() {
		return tick.Bid >= pos.TakeProfit
	}
	return tick.Ask <= pos.TakeProfit
}
