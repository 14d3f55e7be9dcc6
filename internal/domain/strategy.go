package domain

import "time"

// Headroom is the number of candles fetched beyond the longest average period.
const Headroom = 10

// MaxCandleCount bounds the candles a single fetch may request.
const MaxCandleCount = 20000

// VolatilityGate optionally blocks entries while the current H1 or H4 bar is too wide.
type VolatilityGate struct {
	Enabled    bool `yaml:"enabled"`
	MaxH1Range int  `yaml:"max_h1_range" validate:"gte=0"` // Points
	MaxH4Range int  `yaml:"max_h4_range" validate:"gte=0"` // Points
}

// StrategyConfig fully describes one strategy instance. Built once at startup
// and never mutated afterwards.
type StrategyConfig struct {
	Name      string  `yaml:"name" validate:"required"`
	Symbol    string  `yaml:"symbol" validate:"required"`
	Tag       int64   `yaml:"tag" validate:"gt=0"` // Ownership marker put on every order
	Timeframe string  `yaml:"timeframe" validate:"required"`
	Volume    float64 `yaml:"volume" validate:"gt=0"`
	Deviation int     `yaml:"deviation" validate:"gte=0"` // Allowed slippage in points

	SLPoints                 int `yaml:"sl_points" validate:"gt=0"`
	TPPoints                 int `yaml:"tp_points" validate:"gte=0"` // 0 disables the target
	TrailingActivationPoints int `yaml:"trailing_activation_points" validate:"gte=0"`
	TrailingStopDistance     int `yaml:"trailing_stop_distance" validate:"gt=0"`

	MovingAverage    MovingAverageKind `yaml:"moving_average" validate:"oneof=EMA SMA"`
	SupportPeriod    int               `yaml:"support_period" validate:"gt=0"`    // Average of lows
	ResistancePeriod int               `yaml:"resistance_period" validate:"gt=0"` // Average of highs
	TrailingPeriod   int               `yaml:"trailing_period" validate:"gt=0"`   // Average of closes used by the trailing stop
	FilterPeriod     int               `yaml:"filter_period" validate:"gt=0"`     // Consolidation filter
	TrendPeriod      int               `yaml:"trend_period" validate:"gt=0"`      // Long-term trend
	ZoneThreshold    int               `yaml:"zone_threshold" validate:"gte=0"`   // Max points from the zone average

	VolatilityGate VolatilityGate `yaml:"volatility_gate"`

	CandleCount         int    `yaml:"candle_count" validate:"gt=0"`
	TrailingTimeframe   string `yaml:"trailing_timeframe" validate:"required"`
	TrailingCandleCount int    `yaml:"trailing_candle_count" validate:"gt=0"`

	LoopInterval           time.Duration `yaml:"loop_interval" validate:"gt=0"`
	TrailingPollInterval   time.Duration `yaml:"trailing_poll_interval" validate:"gt=0"`
	TakeProfitPollInterval time.Duration `yaml:"take_profit_poll_interval" validate:"gt=0"`
}

// LongestPeriod returns the largest averaging period the evaluator uses.
func (c StrategyConfig) LongestPeriod() int {
	longest := 0
	for _, p := range []int{c.SupportPeriod, c.ResistancePeriod, c.TrailingPeriod, c.FilterPeriod, c.TrendPeriod} {
		if p > longest {
			longest = p
		}
	}
	return longest
}

// RequiredCandles is the minimum number of candles a cycle needs.
func (c StrategyConfig) RequiredCandles() int {
	return c.LongestPeriod() + Headroom
}

// RiskReward returns TP/SL, or 0 when either side is disabled.
func (c StrategyConfig) RiskReward() float64 {
	if c.SLPoints <= 0 || c.TPPoints <= 0 {
		return 0
	}
	return float64(c.TPPoints) / float64(c.SLPoints)
}
