package indicators

import (
	"context"
	"fmt"
	"math"

	"zonebot/internal/domain"
	"zonebot/internal/ports"

	"github.com/markcheno/go-talib"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type  domain.MovingAverageKind
	Field domain.PriceField
}

// MovingAverage implements both SMA and EMA indicators over a chosen price field
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	if config.Field == "" {
		config.Field = domain.FieldClose
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator, e.g. "EMA3(low)"
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s%d(%s)", m.config.Type, m.Config.Period, m.config.Field)
}

// Calculate returns the latest moving average value.
func (m *MovingAverage) Calculate(ctx context.Context, candles []domain.Candle) (float64, error) {
	if m.config.Type != domain.EMA && m.config.Type != domain.SMA {
		return 0, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
	v := m.Latest(candles)
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %d candles for %s", ports.ErrInsufficientData, len(candles), m.Name())
	}
	return v, nil
}

// Latest returns the newest defined value, NaN when history is too short.
func (m *MovingAverage) Latest(candles []domain.Candle) float64 {
	return LastValue(candles, m.Config.Period, m.config.Field, m.config.Type)
}

// ZoneAverages are the five averages the zone strategy reads from one series.
type ZoneAverages struct {
	Support    *MovingAverage // on lows
	Resistance *MovingAverage // on highs
	Trailing   *MovingAverage
	Filter     *MovingAverage
	Trend      *MovingAverage
}

// NewZoneAverages builds the averages configured in cfg.
func NewZoneAverages(cfg domain.StrategyConfig) ZoneAverages {
	ma := func(period int, field domain.PriceField) *MovingAverage {
		return NewMovingAverage(MovingAverageConfig{
			IndicatorConfig: IndicatorConfig{Period: period},
			Type:            cfg.MovingAverage,
			Field:           field,
		})
	}
	return ZoneAverages{
		Support:    ma(cfg.SupportPeriod, domain.FieldLow),
		Resistance: ma(cfg.ResistancePeriod, domain.FieldHigh),
		Trailing:   ma(cfg.TrailingPeriod, domain.FieldClose),
		Filter:     ma(cfg.FilterPeriod, domain.FieldClose),
		Trend:      ma(cfg.TrendPeriod, domain.FieldClose),
	}
}

// All returns the averages in a fixed order.
func (z ZoneAverages) All() []Indicator {
	return []Indicator{z.Support, z.Resistance, z.Trailing, z.Filter, z.Trend}
}

// RequiredDataPoints is the history the longest average needs.
func (z ZoneAverages) RequiredDataPoints() int {
	longest := 0
	for _, ind := range z.All() {
		if n := ind.RequiredDataPoints(); n > longest {
			longest = n
		}
	}
	return longest
}

// Series computes the moving average over field for every candle. The first
// period-1 entries, and every entry when there are fewer than period candles,
// are NaN.
func Series(candles []domain.Candle, period int, field domain.PriceField, kind domain.MovingAverageKind) []float64 {
	out := make([]float64, len(candles))
	if period < 1 || len(candles) < period || (kind != domain.EMA && kind != domain.SMA) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	values := make([]float64, len(candles))
	for i, c := range candles {
		values[i] = c.Price(field)
	}
	if period == 1 {
		return values
	}

	var raw []float64
	if kind == domain.EMA {
		raw = talib.Ema(values, period)
	} else {
		raw = talib.Sma(values, period)
	}
	copy(out, raw)
	// talib zero-fills the lookback window
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// LastValue returns the newest defined average, or NaN when history is too short.
func LastValue(candles []domain.Candle, period int, field domain.PriceField, kind domain.MovingAverageKind) float64 {
	series := Series(candles, period, field, kind)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
