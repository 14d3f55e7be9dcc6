package strategy

import (
	"context"
	"math"
	"testing"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
	"zonebot/internal/strategy/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

func goldConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:             "gold-zone",
		Symbol:           "GOLD",
		Tag:              32,
		Timeframe:        "2m",
		Volume:           0.01,
		SLPoints:         170,
		TPPoints:         300,
		MovingAverage:    domain.EMA,
		SupportPeriod:    20,
		ResistancePeriod: 20,
		TrailingPeriod:   3,
		FilterPeriod:     50,
		TrendPeriod:      200,
		ZoneThreshold:    70,
	}
}

// snapshotOf builds a snapshot with distances measured the same way the
// indicator engine does.
func snapshotOf(t *testing.T, price, support, resistance, filter, trend float64) domain.IndicatorSnapshot {
	t.Helper()
	const point = 0.01
	dist := func(avg float64) int {
		if math.IsNaN(avg) {
			return 0
		}
		d, err := indicators.DistancePoints(price, avg, point)
		require.NoError(t, err)
		return d
	}
	return domain.IndicatorSnapshot{
		CurrentPrice: price,
		Support:      support,
		Resistance:   resistance,
		Trailing:     price,
		Filter:       filter,
		Trend:        trend,
		Point:        point,
		Distances: domain.Distances{
			Support:    dist(support),
			Resistance: dist(resistance),
			Filter:     dist(filter),
			Trend:      dist(trend),
		},
	}
}

func newTestStrategy(t *testing.T, cfg domain.StrategyConfig) *Strategy {
	t.Helper()
	s, err := New(cfg, &mockLogger{})
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.StrategyConfig)
		logger  ports.Logger
		wantErr bool
	}{
		{name: "valid config", logger: &mockLogger{}},
		{name: "nil logger", logger: nil, wantErr: true},
		{name: "zero period", mutate: func(c *domain.StrategyConfig) { c.FilterPeriod = 0 }, logger: &mockLogger{}, wantErr: true},
		{name: "unknown average", mutate: func(c *domain.StrategyConfig) { c.MovingAverage = "WMA" }, logger: &mockLogger{}, wantErr: true},
		{name: "negative threshold", mutate: func(c *domain.StrategyConfig) { c.ZoneThreshold = -1 }, logger: &mockLogger{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := goldConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			s, err := New(cfg, tt.logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "gold-zone", s.Name())
		})
	}
}

func TestRequiredDataPoints(t *testing.T) {
	s := newTestStrategy(t, goldConfig())
	assert.Equal(t, 200+domain.Headroom, s.RequiredDataPoints())
}

func TestClassifyTrend(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name                               string
		price, support, resist, filt, long float64
		want                               domain.Trend
	}{
		{name: "strict ascending stack", price: 2000, support: 1999, resist: 2001, filt: 1995, long: 1990, want: domain.TrendBullish},
		{name: "strict descending stack", price: 2000, support: 1999, resist: 2001, filt: 2005, long: 2010, want: domain.TrendBearish},
		{name: "support equals filter", price: 2000, support: 1995, resist: 2001, filt: 1995, long: 1990, want: domain.TrendConsolidation},
		{name: "price below support", price: 1998, support: 1999, resist: 2001, filt: 1995, long: 1990, want: domain.TrendConsolidation},
		{name: "filter below trend in downtrend", price: 2000, support: 1999, resist: 2001, filt: 2005, long: 2003, want: domain.TrendConsolidation},
		{name: "mixed", price: 2000, support: 1999, resist: 2001, filt: 1990, long: 1995, want: domain.TrendConsolidation},
		{name: "NaN compares false", price: 2000, support: nan, resist: 2001, filt: 1995, long: 1990, want: domain.TrendConsolidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := domain.IndicatorSnapshot{CurrentPrice: tt.price, Support: tt.support, Resistance: tt.resist, Filter: tt.filt, Trend: tt.long}
			assert.Equal(t, tt.want, ClassifyTrend(snap))
		})
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	nan := math.NaN()

	tests := []struct {
		name       string
		cfg        func() domain.StrategyConfig
		snap       func(t *testing.T) domain.IndicatorSnapshot
		wantSignal domain.Signal
		wantTrend  domain.Trend
		wantReason string
	}{
		{
			name: "bullish but too far from support",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.0, 2001.0, 1995.0, 1990.0)
			},
			wantSignal: domain.SignalHold,
			wantTrend:  domain.TrendBullish,
			wantReason: ReasonTooFarFromZone,
		},
		{
			name: "bullish within support zone",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, 1990.0)
			},
			wantSignal: domain.SignalBuy,
			wantTrend:  domain.TrendBullish,
			wantReason: "50 points from support",
		},
		{
			name: "distance equal to threshold is allowed",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.3, 2001.0, 1995.0, 1990.0)
			},
			wantSignal: domain.SignalBuy,
			wantTrend:  domain.TrendBullish,
		},
		{
			name: "bearish within resistance zone",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1998.0, 2000.4, 2005.0, 2010.0)
			},
			wantSignal: domain.SignalSell,
			wantTrend:  domain.TrendBearish,
			wantReason: "40 points from resistance",
		},
		{
			name: "consolidation",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.9, 2000.1, 2000.0, 1990.0)
			},
			wantSignal: domain.SignalHold,
			wantTrend:  domain.TrendConsolidation,
			wantReason: ReasonNoClearTrend,
		},
		{
			name: "undefined average holds",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, nan)
			},
			wantSignal: domain.SignalHold,
			wantTrend:  domain.TrendConsolidation,
			wantReason: ReasonInsufficientData,
		},
		{
			name: "volatility gate blocks wide H1 bar",
			cfg: func() domain.StrategyConfig {
				c := goldConfig()
				c.VolatilityGate = domain.VolatilityGate{Enabled: true, MaxH1Range: 1100, MaxH4Range: 1800}
				return c
			},
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				s := snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, 1990.0)
				s.Ranges = &domain.CandleRanges{H1: 1200, H4: 900}
				return s
			},
			wantSignal: domain.SignalHold,
			wantTrend:  domain.TrendBullish,
			wantReason: ReasonVolatilityGate,
		},
		{
			name: "volatility gate without ranges holds",
			cfg: func() domain.StrategyConfig {
				c := goldConfig()
				c.VolatilityGate = domain.VolatilityGate{Enabled: true, MaxH1Range: 1100, MaxH4Range: 1800}
				return c
			},
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				return snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, 1990.0)
			},
			wantSignal: domain.SignalHold,
			wantTrend:  domain.TrendBullish,
			wantReason: ReasonVolatilityGate,
		},
		{
			name: "volatility gate passes narrow bars",
			cfg: func() domain.StrategyConfig {
				c := goldConfig()
				c.VolatilityGate = domain.VolatilityGate{Enabled: true, MaxH1Range: 1100, MaxH4Range: 1800}
				return c
			},
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				s := snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, 1990.0)
				s.Ranges = &domain.CandleRanges{H1: 1100, H4: 1800}
				return s
			},
			wantSignal: domain.SignalBuy,
			wantTrend:  domain.TrendBullish,
		},
		{
			name: "disabled gate ignores ranges",
			cfg:  goldConfig,
			snap: func(t *testing.T) domain.IndicatorSnapshot {
				s := snapshotOf(t, 2000.0, 1999.5, 2001.0, 1995.0, 1990.0)
				s.Ranges = &domain.CandleRanges{H1: 5000, H4: 9000}
				return s
			},
			wantSignal: domain.SignalBuy,
			wantTrend:  domain.TrendBullish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStrategy(t, tt.cfg())
			d := s.Evaluate(ctx, tt.snap(t))

			assert.Equal(t, tt.wantSignal, d.Signal)
			assert.Equal(t, tt.wantTrend, d.Trend)
			if tt.wantReason != "" {
				assert.Contains(t, d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	s := newTestStrategy(t, goldConfig())
	snap := snapshotOf(t, 2000.0, 1999.0, 2001.0, 1995.0, 1990.0)

	first := s.Evaluate(context.Background(), snap)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Evaluate(context.Background(), snap))
	}
}

func TestEvaluate_ShortSeriesHolds(t *testing.T) {
	cfg := goldConfig()
	s := newTestStrategy(t, cfg)

	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, 150) // shorter than the 200 trend period
	for i := range candles {
		p := 2000 + float64(i)*0.1
		candles[i] = domain.Candle{OpenTime: start.Add(time.Duration(i) * 2 * time.Minute), Open: p, High: p + 0.5, Low: p - 0.5, Close: p, IsFinal: true}
	}

	snap, err := s.Snapshot(candles, 0.01)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(snap.Trend))

	d := s.Evaluate(context.Background(), snap)
	assert.Equal(t, domain.SignalHold, d.Signal)
	assert.Equal(t, ReasonInsufficientData, d.Reason)
}
