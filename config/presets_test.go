package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPresets_AreValid(t *testing.T) {
	for name, p := range BuiltinPresets() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, p.Name)
			assert.NoError(t, ValidatePreset(p))
		})
	}
}

func TestBuiltinPresets_GoldM2Zone(t *testing.T) {
	p, err := SelectPreset(BuiltinPresets(), DefaultPreset)
	require.NoError(t, err)

	assert.Equal(t, int64(32), p.Tag)
	assert.Equal(t, domain.EMA, p.MovingAverage)
	assert.Equal(t, 70, p.ZoneThreshold)
	assert.Equal(t, 21, p.LongestPeriod())
	assert.False(t, p.VolatilityGate.Enabled)
	assert.InDelta(t, 300.0/170.0, p.RiskReward(), 1e-9)
}

func TestDecodePresets(t *testing.T) {
	doc := `
presets:
  - name: btc-zone
    symbol: BTCUSDT
    tag: 90
    timeframe: 5m
    volume: 0.002
    deviation: 10
    sl_points: 2000
    tp_points: 4000
    trailing_activation_points: 2500
    trailing_stop_distance: 500
    moving_average: SMA
    support_period: 10
    resistance_period: 10
    trailing_period: 5
    filter_period: 30
    trend_period: 100
    zone_threshold: 800
    volatility_gate:
      enabled: true
      max_h1_range: 90000
      max_h4_range: 150000
    loop_interval: 30s
`
	presets, err := DecodePresets(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, presets, 1)

	p := presets[0]
	assert.Equal(t, "btc-zone", p.Name)
	assert.Equal(t, domain.SMA, p.MovingAverage)
	assert.Equal(t, 30*time.Second, p.LoopInterval)
	assert.Equal(t, defaultTakeProfitPollInterval, p.TakeProfitPollInterval, "defaults fill omitted fields")
	assert.Equal(t, defaultCandleCount, p.CandleCount)
	assert.True(t, p.VolatilityGate.Enabled)
}

func TestDecodePresets_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "presets:\n  - name: x\n    stop_loss: 1\n",
			want: "stop_loss",
		},
		{
			name: "bad moving average",
			doc: `presets:
  - {name: x, symbol: S, tag: 1, timeframe: 1m, volume: 1, sl_points: 1, trailing_stop_distance: 1,
     moving_average: WMA, support_period: 1, resistance_period: 1, trailing_period: 1, filter_period: 1, trend_period: 1}
`,
			want: "MovingAverage",
		},
		{
			name: "candle count below requirement",
			doc: `presets:
  - {name: x, symbol: S, tag: 1, timeframe: 1m, volume: 1, sl_points: 1, trailing_stop_distance: 1,
     support_period: 1, resistance_period: 1, trailing_period: 1, filter_period: 1, trend_period: 200, candle_count: 150}
`,
			want: "candle_count 150",
		},
		{
			name: "candle count above fetch limit",
			doc: `presets:
  - {name: x, symbol: S, tag: 1, timeframe: 1m, volume: 1, sl_points: 1, trailing_stop_distance: 1,
     support_period: 1, resistance_period: 1, trailing_period: 1, filter_period: 1, trend_period: 1, candle_count: 25000}
`,
			want: "candle_count 25000 exceeds",
		},
		{
			name: "duplicate",
			doc: `presets:
  - {name: x, symbol: S, tag: 1, timeframe: 1m, volume: 1, sl_points: 1, trailing_stop_distance: 1,
     support_period: 1, resistance_period: 1, trailing_period: 1, filter_period: 1, trend_period: 1}
  - {name: x, symbol: S, tag: 2, timeframe: 1m, volume: 1, sl_points: 1, trailing_stop_distance: 1,
     support_period: 1, resistance_period: 1, trailing_period: 1, filter_period: 1, trend_period: 1}
`,
			want: "duplicate preset name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePresets(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadPresets_FileOverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := `presets:
  - {name: gold-m2-zone, symbol: PAXGUSDT, tag: 67, timeframe: 3m, volume: 0.01, sl_points: 170, tp_points: 300,
     trailing_activation_points: 320, trailing_stop_distance: 50,
     support_period: 3, resistance_period: 3, trailing_period: 3, filter_period: 12, trend_period: 21, zone_threshold: 70}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, int64(67), presets["gold-m2-zone"].Tag)
	assert.Contains(t, presets, "gold-m1-zone")

	_, err = LoadPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestSelectPreset_Unknown(t *testing.T) {
	_, err := SelectPreset(BuiltinPresets(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	assert.Contains(t, err.Error(), "gold-m2-zone")
}
