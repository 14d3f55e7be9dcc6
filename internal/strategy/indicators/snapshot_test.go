package indicators

import (
	"math"
	"testing"

	"zonebot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		MovingAverage:    domain.EMA,
		SupportPeriod:    3,
		ResistancePeriod: 3,
		TrailingPeriod:   3,
		FilterPeriod:     5,
		TrendPeriod:      8,
	}
}

func TestSnapshot_ComputesAveragesAndDistances(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100+float64(i))
	}
	candles := closesToCandles(closes...)

	snap, err := Snapshot(candles, snapshotConfig(), 0.01)
	require.NoError(t, err)

	assert.Equal(t, 129.0, snap.CurrentPrice)
	assert.True(t, Complete(snap))
	// A steady uptrend stacks the averages below price, longest furthest away.
	assert.Less(t, snap.Support, snap.CurrentPrice)
	assert.Greater(t, snap.Resistance, snap.Support)
	assert.Less(t, snap.Filter, snap.Support+1)
	assert.Less(t, snap.Trend, snap.Filter)

	d, err := DistancePoints(snap.CurrentPrice, snap.Support, 0.01)
	require.NoError(t, err)
	assert.Equal(t, d, snap.Distances.Support)
	assert.Equal(t, 0.01, snap.Point)
	assert.Nil(t, snap.Ranges)
}

func TestSnapshot_ShortHistoryPropagatesNaN(t *testing.T) {
	candles := closesToCandles(1, 2, 3, 4, 5)

	snap, err := Snapshot(candles, snapshotConfig(), 0.01)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(snap.Support))
	assert.True(t, math.IsNaN(snap.Trend))
	assert.Equal(t, 0, snap.Distances.Trend)
	assert.False(t, Complete(snap))
}

func TestSnapshot_RejectsBadInput(t *testing.T) {
	_, err := Snapshot(nil, snapshotConfig(), 0.01)
	assert.Error(t, err)

	_, err = Snapshot(closesToCandles(1, 2, 3), snapshotConfig(), 0)
	assert.Error(t, err)
}
