package indicators

import (
	"fmt"
	"math"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
)

// DistancePoints returns |a-b| expressed in whole points.
func DistancePoints(a, b, point float64) (int, error) {
	if point <= 0 || math.IsNaN(point) || math.IsInf(point, 0) {
		return 0, fmt.Errorf("%w: point size %v", ports.ErrInvalidRequest, point)
	}
	if !isFinite(a) || !isFinite(b) {
		return 0, fmt.Errorf("%w: non-finite price (%v, %v)", ports.ErrInvalidRequest, a, b)
	}
	return int(math.Round(math.Abs(a-b) / point)), nil
}

// CandleRange returns the high-low span of c in points.
func CandleRange(c domain.Candle, point float64) (int, error) {
	return DistancePoints(c.High, c.Low, point)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
