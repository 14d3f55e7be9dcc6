package domain

// Distances holds point distances from the current price to each average.
type Distances struct {
	Support    int
	Resistance int
	Trailing   int
	Filter     int
	Trend      int
}

// CandleRanges holds high-low ranges (in points) of the still-open H1/H4 bars.
type CandleRanges struct {
	H1 int
	H4 int
}

// IndicatorSnapshot is everything an evaluation needs, computed for one cycle.
// Averages are NaN when there was not enough history.
type IndicatorSnapshot struct {
	CurrentPrice float64
	Support      float64 // Average of lows
	Resistance   float64 // Average of highs
	Trailing     float64 // Short average of closes
	Filter       float64 // Consolidation filter average of closes
	Trend        float64 // Long-term average of closes
	Distances    Distances
	Ranges       *CandleRanges // Nil when the volatility gate is off
	Point        float64
}

// Decision is the single result of an evaluation.
type Decision struct {
	Signal Signal
	Trend  Trend
	Reason string
}

// Actionable reports whether the decision asks for an order.
func (d Decision) Actionable() bool {
	_, ok := d.Signal.Side()
	return ok
}
