package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the side that closes an exposure opened on s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Signal is the outcome of one evaluation cycle.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Side maps an actionable signal to the order side that executes it.
// The boolean is false for SignalHold.
func (s Signal) Side() (OrderSide, bool) {
	switch s {
	case SignalBuy:
		return Buy, true
	case SignalSell:
		return Sell, true
	default:
		return "", false
	}
}

// Trend is the market regime derived from the moving average stack.
type Trend string

const (
	TrendBullish       Trend = "bullish"
	TrendBearish       Trend = "bearish"
	TrendConsolidation Trend = "consolidation"
)

// PriceField selects which candle price an average is computed on.
type PriceField string

const (
	FieldClose PriceField = "close"
	FieldHigh  PriceField = "high"
	FieldLow   PriceField = "low"
)

// MovingAverageKind selects the averaging method.
type MovingAverageKind string

const (
	EMA MovingAverageKind = "EMA"
	SMA MovingAverageKind = "SMA"
)

// CloseReason indicates why the bot closed a position itself.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "Take Profit Close"
	CloseReasonManual     CloseReason = "MANUAL"
)
