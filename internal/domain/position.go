package domain

import "time"

// Position is an open exposure as reported by the broker. It is always
// re-fetched and never cached across decisions.
type Position struct {
	Ticket     int64     // Broker identifier used for modify/close
	Symbol     string    // Trading symbol (e.g., "PAXGUSDT")
	Side       OrderSide // BUY for long, SELL for short
	OpenPrice  float64   // Average entry price
	Volume     float64   // Open size
	StopLoss   float64   // Current protective stop (0 if none)
	TakeProfit float64   // Current target (0 means no target)
	Tag        int64     // Strategy tag that owns the position
	OpenTime   time.Time // Entry time, zero when the broker does not report it
}

// IsLong reports whether the position was opened with a buy.
func (p *Position) IsLong() bool {
	return p.Side == Buy
}

// FindTagged returns the first position in positions owned by tag, or nil.
func FindTagged(positions []*Position, tag int64) *Position {
	for _, p := range positions {
		if p != nil && p.Tag == tag {
			return p
		}
	}
	return nil
}
