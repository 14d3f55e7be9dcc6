package domain

import "time"

// TradeEntry is one journal row written after an order was executed. It
// flattens the strategy configuration, the decision and the broker answer.
type TradeEntry struct {
	ID             string    // UUID assigned by the executor
	CreatedAt      time.Time // Time the order was sent
	StrategyName   string    // Preset name
	AccountType    string    // demo or live
	Server         string    // Broker endpoint
	Tag            int64     // Strategy tag
	Symbol         string
	TrendTimeframe string
	EntryTimeframe string
	Volume         float64
	Deviation      int
	SLPoints       int
	TPPoints       int
	ZoneThreshold  int
	Support        float64
	Resistance     float64
	Filter         float64
	Trend          float64
	ZoneDistance   int // Distance to the zone that triggered the entry
	Signal         Signal
	TrendState     Trend
	Side           OrderSide
	Price          float64
	StopLoss       float64
	TakeProfit     float64
	Ticket         int64
	OrderID        int64
	Note           string // Decision reason
}
