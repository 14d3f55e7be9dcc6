package domain

// OrderRequest is a market order with attached protective levels.
type OrderRequest struct {
	Symbol     string
	Side       OrderSide
	Volume     float64
	Price      float64 // Reference price the levels were computed from
	StopLoss   float64
	TakeProfit float64
	Deviation  int    // Allowed slippage in points
	Tag        int64  // Strategy tag
	Comment    string // Usually the strategy name
}

// OrderResult is the broker's answer to a placed order.
type OrderResult struct {
	Ticket     int64   // Identifier of the resulting position
	OrderID    int64   // Identifier of the entry order
	FillPrice  float64 // Average fill price, 0 if unknown
	Volume     float64
	ReturnCode string // Broker status or rejection code
}

// StopUpdate moves the protective stop of an open position.
type StopUpdate struct {
	Ticket     int64
	Symbol     string
	Side       OrderSide // Side of the position being protected
	Volume     float64
	StopLoss   float64
	TakeProfit float64 // Kept unchanged by the caller
	Tag        int64
}

// CloseRequest closes an open position with an opposite market order.
type CloseRequest struct {
	Ticket    int64
	Symbol    string
	Side      OrderSide // Side of the position being closed
	Volume    float64
	Deviation int
	Tag       int64
	Reason    CloseReason
}
