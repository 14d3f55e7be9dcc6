package domain

import "time"

// Candle represents a single OHLCV bar. Sequences are ordered oldest first.
type Candle struct {
	OpenTime time.Time // Start time of the bar
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	IsFinal  bool // False for the still-forming newest bar
}

// Price returns the candle value selected by field. Unknown fields fall back to Close.
func (c Candle) Price(field PriceField) float64 {
	switch field {
	case FieldHigh:
		return c.High
	case FieldLow:
		return c.Low
	default:
		return c.Close
	}
}

// Tick is the current top of book for a symbol.
type Tick struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

// SymbolInfo carries the price granularity of a symbol.
type SymbolInfo struct {
	Symbol string
	Point  float64 // Smallest price increment
	Digits int     // Decimal places prices are rounded to
}
