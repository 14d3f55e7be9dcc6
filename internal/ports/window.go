package ports

import "time"

// TradingWindow decides whether new entries are allowed at a given instant.
// Deployments inject the calendar that matches their venue.
type TradingWindow interface {
	IsTradingWindow(now time.Time) bool
}

// TradingWindowFunc adapts a plain function to TradingWindow.
type TradingWindowFunc func(now time.Time) bool

// IsTradingWindow calls f(now).
func (f TradingWindowFunc) IsTradingWindow(now time.Time) bool {
	return f(now)
}
