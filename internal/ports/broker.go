package ports

import (
	"context"

	"zonebot/internal/domain"
)

// MarketData is the read side of the broker.
type MarketData interface {
	// GetCandles returns the most recent count candles, oldest first. The last
	// element may be the still-forming bar.
	GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error)
	// GetTick returns the current bid and ask.
	GetTick(ctx context.Context, symbol string) (domain.Tick, error)
	// SymbolInfo returns point size and price digits for symbol.
	SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error)
}

// Broker defines everything the engine needs from a trading venue.
type Broker interface {
	MarketData

	// GetOpenPositions returns every open position on symbol, including
	// positions owned by other tags.
	GetOpenPositions(ctx context.Context, symbol string) ([]*domain.Position, error)
	// PlaceOrder sends a market order with stop loss and take profit attached.
	// A rejection is returned as an error wrapping ErrOrderPlacementFailed.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)
	// ModifyStop replaces the protective stop of an open position.
	ModifyStop(ctx context.Context, update domain.StopUpdate) error
	// ClosePosition closes volume of an open position at market.
	ClosePosition(ctx context.Context, req domain.CloseRequest) error

	// Connect establishes (or re-establishes) the session with the broker.
	Connect(ctx context.Context) error
	// Disconnect releases the session. It is safe to call more than once.
	Disconnect(ctx context.Context) error
}
