package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.Broker interface on Binance USD-M futures using
// the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	now           func() time.Time

	mu      sync.RWMutex
	symbols map[string]symbolMeta
}

// symbolMeta is the cached exchange info for one symbol.
type symbolMeta struct {
	info              domain.SymbolInfo
	quantityPrecision int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		now:           time.Now,
		symbols:       make(map[string]symbolMeta),
	}, nil
}

// Server returns the REST endpoint the client talks to.
func (c *Client) Server() string {
	return c.futuresClient.BaseURL
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mapAPICode(apiErr.Code), err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case isConnectionError(err):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	case errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrSymbolNotFound), errors.Is(err, ports.ErrOrderPlacementFailed):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	default:
		// Default for other errors (e.g., parsing errors within the adapter)
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// mapAPICode maps Binance error codes onto ports errors.
func mapAPICode(code int64) error {
	switch code {
	case -1001, -1007: // Disconnected, backend timeout
		return ports.ErrConnectionFailed
	case -1003: // Too many requests
		return ports.ErrRateLimited
	case -1021: // Timestamp for this request is outside of the recvWindow
		return ports.ErrTimeout
	case -1022: // Signature for this request is not valid
		return ports.ErrAuthenticationFailed
	case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
		return ports.ErrInvalidRequest
	case -2010: // New order rejected
		return ports.ErrOrderPlacementFailed
	case -2011: // Cancel order rejected
		return ports.ErrOrderCancelFailed
	case -2013: // Order does not exist
		return ports.ErrOrderNotFound
	case -2014, -2015: // API-key format invalid, or missing permissions
		return ports.ErrInvalidAPIKeys
	case -2019, -3005, -3041, -4047: // Margin or balance is insufficient
		return ports.ErrInsufficientFunds
	case -2021: // Order would immediately trigger
		return ports.ErrModifyFailed
	case -2022: // ReduceOnly Order is rejected
		return ports.ErrOrderPlacementFailed
	case -4003, -4014, -4015:
		return ports.ErrInvalidRequest
	case -4044: // Position not found
		return ports.ErrPositionNotFound
	case -4130: // A closePosition stop already exists in this direction
		return ports.ErrModifyFailed
	default:
		return ports.ErrUnknown
	}
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"use of closed network connection",
		"connection refused",
		"connection reset by peer",
		"no such host",
		"i/o timeout",
		"EOF",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Connect synchronizes the clock offset and checks connectivity.
func (c *Client) Connect(ctx context.Context) error {
	op := "Connect"
	if _, err := c.futuresClient.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"baseURL": c.futuresClient.BaseURL})
	return nil
}

// Disconnect is a no-op: the REST client holds no session.
func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Debug(ctx, "Disconnect: REST client has no session to release")
	return nil
}

// GetCandles retrieves the most recent count candles, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error) {
	op := "GetCandles"
	if count <= 0 {
		return nil, c.handleError(ctx, fmt.Errorf("%w: candle count must be positive, got %d", ports.ErrInvalidRequest, count), op)
	}
	// Pages are fetched newest first, each ending just before the oldest
	// candle already held, until count candles are collected or history runs out.
	var pages [][]*futures.Kline
	var endTime int64
	for remaining := count; remaining > 0; {
		limit := min(remaining, maxKlinesLimit)
		svc := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(timeframe).Limit(limit)
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		page, err := svc.Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		remaining -= len(page)
		if len(page) < limit {
			break
		}
		endTime = page[0].OpenTime - 1
	}
	klines := mergeKlinePages(pages, count)

	now := c.now()
	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := translateKline(k, now)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// maxKlinesLimit is the largest page the futures klines endpoint serves.
const maxKlinesLimit = 1500

// mergeKlinePages joins pages fetched newest first into one oldest-first
// series of at most count klines. Candles repeated across a page boundary
// are kept once.
func mergeKlinePages(pages [][]*futures.Kline, count int) []*futures.Kline {
	var out []*futures.Kline
	for i := len(pages) - 1; i >= 0; i-- {
		for _, k := range pages[i] {
			if k == nil {
				continue
			}
			if n := len(out); n > 0 && k.OpenTime <= out[n-1].OpenTime {
				continue
			}
			out = append(out, k)
		}
	}
	if len(out) > count {
		out = out[len(out)-count:]
	}
	return out
}

// GetTick retrieves the best bid and ask.
func (c *Client) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	op := "GetTick"
	tickers, err := c.futuresClient.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.Tick{}, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return domain.Tick{}, c.handleError(ctx, fmt.Errorf("%w: no book ticker for %s", ports.ErrSymbolNotFound, symbol), op)
	}
	bid, err := strconv.ParseFloat(tickers[0].BidPrice, 64)
	if err != nil {
		return domain.Tick{}, c.handleError(ctx, fmt.Errorf("could not parse bid '%s': %w", tickers[0].BidPrice, err), op)
	}
	ask, err := strconv.ParseFloat(tickers[0].AskPrice, 64)
	if err != nil {
		return domain.Tick{}, c.handleError(ctx, fmt.Errorf("could not parse ask '%s': %w", tickers[0].AskPrice, err), op)
	}
	return domain.Tick{Bid: bid, Ask: ask, Time: c.now()}, nil
}

// SymbolInfo returns tick size and price precision for symbol. Results are
// cached for the life of the client.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	meta, err := c.symbolMeta(ctx, symbol)
	if err != nil {
		return domain.SymbolInfo{}, err
	}
	return meta.info, nil
}

func (c *Client) symbolMeta(ctx context.Context, symbol string) (symbolMeta, error) {
	c.mu.RLock()
	meta, ok := c.symbols[symbol]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	op := "SymbolInfo"
	info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return symbolMeta{}, c.handleError(ctx, err, op)
	}
	for i := range info.Symbols {
		s := info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		meta, err := translateSymbol(&s)
		if err != nil {
			return symbolMeta{}, c.handleError(ctx, err, op)
		}
		c.mu.Lock()
		c.symbols[symbol] = meta
		c.mu.Unlock()
		return meta, nil
	}
	return symbolMeta{}, c.handleError(ctx, fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, symbol), op)
}

// GetOpenPositions returns the open position on symbol, if any. Ownership is
// recovered from the client order id of its protective orders; a position
// without one is reported with tag 0.
func (c *Client) GetOpenPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	op := "GetOpenPositions"
	risks, err := c.futuresClient.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	orders, err := c.futuresClient.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	var positions []*domain.Position
	for _, r := range risks {
		pos, err := translatePositionRisk(r)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if pos == nil {
			continue
		}
		attachProtection(pos, orders)
		positions = append(positions, pos)
	}
	return positions, nil
}

// PlaceOrder sends a market entry and then the reduce-only stop loss and take
// profit orders. If the stop cannot be placed the entry is flattened again so
// no unprotected, unowned position is left behind.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	op := "PlaceOrder"
	if req.StopLoss <= 0 {
		return nil, c.handleError(ctx, fmt.Errorf("%w: a stop loss is required to tag the position", ports.ErrInvalidRequest), op)
	}
	meta, err := c.symbolMeta(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	qty := formatDecimal(req.Volume, meta.quantityPrecision)

	c.logger.Info(ctx, op+": Sending market entry", map[string]interface{}{
		"symbol": req.Symbol, "side": req.Side, "quantity": qty, "tag": req.Tag,
		"deviation": req.Deviation, "comment": req.Comment,
	})
	entry, err := c.futuresClient.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty).
		NewClientOrderID(formatClientOrderID(req.Tag, kindEntry, 0)).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	result := &domain.OrderResult{
		Ticket:     entry.OrderID,
		OrderID:    entry.OrderID,
		ReturnCode: string(entry.Status),
	}
	result.FillPrice, _ = strconv.ParseFloat(entry.AvgPrice, 64)
	result.Volume, _ = strconv.ParseFloat(entry.ExecutedQuantity, 64)
	if result.Volume == 0 {
		result.Volume = req.Volume
	}

	exitSide := req.Side.Opposite()
	if _, err := c.placeProtective(ctx, req.Symbol, exitSide, futures.OrderTypeStopMarket, req.StopLoss, meta, req.Tag, kindStop, result.Ticket); err != nil {
		c.logger.Error(ctx, err, op+": Stop loss rejected, flattening entry", map[string]interface{}{"symbol": req.Symbol, "ticket": result.Ticket})
		if closeErr := c.marketClose(ctx, req.Symbol, exitSide, result.Volume, meta, req.Tag, result.Ticket); closeErr != nil {
			c.logger.Error(ctx, closeErr, op+": Failed to flatten unprotected entry", map[string]interface{}{"symbol": req.Symbol, "ticket": result.Ticket})
		}
		return nil, fmt.Errorf("%w: stop loss for ticket %d: %w", ports.ErrOrderPlacementFailed, result.Ticket, err)
	}
	if req.TakeProfit > 0 {
		if _, err := c.placeProtective(ctx, req.Symbol, exitSide, futures.OrderTypeTakeProfitMarket, req.TakeProfit, meta, req.Tag, kindTakeProfit, result.Ticket); err != nil {
			// The supervisor's take profit watcher still closes at target.
			c.logger.Warn(ctx, op+": Take profit order rejected", map[string]interface{}{"symbol": req.Symbol, "ticket": result.Ticket, "error": err.Error()})
		}
	}

	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": req.Symbol, "ticket": result.Ticket, "fillPrice": result.FillPrice,
		"stopLoss": req.StopLoss, "takeProfit": req.TakeProfit,
	})
	return result, nil
}

// ModifyStop replaces the STOP_MARKET order protecting update.Ticket.
func (c *Client) ModifyStop(ctx context.Context, update domain.StopUpdate) error {
	op := "ModifyStop"
	meta, err := c.symbolMeta(ctx, update.Symbol)
	if err != nil {
		return err
	}
	orders, err := c.futuresClient.NewListOpenOrdersService().Symbol(update.Symbol).Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}

	// Binance allows one closePosition stop per direction, so the old stop
	// goes first. If the new one is rejected the old level is restored.
	// Without a take profit order the position has no owned order until
	// the new stop lands.
	previous := 0.0
	for _, o := range protectiveOrders(orders, update.Tag, update.Ticket, kindStop) {
		if p, err := strconv.ParseFloat(o.StopPrice, 64); err == nil {
			previous = p
		}
		if err := c.cancelOrder(ctx, update.Symbol, o.OrderID); err != nil && !errors.Is(err, ports.ErrOrderNotFound) {
			return fmt.Errorf("%w: cancel previous stop %d: %w", ports.ErrModifyFailed, o.OrderID, err)
		}
	}
	if _, err := c.placeProtective(ctx, update.Symbol, update.Side.Opposite(), futures.OrderTypeStopMarket, update.StopLoss, meta, update.Tag, kindStop, update.Ticket); err != nil {
		if previous > 0 {
			if _, restoreErr := c.placeProtective(ctx, update.Symbol, update.Side.Opposite(), futures.OrderTypeStopMarket, previous, meta, update.Tag, kindStop, update.Ticket); restoreErr != nil {
				c.logger.Error(ctx, restoreErr, op+": Failed to restore previous stop, position is unprotected", map[string]interface{}{"symbol": update.Symbol, "ticket": update.Ticket, "stopLoss": previous})
			}
		}
		return fmt.Errorf("%w: ticket %d: %w", ports.ErrModifyFailed, update.Ticket, err)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": update.Symbol, "ticket": update.Ticket, "stopLoss": update.StopLoss})
	return nil
}

// ClosePosition flattens the position with a reduce-only market order and
// cancels its protective orders.
func (c *Client) ClosePosition(ctx context.Context, req domain.CloseRequest) error {
	op := "ClosePosition"
	meta, err := c.symbolMeta(ctx, req.Symbol)
	if err != nil {
		return err
	}
	if err := c.marketClose(ctx, req.Symbol, req.Side.Opposite(), req.Volume, meta, req.Tag, req.Ticket); err != nil {
		return err
	}

	orders, err := c.futuresClient.NewListOpenOrdersService().Symbol(req.Symbol).Do(ctx)
	if err != nil {
		// The position is already flat; leftover close-position orders are inert.
		c.logger.Warn(ctx, op+": Could not list leftover protective orders", map[string]interface{}{"symbol": req.Symbol, "error": err.Error()})
		return nil
	}
	for _, o := range protectiveOrders(orders, req.Tag, req.Ticket, "") {
		if err := c.cancelOrder(ctx, req.Symbol, o.OrderID); err != nil && !errors.Is(err, ports.ErrOrderNotFound) {
			c.logger.Warn(ctx, op+": Failed to cancel protective order", map[string]interface{}{"symbol": req.Symbol, "orderID": o.OrderID, "error": err.Error()})
		}
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": req.Symbol, "ticket": req.Ticket, "reason": string(req.Reason)})
	return nil
}

func (c *Client) placeProtective(ctx context.Context, symbol string, side domain.OrderSide, typ futures.OrderType, price float64, meta symbolMeta, tag int64, kind string, ticket int64) (int64, error) {
	op := "PlaceProtectiveOrder"
	stopPrice := formatDecimal(price, meta.info.Digits)
	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(typ).
		StopPrice(stopPrice).
		ClosePosition(true).
		NewClientOrderID(formatClientOrderID(tag, kind, ticket)).
		Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "type": string(typ), "stopPrice": stopPrice, "orderID": order.OrderID})
	return order.OrderID, nil
}

func (c *Client) marketClose(ctx context.Context, symbol string, side domain.OrderSide, volume float64, meta symbolMeta, tag int64, ticket int64) error {
	op := "MarketClose"
	_, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatDecimal(volume, meta.quantityPrecision)).
		ReduceOnly(true).
		NewClientOrderID(formatClientOrderID(tag, kindClose, ticket)).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	return nil
}

func (c *Client) cancelOrder(ctx context.Context, symbol string, orderID int64) error {
	op := "CancelOrder"
	c.logger.Debug(ctx, "Attempting to cancel order", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	if _, err := c.futuresClient.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	return nil
}

// --- Client order ids ---

const (
	clientIDPrefix = "zb"

	kindEntry      = "en"
	kindStop       = "sl"
	kindTakeProfit = "tp"
	kindClose      = "cl"
)

// clientOrderID is the ownership data encoded in a Binance client order id.
type clientOrderID struct {
	Tag    int64
	Kind   string
	Ticket int64
}

// formatClientOrderID builds "zb<tag>-<kind>-<ticket>-<nonce>". The nonce keeps
// ids unique when a stop is re-placed for the same ticket.
func formatClientOrderID(tag int64, kind string, ticket int64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d-%s-%d-%s", clientIDPrefix, tag, kind, ticket, nonce)
}

// parseClientOrderID decodes ids produced by formatClientOrderID.
func parseClientOrderID(id string) (clientOrderID, bool) {
	if !strings.HasPrefix(id, clientIDPrefix) {
		return clientOrderID{}, false
	}
	parts := strings.Split(strings.TrimPrefix(id, clientIDPrefix), "-")
	if len(parts) < 3 {
		return clientOrderID{}, false
	}
	tag, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return clientOrderID{}, false
	}
	ticket, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return clientOrderID{}, false
	}
	switch parts[1] {
	case kindEntry, kindStop, kindTakeProfit, kindClose:
	default:
		return clientOrderID{}, false
	}
	return clientOrderID{Tag: tag, Kind: parts[1], Ticket: ticket}, true
}

// protectiveOrders returns the open orders of tag/ticket, optionally filtered by kind.
func protectiveOrders(orders []*futures.Order, tag, ticket int64, kind string) []*futures.Order {
	var out []*futures.Order
	for _, o := range orders {
		if o == nil {
			continue
		}
		id, ok := parseClientOrderID(o.ClientOrderID)
		if !ok || id.Tag != tag || id.Ticket != ticket {
			continue
		}
		if kind != "" && id.Kind != kind {
			continue
		}
		out = append(out, o)
	}
	return out
}

// attachProtection fills tag, ticket, stop loss and take profit of pos from
// the open protective orders.
func attachProtection(pos *domain.Position, orders []*futures.Order) {
	type protective struct {
		id    clientOrderID
		price float64
	}
	var found []protective
	for _, o := range orders {
		if o == nil {
			continue
		}
		id, ok := parseClientOrderID(o.ClientOrderID)
		if !ok || (id.Kind != kindStop && id.Kind != kindTakeProfit) {
			continue
		}
		// Protective orders sit on the exit side of the position.
		if domain.OrderSide(o.Side) != pos.Side.Opposite() {
			continue
		}
		price, err := strconv.ParseFloat(o.StopPrice, 64)
		if err != nil {
			continue
		}
		found = append(found, protective{id: id, price: price})
	}
	if len(found) == 0 {
		return
	}

	// One ticket owns the position. The ticket holding a live stop wins,
	// then the newest ticket. Orders left behind by older tickets are ignored.
	owner := found[0].id
	ownerHasStop := false
	for _, p := range found {
		hasStop := p.id.Kind == kindStop
		switch {
		case hasStop && !ownerHasStop:
			owner, ownerHasStop = p.id, true
		case hasStop == ownerHasStop && p.id.Ticket > owner.Ticket:
			owner = p.id
		}
	}

	pos.Tag = owner.Tag
	pos.Ticket = owner.Ticket
	for _, p := range found {
		if p.id.Tag != owner.Tag || p.id.Ticket != owner.Ticket {
			continue
		}
		switch p.id.Kind {
		case kindStop:
			// Keep the tightest stop if a stale one is still listed.
			if pos.StopLoss == 0 || improves(pos.Side, p.price, pos.StopLoss) {
				pos.StopLoss = p.price
			}
		case kindTakeProfit:
			pos.TakeProfit = p.price
		}
	}
}

func improves(side domain.OrderSide, candidate, current float64) bool {
	if side == domain.Buy {
		return candidate > current
	}
	return candidate < current
}

// --- Translation Helpers ---

func formatDecimal(v float64, places int) string {
	return decimal.NewFromFloat(v).StringFixed(int32(places))
}

func translateSymbol(s *futures.Symbol) (symbolMeta, error) {
	filter := s.PriceFilter()
	if filter == nil {
		return symbolMeta{}, fmt.Errorf("%w: %s has no price filter", ports.ErrSymbolNotFound, s.Symbol)
	}
	tick, err := decimal.NewFromString(filter.TickSize)
	if err != nil || !tick.IsPositive() {
		return symbolMeta{}, fmt.Errorf("could not parse tick size '%s' for %s", filter.TickSize, s.Symbol)
	}
	// The tick size is authoritative; PricePrecision may allow finer prices
	// than the symbol accepts.
	digits := decimalPlaces(filter.TickSize)
	return symbolMeta{
		info: domain.SymbolInfo{
			Symbol: s.Symbol,
			Point:  tick.InexactFloat64(),
			Digits: digits,
		},
		quantityPrecision: s.QuantityPrecision,
	}, nil
}

// decimalPlaces counts significant fractional digits in a Binance number string.
func decimalPlaces(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(strings.TrimRight(s[i+1:], "0"))
}

func translatePositionRisk(r *futures.PositionRisk) (*domain.Position, error) {
	if r == nil {
		return nil, nil
	}
	amt, err := strconv.ParseFloat(r.PositionAmt, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing position amount '%s': %w", r.PositionAmt, err)
	}
	if amt == 0 {
		return nil, nil
	}
	entry, err := strconv.ParseFloat(r.EntryPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing entry price '%s': %w", r.EntryPrice, err)
	}
	side := domain.Buy
	if amt < 0 {
		side = domain.Sell
		amt = -amt
	}
	return &domain.Position{
		Symbol:    r.Symbol,
		Side:      side,
		OpenPrice: entry,
		Volume:    amt,
	}, nil
}

func translateKline(k *futures.Kline, now time.Time) (domain.Candle, error) {
	if k == nil {
		return domain.Candle{}, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing open price '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing high price '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing low price '%s': %w", k.Low, err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}

	return domain.Candle{
		OpenTime: time.UnixMilli(k.OpenTime),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    cls,
		Volume:   vol,
		IsFinal:  time.UnixMilli(k.CloseTime).Before(now),
	}, nil
}
