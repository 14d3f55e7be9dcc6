package app

import (
	"context"
	"fmt"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
	"zonebot/internal/risk"

	"github.com/google/uuid"
)

// ExecutionOutcome classifies what the executor did with a decision.
type ExecutionOutcome string

const (
	ExecutionSkipped ExecutionOutcome = "skipped" // hold, or a tagged position is already open
	ExecutionPlaced  ExecutionOutcome = "placed"
	ExecutionFailed  ExecutionOutcome = "failed"
)

// ExecutionResult is returned by OrderExecutor.Execute.
type ExecutionResult struct {
	Outcome ExecutionOutcome
	Request *domain.OrderRequest
	Result  *domain.OrderResult
	Err     error
}

// ExecutorConfig wires an OrderExecutor.
type ExecutorConfig struct {
	Strategy    domain.StrategyConfig
	Broker      ports.Broker
	Journal     ports.TradeJournal
	Event       *Event // Set after every placed order
	Logger      ports.Logger
	AccountType string // Copied into journal entries
	Server      string // Copied into journal entries
}

// OrderExecutor turns an actionable decision into at most one market order.
type OrderExecutor struct {
	cfg         domain.StrategyConfig
	broker      ports.Broker
	journal     ports.TradeJournal
	event       *Event
	logger      ports.Logger
	accountType string
	server      string
	now         func() time.Time
}

// NewOrderExecutor validates dependencies and creates an executor.
func NewOrderExecutor(cfg ExecutorConfig) (*OrderExecutor, error) {
	if cfg.Broker == nil || cfg.Journal == nil || cfg.Event == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for OrderExecutor")
	}
	if cfg.Strategy.Volume <= 0 {
		return nil, fmt.Errorf("configuration Volume must be positive")
	}
	if cfg.Strategy.SLPoints <= 0 {
		return nil, fmt.Errorf("configuration SLPoints must be positive")
	}
	return &OrderExecutor{
		cfg:         cfg.Strategy,
		broker:      cfg.Broker,
		journal:     cfg.Journal,
		event:       cfg.Event,
		logger:      cfg.Logger,
		accountType: cfg.AccountType,
		server:      cfg.Server,
		now:         time.Now,
	}, nil
}

// Execute places the order for decision unless it is a hold or a position
// with this strategy's tag is already open. There is a window between the
// position check and the placement in which another instance with the same
// tag could also place an order; the broker offers no idempotency key to close it.
//
// Ownership is read from the protective orders. While a stop is being
// replaced the old one is already cancelled, so a preset with tp_points 0
// has no owned order for that moment and its position reads as untagged.
// A cycle that lands in that gap can open a second position.
func (e *OrderExecutor) Execute(ctx context.Context, decision domain.Decision, snap domain.IndicatorSnapshot) ExecutionResult {
	op := "Execute"
	fields := e.fields()

	side, ok := decision.Signal.Side()
	if !ok {
		return ExecutionResult{Outcome: ExecutionSkipped}
	}
	fields["action"] = string(side)

	positions, err := e.broker.GetOpenPositions(ctx, e.cfg.Symbol)
	if err != nil {
		e.logger.Error(ctx, err, op+": Failed to check open positions", fields)
		return ExecutionResult{Outcome: ExecutionFailed, Err: err}
	}
	if existing := domain.FindTagged(positions, e.cfg.Tag); existing != nil {
		fields["ticket"] = existing.Ticket
		e.logger.Info(ctx, op+": Position already open for tag, not placing another", fields)
		return ExecutionResult{Outcome: ExecutionSkipped}
	}

	info, err := e.broker.SymbolInfo(ctx, e.cfg.Symbol)
	if err != nil {
		e.logger.Error(ctx, err, op+": Failed to load symbol info", fields)
		return ExecutionResult{Outcome: ExecutionFailed, Err: err}
	}
	rm, err := risk.NewRiskManager(risk.ConfigFrom(e.cfg), info)
	if err != nil {
		e.logger.Error(ctx, err, op+": Invalid symbol info", fields)
		return ExecutionResult{Outcome: ExecutionFailed, Err: err}
	}
	tick, err := e.broker.GetTick(ctx, e.cfg.Symbol)
	if err != nil {
		e.logger.Error(ctx, err, op+": Failed to get tick", fields)
		return ExecutionResult{Outcome: ExecutionFailed, Err: err}
	}

	price := risk.EntryPrice(tick, side)
	req := &domain.OrderRequest{
		Symbol:     e.cfg.Symbol,
		Side:       side,
		Volume:     e.cfg.Volume,
		Price:      price,
		StopLoss:   rm.GetStopLoss(price, side),
		TakeProfit: rm.GetTakeProfit(price, side),
		Deviation:  e.cfg.Deviation,
		Tag:        e.cfg.Tag,
		Comment:    e.cfg.Name,
	}
	fields["price"] = req.Price
	fields["stopLoss"] = req.StopLoss
	fields["takeProfit"] = req.TakeProfit
	fields["volume"] = req.Volume
	e.logger.Info(ctx, op+": Placing order", fields)

	sentAt := e.now().UTC()
	res, err := e.broker.PlaceOrder(ctx, *req)
	if err != nil {
		e.logger.Error(ctx, err, op+": Order placement failed", fields)
		return ExecutionResult{Outcome: ExecutionFailed, Request: req, Err: err}
	}
	fields["ticket"] = res.Ticket
	fields["orderID"] = res.OrderID
	e.logger.Info(ctx, op+": Order placed", fields)

	entry := e.journalEntry(sentAt, decision, snap, req, res)
	if err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Error(ctx, err, op+": Failed to record journal entry", fields)
	}

	e.event.Set()
	return ExecutionResult{Outcome: ExecutionPlaced, Request: req, Result: res}
}

func (e *OrderExecutor) journalEntry(at time.Time, d domain.Decision, snap domain.IndicatorSnapshot, req *domain.OrderRequest, res *domain.OrderResult) *domain.TradeEntry {
	zone := snap.Distances.Support
	if req.Side == domain.Sell {
		zone = snap.Distances.Resistance
	}
	return &domain.TradeEntry{
		ID:             uuid.NewString(),
		CreatedAt:      at,
		StrategyName:   e.cfg.Name,
		AccountType:    e.accountType,
		Server:         e.server,
		Tag:            e.cfg.Tag,
		Symbol:         e.cfg.Symbol,
		TrendTimeframe: e.cfg.Timeframe,
		EntryTimeframe: e.cfg.Timeframe,
		Volume:         req.Volume,
		Deviation:      req.Deviation,
		SLPoints:       e.cfg.SLPoints,
		TPPoints:       e.cfg.TPPoints,
		ZoneThreshold:  e.cfg.ZoneThreshold,
		Support:        snap.Support,
		Resistance:     snap.Resistance,
		Filter:         snap.Filter,
		Trend:          snap.Trend,
		ZoneDistance:   zone,
		Signal:         d.Signal,
		TrendState:     d.Trend,
		Side:           req.Side,
		Price:          req.Price,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
		Ticket:         res.Ticket,
		OrderID:        res.OrderID,
		Note:           d.Reason,
	}
}

func (e *OrderExecutor) fields() map[string]interface{} {
	return map[string]interface{}{"symbol": e.cfg.Symbol, "tag": e.cfg.Tag}
}
