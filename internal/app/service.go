package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
	"zonebot/internal/strategy/indicators"

	"golang.org/x/sync/errgroup"
)

// Higher timeframes the volatility gate measures.
const (
	timeframeH1 = "1h"
	timeframeH4 = "4h"
)

// CycleOutcome classifies how a strategy cycle ended.
type CycleOutcome string

const (
	CyclePositionOpen    CycleOutcome = "position_open"
	CycleOutsideWindow   CycleOutcome = "outside_window"
	CycleDataUnavailable CycleOutcome = "data_unavailable"
	CycleHold            CycleOutcome = "hold"
	CycleOrderPlaced     CycleOutcome = "order_placed"
	CycleOrderSkipped    CycleOutcome = "order_skipped"
	CycleOrderFailed     CycleOutcome = "order_failed"
	CycleConnectionLost  CycleOutcome = "connection_lost"
	CyclePanic           CycleOutcome = "panic"
)

// CycleResult is what RunCycle reports back to the loop.
type CycleResult struct {
	Outcome  CycleOutcome
	Decision *domain.Decision
	Err      error
}

// ServiceConfig wires a TradingService.
type ServiceConfig struct {
	Strategy   domain.StrategyConfig
	Logger     ports.Logger
	Broker     ports.Broker
	Evaluator  ports.Strategy
	Window     ports.TradingWindow
	Executor   *OrderExecutor
	Supervisor *PositionSupervisor
	Connection *Connection
}

// TradingService is the strategy loop: align, check, fetch, evaluate, execute.
type TradingService struct {
	cfg        domain.StrategyConfig
	logger     ports.Logger
	broker     ports.Broker
	evaluator  ports.Strategy
	window     ports.TradingWindow
	executor   *OrderExecutor
	supervisor *PositionSupervisor
	conn       *Connection
	now        func() time.Time
}

// NewTradingService creates a new application service instance.
func NewTradingService(cfg ServiceConfig) (*TradingService, error) {
	// Validate dependencies
	if cfg.Logger == nil || cfg.Broker == nil || cfg.Evaluator == nil || cfg.Window == nil ||
		cfg.Executor == nil || cfg.Supervisor == nil || cfg.Connection == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.Strategy.Symbol == "" || cfg.Strategy.Timeframe == "" {
		return nil, fmt.Errorf("configuration Symbol and Timeframe are required")
	}
	if cfg.Strategy.LoopInterval <= 0 {
		return nil, fmt.Errorf("configuration LoopInterval must be positive")
	}
	return &TradingService{
		cfg:        cfg.Strategy,
		logger:     cfg.Logger,
		broker:     cfg.Broker,
		evaluator:  cfg.Evaluator,
		window:     cfg.Window,
		executor:   cfg.Executor,
		supervisor: cfg.Supervisor,
		conn:       cfg.Connection,
		now:        time.Now,
	}, nil
}

// Start connects to the broker and runs the strategy loop and the position
// supervisor until a shutdown signal arrives or reconnecting fails for good.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...", s.fields())

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() {
		if err := s.conn.Close(context.Background()); err != nil {
			s.logger.Warn(context.Background(), "Failed to close broker session", map[string]interface{}{"error": err.Error()})
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error { return s.supervisor.Run(gctx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(context.Background(), err, "Trading Service stopped with error", s.fields())
		return err
	}
	s.logger.Info(context.Background(), "Trading Service stopped.", s.fields())
	return nil
}

// Run executes one cycle per aligned interval until ctx is canceled. It
// returns an error only when the broker connection cannot be restored.
func (s *TradingService) Run(ctx context.Context) error {
	for {
		wait := NextBoundary(s.now(), s.cfg.LoopInterval).Sub(s.now())
		if err := sleepContext(ctx, wait); err != nil {
			return nil
		}

		res := s.RunCycle(ctx)
		if res.Outcome != CycleConnectionLost {
			continue
		}
		s.logger.Warn(ctx, "Run: Broker connection lost, reconnecting", withError(s.fields(), res.Err))
		if err := s.conn.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("strategy %s: %w", s.cfg.Name, err)
		}
	}
}

// RunCycle performs a single strategy cycle. A panic anywhere inside is
// recovered and reported as CyclePanic.
func (s *TradingService) RunCycle(ctx context.Context) (result CycleResult) {
	op := "RunCycle"
	fields := s.fields()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in strategy cycle: %v", r)
			s.logger.Error(ctx, err, op+": Recovered from panic, skipping cycle", fields)
			result = CycleResult{Outcome: CyclePanic, Err: err}
		}
	}()

	// 1. Existing position
	positions, err := s.broker.GetOpenPositions(ctx, s.cfg.Symbol)
	if err != nil {
		return s.dataFailure(ctx, op+": Failed to check open positions", err)
	}
	if pos := domain.FindTagged(positions, s.cfg.Tag); pos != nil {
		fields["ticket"] = pos.Ticket
		s.logger.Debug(ctx, op+": Position already open, skipping cycle", fields)
		return CycleResult{Outcome: CyclePositionOpen}
	}

	// 2. Trading window
	if !s.window.IsTradingWindow(s.now()) {
		s.logger.Warn(ctx, op+": Outside trading window, skipping cycle", fields)
		return CycleResult{Outcome: CycleOutsideWindow}
	}

	// 3. Market data
	required := s.evaluator.RequiredDataPoints()
	count := s.cfg.CandleCount
	if count < required {
		count = required
	}
	candles, err := s.broker.GetCandles(ctx, s.cfg.Symbol, s.cfg.Timeframe, count)
	if err != nil {
		return s.dataFailure(ctx, op+": Failed to fetch candles", err)
	}
	if len(candles) < required {
		fields["candles"] = len(candles)
		fields["required"] = required
		s.logger.Warn(ctx, op+": Not enough candles, skipping cycle", fields)
		return CycleResult{Outcome: CycleDataUnavailable, Err: ports.ErrInsufficientData}
	}
	info, err := s.broker.SymbolInfo(ctx, s.cfg.Symbol)
	if err != nil {
		return s.dataFailure(ctx, op+": Failed to load symbol info", err)
	}
	snap, err := s.evaluator.Snapshot(candles, info.Point)
	if err != nil {
		return s.dataFailure(ctx, op+": Failed to compute indicators", err)
	}
	if s.cfg.VolatilityGate.Enabled {
		ranges, err := s.candleRanges(ctx, info.Point)
		if err != nil {
			return s.dataFailure(ctx, op+": Failed to measure higher timeframe ranges", err)
		}
		snap.Ranges = ranges
	}

	// 4. Evaluate
	decision := s.evaluator.Evaluate(ctx, snap)
	fields["signal"] = string(decision.Signal)
	fields["trend"] = string(decision.Trend)
	fields["reason"] = decision.Reason
	fields["price"] = snap.CurrentPrice
	fields["supportDistance"] = snap.Distances.Support
	fields["resistanceDistance"] = snap.Distances.Resistance
	if !decision.Actionable() {
		s.logger.Info(ctx, op+": Holding", fields)
		return CycleResult{Outcome: CycleHold, Decision: &decision}
	}
	s.logger.Info(ctx, op+": Entry signal", fields)

	// 5. Execute
	exec := s.executor.Execute(ctx, decision, snap)
	switch exec.Outcome {
	case ExecutionPlaced:
		return CycleResult{Outcome: CycleOrderPlaced, Decision: &decision}
	case ExecutionSkipped:
		return CycleResult{Outcome: CycleOrderSkipped, Decision: &decision}
	default:
		if errors.Is(exec.Err, ports.ErrConnectionFailed) {
			return CycleResult{Outcome: CycleConnectionLost, Decision: &decision, Err: exec.Err}
		}
		return CycleResult{Outcome: CycleOrderFailed, Decision: &decision, Err: exec.Err}
	}
}

// candleRanges measures the still-open H1 and H4 bars.
func (s *TradingService) candleRanges(ctx context.Context, point float64) (*domain.CandleRanges, error) {
	h1, err := s.currentRange(ctx, timeframeH1, point)
	if err != nil {
		return nil, err
	}
	h4, err := s.currentRange(ctx, timeframeH4, point)
	if err != nil {
		return nil, err
	}
	return &domain.CandleRanges{H1: h1, H4: h4}, nil
}

func (s *TradingService) currentRange(ctx context.Context, timeframe string, point float64) (int, error) {
	candles, err := s.broker.GetCandles(ctx, s.cfg.Symbol, timeframe, 1)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("%w: no %s candle", ports.ErrInsufficientData, timeframe)
	}
	return indicators.CandleRange(candles[len(candles)-1], point)
}

// dataFailure logs a transient failure and maps connection loss separately.
func (s *TradingService) dataFailure(ctx context.Context, msg string, err error) CycleResult {
	if errors.Is(err, ports.ErrConnectionFailed) {
		return CycleResult{Outcome: CycleConnectionLost, Err: err}
	}
	s.logger.Warn(ctx, msg+", skipping cycle", withError(s.fields(), err))
	return CycleResult{Outcome: CycleDataUnavailable, Err: err}
}

func (s *TradingService) fields() map[string]interface{} {
	return map[string]interface{}{"strategy": s.cfg.Name, "symbol": s.cfg.Symbol, "tag": s.cfg.Tag}
}
