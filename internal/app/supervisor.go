package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
	"zonebot/internal/risk"
	"zonebot/internal/strategy/indicators"

	"golang.org/x/sync/errgroup"
)

// defaultIdleRecheck bounds an idle wait so positions opened outside this
// process (or before a restart) are still picked up.
const defaultIdleRecheck = time.Minute

// TrailPhase is the per-position trailing state. The transition from dormant
// to active happens once and is never reversed.
type TrailPhase string

const (
	TrailDormant TrailPhase = "dormant"
	TrailActive  TrailPhase = "active"
)

// TrailOutcome describes a single trailing step.
type TrailOutcome string

const (
	TrailWaiting   TrailOutcome = "waiting"   // dormant, profit below activation
	TrailNoData    TrailOutcome = "no_data"   // reference average undefined
	TrailUnchanged TrailOutcome = "unchanged" // candidate does not improve the stop
	TrailModified  TrailOutcome = "modified"
)

// SupervisorConfig wires a PositionSupervisor.
type SupervisorConfig struct {
	Strategy    domain.StrategyConfig
	Broker      ports.Broker
	Event       *Event
	Logger      ports.Logger
	IdleRecheck time.Duration // Upper bound on an idle wait, 0 uses one minute
}

// PositionSupervisor runs the trailing-stop and take-profit watchers for the
// positions owned by one strategy tag.
type PositionSupervisor struct {
	cfg         domain.StrategyConfig
	broker      ports.Broker
	event       *Event
	logger      ports.Logger
	idleRecheck time.Duration
	trailingMA  *indicators.MovingAverage

	mu     sync.Mutex
	phases map[int64]TrailPhase // ticket -> phase, owned by the trailing watcher
	closed map[int64]bool       // tickets the take-profit watcher already closed
}

// NewPositionSupervisor validates dependencies and creates a supervisor.
func NewPositionSupervisor(cfg SupervisorConfig) (*PositionSupervisor, error) {
	if cfg.Broker == nil || cfg.Event == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for PositionSupervisor")
	}
	if cfg.Strategy.TrailingPollInterval <= 0 || cfg.Strategy.TakeProfitPollInterval <= 0 {
		return nil, fmt.Errorf("watcher poll intervals must be positive")
	}
	idle := cfg.IdleRecheck
	if idle <= 0 {
		idle = defaultIdleRecheck
	}
	return &PositionSupervisor{
		cfg:         cfg.Strategy,
		broker:      cfg.Broker,
		event:       cfg.Event,
		logger:      cfg.Logger,
		idleRecheck: idle,
		trailingMA: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.Strategy.TrailingPeriod},
			Type:            cfg.Strategy.MovingAverage,
			Field:           domain.FieldClose,
		}),
		phases: make(map[int64]TrailPhase),
		closed: make(map[int64]bool),
	}, nil
}

// Run starts both watchers and blocks until ctx is canceled.
func (s *PositionSupervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.watch(ctx, "TrailingWatcher", s.cfg.TrailingPollInterval, s.trailAll)
	})
	g.Go(func() error {
		return s.watch(ctx, "TakeProfitWatcher", s.cfg.TakeProfitPollInterval, s.takeProfitAll)
	})
	return g.Wait()
}

// watch polls while a tagged position is open and idles on the event otherwise.
// Errors are logged and retried on the next poll.
func (s *PositionSupervisor) watch(ctx context.Context, name string, interval time.Duration, step func(context.Context, []*domain.Position)) error {
	fields := map[string]interface{}{"symbol": s.cfg.Symbol, "tag": s.cfg.Tag, "watcher": name}
	s.logger.Info(ctx, name+": Started", fields)
	defer s.logger.Info(context.Background(), name+": Stopped", fields)

	for {
		if ctx.Err() != nil {
			return nil
		}

		gen := s.event.Generation()
		positions, err := s.taggedPositions(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn(ctx, name+": Failed to fetch open positions", withError(fields, err))
			if sleepContext(ctx, interval) != nil {
				return nil
			}
			continue
		}

		if len(positions) == 0 {
			s.forget(nil)
			if s.event.ClearIf(gen) {
				s.logger.Debug(ctx, name+": No open position, waiting for entry", fields)
			}
			waitCtx, cancel := context.WithTimeout(ctx, s.idleRecheck)
			_ = s.event.Wait(waitCtx)
			cancel()
			continue
		}

		s.forget(positions)
		step(ctx, positions)
		if sleepContext(ctx, interval) != nil {
			return nil
		}
	}
}

func (s *PositionSupervisor) taggedPositions(ctx context.Context) (tagged []*domain.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			tagged, err = nil, fmt.Errorf("panic fetching open positions: %v", r)
		}
	}()
	all, err := s.broker.GetOpenPositions(ctx, s.cfg.Symbol)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p != nil && p.Tag == s.cfg.Tag {
			tagged = append(tagged, p)
		}
	}
	return tagged, nil
}

// forget drops state for tickets that are no longer open.
func (s *PositionSupervisor) forget(open []*domain.Position) {
	live := make(map[int64]bool, len(open))
	for _, p := range open {
		live[p.Ticket] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.phases {
		if !live[t] {
			delete(s.phases, t)
		}
	}
	for t := range s.closed {
		if !live[t] {
			delete(s.closed, t)
		}
	}
}

// Phase returns the trailing phase recorded for ticket.
func (s *PositionSupervisor) Phase(ticket int64) TrailPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.phases[ticket]; ok {
		return p
	}
	return TrailDormant
}

func (s *PositionSupervisor) trailAll(ctx context.Context, positions []*domain.Position) {
	for _, pos := range positions {
		s.step(ctx, "TrailingWatcher", pos, func() error {
			_, err := s.Trail(ctx, pos)
			return err
		})
	}
}

// step runs fn for pos. Errors and panics are logged and the position is
// retried on the next poll.
func (s *PositionSupervisor) step(ctx context.Context, name string, pos *domain.Position, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s: %v", name, r)
			s.logger.Error(ctx, err, name+": Recovered from panic, retrying next poll", s.positionFields(pos))
		}
	}()
	if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, name+": Step failed", withError(s.positionFields(pos), err))
	}
}

// Trail performs one trailing-stop step for pos.
func (s *PositionSupervisor) Trail(ctx context.Context, pos *domain.Position) (TrailOutcome, error) {
	op := "Trail"
	fields := s.positionFields(pos)

	info, err := s.broker.SymbolInfo(ctx, pos.Symbol)
	if err != nil {
		return "", fmt.Errorf("%s: symbol info: %w", op, err)
	}
	rm, err := risk.NewRiskManager(risk.ConfigFrom(s.cfg), info)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.Phase(pos.Ticket) != TrailActive {
		tick, err := s.broker.GetTick(ctx, pos.Symbol)
		if err != nil {
			return "", fmt.Errorf("%s: tick: %w", op, err)
		}
		profit := rm.ProfitPoints(pos, tick)
		if !rm.TrailingActive(profit) {
			return TrailWaiting, nil
		}
		s.mu.Lock()
		s.phases[pos.Ticket] = TrailActive
		s.mu.Unlock()
		fields["profitPoints"] = profit
		s.logger.Info(ctx, "TrailingWatcher: Trailing stop activated", fields)
	}

	candles, err := s.broker.GetCandles(ctx, pos.Symbol, s.cfg.TrailingTimeframe, s.cfg.TrailingCandleCount)
	if err != nil {
		return "", fmt.Errorf("%s: reference candles: %w", op, err)
	}
	ref, err := s.trailingMA.Calculate(ctx, candles)
	if err != nil {
		fields["indicator"] = s.trailingMA.Name()
		s.logger.Warn(ctx, "TrailingWatcher: Reference average undefined, skipping", withError(fields, err))
		return TrailNoData, nil
	}

	candidate := rm.TrailingStop(pos.Side, ref)
	if !risk.Improves(pos.Side, candidate, pos.StopLoss) {
		return TrailUnchanged, nil
	}

	fields["action"] = "modify_stop"
	fields["reference"] = ref
	fields["oldStopLoss"] = pos.StopLoss
	fields["newStopLoss"] = candidate
	err = s.broker.ModifyStop(ctx, domain.StopUpdate{
		Ticket:     pos.Ticket,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Volume:     pos.Volume,
		StopLoss:   candidate,
		TakeProfit: pos.TakeProfit,
		Tag:        pos.Tag,
	})
	if err != nil {
		return "", fmt.Errorf("%s: modify stop: %w", op, err)
	}
	s.logger.Info(ctx, "TrailingWatcher: Stop loss trailed", fields)
	return TrailModified, nil
}

func (s *PositionSupervisor) takeProfitAll(ctx context.Context, positions []*domain.Position) {
	for _, pos := range positions {
		s.step(ctx, "TakeProfitWatcher", pos, func() error {
			_, err := s.CheckTakeProfit(ctx, pos)
			return err
		})
	}
}

// CheckTakeProfit closes pos when the exit side of the book reaches its
// target. It reports whether a close was sent.
func (s *PositionSupervisor) CheckTakeProfit(ctx context.Context, pos *domain.Position) (bool, error) {
	op := "CheckTakeProfit"
	if pos.TakeProfit <= 0 {
		return false, nil
	}
	s.mu.Lock()
	done := s.closed[pos.Ticket]
	s.mu.Unlock()
	if done {
		return false, nil
	}

	tick, err := s.broker.GetTick(ctx, pos.Symbol)
	if err != nil {
		return false, fmt.Errorf("%s: tick: %w", op, err)
	}
	if !risk.TakeProfitReached(pos, tick) {
		return false, nil
	}

	fields := s.positionFields(pos)
	fields["action"] = "close"
	fields["takeProfit"] = pos.TakeProfit
	fields["exitPrice"] = risk.ExitPrice(tick, pos.Side)
	err = s.broker.ClosePosition(ctx, domain.CloseRequest{
		Ticket:    pos.Ticket,
		Symbol:    pos.Symbol,
		Side:      pos.Side,
		Volume:    pos.Volume,
		Deviation: s.cfg.Deviation,
		Tag:       pos.Tag,
		Reason:    domain.CloseReasonTakeProfit,
	})
	if err != nil {
		return false, fmt.Errorf("%s: close: %w", op, err)
	}

	s.mu.Lock()
	s.closed[pos.Ticket] = true
	s.mu.Unlock()
	s.logger.Info(ctx, "TakeProfitWatcher: Position closed at target", fields)
	return true, nil
}

func (s *PositionSupervisor) positionFields(pos *domain.Position) map[string]interface{} {
	return map[string]interface{}{
		"symbol": pos.Symbol,
		"tag":    pos.Tag,
		"ticket": pos.Ticket,
		"side":   string(pos.Side),
	}
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
