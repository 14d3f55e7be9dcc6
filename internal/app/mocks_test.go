package app

import (
	"context"
	"sync"
	"time"

	"zonebot/internal/domain"
)

// Mock implementations

type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnMsgs...)
}

func (m *mockLogger) errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errorMsgs...)
}

type mockBroker struct {
	mu sync.Mutex

	positions    []*domain.Position
	positionsErr error
	tick         domain.Tick
	tickErr      error
	candles      map[string][]domain.Candle // by timeframe
	candlesErr   error
	info         domain.SymbolInfo
	infoErr      error
	placeResult  *domain.OrderResult
	placeErr     error
	modifyErr    error
	closeErr     error
	connectErrs  []error // consumed one per Connect call
	onPlace      func(req domain.OrderRequest)
	onTick       func() // runs before GetTick returns, may panic
	onPositions  func() // runs before GetOpenPositions returns, may panic

	placed        []domain.OrderRequest
	modified      []domain.StopUpdate
	closed        []domain.CloseRequest
	candleCalls   []string
	connectCalls  int
	disconnectCnt int
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		info:        domain.SymbolInfo{Symbol: "GOLD", Point: 0.01, Digits: 2},
		candles:     make(map[string][]domain.Candle),
		placeResult: &domain.OrderResult{Ticket: 1001, OrderID: 1001, ReturnCode: "FILLED"},
	}
}

func (m *mockBroker) GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candleCalls = append(m.candleCalls, timeframe)
	if m.candlesErr != nil {
		return nil, m.candlesErr
	}
	c := m.candles[timeframe]
	if len(c) > count {
		c = c[len(c)-count:]
	}
	return c, nil
}

func (m *mockBroker) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	m.mu.Lock()
	hook := m.onTick
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick, m.tickErr
}

func (m *mockBroker) SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, m.infoErr
}

func (m *mockBroker) GetOpenPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	m.mu.Lock()
	hook := m.onPositions
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	out := make([]*domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockBroker) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	m.mu.Lock()
	m.placed = append(m.placed, req)
	res, err, hook := m.placeResult, m.placeErr, m.onPlace
	m.mu.Unlock()
	if err == nil && hook != nil {
		hook(req)
	}
	return res, err
}

func (m *mockBroker) ModifyStop(ctx context.Context, update domain.StopUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modifyErr != nil {
		return m.modifyErr
	}
	m.modified = append(m.modified, update)
	for _, p := range m.positions {
		if p.Ticket == update.Ticket {
			p.StopLoss = update.StopLoss
		}
	}
	return nil
}

func (m *mockBroker) ClosePosition(ctx context.Context, req domain.CloseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = append(m.closed, req)
	return nil
}

func (m *mockBroker) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	if len(m.connectErrs) == 0 {
		return nil
	}
	err := m.connectErrs[0]
	m.connectErrs = m.connectErrs[1:]
	return err
}

func (m *mockBroker) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCnt++
	return nil
}

func (m *mockBroker) setPositions(p ...*domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = p
}

func (m *mockBroker) setTick(t domain.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = t
}

func (m *mockBroker) placedOrders() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderRequest(nil), m.placed...)
}

func (m *mockBroker) modifications() []domain.StopUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StopUpdate(nil), m.modified...)
}

func (m *mockBroker) closes() []domain.CloseRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CloseRequest(nil), m.closed...)
}

type mockJournal struct {
	mu      sync.Mutex
	entries []*domain.TradeEntry
	err     error
}

func (m *mockJournal) Record(ctx context.Context, entry *domain.TradeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockJournal) FindByTag(ctx context.Context, tag int64, limit int) ([]*domain.TradeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

type mockStrategy struct {
	decision      domain.Decision
	snapshot      domain.IndicatorSnapshot
	snapshotErr   error
	required      int
	panicOnEval   bool
	evaluateCalls int
	snapshotCalls int
	lastSnapshot  domain.IndicatorSnapshot
}

func (m *mockStrategy) Name() string { return "mock" }

func (m *mockStrategy) RequiredDataPoints() int { return m.required }

func (m *mockStrategy) Snapshot(candles []domain.Candle, point float64) (domain.IndicatorSnapshot, error) {
	m.snapshotCalls++
	return m.snapshot, m.snapshotErr
}

func (m *mockStrategy) Evaluate(ctx context.Context, snap domain.IndicatorSnapshot) domain.Decision {
	m.evaluateCalls++
	m.lastSnapshot = snap
	if m.panicOnEval {
		panic("boom")
	}
	return m.decision
}

// testStrategyConfig mirrors the gold preset with short poll intervals.
func testStrategyConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:                     "gold-zone",
		Symbol:                   "GOLD",
		Tag:                      32,
		Timeframe:                "2m",
		Volume:                   0.01,
		Deviation:                20,
		SLPoints:                 170,
		TPPoints:                 300,
		TrailingActivationPoints: 320,
		TrailingStopDistance:     50,
		MovingAverage:            domain.EMA,
		SupportPeriod:            3,
		ResistancePeriod:         3,
		TrailingPeriod:           3,
		FilterPeriod:             12,
		TrendPeriod:              21,
		ZoneThreshold:            70,
		CandleCount:              100,
		TrailingTimeframe:        "1m",
		TrailingCandleCount:      50,
		LoopInterval:             10 * time.Second,
		TrailingPollInterval:     5 * time.Millisecond,
		TakeProfitPollInterval:   5 * time.Millisecond,
	}
}

func flatCandles(n int, price float64) []domain.Candle {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     price,
			High:     price + 0.5,
			Low:      price - 0.5,
			Close:    price,
			IsFinal:  i < n-1,
		}
	}
	return out
}
