package scraping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
	"binance-trading-bot/internal/opportunity"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

// fakeMarketData is a hand-rolled coretypes.MarketData double: fixed
// per-symbol prices and candle sets, with optional forced errors.
type fakeMarketData struct {
	mu        sync.Mutex
	prices    map[string]float64
	candles   map[string][]coretypes.Candle
	priceErr  error
	klineErr  error
	priceCall int
	klineCall int
}

func newFakeMarketData() *fakeMarketData {
	return &fakeMarketData{prices: map[string]float64{}, candles: map[string][]coretypes.Candle{}}
}

func (f *fakeMarketData) LastPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCall++
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.prices[symbol], nil
}

func (f *fakeMarketData) Klines(ctx context.Context, symbol, interval string, limit int) ([]coretypes.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.klineCall++
	if f.klineErr != nil {
		return nil, f.klineErr
	}
	return f.candles[symbol], nil
}

// fakeExecutor is a hand-rolled coretypes.Executor double with call
// tracking.
type fakeExecutor struct {
	mu          sync.Mutex
	executeErr  error
	closeErr    error
	closeResult coretypes.TradeCloseResult
	executed    []coretypes.TradeSignal
	closed      []string
	nextTradeID string
	isReal      bool
}

func (f *fakeExecutor) Execute(ctx context.Context, signal coretypes.TradeSignal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.executeErr != nil {
		return "", f.executeErr
	}
	f.executed = append(f.executed, signal)
	id := f.nextTradeID
	if id == "" {
		id = "trade-1"
	}
	return id, nil
}

func (f *fakeExecutor) Close(ctx context.Context, tradeID string, reason coretypes.ExitReason) (coretypes.TradeCloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return coretypes.TradeCloseResult{}, f.closeErr
	}
	f.closed = append(f.closed, tradeID)
	return f.closeResult, nil
}

func (f *fakeExecutor) IsReal() bool { return f.isReal }

// fakeMLSink is a hand-rolled coretypes.MLSink double capturing every
// recorded outcome.
type fakeMLSink struct {
	mu       sync.Mutex
	outcomes []coretypes.TradeOutcome
}

func (f *fakeMLSink) RecordTradeOutcome(ctx context.Context, outcome coretypes.TradeOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func newTestEngine(md coretypes.MarketData, exec coretypes.Executor, sink coretypes.MLSink) *Engine {
	cfg := DefaultEngineConfig()
	return NewEngine(cfg, md, exec, sink, testLogger())
}

func TestNewEngine_DefaultsMaxTradesPerSymbol(t *testing.T) {
	cfg := EngineConfig{MaxTradesPerSymbol: 0}
	e := NewEngine(cfg, newFakeMarketData(), &fakeExecutor{}, &fakeMLSink{}, testLogger())
	if e.cfg.MaxTradesPerSymbol != defaultMaxTradesPerSymbol {
		t.Errorf("expected MaxTradesPerSymbol to default to %d, got %d", defaultMaxTradesPerSymbol, e.cfg.MaxTradesPerSymbol)
	}
}

func TestStartStopScraping_IdempotentAndClean(t *testing.T) {
	e := newTestEngine(newFakeMarketData(), &fakeExecutor{}, &fakeMLSink{})

	if ok := e.StartScraping(nil); !ok {
		t.Fatalf("expected StartScraping to succeed")
	}
	if ok := e.StartScraping(nil); !ok {
		t.Fatalf("expected a second StartScraping call to be a no-op success")
	}
	if !e.Status().Active {
		t.Errorf("expected the engine to report active after start")
	}

	e.StopScraping()
	if e.Status().Active {
		t.Errorf("expected the engine to report inactive after stop")
	}
	// A second stop must not panic or block.
	e.StopScraping()
}

func TestAnalyzeSymbol_QuarantinesAfterThresholdFailures(t *testing.T) {
	md := newFakeMarketData()
	md.priceErr = errors.New("venue unreachable")
	e := newTestEngine(md, &fakeExecutor{}, &fakeMLSink{})
	e.states["BTCUSDT"] = &symbolState{}

	for i := 0; i < quarantineThreshold-1; i++ {
		e.analyzeSymbol(context.Background(), "BTCUSDT")
	}
	if e.states["BTCUSDT"].quarantined {
		t.Fatalf("symbol should not be quarantined before reaching the failure threshold")
	}

	e.analyzeSymbol(context.Background(), "BTCUSDT")
	if !e.states["BTCUSDT"].quarantined {
		t.Errorf("expected symbol to be quarantined after %d consecutive failures", quarantineThreshold)
	}
}

func TestAnalyzeSymbol_SuccessResetsQuarantineState(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 100
	e := newTestEngine(md, &fakeExecutor{}, &fakeMLSink{})
	e.states["BTCUSDT"] = &symbolState{failures: quarantineThreshold - 1, quarantined: false}

	e.analyzeSymbol(context.Background(), "BTCUSDT")

	st := e.states["BTCUSDT"]
	if st.failures != 0 || st.quarantined {
		t.Errorf("expected a clean analysis to reset failure bookkeeping, got failures=%d quarantined=%v", st.failures, st.quarantined)
	}
}

func TestReadyToTradeSignals_SkipsQuarantinedSymbols(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 100
	e := newTestEngine(md, &fakeExecutor{}, &fakeMLSink{})
	e.mu.Lock()
	e.symbols = []string{"BTCUSDT"}
	e.states["BTCUSDT"] = &symbolState{
		quarantined: true,
		opportunities: []coretypes.Opportunity{{
			Symbol: "BTCUSDT",
			Level:  coretypes.PriceLevel{Price: 100, Kind: coretypes.Support, Strength: 90},
		}},
	}
	e.mu.Unlock()

	signals := e.ReadyToTradeSignals(context.Background())
	if len(signals) != 0 {
		t.Errorf("expected no signals for a quarantined symbol, got %d", len(signals))
	}
}

func TestEvaluateEntries_ExecutesAndAddsToLifecycle(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 100.1
	md.candles["BTCUSDT"] = []coretypes.Candle{{
		Timestamp: time.Now(),
		Open:      100, Low: 99.9, High: 100.8, Close: 100.7, Volume: 50,
	}}
	exec := &fakeExecutor{nextTradeID: "t-entry"}
	e := newTestEngine(md, exec, &fakeMLSink{})
	e.mu.Lock()
	e.symbols = []string{"BTCUSDT"}
	e.states["BTCUSDT"] = &symbolState{
		trend: opportunityTrendUp(),
		opportunities: []coretypes.Opportunity{{
			Symbol: "BTCUSDT",
			Level: coretypes.PriceLevel{
				Price: 100, Kind: coretypes.Support, Strength: 90,
				TouchCount: 5, BounceCount: 4, AvgVolumeAtLevel: 1.2, LastTestedAt: time.Now(),
			},
			Targets: coretypes.TradingTargets{EntryPrice: 100, StopLoss: 98, ProfitTarget: 105, Confidence: 80},
		}},
	}
	e.mu.Unlock()

	e.evaluateEntries(context.Background(), "BTCUSDT")

	if len(exec.executed) != 1 {
		t.Fatalf("expected exactly one execution, got %d", len(exec.executed))
	}
	snap := e.lifecycleMgr.Snapshot()
	if len(snap) != 1 || snap[0].TradeID != "t-entry" {
		t.Fatalf("expected the new trade to be registered with the lifecycle manager, got %+v", snap)
	}
}

func TestEvaluateEntries_RespectsPerSymbolTradeCap(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 100.05
	exec := &fakeExecutor{}
	e := newTestEngine(md, exec, &fakeMLSink{})
	e.cfg.MaxTradesPerSymbol = 1
	e.lifecycleMgr.Add(&coretypes.ActiveTrade{TradeID: "existing", Symbol: "BTCUSDT", Side: coretypes.Long, EntryPrice: 100, Quantity: 1, Leverage: 10, ProfitTarget: 110, StopLoss: 95, EntryTime: time.Now()})
	e.mu.Lock()
	e.symbols = []string{"BTCUSDT"}
	e.states["BTCUSDT"] = &symbolState{
		opportunities: []coretypes.Opportunity{{Symbol: "BTCUSDT", Level: coretypes.PriceLevel{Price: 100, Kind: coretypes.Support}}},
	}
	e.mu.Unlock()

	e.evaluateEntries(context.Background(), "BTCUSDT")

	if len(exec.executed) != 0 {
		t.Errorf("expected no new execution once the per-symbol trade cap is reached")
	}
}

func TestTickTrade_HardExitClosesAndRecordsOutcome(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 110 // at profit target
	md.candles["BTCUSDT"] = nil
	exec := &fakeExecutor{closeResult: coretypes.TradeCloseResult{PnLUSD: 50, PnLPct: 0.05}}
	sink := &fakeMLSink{}
	e := newTestEngine(md, exec, sink)
	trade := &coretypes.ActiveTrade{
		TradeID: "t1", Symbol: "BTCUSDT", Side: coretypes.Long,
		EntryPrice: 100, Quantity: 10, Leverage: 10,
		ProfitTarget: 110, StopLoss: 95, EntryTime: time.Now(),
	}
	e.lifecycleMgr.Add(trade)

	e.tickTrade(context.Background(), trade)

	if len(exec.closed) != 1 || exec.closed[0] != "t1" {
		t.Fatalf("expected the executor to be asked to close the trade, got %v", exec.closed)
	}
	if len(sink.outcomes) != 1 {
		t.Fatalf("expected one recorded trade outcome, got %d", len(sink.outcomes))
	}
	if snap := e.lifecycleMgr.Snapshot(); len(snap) != 0 {
		t.Errorf("expected the trade to be removed from the lifecycle manager after a confirmed close")
	}
}

// TestTickTrade_CloseFailureRecordsFailureAndKeepsTradeClosing covers
// the one close attempt tickTrade makes per hard-exit detection: once
// a trade is marked CLOSING, subsequent ticks no longer re-evaluate
// hardExit, so a failed close here is recorded once and the trade
// stays around for a reconciliation path to retry or force-remove via
// RecordCloseFailure directly (exercised in manager_test.go).
func TestTickTrade_CloseFailureRecordsFailureAndKeepsTradeClosing(t *testing.T) {
	md := newFakeMarketData()
	md.prices["BTCUSDT"] = 110
	exec := &fakeExecutor{closeErr: errors.New("exchange rejected close")}
	sink := &fakeMLSink{}
	e := newTestEngine(md, exec, sink)
	trade := &coretypes.ActiveTrade{
		TradeID: "t1", Symbol: "BTCUSDT", Side: coretypes.Long,
		EntryPrice: 100, Quantity: 10, Leverage: 10,
		ProfitTarget: 110, StopLoss: 95, EntryTime: time.Now(),
	}
	e.lifecycleMgr.Add(trade)

	e.tickTrade(context.Background(), trade)

	if snap := e.lifecycleMgr.Snapshot(); len(snap) != 1 {
		t.Fatalf("trade should survive a single close failure, got %d trades", len(snap))
	}
	if trade.CloseFailures != 1 {
		t.Errorf("CloseFailures = %d, want 1", trade.CloseFailures)
	}
	if trade.State != coretypes.TradeClosing {
		t.Errorf("expected the trade to remain in CLOSING after a failed close, got %s", trade.State)
	}

	// A reconciliation path driving RecordCloseFailure directly still
	// force-removes at the third strike.
	e.lifecycleMgr.RecordCloseFailure(trade.TradeID)
	if removed := e.lifecycleMgr.RecordCloseFailure(trade.TradeID); !removed {
		t.Errorf("expected force-removal on the third recorded close failure")
	}
}

func TestStatus_AggregatesPerSymbolState(t *testing.T) {
	e := newTestEngine(newFakeMarketData(), &fakeExecutor{}, &fakeMLSink{})
	e.mu.Lock()
	e.symbols = []string{"BTCUSDT", "ETHUSDT"}
	e.states["BTCUSDT"] = &symbolState{priceLevels: make([]coretypes.PriceLevel, 2), opportunities: make([]coretypes.Opportunity, 1)}
	e.states["ETHUSDT"] = &symbolState{priceLevels: make([]coretypes.PriceLevel, 3), opportunities: make([]coretypes.Opportunity, 2)}
	e.mu.Unlock()

	status := e.Status()
	if status.LevelCount != 5 {
		t.Errorf("LevelCount = %d, want 5", status.LevelCount)
	}
	if status.OpportunityCount != 3 {
		t.Errorf("OpportunityCount = %d, want 3", status.OpportunityCount)
	}
}

func TestIdentifiedLevels_UnknownSymbolReturnsNil(t *testing.T) {
	e := newTestEngine(newFakeMarketData(), &fakeExecutor{}, &fakeMLSink{})
	levels, magnets := e.IdentifiedLevels("NOSUCH")
	if levels != nil || magnets != nil {
		t.Errorf("expected nil/nil for an unknown symbol, got %v/%v", levels, magnets)
	}
}

// opportunityTrendUp returns an aligned-up TrendResult so the
// entry-gate trend stages are no-ops for a long entry in these
// fixtures.
func opportunityTrendUp() opportunity.TrendResult {
	return opportunity.TrendResult{Direction: opportunity.TrendUp, Score: 0.01}
}
