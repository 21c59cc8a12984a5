package lifecycle

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

func newTestTrade(side coretypes.Side) *coretypes.ActiveTrade {
	entry := 100.0
	sl, tp := 95.0, 110.0
	if side == coretypes.Short {
		sl, tp = 105.0, 90.0
	}
	return &coretypes.ActiveTrade{
		TradeID:      "t1",
		Symbol:       "BTCUSDT",
		Side:         side,
		EntryPrice:   entry,
		Quantity:     10,
		Leverage:     10,
		ProfitTarget: tp,
		StopLoss:     sl,
		EntryTime:    time.Now(),
		LevelKind:    coretypes.Support,
		State:        coretypes.TradeOpen,
	}
}

func TestAdd_DefaultsTrailingState(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)

	m.Add(trade)

	want := coretypes.DefaultTrailingState()
	if trade.Trailing != want {
		t.Errorf("Add() did not default the zero-valued TrailingState: got %+v, want %+v", trade.Trailing, want)
	}
	if trade.State != coretypes.TradeOpen {
		t.Errorf("Add() should set state to OPEN, got %s", trade.State)
	}
}

func TestAdd_PreservesCallerSuppliedTrailingState(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	trade.Trailing = coretypes.TrailingState{MaxTrailCapUSD: 999}

	m.Add(trade)

	if trade.Trailing.MaxTrailCapUSD != 999 {
		t.Errorf("Add() overwrote a caller-supplied non-zero TrailingState")
	}
}

func TestHardExit_Long(t *testing.T) {
	trade := newTestTrade(coretypes.Long)

	if reason, closed := hardExit(trade, 110); !closed || reason != coretypes.ExitProfitTarget {
		t.Errorf("expected a profit-target hard exit at the target price, got %v/%v", reason, closed)
	}
	if reason, closed := hardExit(trade, 95); !closed || reason != coretypes.ExitStopLoss {
		t.Errorf("expected a stop-loss hard exit at the stop price, got %v/%v", reason, closed)
	}
	if _, closed := hardExit(trade, 102); closed {
		t.Errorf("expected no hard exit between stop and target")
	}
}

func TestHardExit_Short(t *testing.T) {
	trade := newTestTrade(coretypes.Short)

	if reason, closed := hardExit(trade, 90); !closed || reason != coretypes.ExitProfitTarget {
		t.Errorf("expected a profit-target hard exit at the target price, got %v/%v", reason, closed)
	}
	if reason, closed := hardExit(trade, 105); !closed || reason != coretypes.ExitStopLoss {
		t.Errorf("expected a stop-loss hard exit at the stop price, got %v/%v", reason, closed)
	}
}

func TestMoveSLIfFavourable_MonotoneInvariant(t *testing.T) {
	longTrade := newTestTrade(coretypes.Long)
	longTrade.StopLoss = 100

	if moved := moveSLIfFavourable(longTrade, 105); !moved || longTrade.StopLoss != 105 {
		t.Errorf("expected a long SL to move up on a favourable candidate")
	}
	if moved := moveSLIfFavourable(longTrade, 102); moved || longTrade.StopLoss != 105 {
		t.Errorf("expected a long SL never to move backwards: got %v", longTrade.StopLoss)
	}

	shortTrade := newTestTrade(coretypes.Short)
	shortTrade.StopLoss = 100

	if moved := moveSLIfFavourable(shortTrade, 95); !moved || shortTrade.StopLoss != 95 {
		t.Errorf("expected a short SL to move down on a favourable candidate")
	}
	if moved := moveSLIfFavourable(shortTrade, 98); moved || shortTrade.StopLoss != 95 {
		t.Errorf("expected a short SL never to move backwards: got %v", shortTrade.StopLoss)
	}
}

func TestTick_UnknownTradeReturnsNotOK(t *testing.T) {
	m := NewManager(testLogger())
	_, ok := m.Tick("missing", TickInput{Price: 100, Now: time.Now()})
	if ok {
		t.Errorf("expected ok=false for an unregistered trade ID")
	}
}

func TestTick_NonOpenTradeIsNoOp(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)
	trade.State = coretypes.TradeClosing

	outcome, ok := m.Tick(trade.TradeID, TickInput{Price: 200, Now: time.Now()})
	if !ok {
		t.Fatalf("expected ok=true for a known but non-open trade")
	}
	if outcome.Closed {
		t.Errorf("expected no action on a non-open trade")
	}
}

func TestTick_HardExitTransitionsToClosing(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)

	outcome, ok := m.Tick(trade.TradeID, TickInput{Price: 110, Now: time.Now()})
	if !ok || !outcome.Closed || outcome.ExitReason != coretypes.ExitProfitTarget {
		t.Fatalf("expected a profit-target close, got %+v / ok=%v", outcome, ok)
	}
	if trade.State != coretypes.TradeClosing {
		t.Errorf("expected trade to transition to CLOSING, got %s", trade.State)
	}
}

func TestStepwiseTrail_ArmsAndMovesSL(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)

	in := TickInput{Price: 100.3, Now: time.Now()}
	moved := m.stepwiseTrail(trade, in)

	if !moved {
		t.Fatalf("expected the stepwise trail to arm and move the SL")
	}
	if trade.Trailing.LockedProfitUSD != 15 {
		t.Errorf("expected the first step to lock in the base step increment, got %v", trade.Trailing.LockedProfitUSD)
	}
	wantSL := priceForLockedUSD(trade, 15)
	if trade.StopLoss != wantSL {
		t.Errorf("StopLoss = %v, want %v", trade.StopLoss, wantSL)
	}
}

func TestStepwiseTrail_NoOpBelowThreshold(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)
	originalSL := trade.StopLoss

	moved := m.stepwiseTrail(trade, TickInput{Price: 100.05, Now: time.Now()})

	if moved || trade.StopLoss != originalSL {
		t.Errorf("expected no trail movement below the lock-in threshold")
	}
}

func TestCapHandoff_TightensStopOnceCapIsLocked(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)
	trade.Trailing.LockedProfitUSD = trade.Trailing.MaxTrailCapUSD
	trade.StopLoss = 103

	moved := m.capHandoff(trade, TickInput{Price: 105, AtrPct: 0.01, Regime: coretypes.RegimeNormal, Now: time.Now()})

	if !moved {
		t.Fatalf("expected cap hand-off to tighten the stop once the cap is locked")
	}
	if trade.StopLoss <= 103 {
		t.Errorf("expected the tightened stop to be more favourable than 103, got %v", trade.StopLoss)
	}
}

func TestAtrBreakeven_MovesStopToBreakevenPlusGap(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)
	trade.StopLoss = 90

	moved := m.atrBreakeven(trade, TickInput{Price: 101, AtrPct: 0.01, Regime: coretypes.RegimeNormal, Now: time.Now()})

	if !moved {
		t.Fatalf("expected ATR breakeven to move the stop once the favourable move clears the threshold")
	}
	if trade.StopLoss <= trade.EntryPrice {
		t.Errorf("expected the breakeven stop to sit above entry, got %v", trade.StopLoss)
	}
}

func TestAtrTrail_TrailsBehindPrice(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)
	trade.StopLoss = 90

	moved := m.atrTrail(trade, TickInput{Price: 101.5, AtrPct: 0.01, Regime: coretypes.RegimeNormal, Now: time.Now()})

	if !moved {
		t.Fatalf("expected ATR trail to move the stop once the favourable move clears BE+Trail")
	}
	if trade.StopLoss >= 101.5 {
		t.Errorf("expected the trailed stop to sit below price, got %v", trade.StopLoss)
	}
}

func TestTimeExit_MaxHoldExceeded(t *testing.T) {
	trade := newTestTrade(coretypes.Long)
	trade.EntryTime = time.Now().Add(-100 * time.Minute)

	reason, closed := (&Manager{}).timeExit(trade, TickInput{
		Price: 100, AtrPct: 0.01, Regime: coretypes.RegimeNormal,
		Alignment: Aligned, Now: time.Now(),
	})
	if !closed || reason != coretypes.ExitTimeMax {
		t.Fatalf("expected a time-max exit past the aligned max-hold budget, got %v/%v", reason, closed)
	}
}

func TestTimeExit_FlatCutWhenEdgeIsThin(t *testing.T) {
	trade := newTestTrade(coretypes.Long)
	trade.EntryTime = time.Now().Add(-40 * time.Minute) // past flatCut(30m), under maxHold(90m)

	reason, closed := (&Manager{}).timeExit(trade, TickInput{
		Price: 100, AtrPct: 0.001, Regime: coretypes.RegimeNormal, // price==entry, edge==0
		Alignment: Aligned, Now: time.Now(),
	})
	if !closed || reason != coretypes.ExitTimeFlat {
		t.Fatalf("expected a flat-cut exit when the edge is thin, got %v/%v", reason, closed)
	}
}

func TestTimeExit_NoExitWhenEdgeIsHealthy(t *testing.T) {
	trade := newTestTrade(coretypes.Long)
	trade.EntryTime = time.Now().Add(-40 * time.Minute)

	_, closed := (&Manager{}).timeExit(trade, TickInput{
		Price: 105, AtrPct: 0.001, Regime: coretypes.RegimeNormal, // well in profit
		Alignment: Aligned, Now: time.Now(),
	})
	if closed {
		t.Errorf("expected no time exit when the trade is comfortably in profit")
	}
}

func TestSafetyExit_UnderwaterAfter24Hours(t *testing.T) {
	trade := newTestTrade(coretypes.Long)
	trade.EntryTime = time.Now().Add(-25 * time.Hour)

	reason, closed := safetyExit(trade, TickInput{Price: 94, Now: time.Now()}) // -6% edge

	if !closed || reason != coretypes.ExitSafetyTime {
		t.Fatalf("expected a safety exit for an underwater trade past 24h, got %v/%v", reason, closed)
	}
}

func TestSafetyExit_NoExitBefore24Hours(t *testing.T) {
	trade := newTestTrade(coretypes.Long)
	trade.EntryTime = time.Now().Add(-23 * time.Hour)

	_, closed := safetyExit(trade, TickInput{Price: 90, Now: time.Now()})
	if closed {
		t.Errorf("expected no safety exit before the 24h hold floor, regardless of drawdown")
	}
}

func TestRecordCloseFailure_ForceRemovesAfterThreeFailures(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)

	if removed := m.RecordCloseFailure(trade.TradeID); removed {
		t.Errorf("should not force-remove on the first failure")
	}
	if removed := m.RecordCloseFailure(trade.TradeID); removed {
		t.Errorf("should not force-remove on the second failure")
	}
	if removed := m.RecordCloseFailure(trade.TradeID); !removed {
		t.Errorf("should force-remove on the third failure")
	}
	if _, ok := m.Tick(trade.TradeID, TickInput{Price: 100, Now: time.Now()}); ok {
		t.Errorf("expected the trade to be gone from the manager after force-removal")
	}
}

func TestMarkClosed_RemovesTrade(t *testing.T) {
	m := NewManager(testLogger())
	trade := newTestTrade(coretypes.Long)
	m.Add(trade)

	m.MarkClosed(trade.TradeID)

	if _, ok := m.Tick(trade.TradeID, TickInput{Price: 100, Now: time.Now()}); ok {
		t.Errorf("expected the trade to be gone after MarkClosed")
	}
}

func TestSnapshot_ReturnsAllActiveTrades(t *testing.T) {
	m := NewManager(testLogger())
	m.Add(newTestTrade(coretypes.Long))
	trade2 := newTestTrade(coretypes.Short)
	trade2.TradeID = "t2"
	m.Add(trade2)

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 trades in the snapshot, got %d", len(snap))
	}
}
