// Package lifecycle runs the hybrid trailing-stop position lifecycle
// (spec §4.6): hard exits, stepwise USD-lock trailing, cap hand-off,
// ATR breakeven/trail, time-based exits and the OPEN/CLOSING/CLOSED
// state machine.
package lifecycle

import (
	"math"
	"sync"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
	"binance-trading-bot/internal/volatility"
)

const (
	maxCloseFailures = 3

	atrBreakevenFloor = 0.0006
	atrBreakevenPct   = 0.1

	capHandoffFloor = 0.0012

	safetyHoldHours      = 24
	safetyUnderwaterPct  = 0.05

	alignedMaxHoldMinutes   = 90
	alignedFlatCutMinutes   = 30
	counterMaxHoldMinutes   = 45
	counterFlatCutMinutes   = 10
	neutralMaxHoldMinutes   = 60
	neutralFlatCutMinutes   = 15

	flatCutEdgeFloor = 0.0020
	flatCutEdgeAtrFrac = 0.8
)

// Alignment is the trend relationship used to pick the §4.6.1 time
// budget for a trade.
type Alignment string

const (
	Aligned     Alignment = "aligned"
	CounterTrend Alignment = "counter_trend"
	Neutral     Alignment = "neutral"
)

// TickInput is everything one lifecycle tick needs beyond the trade
// itself.
type TickInput struct {
	Price     float64
	AtrPct    float64
	Regime    coretypes.Regime
	Alignment Alignment
	Now       time.Time // wall clock, for duration/logging math only
}

// TickOutcome reports what a tick did to a trade.
type TickOutcome struct {
	Closed     bool
	ExitReason coretypes.ExitReason
	SLMoved    bool
}

// Manager owns the set of ActiveTrades and runs one tick per trade per
// call to Tick. Safe for concurrent use: the trade set is guarded by
// mu, and each trade additionally has its own lock so that one slow
// tick never blocks unrelated trades (spec §5: "for one trade, at most
// one lifecycle tick runs at a time").
type Manager struct {
	log *logging.Logger

	mu     sync.RWMutex
	trades map[string]*coretypes.ActiveTrade
	locks  map[string]*sync.Mutex
}

// NewManager builds an empty Manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		log:    log.WithComponent("lifecycle"),
		trades: make(map[string]*coretypes.ActiveTrade),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Add registers a new ActiveTrade, defaulting its TrailingState if the
// caller left it zero-valued.
func (m *Manager) Add(trade *coretypes.ActiveTrade) {
	if trade.Trailing == (coretypes.TrailingState{}) {
		trade.Trailing = coretypes.DefaultTrailingState()
	}
	trade.State = coretypes.TradeOpen

	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[trade.TradeID] = trade
	m.locks[trade.TradeID] = &sync.Mutex{}
}

// Remove force-removes a trade from the active set (used on
// CLOSE_FAILED force-removal and on confirmed close).
func (m *Manager) Remove(tradeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trades, tradeID)
	delete(m.locks, tradeID)
}

// Snapshot returns a shallow copy of all active trades, safe to range
// over without holding any Manager lock.
func (m *Manager) Snapshot() []*coretypes.ActiveTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*coretypes.ActiveTrade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	return out
}

func (m *Manager) lockFor(tradeID string) *sync.Mutex {
	m.mu.RLock()
	l, ok := m.locks[tradeID]
	m.mu.RUnlock()
	if ok {
		return l
	}
	return nil
}

// Tick runs the full §4.6.1 algorithm for one trade. It returns
// ok=false if tradeID is unknown (already removed). Price-fetch
// failure is the caller's concern: the caller simply skips calling
// Tick for that trade this cycle (spec §4.6.3).
func (m *Manager) Tick(tradeID string, in TickInput) (TickOutcome, bool) {
	lock := m.lockFor(tradeID)
	if lock == nil {
		return TickOutcome{}, false
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	trade, ok := m.trades[tradeID]
	m.mu.RUnlock()
	if !ok {
		return TickOutcome{}, false
	}
	if trade.State != coretypes.TradeOpen {
		return TickOutcome{}, true
	}

	if reason, closed := hardExit(trade, in.Price); closed {
		m.markClosing(trade, reason)
		return TickOutcome{Closed: true, ExitReason: reason}, true
	}

	moved := m.stepwiseTrail(trade, in)
	moved = m.capHandoff(trade, in) || moved
	moved = m.atrBreakeven(trade, in) || moved
	moved = m.atrTrail(trade, in) || moved

	if reason, closed := m.timeExit(trade, in); closed {
		m.markClosing(trade, reason)
		return TickOutcome{Closed: true, ExitReason: reason, SLMoved: moved}, true
	}

	if reason, closed := safetyExit(trade, in); closed {
		m.markClosing(trade, reason)
		return TickOutcome{Closed: true, ExitReason: reason, SLMoved: moved}, true
	}

	return TickOutcome{SLMoved: moved}, true
}

func (m *Manager) markClosing(trade *coretypes.ActiveTrade, reason coretypes.ExitReason) {
	trade.State = coretypes.TradeClosing
	m.log.Info("trade entering CLOSING", "trade_id", trade.TradeID, "reason", reason)
}

// RecordCloseFailure increments the close-retry counter and
// force-removes the trade after three consecutive failures
// (spec §4.6.3), returning true if the trade was force-removed.
func (m *Manager) RecordCloseFailure(tradeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade, ok := m.trades[tradeID]
	if !ok {
		return false
	}
	trade.CloseFailures++
	if trade.CloseFailures >= maxCloseFailures {
		delete(m.trades, tradeID)
		delete(m.locks, tradeID)
		m.log.Error("force-removing trade after repeated close failures", "trade_id", tradeID, "failures", trade.CloseFailures)
		return true
	}
	return false
}

// MarkClosed transitions a trade to CLOSED and removes it from the
// active set once the executor confirms the close.
func (m *Manager) MarkClosed(tradeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trades, tradeID)
	delete(m.locks, tradeID)
}

// hardExit implements §4.6.1 step 1.
func hardExit(trade *coretypes.ActiveTrade, price float64) (coretypes.ExitReason, bool) {
	if trade.Side == coretypes.Long {
		if price >= trade.ProfitTarget {
			return coretypes.ExitProfitTarget, true
		}
		if price <= trade.StopLoss {
			return coretypes.ExitStopLoss, true
		}
	} else {
		if price <= trade.ProfitTarget {
			return coretypes.ExitProfitTarget, true
		}
		if price >= trade.StopLoss {
			return coretypes.ExitStopLoss, true
		}
	}
	return "", false
}

// unrealizedPct returns the sign-adjusted favourable fraction (positive
// when in profit) and the position notional.
func unrealizedPct(trade *coretypes.ActiveTrade, price float64) float64 {
	raw := (price - trade.EntryPrice) / trade.EntryPrice
	if trade.Side == coretypes.Short {
		raw = -raw
	}
	return raw
}

func notional(trade *coretypes.ActiveTrade) float64 {
	return trade.Quantity * trade.EntryPrice
}

func unrealizedUSD(trade *coretypes.ActiveTrade, price float64) float64 {
	return unrealizedPct(trade, price) * trade.Leverage * notional(trade)
}

// priceForLockedUSD converts a locked USD amount to the SL price that
// realizes exactly that much unrealized profit if hit.
func priceForLockedUSD(trade *coretypes.ActiveTrade, lockedUSD float64) float64 {
	delta := lockedUSD / (trade.Quantity * trade.Leverage)
	if trade.Side == coretypes.Long {
		return trade.EntryPrice + delta
	}
	return trade.EntryPrice - delta
}

// moveSLIfFavourable updates trade.StopLoss only if candidate is more
// favourable than the current stop (spec invariant: SL is monotone
// per-trade).
func moveSLIfFavourable(trade *coretypes.ActiveTrade, candidate float64) bool {
	if trade.Side == coretypes.Long {
		if candidate > trade.StopLoss {
			trade.StopLoss = candidate
			return true
		}
		return false
	}
	if candidate < trade.StopLoss {
		trade.StopLoss = candidate
		return true
	}
	return false
}

// stepwiseTrail implements §4.6.1 step 2.
func (m *Manager) stepwiseTrail(trade *coretypes.ActiveTrade, in TickInput) bool {
	ts := &trade.Trailing
	uUSD := unrealizedUSD(trade, in.Price)
	if uUSD < ts.TrailStartNetUSD+ts.FeeBufferUSD {
		return false
	}

	var stepUSD float64
	if ts.StepModePercent {
		stepUSD = ts.StepIncrementPct * trade.Leverage * notional(trade)
	} else {
		stepUSD = ts.StepIncrementUSD
	}

	nextStep := math.Max(stepUSD, ts.LastStepUSD+stepUSD)
	targetLock := math.Min(ts.MaxTrailCapUSD, nextStep)
	armLevel := targetLock + ts.HysteresisPct*trade.EntryPrice*trade.Quantity*trade.Leverage

	if uUSD < armLevel {
		return false
	}
	cooldown := time.Duration(ts.StepCooldownSec) * time.Second
	if !ts.LastStepTime.IsZero() && in.Now.Sub(ts.LastStepTime) < cooldown {
		return false
	}

	ts.LockedProfitUSD = targetLock
	moved := moveSLIfFavourable(trade, priceForLockedUSD(trade, targetLock))
	ts.LastStepUSD = targetLock
	ts.LastStepTime = in.Now
	return moved
}

// capHandoff implements §4.6.1 step 3.
func (m *Manager) capHandoff(trade *coretypes.ActiveTrade, in TickInput) bool {
	ts := &trade.Trailing
	if ts.LockedProfitUSD < ts.MaxTrailCapUSD || !ts.CapHandoffTightATR {
		return false
	}
	tightGap := math.Max(in.AtrPct*ts.CapTrailMult, capHandoffFloor)
	var candidate float64
	if trade.Side == coretypes.Long {
		candidate = in.Price * (1 - tightGap)
	} else {
		candidate = in.Price * (1 + tightGap)
	}
	return moveSLIfFavourable(trade, candidate)
}

// atrBreakeven implements §4.6.1 step 4.
func (m *Manager) atrBreakeven(trade *coretypes.ActiveTrade, in TickInput) bool {
	mults := volatility.Multipliers(in.Regime)
	favourable := unrealizedPct(trade, in.Price)
	if favourable < in.AtrPct*mults.BE {
		return false
	}
	gap := math.Max(atrBreakevenFloor, in.AtrPct*atrBreakevenPct)
	var candidate float64
	if trade.Side == coretypes.Long {
		candidate = trade.EntryPrice * (1 + gap)
	} else {
		candidate = trade.EntryPrice * (1 - gap)
	}
	return moveSLIfFavourable(trade, candidate)
}

// atrTrail implements §4.6.1 step 5.
func (m *Manager) atrTrail(trade *coretypes.ActiveTrade, in TickInput) bool {
	mults := volatility.Multipliers(in.Regime)
	favourable := unrealizedPct(trade, in.Price)
	if favourable < in.AtrPct*(mults.BE+mults.Trail) {
		return false
	}
	gap := in.AtrPct * mults.Trail
	var candidate float64
	if trade.Side == coretypes.Long {
		candidate = in.Price * (1 - gap)
	} else {
		candidate = in.Price * (1 + gap)
	}
	return moveSLIfFavourable(trade, candidate)
}

func timeBudget(alignment Alignment) (maxHold, flatCut time.Duration) {
	switch alignment {
	case Aligned:
		return alignedMaxHoldMinutes * time.Minute, alignedFlatCutMinutes * time.Minute
	case CounterTrend:
		return counterMaxHoldMinutes * time.Minute, counterFlatCutMinutes * time.Minute
	default:
		return neutralMaxHoldMinutes * time.Minute, neutralFlatCutMinutes * time.Minute
	}
}

// timeExit implements §4.6.1 step 6.
func (m *Manager) timeExit(trade *coretypes.ActiveTrade, in TickInput) (coretypes.ExitReason, bool) {
	elapsed := in.Now.Sub(trade.EntryTime)
	maxHold, flatCut := timeBudget(in.Alignment)

	if elapsed > maxHold {
		return coretypes.ExitTimeMax, true
	}
	if elapsed > flatCut {
		edge := unrealizedPct(trade, in.Price)
		if edge <= math.Max(flatCutEdgeFloor, flatCutEdgeAtrFrac*in.AtrPct) {
			return coretypes.ExitTimeFlat, true
		}
	}
	return "", false
}

// safetyExit implements §4.6.1 step 7.
func safetyExit(trade *coretypes.ActiveTrade, in TickInput) (coretypes.ExitReason, bool) {
	if in.Now.Sub(trade.EntryTime) <= safetyHoldHours*time.Hour {
		return "", false
	}
	edge := unrealizedPct(trade, in.Price)
	if edge <= -safetyUnderwaterPct {
		return coretypes.ExitSafetyTime, true
	}
	return "", false
}
