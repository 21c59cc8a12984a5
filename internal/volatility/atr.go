// Package volatility computes ATR-based volatility regimes and derives
// the single-source-of-truth ToleranceProfile every other component
// reads from (spec §4.2).
package volatility

import (
	"context"
	"math"
	"sync"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

const (
	// ATRPeriod is the number of candles over which True Range is
	// averaged.
	ATRPeriod = 14
	// ATRInterval is the kline interval ATR is computed on.
	ATRInterval = "1h"
	// cacheTTL is how long a symbol's ATR% is cached before refresh.
	cacheTTL = 30 * time.Minute
	// fallbackAtrPct is used when ATR cannot be computed (spec §4.2).
	fallbackAtrPct = 0.02
)

// RegimeMultipliers holds the (tp, sl, trail, be) multiplier tuple for
// a volatility regime.
type RegimeMultipliers struct {
	TP    float64
	SL    float64
	Trail float64
	BE    float64
}

var regimeTable = map[coretypes.Regime]RegimeMultipliers{
	coretypes.RegimeCalm:     {TP: 0.8, SL: 0.7, Trail: 0.5, BE: 0.6},
	coretypes.RegimeNormal:   {TP: 1.1, SL: 0.9, Trail: 0.7, BE: 0.8},
	coretypes.RegimeElevated: {TP: 1.3, SL: 1.0, Trail: 0.9, BE: 1.0},
	coretypes.RegimeHigh:     {TP: 1.6, SL: 1.1, Trail: 1.2, BE: 1.1},
}

// Classify maps an ATR% to its volatility regime (spec §4.2).
func Classify(atrPct float64) coretypes.Regime {
	switch {
	case atrPct < 0.015:
		return coretypes.RegimeCalm
	case atrPct < 0.035:
		return coretypes.RegimeNormal
	case atrPct < 0.055:
		return coretypes.RegimeElevated
	default:
		return coretypes.RegimeHigh
	}
}

// Multipliers returns the TP/SL/trail/BE multiplier tuple for a regime.
func Multipliers(regime coretypes.Regime) RegimeMultipliers {
	if m, ok := regimeTable[regime]; ok {
		return m
	}
	return regimeTable[coretypes.RegimeNormal]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// closeBufferFloor returns the regime-specific floor used in deriving
// CloseBufferPct (spec §4.2).
func closeBufferFloor(regime coretypes.Regime) (floor, weight float64) {
	switch regime {
	case coretypes.RegimeCalm:
		return 0.0015, 0.75
	case coretypes.RegimeNormal:
		return 0.0020, 0.85
	case coretypes.RegimeElevated:
		return 0.0025, 0.95
	default: // HIGH
		return 0.0035, 1.00
	}
}

// BuildToleranceProfile derives every tolerance deterministically from
// atrPct (spec §4.2). It never mutates global state; callers are
// responsible for caching the result if desired.
func BuildToleranceProfile(symbol string, atrPct float64, builtAt time.Time) coretypes.ToleranceProfile {
	regime := Classify(atrPct)

	clustering := clamp(atrPct*0.20, 0.0010, 0.0050)
	validation := clamp(atrPct*0.40, 0.0030, 0.0120)
	entry := clamp(atrPct*0.25, 0.0020, 0.0080)
	proximity := clamp(atrPct*0.50, 0.0050, 0.0200)

	floor, weight := closeBufferFloor(regime)
	base := validation * 0.8
	closeBuffer := math.Max(floor, weight*base)

	return coretypes.ToleranceProfile{
		Symbol:         symbol,
		AtrPct:         atrPct,
		Regime:         regime,
		ClusteringPct:  clustering,
		ValidationPct:  validation,
		EntryPct:       entry,
		ProximityPct:   proximity,
		CloseBufferPct: closeBuffer,
		BuiltAt:        builtAt,
	}
}

// trueRange computes the standard True Range for one candle given the
// previous candle's close.
func trueRange(c coretypes.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// computeATRPct computes ATR(period)/lastClose over the given
// chronologically-ordered candles. Returns false if there are not
// enough candles.
func computeATRPct(candles []coretypes.Candle, period int) (float64, bool) {
	if len(candles) < period+1 {
		return 0, false
	}
	sum := 0.0
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1].Close)
	}
	atr := sum / float64(period)
	lastClose := candles[len(candles)-1].Close
	if lastClose <= 0 {
		return 0, false
	}
	return atr / lastClose, true
}

type cacheEntry struct {
	atrPct    float64
	expiresAt time.Time
}

// Model computes and caches ATR% per symbol and derives tolerance
// profiles from it. Safe for concurrent use; cache writes are atomic
// map-entry swaps (spec §5).
type Model struct {
	md     coretypes.MarketData
	log    *logging.Logger
	mu     sync.RWMutex
	cache  map[string]cacheEntry
	clock  func() time.Time
}

// NewModel builds a Model backed by the given market data adapter.
func NewModel(md coretypes.MarketData, log *logging.Logger) *Model {
	return &Model{
		md:    md,
		log:   log.WithComponent("volatility"),
		cache: make(map[string]cacheEntry),
		clock: time.Now,
	}
}

// AtrPct returns the cached or freshly computed ATR% for symbol. On
// insufficient history it logs a warning and returns the documented
// fallback (spec §4.2).
func (m *Model) AtrPct(ctx context.Context, symbol string) float64 {
	now := m.clock()

	m.mu.RLock()
	entry, ok := m.cache[symbol]
	m.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.atrPct
	}

	candles, err := m.md.Klines(ctx, symbol, ATRInterval, ATRPeriod+1)
	if err != nil {
		m.log.Warn("ATR fallback: klines unavailable, using NORMAL default", "symbol", symbol, "error", err)
		return fallbackAtrPct
	}

	atrPct, ok := computeATRPct(candles, ATRPeriod)
	if !ok {
		m.log.Warn("ATR fallback: insufficient history, using NORMAL default", "symbol", symbol)
		return fallbackAtrPct
	}

	m.mu.Lock()
	m.cache[symbol] = cacheEntry{atrPct: atrPct, expiresAt: now.Add(cacheTTL)}
	m.mu.Unlock()

	return atrPct
}

// ToleranceProfile returns the tolerance profile for symbol, built
// from the current (possibly cached) ATR%.
func (m *Model) ToleranceProfile(ctx context.Context, symbol string) coretypes.ToleranceProfile {
	atrPct := m.AtrPct(ctx, symbol)
	return BuildToleranceProfile(symbol, atrPct, m.clock())
}

// RegimeMultipliers returns the TP/SL/trail/BE multiplier tuple for
// the symbol's current regime.
func (m *Model) RegimeMultipliers(ctx context.Context, symbol string) RegimeMultipliers {
	atrPct := m.AtrPct(ctx, symbol)
	return Multipliers(Classify(atrPct))
}
