package opportunity

import (
	"math"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/levels"
)

const (
	counterTrendMinStrength  = 88
	counterTrendMaxProxFrac  = 0.75
	trendWeaknessMinStrength = 85
	bounceHistoryWindow      = 10
	bounceHistoryMinRate     = 0.5
	closePctFloor            = 0.0020
	closePctFactor           = 0.8
	confirmCandleClosePctMin = 0.0012
)

// GateInput bundles everything the entry gate needs to evaluate one
// candidate side against a level, beyond the level and tolerance
// profile themselves.
type GateInput struct {
	Symbol        string
	Side          coretypes.Side
	Level         coretypes.PriceLevel
	CurrentPrice  float64
	Now           time.Time
	RecentCandles []coretypes.Candle // chronological, most-recent last; last entry may be open
	Tolerance     coretypes.ToleranceProfile
	Trend         TrendResult
}

// EvaluateGate runs the full §4.5.3 entry gate and returns nil when the
// candidate passes, or a *coretypes.GateRejection naming the first
// failing stage otherwise.
func EvaluateGate(in GateInput) *coretypes.GateRejection {
	if rej := checkRelevance(in); rej != nil {
		return rej
	}
	if rej := checkBounds(in); rej != nil {
		return rej
	}
	if rej := checkCounterTrendStrictness(in); rej != nil {
		return rej
	}
	if rej := checkTrendWeakness(in); rej != nil {
		return rej
	}
	if rej := checkBounceHistory(in); rej != nil {
		return rej
	}
	if rej := checkConfirmationCandle(in); rej != nil {
		return rej
	}
	return nil
}

func reject(symbol, stage, reason string) *coretypes.GateRejection {
	return &coretypes.GateRejection{Symbol: symbol, Stage: stage, Reason: reason}
}

func checkRelevance(in GateInput) *coretypes.GateRejection {
	if !levels.IsRelevant(in.Level, in.CurrentPrice, in.Now, in.RecentCandles, in.Tolerance.ValidationPct) {
		return reject(in.Symbol, "relevance", "level failed relevance check")
	}
	return nil
}

func checkBounds(in GateInput) *coretypes.GateRejection {
	price := in.CurrentPrice
	level := in.Level.Price
	entryPct := in.Tolerance.EntryPct

	var ok bool
	if in.Level.Kind == coretypes.Support {
		ok = price >= level && price <= level*(1+entryPct)
	} else {
		ok = price <= level && price >= level*(1-entryPct)
	}
	if !ok {
		return reject(in.Symbol, "bounds", "price outside entry band")
	}
	return nil
}

func checkCounterTrendStrictness(in GateInput) *coretypes.GateRejection {
	if !IsCounterTrend(in.Side, in.Trend) {
		return nil
	}
	distance := math.Abs(in.CurrentPrice-in.Level.Price) / in.Level.Price
	maxDistance := counterTrendMaxProxFrac * in.Tolerance.ProximityPct
	if in.Level.Strength < counterTrendMinStrength || distance > maxDistance {
		return reject(in.Symbol, "counter_trend", "counter-trend trade lacks required level strength/proximity")
	}
	return nil
}

func checkTrendWeakness(in GateInput) *coretypes.GateRejection {
	strongDowntrendLong := in.Side == coretypes.Long && in.Trend.Direction == TrendStrongDown
	strongUptrendShort := in.Side == coretypes.Short && in.Trend.Direction == TrendStrongUp
	if !strongDowntrendLong && !strongUptrendShort {
		return nil
	}
	if in.Level.Strength < trendWeaknessMinStrength {
		return reject(in.Symbol, "trend_weakness", "level too weak against a strong opposing trend")
	}
	return nil
}

func checkBounceHistory(in GateInput) *coretypes.GateRejection {
	window := in.RecentCandles
	if len(window) > bounceHistoryWindow {
		window = window[len(window)-bounceHistoryWindow:]
	}

	tolerance := in.Level.Price * in.Tolerance.ValidationPct
	closePct := math.Max(closePctFloor, closePctFactor*in.Tolerance.ValidationPct)

	touches, confirms := 0, 0
	for _, c := range window {
		switch in.Level.Kind {
		case coretypes.Support:
			if c.Low <= in.Level.Price+tolerance && c.Low >= in.Level.Price-tolerance {
				touches++
				if c.Close >= in.Level.Price*(1+closePct) {
					confirms++
				}
			}
		case coretypes.Resistance:
			if c.High >= in.Level.Price-tolerance && c.High <= in.Level.Price+tolerance {
				touches++
				if c.Close <= in.Level.Price*(1-closePct) {
					confirms++
				}
			}
		}
	}

	if touches == 0 {
		return nil
	}
	if float64(confirms)/float64(touches) < bounceHistoryMinRate {
		return reject(in.Symbol, "bounce_history", "recent touches did not confirm bounce/rejection")
	}
	return nil
}

// regimeClosePctFloor returns the regime-stepped close_pct floor used
// by the confirmation-candle check (spec §4.5.3: CALM 0.0012 ... HIGH
// 0.0030).
func regimeClosePctFloor(regime coretypes.Regime) float64 {
	switch regime {
	case coretypes.RegimeCalm:
		return 0.0012
	case coretypes.RegimeNormal:
		return 0.0018
	case coretypes.RegimeElevated:
		return 0.0024
	default: // HIGH
		return 0.0030
	}
}

func checkConfirmationCandle(in GateInput) *coretypes.GateRejection {
	if len(in.RecentCandles) == 0 {
		return reject(in.Symbol, "confirmation_candle", "no closed candle available")
	}
	last := in.RecentCandles[len(in.RecentCandles)-1]

	closePct := math.Max(regimeClosePctFloor(in.Tolerance.Regime), confirmCandleClosePctMin)
	entryPct := in.Tolerance.EntryPct

	var ok bool
	switch in.Level.Kind {
	case coretypes.Support: // LONG
		wickTouched := last.Low <= in.Level.Price*(1+entryPct)
		ok = wickTouched && last.Close >= in.Level.Price*(1+closePct) && last.Close > last.Open
	case coretypes.Resistance: // SHORT
		wickTouched := last.High >= in.Level.Price*(1-entryPct)
		ok = wickTouched && last.Close <= in.Level.Price*(1-closePct) && last.Close < last.Open
	}
	if !ok {
		return reject(in.Symbol, "confirmation_candle", "closing candle did not confirm the level")
	}
	return nil
}
