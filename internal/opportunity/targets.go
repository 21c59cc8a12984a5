// Package opportunity builds per-symbol trading opportunities, scores
// them and validates candidates against the multi-stage entry gate
// (spec §4.5).
package opportunity

import (
	"math"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/volatility"
)

// ExecutionConfig carries the fixed-size/fee assumptions the rule-
// based and ATR-aware calculators use to turn net-USD anchors into
// percent targets (spec §4.5.1, §6).
type ExecutionConfig struct {
	PositionSizeUSD float64
	Leverage        float64
	FeeRate         float64
}

// DefaultExecutionConfig matches spec §6 defaults.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{PositionSizeUSD: 500, Leverage: 10, FeeRate: 0.0004}
}

// netAnchors are the fixed net-USD targets for the rule-based and
// ATR-aware calculators (spec §4.5.1).
const (
	netTPUSD    = 17.60
	netSLUSD    = 17.60
	netFloorUSD = 14.60
)

func grossUSD(net float64, cfg ExecutionConfig) float64 {
	return net + 2*cfg.PositionSizeUSD*cfg.FeeRate
}

// CalculateRuleBasedTargets is the default, stable target calculator
// (spec §4.5.1).
func CalculateRuleBasedTargets(level coretypes.PriceLevel, cfg ExecutionConfig) coretypes.TradingTargets {
	notional := cfg.PositionSizeUSD * cfg.Leverage

	grossTP := grossUSD(netTPUSD, cfg)
	grossSL := grossUSD(netSLUSD, cfg)
	grossFloor := grossUSD(netFloorUSD, cfg)

	pctTP := grossTP / notional
	pctSL := grossSL / notional
	pctFloor := grossFloor / notional

	var tp, sl float64
	if level.Kind == coretypes.Support { // LONG
		tp = level.Price * (1 + pctTP)
		sl = level.Price * (1 - pctSL)
	} else { // SHORT
		tp = level.Price * (1 - pctTP)
		sl = level.Price * (1 + pctSL)
	}
	_ = pctFloor // floor activation price is carried as FloorNetUSD, not as a precomputed price

	return coretypes.TradingTargets{
		EntryPrice:              level.Price,
		ProfitTarget:            tp,
		StopLoss:                sl,
		ProfitProbability:       0.75,
		RiskRewardRatio:         1.0,
		ExpectedDurationMinutes: 30,
		Confidence:              80,
		TPNetUSD:                netTPUSD,
		SLNetUSD:                netSLUSD,
		FloorNetUSD:             netFloorUSD,
	}
}

// CalculateATRAwareTargets derives percent targets from volatility
// instead of a flat rule, while keeping the same net-USD floors (spec
// §4.5.1).
func CalculateATRAwareTargets(level coretypes.PriceLevel, atrPct float64, regime coretypes.Regime, cfg ExecutionConfig) coretypes.TradingTargets {
	notional := cfg.PositionSizeUSD * cfg.Leverage
	mults := volatility.Multipliers(regime)

	minTPPct := grossUSD(netTPUSD, cfg) / notional
	minSLPct := grossUSD(netSLUSD, cfg) / notional
	minFloorPct := grossUSD(netFloorUSD, cfg) / notional

	tpPct := math.Max(minTPPct, atrPct*mults.TP)
	slPct := math.Max(minSLPct, atrPct*mults.SL)
	_ = minFloorPct

	var tp, sl float64
	if level.Kind == coretypes.Support { // LONG
		tp = level.Price * (1 + tpPct)
		sl = level.Price * (1 - slPct)
	} else { // SHORT
		tp = level.Price * (1 - tpPct)
		sl = level.Price * (1 + slPct)
	}

	confidence := math.Min(95, 0.6*float64(level.Strength)+(1-math.Abs(tpPct-slPct))*40)
	if confidence < 0 {
		confidence = 0
	}

	return coretypes.TradingTargets{
		EntryPrice:              level.Price,
		ProfitTarget:            tp,
		StopLoss:                sl,
		ProfitProbability:       0.75,
		RiskRewardRatio:         tpPct / math.Max(slPct, 1e-9),
		ExpectedDurationMinutes: 30,
		Confidence:              confidence,
		TPNetUSD:                netTPUSD,
		SLNetUSD:                netSLUSD,
		FloorNetUSD:             netFloorUSD,
	}
}
