package opportunity

import (
	"math"
	"sort"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

const (
	statMinProfitProbability = 0.75
	statMinRiskReward         = 1.5
	statMaxTradeDurationMin   = 60
	statBounceLookback        = 10
	statMinBounceSamples      = 3
	statBounceThresholdPct    = 0.005
)

// bounceSample is one historical touch-then-bounce observation used by
// the statistical target calculator.
type bounceSample struct {
	pct      float64
	duration time.Duration
	volume   float64
}

// bounceAnalysis summarizes historical bounce behavior at a level,
// grounded on the original implementation's bounce-statistics block.
type bounceAnalysis struct {
	sampleSize    int
	successRate   float64
	avgPct        float64
	avgDuration   time.Duration
	medianDuration time.Duration
	avgVolume     float64
	samples       []bounceSample
}

// StatisticalCalculator derives profit targets, stop losses and
// confidence from a symbol's own historical bounce behavior at a
// level, instead of the fixed rule-based or ATR-scaled percentages
// used by the other two calculators (spec §9, TargetsStatistical).
type StatisticalCalculator struct {
	log *logging.Logger
}

// NewStatisticalCalculator builds a StatisticalCalculator.
func NewStatisticalCalculator(log *logging.Logger) *StatisticalCalculator {
	return &StatisticalCalculator{log: log.WithComponent("opportunity.statistics")}
}

// CalculateTargets computes statistically-grounded targets for level
// using candleHistory (chronological), adaptiveTolerance (normally
// ToleranceProfile.ValidationPct) and an optional matched magnet. It
// returns false when there isn't enough bounce history, or the
// resulting targets fail the minimum profit-probability/risk-reward/
// duration bar.
func (c *StatisticalCalculator) CalculateTargets(
	level coretypes.PriceLevel,
	candleHistory []coretypes.Candle,
	adaptiveTolerance float64,
	magnet *coretypes.MagnetLevel,
) (coretypes.TradingTargets, bool) {
	analysis, ok := c.analyzeBounces(level, candleHistory, adaptiveTolerance)
	if !ok {
		c.log.Warn("insufficient bounce data for statistical targets", "level", level.Price)
		return coretypes.TradingTargets{}, false
	}

	profitTarget := profitTargetFromFixedPct(level)
	stopLoss := stopLossFromStrength(level, analysis)

	targetPct := math.Abs(profitTarget-level.Price) / level.Price
	profitProbability := profitProbabilityFromSamples(analysis, targetPct)
	riskReward := math.Abs(profitTarget-level.Price) / math.Max(math.Abs(level.Price-stopLoss), 1e-9)
	duration := estimateDurationMinutes(analysis)
	confidence := confidenceScore(level, analysis, profitProbability, riskReward, magnet)

	if profitProbability < statMinProfitProbability || riskReward < statMinRiskReward || duration > statMaxTradeDurationMin {
		return coretypes.TradingTargets{}, false
	}

	return coretypes.TradingTargets{
		EntryPrice:              level.Price,
		ProfitTarget:            profitTarget,
		StopLoss:                stopLoss,
		ProfitProbability:       profitProbability,
		RiskRewardRatio:         riskReward,
		ExpectedDurationMinutes: duration,
		Confidence:              float64(confidence),
	}, true
}

func (c *StatisticalCalculator) analyzeBounces(level coretypes.PriceLevel, candles []coretypes.Candle, adaptiveTolerance float64) (bounceAnalysis, bool) {
	if adaptiveTolerance <= 0 {
		adaptiveTolerance = 0.003
	}
	tolerance := level.Price * adaptiveTolerance

	var samples []bounceSample
	failed := 0

	for i := 0; i < len(candles)-statBounceLookback; i++ {
		row := candles[i]

		touched := false
		switch level.Kind {
		case coretypes.Support:
			touched = row.Low <= level.Price+tolerance && row.Low >= level.Price-tolerance
		case coretypes.Resistance:
			touched = row.High >= level.Price-tolerance && row.High <= level.Price+tolerance
		}
		if !touched {
			continue
		}

		future := candles[i+1 : i+1+statBounceLookback]

		var pct float64
		var durationBars int
		switch level.Kind {
		case coretypes.Support:
			maxHigh, idx := maxHighIn(future)
			pct = (maxHigh - row.Low) / level.Price
			durationBars = idx + 1
		case coretypes.Resistance:
			minLow, idx := minLowIn(future)
			pct = (row.High - minLow) / level.Price
			durationBars = idx + 1
		}

		if pct >= statBounceThresholdPct {
			samples = append(samples, bounceSample{
				pct:      pct,
				duration: time.Duration(durationBars) * time.Hour,
				volume:   row.Volume,
			})
		} else {
			failed++
		}
	}

	if len(samples) < statMinBounceSamples {
		return bounceAnalysis{}, false
	}

	successRate := float64(len(samples)) / float64(len(samples)+failed)

	pctSum, volSum := 0.0, 0.0
	durations := make([]time.Duration, 0, len(samples))
	for _, s := range samples {
		pctSum += s.pct
		volSum += s.volume
		durations = append(durations, s.duration)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	return bounceAnalysis{
		sampleSize:     len(samples),
		successRate:    successRate,
		avgPct:         pctSum / float64(len(samples)),
		avgDuration:    sumDurations(durations) / time.Duration(len(durations)),
		medianDuration: durations[len(durations)/2],
		avgVolume:      volSum / float64(len(samples)),
		samples:        samples,
	}, true
}

func maxHighIn(candles []coretypes.Candle) (high float64, idx int) {
	high = candles[0].High
	for i, c := range candles {
		if c.High > high {
			high = c.High
			idx = i
		}
	}
	return high, idx
}

func minLowIn(candles []coretypes.Candle) (low float64, idx int) {
	low = candles[0].Low
	for i, c := range candles {
		if c.Low < low {
			low = c.Low
			idx = i
		}
	}
	return low, idx
}

func sumDurations(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}

// profitTargetFromFixedPct mirrors the original's fixed $10-profit
// (0.5%) target: the statistical calculator varies the stop and
// confidence, not the profit distance.
func profitTargetFromFixedPct(level coretypes.PriceLevel) float64 {
	const fixedTPPct = 0.005
	if level.Kind == coretypes.Support {
		return level.Price * (1 + fixedTPPct)
	}
	return level.Price * (1 - fixedTPPct)
}

func stopLossFromStrength(level coretypes.PriceLevel, analysis bounceAnalysis) float64 {
	const baseStopPct = 0.003
	strengthFactor := float64(100-level.Strength) / 100
	adjusted := baseStopPct * (1 + strengthFactor)

	successFactor := (1 - analysis.successRate) * 0.5
	final := adjusted * (1 + successFactor)
	final = math.Max(math.Min(final, 0.01), 0.002)

	if level.Kind == coretypes.Support {
		return level.Price * (1 - final)
	}
	return level.Price * (1 + final)
}

func profitProbabilityFromSamples(analysis bounceAnalysis, targetPct float64) float64 {
	successful := 0
	for _, s := range analysis.samples {
		if s.pct >= targetPct {
			successful++
		}
	}
	probability := float64(successful) / float64(len(analysis.samples))

	if analysis.sampleSize < 10 {
		penalty := float64(10-analysis.sampleSize) * 0.05
		probability = math.Max(0, probability-penalty)
	}
	return math.Min(probability, 0.95)
}

func estimateDurationMinutes(analysis bounceAnalysis) int {
	minutes := int(analysis.medianDuration.Minutes())
	if minutes > statMaxTradeDurationMin {
		return statMaxTradeDurationMin
	}
	return minutes
}

func confidenceScore(level coretypes.PriceLevel, analysis bounceAnalysis, profitProbability, riskReward float64, magnet *coretypes.MagnetLevel) int {
	baseScore := float64(level.Strength) * 0.3
	sampleScore := math.Min(float64(analysis.sampleSize)*2, 20)
	successScore := analysis.successRate * 25
	probabilityScore := profitProbability * 20
	rrScore := math.Min(riskReward*5, 15)

	magnetBonus := 0.0
	if magnet != nil && magnet.Strength >= 60 {
		magnetBonus = 10
	}

	total := baseScore + sampleScore + successScore + probabilityScore + rrScore + magnetBonus
	if total > 100 {
		total = 100
	}
	return int(total)
}

// GetOptimalPositionSize sizes a position from risk-per-unit and the
// target's confidence, capped by max_risk_per_trade of accountBalance
// (supplemented from get_optimal_position_size in the original).
func GetOptimalPositionSize(targets coretypes.TradingTargets, accountBalance, maxRiskPerTrade float64) float64 {
	riskPerUnit := math.Abs(targets.EntryPrice - targets.StopLoss)
	if riskPerUnit <= 0 {
		return 0
	}
	maxRiskAmount := accountBalance * maxRiskPerTrade
	maxPositionSize := maxRiskAmount / riskPerUnit

	confidenceFactor := targets.Confidence / 100
	return maxPositionSize * confidenceFactor
}
