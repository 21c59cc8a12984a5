// Package levels implements pivot detection, density clustering of
// pivots into price levels, historical bounce analysis and strength
// scoring (spec §4.3).
package levels

import (
	"context"
	"math"
	"sort"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

const (
	// PivotWindow is the symmetric lookback/forward window for pivot
	// detection.
	PivotWindow = 5
	// MinCandles is the minimum history required to run analysis.
	MinCandles = 100
	// MinClusterSamples is DBSCAN's min_samples for pivot clustering.
	MinClusterSamples = 2
	// MinTouches drops clusters with fewer members than this.
	MinTouches = 3
	// BounceWindow is how many future candles are inspected to decide
	// whether a touch became a bounce.
	BounceWindow = 10
	// BounceThresholdPct is the move required, relative to the level
	// price, to count a touch as a bounce.
	BounceThresholdPct = 0.005

	validationMaxDistancePct = 0.10
	validationMaxAgeDays     = 14
	validationMinBounceRate  = 0.30

	relevanceMaxAgeDays       = 30
	relevanceMaxDistancePct   = 0.15
	relevanceMinRelativeVol   = 0.8
	relevanceRecentCandles    = 20
)

// Analyzer discovers PriceLevels from historical OHLCV data.
type Analyzer struct {
	md  coretypes.MarketData
	log *logging.Logger
}

// NewAnalyzer builds an Analyzer backed by the given market data
// adapter.
func NewAnalyzer(md coretypes.MarketData, log *logging.Logger) *Analyzer {
	return &Analyzer{md: md, log: log.WithComponent("levels")}
}

// toleranceSource is the minimal slice of ToleranceProfile the
// analyzer depends on, so callers can pass either the full profile or
// a hand-built one in tests.
type toleranceSource interface {
	Clustering() float64
	Validation() float64
}

// Tolerances adapts a coretypes.ToleranceProfile to toleranceSource.
type Tolerances struct {
	ClusteringPct float64
	ValidationPct float64
}

func (t Tolerances) Clustering() float64 { return t.ClusteringPct }
func (t Tolerances) Validation() float64 { return t.ValidationPct }

func fromProfile(p coretypes.ToleranceProfile) Tolerances {
	return Tolerances{ClusteringPct: p.ClusteringPct, ValidationPct: p.ValidationPct}
}

// AnalyzeSymbol fetches the default 30-day 1h backfill and returns the
// validated, strong PriceLevels for symbol. Returns an empty slice
// (not an error) when fewer than MinCandles are available, per spec.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, symbol string, tol coretypes.ToleranceProfile) ([]coretypes.PriceLevel, error) {
	candles, err := a.md.Klines(ctx, symbol, "1h", 30*24)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeCandles(candles, fromProfile(tol)), nil
}

// AnalyzeCandles runs the full pivot->cluster->bounce->strength->
// validate pipeline over an already-fetched candle sequence. Exported
// separately from AnalyzeSymbol so tests can drive it with literal
// candle fixtures.
func (a *Analyzer) AnalyzeCandles(candles []coretypes.Candle, tol toleranceSource) []coretypes.PriceLevel {
	if len(candles) < MinCandles {
		a.log.Warn("insufficient candle history for level analysis", "count", len(candles))
		return nil
	}

	pivotHighs, pivotLows := findPivots(candles)

	supports := a.clusterAndScore(pivotLows, candles, coretypes.Support, tol)
	resistances := a.clusterAndScore(pivotHighs, candles, coretypes.Resistance, tol)

	all := append(supports, resistances...)
	return validate(all, candles)
}

// pivot is a price observed at a specific candle index (spec §9:
// candle indices are contiguous slice positions, so bounce durations
// never drift).
type pivot struct {
	index int
	price float64
}

// findPivots finds local maxima of high and local minima of low with a
// symmetric window of PivotWindow candles (spec §4.3).
func findPivots(candles []coretypes.Candle) (highs, lows []pivot) {
	n := len(candles)
	for i := PivotWindow; i < n-PivotWindow; i++ {
		h := candles[i].High
		isHighPivot := true
		l := candles[i].Low
		isLowPivot := true
		for w := 1; w <= PivotWindow; w++ {
			if candles[i-w].High >= h || candles[i+w].High >= h {
				isHighPivot = false
			}
			if candles[i-w].Low <= l || candles[i+w].Low <= l {
				isLowPivot = false
			}
			if !isHighPivot && !isLowPivot {
				break
			}
		}
		if isHighPivot {
			highs = append(highs, pivot{index: i, price: h})
		}
		if isLowPivot {
			lows = append(lows, pivot{index: i, price: l})
		}
	}
	return highs, lows
}

// clusterAndScore clusters pivot prices with a density method (eps =
// mean(prices)*clustering_pct, min_samples=2), drops small clusters,
// runs bounce analysis on each cluster mean and scores strength.
func (a *Analyzer) clusterAndScore(pivots []pivot, candles []coretypes.Candle, kind coretypes.LevelKind, tol toleranceSource) []coretypes.PriceLevel {
	if len(pivots) < MinClusterSamples {
		return nil
	}

	clusters := densityCluster(pivots, tol.Clustering())

	var levels []coretypes.PriceLevel
	for _, cluster := range clusters {
		if len(cluster) < MinTouches {
			continue
		}
		levelPrice := meanPivotPrice(cluster)
		stats := analyzeBounces(levelPrice, candles, kind, tol.Validation())

		strength := strengthScore(len(cluster), stats.bounceCount, stats.avgBouncePct)

		levels = append(levels, coretypes.PriceLevel{
			Price:             levelPrice,
			Kind:              kind,
			Strength:          strength,
			TouchCount:        len(cluster),
			BounceCount:       stats.bounceCount,
			AvgBouncePct:      stats.avgBouncePct,
			MaxBouncePct:      stats.maxBouncePct,
			LastTestedAt:      stats.lastTested,
			FirstIdentifiedAt: stats.firstIdentified,
			AvgVolumeAtLevel:  stats.relativeVolume,
		})
	}
	return levels
}

// densityCluster is a 1-D analogue of DBSCAN(eps, min_samples=2) over
// sorted pivot prices: it greedily groups consecutive pivots whose gap
// is <= eps. This is exact for 1-D data since DBSCAN's reachability
// graph on a sorted line reduces to consecutive-gap chaining.
func densityCluster(pivots []pivot, eps float64) [][]pivot {
	if eps <= 0 || len(pivots) == 0 {
		return nil
	}
	sorted := make([]pivot, len(pivots))
	copy(sorted, pivots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].price < sorted[j].price })

	var clusters [][]pivot
	current := []pivot{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].price-sorted[i-1].price <= eps {
			current = append(current, sorted[i])
		} else {
			clusters = append(clusters, current)
			current = []pivot{sorted[i]}
		}
	}
	clusters = append(clusters, current)
	return clusters
}

func meanPivotPrice(cluster []pivot) float64 {
	sum := 0.0
	for _, p := range cluster {
		sum += p.price
	}
	return sum / float64(len(cluster))
}

type bounceStats struct {
	bounceCount     int
	avgBouncePct    float64
	maxBouncePct    float64
	relativeVolume  float64
	lastTested      time.Time
	firstIdentified time.Time
}

// analyzeBounces scans candles for touches of levelPrice and checks
// whether the following BounceWindow candles confirm a bounce (spec
// §4.3).
func analyzeBounces(levelPrice float64, candles []coretypes.Candle, kind coretypes.LevelKind, validationPct float64) bounceStats {
	tolerance := levelPrice * validationPct

	var bounces []float64
	var touchIdx []int
	var touchVolumes []float64

	for i, c := range candles {
		touched := false
		switch kind {
		case coretypes.Support:
			touched = c.Low <= levelPrice+tolerance && c.Low >= levelPrice-tolerance
		case coretypes.Resistance:
			touched = c.High >= levelPrice-tolerance && c.High <= levelPrice+tolerance
		}
		if !touched {
			continue
		}
		touchIdx = append(touchIdx, i)
		touchVolumes = append(touchVolumes, c.Volume)

		end := i + BounceWindow
		if end >= len(candles) {
			end = len(candles) - 1
		}
		if end <= i {
			continue
		}
		switch kind {
		case coretypes.Support:
			maxHigh := 0.0
			found := false
			for j := i + 1; j <= end; j++ {
				if candles[j].High > levelPrice*(1+BounceThresholdPct) {
					found = true
				}
				if candles[j].High > maxHigh {
					maxHigh = candles[j].High
				}
			}
			if found {
				bounces = append(bounces, (maxHigh-c.Low)/levelPrice)
			}
		case coretypes.Resistance:
			minLow := math.MaxFloat64
			found := false
			for j := i + 1; j <= end; j++ {
				if candles[j].Low < levelPrice*(1-BounceThresholdPct) {
					found = true
				}
				if candles[j].Low < minLow {
					minLow = candles[j].Low
				}
			}
			if found {
				bounces = append(bounces, (c.High-minLow)/levelPrice)
			}
		}
	}

	stats := bounceStats{bounceCount: len(bounces)}
	if len(bounces) > 0 {
		sum := 0.0
		max := bounces[0]
		for _, b := range bounces {
			sum += b
			if b > max {
				max = b
			}
		}
		stats.avgBouncePct = sum / float64(len(bounces))
		stats.maxBouncePct = max
	}

	if len(touchVolumes) > 0 {
		touchSum := 0.0
		for _, v := range touchVolumes {
			touchSum += v
		}
		touchAvg := touchSum / float64(len(touchVolumes))

		overallSum := 0.0
		for _, c := range candles {
			overallSum += c.Volume
		}
		overallAvg := overallSum / float64(len(candles))
		if overallAvg > 0 {
			stats.relativeVolume = touchAvg / overallAvg
		}

		stats.firstIdentified = candles[touchIdx[0]].Timestamp
		stats.lastTested = candles[touchIdx[len(touchIdx)-1]].Timestamp
	} else {
		stats.firstIdentified = candles[len(candles)-1].Timestamp
		stats.lastTested = candles[len(candles)-1].Timestamp
	}

	return stats
}

// strengthScore combines touch count, bounce reliability and bounce
// strength into a 0-100 score (spec §4.3).
func strengthScore(touchCount, bounceCount int, avgBouncePct float64) int {
	touchScore := math.Min(float64(touchCount)*8, 40)

	denom := touchCount
	if denom < 1 {
		denom = 1
	}
	bounceReliability := (float64(bounceCount) / float64(denom)) * 30

	bounceStrength := math.Min(avgBouncePct*1000, 30)

	total := touchScore + bounceReliability + bounceStrength
	return int(clampFloat(total, 0, 100))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// validate keeps only levels within 10% of current price, tested
// within the last 14 days, with a bounce rate >= 30% (spec §4.3).
func validate(levelsIn []coretypes.PriceLevel, candles []coretypes.Candle) []coretypes.PriceLevel {
	if len(levelsIn) == 0 {
		return nil
	}
	currentPrice := candles[len(candles)-1].Close
	now := candles[len(candles)-1].Timestamp

	var out []coretypes.PriceLevel
	for _, lvl := range levelsIn {
		distance := math.Abs(lvl.Price-currentPrice) / currentPrice
		if distance > validationMaxDistancePct {
			continue
		}
		age := now.Sub(lvl.LastTestedAt)
		if age > validationMaxAgeDays*24*time.Hour {
			continue
		}
		denom := lvl.TouchCount
		if denom < 1 {
			denom = 1
		}
		bounceRate := float64(lvl.BounceCount) / float64(denom)
		if bounceRate < validationMinBounceRate {
			continue
		}
		out = append(out, lvl)
	}
	return out
}

// IsRelevant implements the §4.3 relevance check used by the entry
// gate: last tested within 30 days, within 15% of current price,
// AvgVolumeAtLevel >= 0.8, and at least one touch in the most recent
// 20 candles (touch tolerance = validation_pct).
func IsRelevant(level coretypes.PriceLevel, currentPrice float64, now time.Time, recentCandles []coretypes.Candle, validationPct float64) bool {
	if now.Sub(level.LastTestedAt) > relevanceMaxAgeDays*24*time.Hour {
		return false
	}
	if currentPrice <= 0 {
		return false
	}
	if math.Abs(level.Price-currentPrice)/currentPrice > relevanceMaxDistancePct {
		return false
	}
	if level.AvgVolumeAtLevel < relevanceMinRelativeVol {
		return false
	}

	tolerance := level.Price * validationPct
	window := recentCandles
	if len(window) > relevanceRecentCandles {
		window = window[len(window)-relevanceRecentCandles:]
	}
	for _, c := range window {
		switch level.Kind {
		case coretypes.Support:
			if c.Low <= level.Price+tolerance && c.Low >= level.Price-tolerance {
				return true
			}
		case coretypes.Resistance:
			if c.High >= level.Price-tolerance && c.High <= level.Price+tolerance {
				return true
			}
		}
	}
	return false
}

// LevelsNearPrice returns levels within maxDistance of currentPrice,
// sorted by distance ascending (supplemented from
// get_levels_near_price in the original Python implementation).
func LevelsNearPrice(levels []coretypes.PriceLevel, currentPrice, maxDistance float64) []coretypes.PriceLevel {
	var out []coretypes.PriceLevel
	for _, l := range levels {
		if currentPrice <= 0 {
			continue
		}
		if math.Abs(l.Price-currentPrice)/currentPrice <= maxDistance {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].Price-currentPrice) < math.Abs(out[j].Price-currentPrice)
	})
	return out
}
