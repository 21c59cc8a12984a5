package levels

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

// buildSupportTouchSeries produces n hourly candles with a flat
// baseline (Low=110, High=108, Close=102) and three clean support
// pivot lows at levelPrice, spaced far enough apart (> 2*PivotWindow)
// not to interfere with each other's pivot windows, each followed by
// a clear bounce (baseline High already clears BounceThresholdPct
// above levelPrice).
func buildSupportTouchSeries(n int, levelPrice float64, touchIdx []int) []coretypes.Candle {
	candles := make([]coretypes.Candle, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	touchSet := map[int]bool{}
	for _, idx := range touchIdx {
		touchSet[idx] = true
	}
	for i := range candles {
		low, high, close := 110.0, 108.0, 102.0
		if touchSet[i] {
			low, high = levelPrice, levelPrice+1
		}
		candles[i] = coretypes.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      close,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    100,
		}
	}
	return candles
}

func TestAnalyzeCandles_TooFewCandlesReturnsNil(t *testing.T) {
	a := NewAnalyzer(nil, testLogger())
	candles := buildSupportTouchSeries(MinCandles-1, 100, []int{20, 50, 80})

	levels := a.AnalyzeCandles(candles, Tolerances{ClusteringPct: 0.002, ValidationPct: 0.005})
	if levels != nil {
		t.Errorf("expected nil levels below MinCandles, got %v", levels)
	}
}

func TestAnalyzeCandles_DiscoversValidatedSupportLevel(t *testing.T) {
	a := NewAnalyzer(nil, testLogger())
	candles := buildSupportTouchSeries(150, 100, []int{20, 50, 80})

	levels := a.AnalyzeCandles(candles, Tolerances{ClusteringPct: 0.002, ValidationPct: 0.005})

	var support *coretypes.PriceLevel
	for i := range levels {
		if levels[i].Kind == coretypes.Support {
			support = &levels[i]
		}
	}
	if support == nil {
		t.Fatalf("expected a discovered support level, got %v", levels)
	}
	if support.TouchCount != 3 {
		t.Errorf("TouchCount = %d, want 3", support.TouchCount)
	}
	if support.BounceCount != 3 {
		t.Errorf("BounceCount = %d, want 3 (every touch bounces in this fixture)", support.BounceCount)
	}
	if support.Strength <= 0 {
		t.Errorf("expected a positive strength score, got %d", support.Strength)
	}
}

func TestFindPivots_DetectsCleanExtremes(t *testing.T) {
	candles := buildSupportTouchSeries(40, 100, []int{10, 25})

	_, lows := findPivots(candles)

	if len(lows) != 2 {
		t.Fatalf("expected exactly 2 low pivots, got %d: %+v", len(lows), lows)
	}
	for _, p := range lows {
		if p.index != 10 && p.index != 25 {
			t.Errorf("unexpected pivot index %d", p.index)
		}
		if p.price != 100 {
			t.Errorf("pivot price = %v, want 100", p.price)
		}
	}
}

func TestDensityCluster_GroupsByGapAndDropsNothing(t *testing.T) {
	pivots := []pivot{{price: 100.0}, {price: 100.1}, {price: 100.2}, {price: 105}}

	clusters := densityCluster(pivots, 0.5)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters (three close, one far), got %d: %+v", len(clusters), clusters)
	}
}

func TestDensityCluster_EmptyOrNonPositiveEpsReturnsNil(t *testing.T) {
	if c := densityCluster(nil, 0.5); c != nil {
		t.Errorf("expected nil clusters for empty input, got %v", c)
	}
	if c := densityCluster([]pivot{{price: 1}}, 0); c != nil {
		t.Errorf("expected nil clusters for non-positive eps, got %v", c)
	}
}

func TestStrengthScore_ClampsAtHundred(t *testing.T) {
	score := strengthScore(100, 100, 1.0) // every term individually saturates its cap
	if score != 100 {
		t.Errorf("strengthScore() = %d, want 100 (clamped)", score)
	}
}

func TestStrengthScore_WeighsTouchBounceAndStrength(t *testing.T) {
	// touchScore = min(3*8,40) = 24; bounceReliability = (1/3)*30 = 10;
	// bounceStrength = min(0.01*1000,30) = 10.
	score := strengthScore(3, 1, 0.01)
	if score != 44 {
		t.Errorf("strengthScore(3,1,0.01) = %d, want 44", score)
	}
}

func TestValidate_FiltersByDistanceAgeAndBounceRate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []coretypes.Candle{{Timestamp: now, Close: 100}}

	levelsIn := []coretypes.PriceLevel{
		{Price: 100, TouchCount: 3, BounceCount: 2, LastTestedAt: now}, // keeps: close, recent, 0.66 bounce rate
		{Price: 200, TouchCount: 3, BounceCount: 2, LastTestedAt: now}, // drops: 100% distance
		{Price: 100, TouchCount: 3, BounceCount: 2, LastTestedAt: now.Add(-30 * 24 * time.Hour)}, // drops: stale
		{Price: 100, TouchCount: 10, BounceCount: 1, LastTestedAt: now},                          // drops: bounce rate 0.1 < 0.3
	}

	out := validate(levelsIn, candles)

	if len(out) != 1 {
		t.Fatalf("expected exactly one surviving level, got %d: %+v", len(out), out)
	}
	if out[0].TouchCount != 3 || out[0].BounceCount != 2 {
		t.Errorf("unexpected surviving level: %+v", out[0])
	}
}

func TestIsRelevant(t *testing.T) {
	now := time.Now()
	baseLevel := coretypes.PriceLevel{
		Price:            100,
		Kind:             coretypes.Support,
		LastTestedAt:     now,
		AvgVolumeAtLevel: 1.0,
	}
	touchingCandle := []coretypes.Candle{{Low: 99.95, High: 101}}

	cases := []struct {
		name    string
		mutate  func(coretypes.PriceLevel) coretypes.PriceLevel
		price   float64
		candles []coretypes.Candle
		want    bool
	}{
		{"passes", func(l coretypes.PriceLevel) coretypes.PriceLevel { return l }, 100, touchingCandle, true},
		{"stale", func(l coretypes.PriceLevel) coretypes.PriceLevel {
			l.LastTestedAt = now.Add(-40 * 24 * time.Hour)
			return l
		}, 100, touchingCandle, false},
		{"too far from price", func(l coretypes.PriceLevel) coretypes.PriceLevel { return l }, 200, touchingCandle, false},
		{"low relative volume", func(l coretypes.PriceLevel) coretypes.PriceLevel {
			l.AvgVolumeAtLevel = 0.1
			return l
		}, 100, touchingCandle, false},
		{"no recent touch", func(l coretypes.PriceLevel) coretypes.PriceLevel { return l }, 100, []coretypes.Candle{{Low: 90, High: 91}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level := tc.mutate(baseLevel)
			if got := IsRelevant(level, tc.price, now, tc.candles, 0.005); got != tc.want {
				t.Errorf("IsRelevant() = %v, want %v", got, tc.want)
			}
		})
	}
}
