package opportunity

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
)

// buildTrendCandles produces longWindowCandles hourly candles whose
// close price drifts by driftPerCandle each step, starting at base.
func buildTrendCandles(base, driftPerCandle float64) []coretypes.Candle {
	candles := make([]coretypes.Candle, longWindowCandles)
	price := base
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price += driftPerCandle
		candles[i] = coretypes.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price - driftPerCandle,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100,
		}
	}
	return candles
}

func TestDetectTrend_StrongUptrend(t *testing.T) {
	candles := buildTrendCandles(100, 0.15)

	result := DetectTrend(candles)

	if result.Direction != TrendStrongUp && result.Direction != TrendUp {
		t.Errorf("expected an uptrend direction for a steadily rising series, got %s (score=%.4f)", result.Direction, result.Score)
	}
	if !result.Direction.IsUp() {
		t.Errorf("IsUp() should be true for %s", result.Direction)
	}
}

func TestDetectTrend_StrongDowntrend(t *testing.T) {
	candles := buildTrendCandles(500, -0.15)

	result := DetectTrend(candles)

	if result.Direction != TrendStrongDown && result.Direction != TrendDown {
		t.Errorf("expected a downtrend direction for a steadily falling series, got %s (score=%.4f)", result.Direction, result.Score)
	}
	if !result.Direction.IsDown() {
		t.Errorf("IsDown() should be true for %s", result.Direction)
	}
}

func TestDetectTrend_Neutral(t *testing.T) {
	candles := buildTrendCandles(100, 0)

	result := DetectTrend(candles)

	if result.Direction != TrendNeutral {
		t.Errorf("expected neutral direction for a flat series, got %s (score=%.4f)", result.Direction, result.Score)
	}
}

func TestDetectTrend_InsufficientHistory(t *testing.T) {
	candles := buildTrendCandles(100, 0.2)[:10]

	result := DetectTrend(candles)

	if result.Direction != TrendNeutral {
		t.Errorf("expected neutral direction when history is too short to score, got %s", result.Direction)
	}
}

func TestIsAlignedAndIsCounterTrend(t *testing.T) {
	up := TrendResult{Direction: TrendUp, Score: 0.01}
	down := TrendResult{Direction: TrendDown, Score: -0.01}
	neutral := TrendResult{Direction: TrendNeutral, Score: 0}

	cases := []struct {
		side     coretypes.Side
		trend    TrendResult
		aligned  bool
		counter  bool
	}{
		{coretypes.Long, up, true, false},
		{coretypes.Long, down, false, true},
		{coretypes.Long, neutral, false, false},
		{coretypes.Short, down, true, false},
		{coretypes.Short, up, false, true},
		{coretypes.Short, neutral, false, false},
	}

	for _, tc := range cases {
		if got := IsAligned(tc.side, tc.trend); got != tc.aligned {
			t.Errorf("IsAligned(%s, %s) = %v, want %v", tc.side, tc.trend.Direction, got, tc.aligned)
		}
		if got := IsCounterTrend(tc.side, tc.trend); got != tc.counter {
			t.Errorf("IsCounterTrend(%s, %s) = %v, want %v", tc.side, tc.trend.Direction, got, tc.counter)
		}
	}
}
