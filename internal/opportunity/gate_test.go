package opportunity

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
)

func baseToleranceProfile() coretypes.ToleranceProfile {
	return coretypes.ToleranceProfile{
		Symbol:         "BTCUSDT",
		AtrPct:         0.01,
		Regime:         coretypes.RegimeNormal,
		ClusteringPct:  0.002,
		ValidationPct:  0.002,
		EntryPct:       0.003,
		ProximityPct:   0.01,
		CloseBufferPct: 0.0015,
	}
}

func baseSupportLevel() coretypes.PriceLevel {
	return coretypes.PriceLevel{
		Price:            100,
		Kind:             coretypes.Support,
		Strength:         90,
		TouchCount:       5,
		BounceCount:      4,
		AvgVolumeAtLevel: 1.2,
		LastTestedAt:     time.Now(),
	}
}

// confirmingCandle returns a single candle that, by itself, both
// touches the level for relevance/bounce-history purposes and
// confirms it per checkConfirmationCandle for a long entry on a
// support level under the NORMAL regime.
func confirmingCandle(now time.Time) coretypes.Candle {
	return coretypes.Candle{
		Timestamp: now,
		Open:      100.0,
		Low:       99.9,
		High:      100.3,
		Close:     100.25,
		Volume:    50,
	}
}

func baseGateInput(now time.Time) GateInput {
	return GateInput{
		Symbol:        "BTCUSDT",
		Side:          coretypes.Long,
		Level:         baseSupportLevel(),
		CurrentPrice:  100.05,
		Now:           now,
		RecentCandles: []coretypes.Candle{confirmingCandle(now)},
		Tolerance:     baseToleranceProfile(),
		Trend:         TrendResult{Direction: TrendUp, Score: 0.01},
	}
}

func TestEvaluateGate_HappyPathPasses(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)

	if rej := EvaluateGate(in); rej != nil {
		t.Fatalf("expected a clean pass, got rejection at stage %q: %s", rej.Stage, rej.Reason)
	}
}

func TestEvaluateGate_RelevanceRejectsStaleVolume(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	in.Level.AvgVolumeAtLevel = 0.1 // below relevanceMinRelativeVol

	rej := EvaluateGate(in)
	if rej == nil || rej.Stage != "relevance" {
		t.Fatalf("expected a relevance rejection, got %v", rej)
	}
}

func TestEvaluateGate_BoundsRejectsPriceOutsideEntryBand(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	in.CurrentPrice = 105 // well above level*(1+entryPct)

	rej := EvaluateGate(in)
	if rej == nil || rej.Stage != "bounds" {
		t.Fatalf("expected a bounds rejection, got %v", rej)
	}
}

func TestEvaluateGate_BounceHistoryRejectsUnconfirmedTouches(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	// A touch that never closes back above the level: all bounces fail.
	in.RecentCandles = []coretypes.Candle{
		{Timestamp: now, Open: 100.1, Low: 99.95, High: 100.2, Close: 99.98},
	}

	rej := EvaluateGate(in)
	if rej == nil || rej.Stage != "bounce_history" {
		t.Fatalf("expected a bounce_history rejection, got %v", rej)
	}
}

func TestEvaluateGate_ConfirmationCandleRejectsWeakClose(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	// Last candle touches the level but closes back down (red candle).
	in.RecentCandles = []coretypes.Candle{
		confirmingCandle(now.Add(-time.Hour)),
		{Timestamp: now, Open: 100.1, Low: 99.95, High: 100.2, Close: 99.98},
	}

	rej := EvaluateGate(in)
	if rej == nil || rej.Stage != "confirmation_candle" {
		t.Fatalf("expected a confirmation_candle rejection, got %v", rej)
	}
}

func TestCheckCounterTrendStrictness(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	in.Trend = TrendResult{Direction: TrendDown} // counter-trend for a long

	// Strong, nearby level: passes.
	in.Level.Strength = 95
	if rej := checkCounterTrendStrictness(in); rej != nil {
		t.Errorf("expected strong nearby level to pass counter-trend check, got %v", rej)
	}

	// Weak level against a counter-trend: rejected.
	in.Level.Strength = 50
	if rej := checkCounterTrendStrictness(in); rej == nil {
		t.Errorf("expected a weak level against a counter-trend to be rejected")
	}
}

func TestCheckTrendWeakness(t *testing.T) {
	now := time.Now()
	in := baseGateInput(now)
	in.Trend = TrendResult{Direction: TrendStrongDown}

	// A sufficiently strong level survives a strong opposing trend.
	in.Level.Strength = 90
	if rej := checkTrendWeakness(in); rej != nil {
		t.Errorf("expected a strong level to survive a strong opposing trend, got %v", rej)
	}

	// A weak level does not.
	in.Level.Strength = 50
	if rej := checkTrendWeakness(in); rej == nil {
		t.Errorf("expected a weak level against a strong opposing trend to be rejected")
	}

	// An aligned trend never triggers this stage regardless of strength.
	in.Trend = TrendResult{Direction: TrendUp}
	in.Level.Strength = 0
	if rej := checkTrendWeakness(in); rej != nil {
		t.Errorf("expected trend_weakness to be a no-op for an aligned trend, got %v", rej)
	}
}

func TestRegimeClosePctFloor(t *testing.T) {
	cases := []struct {
		regime coretypes.Regime
		want   float64
	}{
		{coretypes.RegimeCalm, 0.0012},
		{coretypes.RegimeNormal, 0.0018},
		{coretypes.RegimeElevated, 0.0024},
		{coretypes.RegimeHigh, 0.0030},
	}
	for _, tc := range cases {
		if got := regimeClosePctFloor(tc.regime); got != tc.want {
			t.Errorf("regimeClosePctFloor(%s) = %v, want %v", tc.regime, got, tc.want)
		}
	}
}
