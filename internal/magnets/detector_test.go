package magnets

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

func TestRoundNumberIntervals(t *testing.T) {
	cases := []struct {
		price float64
		want  []float64
	}{
		{15000, []float64{1000, 500, 100}},
		{5000, []float64{100, 50, 10}},
		{500, []float64{10, 5, 1}},
		{50, []float64{1, 0.5, 0.1}},
	}
	for _, tc := range cases {
		got := roundNumberIntervals(tc.price)
		if len(got) != len(tc.want) {
			t.Fatalf("roundNumberIntervals(%v) = %v, want %v", tc.price, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("roundNumberIntervals(%v)[%d] = %v, want %v", tc.price, i, got[i], tc.want[i])
			}
		}
	}
}

func TestPsychologicalIntervals(t *testing.T) {
	cases := []struct {
		price float64
		want  []float64
	}{
		{15000, []float64{250, 500, 750}},
		{5000, []float64{25, 50, 75}},
		{500, []float64{2.5, 5, 7.5}},
	}
	for _, tc := range cases {
		got := psychologicalIntervals(tc.price)
		if len(got) != len(tc.want) {
			t.Fatalf("psychologicalIntervals(%v) = %v, want %v", tc.price, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("psychologicalIntervals(%v)[%d] = %v, want %v", tc.price, i, got[i], tc.want[i])
			}
		}
	}
}

func TestRoundNumberMagnets_StrongestAtExactMultiple(t *testing.T) {
	magnets := roundNumberMagnets(10000)

	// 10000 is a multiple of 1000, 500, and 100, so it gets one magnet
	// per interval group; the coarsest (interval=1000, base 100 +
	// multiple-of-10 bonus 20) saturates at strength 100.
	found := false
	for i := range magnets {
		if magnets[i].Price == 10000 && magnets[i].Strength == 100 {
			found = true
		}
		if magnets[i].Price < 8500 || magnets[i].Price > 11500 {
			t.Errorf("magnet price %v falls outside the 15%% search band", magnets[i].Price)
		}
	}
	if !found {
		t.Fatalf("expected a saturated (strength 100) magnet exactly at 10000, got %+v", magnets)
	}
}

func TestFibonacciMagnets_RequiresMinHistory(t *testing.T) {
	candles := make([]coretypes.Candle, 49)
	if got := fibonacciMagnets(100, candles); got != nil {
		t.Errorf("expected nil below the 50-candle minimum, got %v", got)
	}
}

func TestFibonacciMagnets_SymmetricMidpointAtHalfRatio(t *testing.T) {
	candles := make([]coretypes.Candle, 50)
	for i := range candles {
		candles[i] = coretypes.Candle{High: 110, Low: 90}
	}

	magnets := fibonacciMagnets(100, candles)

	var found bool
	for _, m := range magnets {
		if m.Price == 100 && m.Strength == 70 && m.Kind == coretypes.MagnetFibonacci {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 0.5-ratio fibonacci magnet at the symmetric midpoint (100) with strength 70, got %+v", magnets)
	}
}

func TestHighLowMagnets_RequiresMinHistory(t *testing.T) {
	candles := make([]coretypes.Candle, 19)
	if got := highLowMagnets(candles); got != nil {
		t.Errorf("expected nil below the 20-candle minimum, got %v", got)
	}
}

func TestHighLowMagnets_DetectsPeriodExtremesWithinDistanceBand(t *testing.T) {
	candles := make([]coretypes.Candle, 24)
	for i := range candles {
		candles[i] = coretypes.Candle{High: 100, Low: 100, Close: 100}
	}
	candles[0].High = 105
	candles[0].Low = 97
	candles[len(candles)-1].Close = 100

	magnets := highLowMagnets(candles)

	var high, low *coretypes.MagnetLevel
	for i := range magnets {
		switch magnets[i].Kind {
		case coretypes.MagnetPreviousHigh:
			high = &magnets[i]
		case coretypes.MagnetPreviousLow:
			low = &magnets[i]
		}
	}
	if high == nil || high.Price != 105 || high.Strength != 20 {
		t.Errorf("expected a previous-high magnet at 105 with strength 20, got %+v", high)
	}
	if low == nil || low.Price != 97 || low.Strength != 34 {
		t.Errorf("expected a previous-low magnet at 97 with strength 34, got %+v", low)
	}
}

func TestPsychologicalMagnets_StrongestAtMultipleOfFour(t *testing.T) {
	magnets := psychologicalMagnets(1000)

	var exact *coretypes.MagnetLevel
	for i := range magnets {
		if magnets[i].Price == 1000 {
			exact = &magnets[i]
		}
	}
	if exact == nil {
		t.Fatalf("expected a psychological magnet exactly at 1000")
	}
	if exact.Strength != 60 {
		t.Errorf("expected strength 60 (base 40 + multiple-of-4 bonus 20, no distance decay), got %d", exact.Strength)
	}
}

func TestEnhanceWithLevels_BoostsAndCarriesHistory(t *testing.T) {
	lastTested := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	magnets := []coretypes.MagnetLevel{{Price: 100, Strength: 50}}
	levels := []coretypes.PriceLevel{{Price: 100.05, Strength: 80, TouchCount: 7, LastTestedAt: lastTested}}

	out := enhanceWithLevels(magnets, levels)

	if out[0].Strength != 80 { // 50 + min(80/2, 30) = 80
		t.Errorf("Strength = %d, want 80", out[0].Strength)
	}
	if out[0].HistoricalReactions != 7 {
		t.Errorf("HistoricalReactions = %d, want 7", out[0].HistoricalReactions)
	}
	if out[0].LastReactionAt == nil || !out[0].LastReactionAt.Equal(lastTested) {
		t.Errorf("LastReactionAt = %v, want %v", out[0].LastReactionAt, lastTested)
	}
}

func TestEnhanceWithLevels_NoNearbyLevelLeavesMagnetUnchanged(t *testing.T) {
	magnets := []coretypes.MagnetLevel{{Price: 100, Strength: 50}}
	levels := []coretypes.PriceLevel{{Price: 200, Strength: 90}}

	out := enhanceWithLevels(magnets, levels)

	if out[0].Strength != 50 || out[0].HistoricalReactions != 0 {
		t.Errorf("expected an unchanged magnet, got %+v", out[0])
	}
}

func TestNearestMagnet_ReturnsClosestAboveThreshold(t *testing.T) {
	magnets := []coretypes.MagnetLevel{
		{Price: 101, Strength: 70},
		{Price: 103, Strength: 90},
		{Price: 200, Strength: 90},
	}
	best := NearestMagnet(magnets, 100)
	if best == nil || best.Price != 101 {
		t.Fatalf("expected the closest in-band magnet at 101, got %v", best)
	}
}

func TestNearestMagnet_FiltersWeakMagnets(t *testing.T) {
	magnets := []coretypes.MagnetLevel{{Price: 101, Strength: 50}}
	if best := NearestMagnet(magnets, 100); best != nil {
		t.Errorf("expected nil for a magnet below the strength floor, got %v", best)
	}
}

func TestNearestMagnet_FiltersDistantMagnets(t *testing.T) {
	magnets := []coretypes.MagnetLevel{{Price: 110, Strength: 90}}
	if best := NearestMagnet(magnets, 100); best != nil {
		t.Errorf("expected nil for a magnet outside the 5%% distance band, got %v", best)
	}
}

func TestIsPriceNearMagnet(t *testing.T) {
	magnet := coretypes.MagnetLevel{Price: 100, AttractionRadius: 0.5}
	if !IsPriceNearMagnet(100.3, magnet) {
		t.Errorf("expected 100.3 to be within the attraction radius")
	}
	if IsPriceNearMagnet(100.6, magnet) {
		t.Errorf("expected 100.6 to be outside the attraction radius")
	}
}

func TestDetectMagnetLevels_FiltersBelowMinStrengthAndSortsDescending(t *testing.T) {
	d := NewDetector(testLogger())

	magnets := d.DetectMagnetLevels(10000, nil, nil)

	if len(magnets) == 0 {
		t.Fatalf("expected at least one surviving magnet at a round price")
	}
	for i, m := range magnets {
		if m.Strength < minStrength {
			t.Errorf("magnet %+v has strength below the %d floor", m, minStrength)
		}
		if i > 0 && magnets[i].Strength > magnets[i-1].Strength {
			t.Errorf("magnets are not sorted by descending strength at index %d", i)
		}
	}
}
