package volatility

import (
	"context"
	"errors"
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

// fakeMarketData is a minimal coretypes.MarketData double whose Klines
// response and error are fully caller-controlled, with a call counter
// for cache-behaviour assertions.
type fakeMarketData struct {
	candles    []coretypes.Candle
	err        error
	klineCalls int
}

func (f *fakeMarketData) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeMarketData) Klines(ctx context.Context, symbol, interval string, limit int) ([]coretypes.Candle, error) {
	f.klineCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func TestClassify(t *testing.T) {
	cases := []struct {
		atrPct float64
		want   coretypes.Regime
	}{
		{0.0149, coretypes.RegimeCalm},
		{0.015, coretypes.RegimeNormal},
		{0.0349, coretypes.RegimeNormal},
		{0.035, coretypes.RegimeElevated},
		{0.0549, coretypes.RegimeElevated},
		{0.055, coretypes.RegimeHigh},
		{1.0, coretypes.RegimeHigh},
	}
	for _, tc := range cases {
		if got := Classify(tc.atrPct); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.atrPct, got, tc.want)
		}
	}
}

func TestMultipliers_KnownRegime(t *testing.T) {
	got := Multipliers(coretypes.RegimeElevated)
	want := RegimeMultipliers{TP: 1.3, SL: 1.0, Trail: 0.9, BE: 1.0}
	if got != want {
		t.Errorf("Multipliers(ELEVATED) = %+v, want %+v", got, want)
	}
}

func TestMultipliers_UnknownRegimeDefaultsToNormal(t *testing.T) {
	got := Multipliers(coretypes.Regime("bogus"))
	want := regimeTable[coretypes.RegimeNormal]
	if got != want {
		t.Errorf("Multipliers(bogus) = %+v, want NORMAL default %+v", got, want)
	}
}

func TestBuildToleranceProfile_ClampsAtFloor(t *testing.T) {
	builtAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := BuildToleranceProfile("BTCUSDT", 0, builtAt)

	if p.Regime != coretypes.RegimeCalm {
		t.Fatalf("Regime = %v, want CALM", p.Regime)
	}
	if p.ClusteringPct != 0.0010 {
		t.Errorf("ClusteringPct = %v, want 0.0010 (floor)", p.ClusteringPct)
	}
	if p.ValidationPct != 0.0030 {
		t.Errorf("ValidationPct = %v, want 0.0030 (floor)", p.ValidationPct)
	}
	if p.EntryPct != 0.0020 {
		t.Errorf("EntryPct = %v, want 0.0020 (floor)", p.EntryPct)
	}
	if p.ProximityPct != 0.0050 {
		t.Errorf("ProximityPct = %v, want 0.0050 (floor)", p.ProximityPct)
	}
	// floor=0.0015, weight=0.75, base=0.0030*0.8=0.0024, weight*base=0.0018 > floor.
	if diff := p.CloseBufferPct - 0.0018; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CloseBufferPct = %v, want 0.0018", p.CloseBufferPct)
	}
	if !p.BuiltAt.Equal(builtAt) {
		t.Errorf("BuiltAt = %v, want %v", p.BuiltAt, builtAt)
	}
}

func TestBuildToleranceProfile_ClampsAtCeiling(t *testing.T) {
	p := BuildToleranceProfile("BTCUSDT", 1.0, time.Now())

	if p.Regime != coretypes.RegimeHigh {
		t.Fatalf("Regime = %v, want HIGH", p.Regime)
	}
	if p.ClusteringPct != 0.0050 {
		t.Errorf("ClusteringPct = %v, want 0.0050 (ceiling)", p.ClusteringPct)
	}
	if p.ValidationPct != 0.0120 {
		t.Errorf("ValidationPct = %v, want 0.0120 (ceiling)", p.ValidationPct)
	}
	if p.EntryPct != 0.0080 {
		t.Errorf("EntryPct = %v, want 0.0080 (ceiling)", p.EntryPct)
	}
	if p.ProximityPct != 0.0200 {
		t.Errorf("ProximityPct = %v, want 0.0200 (ceiling)", p.ProximityPct)
	}
	// floor=0.0035, weight=1.00, base=0.0120*0.8=0.0096, weight*base=0.0096 > floor.
	if diff := p.CloseBufferPct - 0.0096; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CloseBufferPct = %v, want 0.0096", p.CloseBufferPct)
	}
}

func TestBuildToleranceProfile_MidRangeUnclamped(t *testing.T) {
	p := BuildToleranceProfile("ETHUSDT", 0.02, time.Now())

	if p.Regime != coretypes.RegimeNormal {
		t.Fatalf("Regime = %v, want NORMAL", p.Regime)
	}
	if diff := p.ClusteringPct - 0.0040; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ClusteringPct = %v, want 0.0040", p.ClusteringPct)
	}
	if diff := p.ValidationPct - 0.0080; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ValidationPct = %v, want 0.0080", p.ValidationPct)
	}
	if diff := p.EntryPct - 0.0050; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("EntryPct = %v, want 0.0050", p.EntryPct)
	}
	if diff := p.ProximityPct - 0.0100; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ProximityPct = %v, want 0.0100", p.ProximityPct)
	}
	// floor=0.0020, weight=0.85, base=0.0080*0.8=0.0064, weight*base=0.00544 > floor.
	if diff := p.CloseBufferPct - 0.00544; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CloseBufferPct = %v, want 0.00544", p.CloseBufferPct)
	}
}

func TestTrueRange(t *testing.T) {
	cases := []struct {
		name      string
		candle    coretypes.Candle
		prevClose float64
		want      float64
	}{
		{"high-low range dominates", coretypes.Candle{High: 110, Low: 95}, 100, 15},
		{"high-close gap dominates", coretypes.Candle{High: 120, Low: 115}, 100, 20},
		{"low-close gap dominates", coretypes.Candle{High: 100, Low: 90}, 110, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trueRange(tc.candle, tc.prevClose); got != tc.want {
				t.Errorf("trueRange() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeATRPct_InsufficientHistoryReturnsFalse(t *testing.T) {
	candles := make([]coretypes.Candle, ATRPeriod)
	_, ok := computeATRPct(candles, ATRPeriod)
	if ok {
		t.Error("expected false with exactly period candles (need period+1)")
	}
}

func TestComputeATRPct_AveragesTrueRangeOverLastClose(t *testing.T) {
	candles := make([]coretypes.Candle, ATRPeriod+1)
	for i := range candles {
		candles[i] = coretypes.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}

	atrPct, ok := computeATRPct(candles, ATRPeriod)
	if !ok {
		t.Fatal("expected computeATRPct to succeed")
	}
	if diff := atrPct - 0.02; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("atrPct = %v, want 0.02 (TR=2 every candle, lastClose=100)", atrPct)
	}
}

func TestComputeATRPct_NonPositiveLastCloseReturnsFalse(t *testing.T) {
	candles := make([]coretypes.Candle, ATRPeriod+1)
	for i := range candles {
		candles[i] = coretypes.Candle{High: 101, Low: 99, Close: 100}
	}
	candles[len(candles)-1].Close = 0

	if _, ok := computeATRPct(candles, ATRPeriod); ok {
		t.Error("expected false when the last close is non-positive")
	}
}

func flatCandles(n int) []coretypes.Candle {
	candles := make([]coretypes.Candle, n)
	for i := range candles {
		candles[i] = coretypes.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	return candles
}

func TestModel_AtrPct_CachesWithinTTL(t *testing.T) {
	md := &fakeMarketData{candles: flatCandles(ATRPeriod + 1)}
	m := NewModel(md, testLogger())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }

	first := m.AtrPct(context.Background(), "BTCUSDT")
	now = now.Add(29 * time.Minute)
	second := m.AtrPct(context.Background(), "BTCUSDT")

	if first != second {
		t.Errorf("cached AtrPct changed: first=%v second=%v", first, second)
	}
	if md.klineCalls != 1 {
		t.Errorf("Klines called %d times within the cache TTL, want 1", md.klineCalls)
	}
}

func TestModel_AtrPct_RecomputesAfterTTLExpires(t *testing.T) {
	md := &fakeMarketData{candles: flatCandles(ATRPeriod + 1)}
	m := NewModel(md, testLogger())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }

	m.AtrPct(context.Background(), "BTCUSDT")
	now = now.Add(31 * time.Minute)
	m.AtrPct(context.Background(), "BTCUSDT")

	if md.klineCalls != 2 {
		t.Errorf("Klines called %d times across the TTL boundary, want 2", md.klineCalls)
	}
}

func TestModel_AtrPct_FallbackOnKlinesError(t *testing.T) {
	md := &fakeMarketData{err: errors.New("network down")}
	m := NewModel(md, testLogger())

	got := m.AtrPct(context.Background(), "BTCUSDT")
	if got != fallbackAtrPct {
		t.Errorf("AtrPct() = %v, want fallback %v", got, fallbackAtrPct)
	}

	m.AtrPct(context.Background(), "BTCUSDT")
	if md.klineCalls != 2 {
		t.Errorf("expected the error path to skip caching so Klines is retried, got %d calls", md.klineCalls)
	}
}

func TestModel_AtrPct_FallbackOnInsufficientHistory(t *testing.T) {
	md := &fakeMarketData{candles: flatCandles(ATRPeriod - 1)}
	m := NewModel(md, testLogger())

	got := m.AtrPct(context.Background(), "BTCUSDT")
	if got != fallbackAtrPct {
		t.Errorf("AtrPct() = %v, want fallback %v", got, fallbackAtrPct)
	}
}

func TestModel_ToleranceProfile_DerivesFromAtrPct(t *testing.T) {
	md := &fakeMarketData{candles: flatCandles(ATRPeriod + 1)}
	m := NewModel(md, testLogger())

	got := m.ToleranceProfile(context.Background(), "BTCUSDT")
	want := BuildToleranceProfile("BTCUSDT", 0.02, got.BuiltAt)

	if got != want {
		t.Errorf("ToleranceProfile() = %+v, want %+v", got, want)
	}
}

func TestModel_RegimeMultipliers_DerivesFromAtrPct(t *testing.T) {
	md := &fakeMarketData{candles: flatCandles(ATRPeriod + 1)}
	m := NewModel(md, testLogger())

	got := m.RegimeMultipliers(context.Background(), "BTCUSDT")
	want := Multipliers(coretypes.RegimeNormal) // atrPct=0.02 classifies NORMAL

	if got != want {
		t.Errorf("RegimeMultipliers() = %+v, want %+v", got, want)
	}
}
