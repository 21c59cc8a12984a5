package opportunity

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

// buildBounceCandles builds `blocks` repetitions of a touch-then-bounce
// pattern against a support level at `levelPrice`, each block touching
// the level once and then rallying enough to clear
// statBounceThresholdPct within the statBounceLookback window.
func buildBounceCandles(levelPrice float64, blocks int) []coretypes.Candle {
	candles := make([]coretypes.Candle, 0, blocks*10)
	now := time.Now()
	for b := 0; b < blocks; b++ {
		candles = append(candles, coretypes.Candle{
			Timestamp: now.Add(time.Duration(len(candles)) * time.Hour),
			Low:       levelPrice - 0.1,
			High:      levelPrice,
			Open:      levelPrice - 0.05,
			Close:     levelPrice - 0.05,
			Volume:    100,
		})
		for k := 0; k < 9; k++ {
			high := levelPrice + 0.1*float64(k)
			candles = append(candles, coretypes.Candle{
				Timestamp: now.Add(time.Duration(len(candles)) * time.Hour),
				Low:       levelPrice,
				High:      high,
				Open:      levelPrice,
				Close:     high - 0.02,
				Volume:    80,
			})
		}
	}
	return candles
}

func TestStatisticalCalculator_CalculateTargets_EnoughHistoryPasses(t *testing.T) {
	calc := NewStatisticalCalculator(logging.New(&logging.Config{Level: "ERROR", Output: "stderr"}))
	level := coretypes.PriceLevel{Price: 100, Kind: coretypes.Support, Strength: 95}
	candles := buildBounceCandles(level.Price, 12)

	targets, ok := calc.CalculateTargets(level, candles, 0.003, nil)
	if !ok {
		t.Fatalf("expected enough bounce history to produce statistical targets")
	}
	if targets.ProfitProbability < statMinProfitProbability {
		t.Errorf("profit probability %v below minimum %v", targets.ProfitProbability, statMinProfitProbability)
	}
	if targets.RiskRewardRatio < statMinRiskReward {
		t.Errorf("risk/reward %v below minimum %v", targets.RiskRewardRatio, statMinRiskReward)
	}
	if targets.ExpectedDurationMinutes > statMaxTradeDurationMin {
		t.Errorf("expected duration %v exceeds maximum %v", targets.ExpectedDurationMinutes, statMaxTradeDurationMin)
	}
	if targets.StopLoss >= level.Price {
		t.Errorf("a support stop loss must sit below the level, got %v", targets.StopLoss)
	}
	if targets.ProfitTarget <= level.Price {
		t.Errorf("a support profit target must sit above the level, got %v", targets.ProfitTarget)
	}
}

func TestStatisticalCalculator_CalculateTargets_InsufficientHistoryFails(t *testing.T) {
	calc := NewStatisticalCalculator(logging.New(&logging.Config{Level: "ERROR", Output: "stderr"}))
	level := coretypes.PriceLevel{Price: 100, Kind: coretypes.Support, Strength: 95}
	candles := buildBounceCandles(level.Price, 1) // only 1 bounce, below statMinBounceSamples

	_, ok := calc.CalculateTargets(level, candles, 0.003, nil)
	if ok {
		t.Errorf("expected insufficient bounce history to fail")
	}
}

func TestGetOptimalPositionSize(t *testing.T) {
	targets := coretypes.TradingTargets{
		EntryPrice: 100,
		StopLoss:   98,
		Confidence: 80,
	}

	size := GetOptimalPositionSize(targets, 10000, 0.02)

	// maxRiskAmount = 200, riskPerUnit = 2, maxPositionSize = 100, confidenceFactor = 0.8
	want := 80.0
	if size != want {
		t.Errorf("GetOptimalPositionSize() = %v, want %v", size, want)
	}
}

func TestGetOptimalPositionSize_ZeroRiskReturnsZero(t *testing.T) {
	targets := coretypes.TradingTargets{EntryPrice: 100, StopLoss: 100, Confidence: 80}
	if size := GetOptimalPositionSize(targets, 10000, 0.02); size != 0 {
		t.Errorf("expected zero position size when entry equals stop loss, got %v", size)
	}
}
