package opportunity

import (
	"testing"
	"time"

	"binance-trading-bot/internal/coretypes"
)

func fixedTargets(confidence float64) func(coretypes.PriceLevel) coretypes.TradingTargets {
	return func(level coretypes.PriceLevel) coretypes.TradingTargets {
		return coretypes.TradingTargets{
			EntryPrice:   level.Price,
			ProfitTarget: level.Price * 1.01,
			StopLoss:     level.Price * 0.995,
			Confidence:   confidence,
		}
	}
}

func TestBuildOpportunities_FiltersByDistanceAndCapsAtThree(t *testing.T) {
	now := time.Now()
	currentPrice := 100.0

	levels := []coretypes.PriceLevel{
		{Price: 99, Kind: coretypes.Support, Strength: 80},
		{Price: 98, Kind: coretypes.Support, Strength: 70},
		{Price: 101, Kind: coretypes.Resistance, Strength: 60},
		{Price: 102, Kind: coretypes.Resistance, Strength: 50},
		{Price: 150, Kind: coretypes.Resistance, Strength: 99}, // 50% away, excluded
	}

	opps := BuildOpportunities("BTCUSDT", currentPrice, levels, nil, fixedTargets(80), now)

	if len(opps) > maxOpportunitiesPerSymbol {
		t.Fatalf("expected at most %d opportunities, got %d", maxOpportunitiesPerSymbol, len(opps))
	}
	for _, o := range opps {
		if o.Level.Price == 150 {
			t.Errorf("level 150 is outside the 3%% distance band and should have been excluded")
		}
	}
	for i := 1; i < len(opps); i++ {
		if opps[i].Score > opps[i-1].Score {
			t.Errorf("opportunities are not sorted by descending score: %v then %v", opps[i-1].Score, opps[i].Score)
		}
	}
}

func TestBuildOpportunities_RejectsNonPositivePrice(t *testing.T) {
	opps := BuildOpportunities("BTCUSDT", 0, []coretypes.PriceLevel{{Price: 100}}, nil, fixedTargets(50), time.Now())
	if opps != nil {
		t.Errorf("expected nil opportunities for a non-positive current price, got %v", opps)
	}
}

func TestMatchMagnet_PicksStrongestWithinRadius(t *testing.T) {
	level := coretypes.PriceLevel{Price: 100}
	magnets := []coretypes.MagnetLevel{
		{Price: 100.5, Strength: 40},  // within 1%
		{Price: 100.8, Strength: 90},  // within 1%, stronger
		{Price: 105, Strength: 99},    // outside 1% radius
	}

	best := matchMagnet(level, magnets)
	if best == nil || best.Strength != 90 {
		t.Fatalf("expected the strongest in-radius magnet (strength 90), got %v", best)
	}
}

func TestMatchMagnet_NoneWithinRadius(t *testing.T) {
	level := coretypes.PriceLevel{Price: 100}
	magnets := []coretypes.MagnetLevel{{Price: 110, Strength: 90}}

	if best := matchMagnet(level, magnets); best != nil {
		t.Errorf("expected no magnet match outside the radius, got %v", best)
	}
}

func TestScore_ClampedAndMagnetBonus(t *testing.T) {
	opp := coretypes.Opportunity{
		Level:       coretypes.PriceLevel{Strength: 100},
		Targets:     coretypes.TradingTargets{Confidence: 100},
		DistancePct: 0,
	}

	withoutMagnet := Score(opp)
	if withoutMagnet != 90 {
		t.Errorf("expected a max score of 90 without a strong magnet, got %v", withoutMagnet)
	}

	opp.Magnet = &coretypes.MagnetLevel{Strength: strongMagnetStrength}
	withMagnet := Score(opp)
	if withMagnet != 100 {
		t.Errorf("expected score to clamp at 100 with a strong magnet bonus, got %v", withMagnet)
	}
}

func TestSideForLevel(t *testing.T) {
	if SideForLevel(coretypes.Support) != coretypes.Long {
		t.Errorf("support levels should trade long")
	}
	if SideForLevel(coretypes.Resistance) != coretypes.Short {
		t.Errorf("resistance levels should trade short")
	}
}
