// Package opportunity builds and scores trading opportunities from
// discovered levels and magnets, runs the entry gate, and computes
// trading targets (spec §4.5).
package opportunity

import (
	"math"
	"sort"
	"time"

	"binance-trading-bot/internal/coretypes"
)

const (
	opportunityMaxDistancePct = 0.03
	magnetMatchRadiusPct      = 0.01
	strongMagnetStrength      = 70
	maxOpportunitiesPerSymbol = 3
)

// BuildOpportunities constructs and scores opportunities for every
// PriceLevel within 3% of currentPrice, matches each to the nearest
// magnet within 1% of the level (if any), computes its targets with
// the given calculator, and returns at most the top 3 by score
// (spec §4.5).
func BuildOpportunities(
	symbol string,
	currentPrice float64,
	priceLevels []coretypes.PriceLevel,
	magnetLevels []coretypes.MagnetLevel,
	calc func(level coretypes.PriceLevel) coretypes.TradingTargets,
	now time.Time,
) []coretypes.Opportunity {
	if currentPrice <= 0 {
		return nil
	}

	var candidates []coretypes.Opportunity
	for _, level := range priceLevels {
		distance := math.Abs(level.Price-currentPrice) / currentPrice
		if distance > opportunityMaxDistancePct {
			continue
		}

		magnet := matchMagnet(level, magnetLevels)
		targets := calc(level)

		opp := coretypes.Opportunity{
			Symbol:       symbol,
			Level:        level,
			Magnet:       magnet,
			Targets:      targets,
			CurrentPrice: currentPrice,
			DistancePct:  distance,
			CreatedAt:    now,
		}
		opp.Score = Score(opp)
		candidates = append(candidates, opp)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > maxOpportunitiesPerSymbol {
		candidates = candidates[:maxOpportunitiesPerSymbol]
	}
	return candidates
}

// matchMagnet returns the strongest magnet within 1% of level.Price,
// or nil.
func matchMagnet(level coretypes.PriceLevel, magnetLevels []coretypes.MagnetLevel) *coretypes.MagnetLevel {
	var best *coretypes.MagnetLevel
	for i := range magnetLevels {
		m := &magnetLevels[i]
		if level.Price <= 0 {
			continue
		}
		if math.Abs(m.Price-level.Price)/level.Price > magnetMatchRadiusPct {
			continue
		}
		if best == nil || m.Strength > best.Strength {
			best = m
		}
	}
	return best
}

// Score computes the §4.5.2 opportunity score, clamped to [0,100].
func Score(opp coretypes.Opportunity) float64 {
	distanceFactor := math.Min(opp.DistancePct/opportunityMaxDistancePct, 1)
	score := 0.3*float64(opp.Level.Strength) +
		0.4*opp.Targets.Confidence +
		20*(1-distanceFactor)

	if opp.Magnet != nil && opp.Magnet.Strength >= strongMagnetStrength {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// SideForLevel derives the trade side implied by a level's kind:
// support levels are traded LONG, resistance levels SHORT.
func SideForLevel(kind coretypes.LevelKind) coretypes.Side {
	if kind == coretypes.Support {
		return coretypes.Long
	}
	return coretypes.Short
}
