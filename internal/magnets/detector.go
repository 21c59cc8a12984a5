// Package magnets finds round-number, Fibonacci, prior-extreme and
// psychological price magnets near the current price (spec §4.4).
package magnets

import (
	"math"
	"sort"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

const (
	minStrength        = 40
	nearestMinStrength = 60
	nearestMaxDistance = 0.05
	enhanceRadiusPct   = 0.01
	maxHistoricalBoost = 30
)

var roundNumberWeights = map[float64]int{
	1000: 100,
	500:  80,
	100:  60,
	50:   40,
	10:   20,
}

var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786, 1.0, 1.272, 1.618}

// Detector finds magnet levels for a symbol given its current price,
// known PriceLevels and recent candle history.
type Detector struct {
	log *logging.Logger
}

// NewDetector builds a Detector.
func NewDetector(log *logging.Logger) *Detector {
	return &Detector{log: log.WithComponent("magnets")}
}

// DetectMagnetLevels runs all four magnet families, enhances them with
// nearby PriceLevel confirmation, and keeps only magnets with
// strength >= 40, sorted by strength descending (spec §4.4).
func (d *Detector) DetectMagnetLevels(currentPrice float64, levels []coretypes.PriceLevel, candles []coretypes.Candle) []coretypes.MagnetLevel {
	var magnets []coretypes.MagnetLevel
	magnets = append(magnets, roundNumberMagnets(currentPrice)...)
	magnets = append(magnets, fibonacciMagnets(currentPrice, candles)...)
	magnets = append(magnets, highLowMagnets(candles)...)
	magnets = append(magnets, psychologicalMagnets(currentPrice)...)

	magnets = enhanceWithLevels(magnets, levels)

	var strong []coretypes.MagnetLevel
	for _, m := range magnets {
		if m.Strength >= minStrength {
			strong = append(strong, m)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].Strength > strong[j].Strength })
	return strong
}

func roundNumberIntervals(price float64) []float64 {
	switch {
	case price >= 10000:
		return []float64{1000, 500, 100}
	case price >= 1000:
		return []float64{100, 50, 10}
	case price >= 100:
		return []float64{10, 5, 1}
	default:
		return []float64{1, 0.5, 0.1}
	}
}

func roundNumberMagnets(currentPrice float64) []coretypes.MagnetLevel {
	var magnets []coretypes.MagnetLevel
	priceRange := currentPrice * 0.15
	lower := currentPrice - priceRange
	upper := currentPrice + priceRange

	for _, interval := range roundNumberIntervals(currentPrice) {
		startMultiple := int64(math.Floor(lower / interval))
		endMultiple := int64(math.Ceil(upper / interval))

		base, hasWeight := roundNumberWeights[interval]
		if !hasWeight {
			base = 10
		}

		for multiple := startMultiple; multiple <= endMultiple; multiple++ {
			roundPrice := float64(multiple) * interval
			if roundPrice <= 0 || roundPrice < lower || roundPrice > upper {
				continue
			}

			strengthBase := float64(base)
			if multiple%10 == 0 {
				strengthBase += 20
			} else if multiple%5 == 0 {
				strengthBase += 10
			}

			distanceFactor := 1 - (math.Abs(roundPrice-currentPrice) / priceRange)
			strength := int(strengthBase * distanceFactor)
			if strength > 100 {
				strength = 100
			}

			magnets = append(magnets, coretypes.MagnetLevel{
				Price:            roundPrice,
				Kind:             coretypes.MagnetRoundNumber,
				Strength:         strength,
				AttractionRadius: roundPrice * 0.005,
			})
		}
	}
	return magnets
}

func fibonacciMagnets(currentPrice float64, candles []coretypes.Candle) []coretypes.MagnetLevel {
	if len(candles) < 50 {
		return nil
	}
	recent := candles
	if len(recent) > 100 {
		recent = recent[len(recent)-100:]
	}

	high, low := recent[0].High, recent[0].Low
	for _, c := range recent {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	priceRange := high - low

	var magnets []coretypes.MagnetLevel
	for _, ratio := range fibRatios {
		retracement := high - priceRange*ratio
		extension := low + priceRange*ratio

		for _, fibPrice := range []float64{retracement, extension} {
			if fibPrice <= 0 {
				continue
			}
			distance := math.Abs(fibPrice-currentPrice) / currentPrice
			if distance > 0.10 {
				continue
			}

			var base float64
			switch ratio {
			case 0.382, 0.618:
				base = 80
			case 0.5, 1.0:
				base = 70
			case 0.236, 0.786:
				base = 60
			default:
				base = 50
			}

			distanceFactor := 1 - (distance / 0.10)
			strength := int(base * distanceFactor)

			magnets = append(magnets, coretypes.MagnetLevel{
				Price:            fibPrice,
				Kind:             coretypes.MagnetFibonacci,
				Strength:         strength,
				AttractionRadius: fibPrice * 0.008,
			})
		}
	}
	return magnets
}

type timeframe struct {
	kind    coretypes.MagnetKind
	periods int
	base    float64
}

func highLowMagnets(candles []coretypes.Candle) []coretypes.MagnetLevel {
	if len(candles) < 20 {
		return nil
	}
	currentPrice := candles[len(candles)-1].Close

	timeframes := []struct {
		periods int
		base    float64
	}{
		{periods: 24, base: 55},
		{periods: 168, base: 70},
		{periods: 720, base: 85},
	}

	var magnets []coretypes.MagnetLevel
	for _, tf := range timeframes {
		if len(candles) < tf.periods {
			continue
		}
		window := candles[len(candles)-tf.periods:]
		periodHigh, periodLow := window[0].High, window[0].Low
		for _, c := range window {
			if c.High > periodHigh {
				periodHigh = c.High
			}
			if c.Low < periodLow {
				periodLow = c.Low
			}
		}

		for _, lvl := range []struct {
			price float64
			kind  coretypes.MagnetKind
		}{
			{price: periodHigh, kind: coretypes.MagnetPreviousHigh},
			{price: periodLow, kind: coretypes.MagnetPreviousLow},
		} {
			distance := math.Abs(lvl.price-currentPrice) / currentPrice
			if distance < 0.01 || distance > 0.08 {
				continue
			}
			distanceFactor := 1 - (distance / 0.08)
			strength := int(tf.base * distanceFactor)

			magnets = append(magnets, coretypes.MagnetLevel{
				Price:            lvl.price,
				Kind:             lvl.kind,
				Strength:         strength,
				AttractionRadius: lvl.price * 0.006,
			})
		}
	}
	return magnets
}

func psychologicalIntervals(price float64) []float64 {
	switch {
	case price >= 10000:
		return []float64{250, 500, 750}
	case price >= 1000:
		return []float64{25, 50, 75}
	default:
		return []float64{2.5, 5, 7.5}
	}
}

func psychologicalMagnets(currentPrice float64) []coretypes.MagnetLevel {
	var magnets []coretypes.MagnetLevel
	priceRange := currentPrice * 0.10
	lower := currentPrice - priceRange
	upper := currentPrice + priceRange

	for _, interval := range psychologicalIntervals(currentPrice) {
		startMultiple := int64(math.Floor(lower / interval))
		endMultiple := int64(math.Ceil(upper / interval))

		for multiple := startMultiple; multiple <= endMultiple; multiple++ {
			psychPrice := float64(multiple) * interval
			if psychPrice <= 0 || psychPrice < lower || psychPrice > upper {
				continue
			}

			strength := 40.0
			if multiple%4 == 0 {
				strength += 20
			} else if multiple%2 == 0 {
				strength += 15
			}

			distance := math.Abs(psychPrice-currentPrice) / currentPrice
			distanceFactor := 1 - (distance / 0.10)
			final := int(strength * distanceFactor)

			if final >= 30 {
				magnets = append(magnets, coretypes.MagnetLevel{
					Price:            psychPrice,
					Kind:             coretypes.MagnetPsychological,
					Strength:         final,
					AttractionRadius: psychPrice * 0.004,
				})
			}
		}
	}
	return magnets
}

// enhanceWithLevels boosts each magnet's strength by up to +30 when a
// PriceLevel sits within 1%, and carries over historical reaction data
// (spec §4.4, §3).
func enhanceWithLevels(magnetsIn []coretypes.MagnetLevel, levels []coretypes.PriceLevel) []coretypes.MagnetLevel {
	out := make([]coretypes.MagnetLevel, len(magnetsIn))
	copy(out, magnetsIn)

	for i := range out {
		var strongest *coretypes.PriceLevel
		for j := range levels {
			lvl := &levels[j]
			if out[i].Price <= 0 {
				continue
			}
			distance := math.Abs(lvl.Price-out[i].Price) / out[i].Price
			if distance > enhanceRadiusPct {
				continue
			}
			if strongest == nil || lvl.Strength > strongest.Strength {
				strongest = lvl
			}
		}
		if strongest == nil {
			continue
		}
		boost := strongest.Strength / 2
		if boost > maxHistoricalBoost {
			boost = maxHistoricalBoost
		}
		newStrength := out[i].Strength + boost
		if newStrength > 100 {
			newStrength = 100
		}
		out[i].Strength = newStrength
		out[i].HistoricalReactions = strongest.TouchCount
		lastTested := strongest.LastTestedAt
		out[i].LastReactionAt = &lastTested
	}
	return out
}

// NearestMagnet returns the nearest magnet with strength >= 60 within
// 5% of currentPrice, or nil (spec §4.4).
func NearestMagnet(magnets []coretypes.MagnetLevel, currentPrice float64) *coretypes.MagnetLevel {
	var best *coretypes.MagnetLevel
	bestDist := math.MaxFloat64
	for i := range magnets {
		if magnets[i].Strength < nearestMinStrength {
			continue
		}
		dist := math.Abs(magnets[i].Price - currentPrice)
		if dist < bestDist {
			bestDist = dist
			best = &magnets[i]
		}
	}
	if best == nil || currentPrice <= 0 {
		return nil
	}
	if bestDist/currentPrice > nearestMaxDistance {
		return nil
	}
	return best
}

// IsPriceNearMagnet reports whether currentPrice is within the
// magnet's attraction radius.
func IsPriceNearMagnet(currentPrice float64, magnet coretypes.MagnetLevel) bool {
	return math.Abs(currentPrice-magnet.Price) <= magnet.AttractionRadius
}
