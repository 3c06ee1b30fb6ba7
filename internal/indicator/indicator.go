// Package indicator computes technical indicators over bounded candle
// windows ordered newest-first. All functions are pure and safe for
// concurrent use.
package indicator

import (
	"math"

	"trade_engine/internal/models"
)

// round half-up to n decimal places; prices are always positive here.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p+0.5) / p
}

// SMA over the oldest `period` candles of the window.
func SMA(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return round(sum/float64(period), 4)
}

// EMA seeds from the SMA of the oldest `period` candles and walks forward
// chronologically through the newer ones. The window is recomputed from
// scratch on every call — prior EMA values are never retained, so the
// result is a function of the window alone.
// Returns 0 when the window is shorter than period.
func EMA(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	k := 2.0 / float64(period+1)
	ema := SMA(candles, period)

	// candles are newest-first: walk remaining indexes from old to new
	for i := len(candles) - period - 1; i >= 0; i-- {
		ema = candles[i].Close*k + ema*(1-k)
	}

	return round(ema, 2)
}

// RSI over `period` consecutive close-to-close changes. Needs period+1
// candles, otherwise returns the neutral value 50. When the window holds
// no losses at all the result is pinned to 100.
func RSI(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50
	}

	gain, loss := 0.0, 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		// index i-1 is the chronologically newer candle
		change := candles[i-1].Close - candles[i].Close
		if change > 0 {
			gain += change
		} else {
			loss += -change
		}
	}

	avgGain := round(gain/float64(period), 4)
	avgLoss := round(loss/float64(period), 4)

	if avgLoss == 0 {
		return 100
	}

	rs := round(avgGain/avgLoss, 4)
	return 100 - round(100/(1+rs), 2)
}

// IsBullishEmaCrossover reports whether the fast EMA crossed above the slow
// EMA on the most recent candle: previous fast <= previous slow and current
// fast > current slow. "Previous" is the window with the newest candle
// dropped. Only upward crossings are detected.
func IsBullishEmaCrossover(candles []models.Candle, fastPeriod, slowPeriod int) bool {
	need := fastPeriod
	if slowPeriod > need {
		need = slowPeriod
	}
	if len(candles) < need+1 {
		return false
	}

	currentFast := EMA(candles, fastPeriod)
	currentSlow := EMA(candles, slowPeriod)

	prev := candles[1:]
	previousFast := EMA(prev, fastPeriod)
	previousSlow := EMA(prev, slowPeriod)

	return previousFast <= previousSlow && currentFast > currentSlow
}

func IsOversold(rsi, threshold float64) bool   { return rsi < threshold }
func IsOverbought(rsi, threshold float64) bool { return rsi > threshold }
