package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

// candlesFromCloses builds a newest-first window from chronological closes.
func candlesFromCloses(closes ...float64) []models.Candle {
	out := make([]models.Candle, 0, len(closes))
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	for i := len(closes) - 1; i >= 0; i-- {
		out = append(out, models.Candle{
			Symbol:    "NIFTY",
			Timeframe: "1m",
			Close:     closes[i],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestSMA(t *testing.T) {
	w := candlesFromCloses(10, 20, 30, 40)

	// oldest two closes are 10 and 20
	assert.Equal(t, 15.0, SMA(w, 2))
	assert.Equal(t, 25.0, SMA(w, 4))
}

func TestSMAInsufficientWindow(t *testing.T) {
	w := candlesFromCloses(10, 20)
	assert.Equal(t, 0.0, SMA(w, 3))
	assert.Equal(t, 0.0, SMA(nil, 1))
	assert.Equal(t, 0.0, SMA(w, 0))
}

func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	w := candlesFromCloses(closes...)

	assert.Equal(t, 100.0, EMA(w, 5))
}

func TestEMAKnownValue(t *testing.T) {
	// chronological closes 10, 20, 30 with period 2:
	// seed = SMA(10,20) = 15, k = 2/3
	// ema = 30*2/3 + 15*1/3 = 25
	w := candlesFromCloses(10, 20, 30)

	assert.Equal(t, 25.0, EMA(w, 2))
}

func TestEMAInsufficientWindow(t *testing.T) {
	w := candlesFromCloses(10, 20, 30)
	assert.Equal(t, 0.0, EMA(w, 4))
}

func TestEMAWindowedRecomputeIsDeterministic(t *testing.T) {
	w := candlesFromCloses(10, 20, 30, 25, 40)

	first := EMA(w, 3)
	second := EMA(w, 3)
	assert.Equal(t, first, second)
}

func TestRSINeutralOnShortWindow(t *testing.T) {
	w := candlesFromCloses(100, 101)
	assert.Equal(t, 50.0, RSI(w, 2))
	assert.Equal(t, 50.0, RSI(nil, 14))
}

func TestRSIPinnedAt100WithoutLosses(t *testing.T) {
	w := candlesFromCloses(100, 101, 102, 103, 104)
	assert.Equal(t, 100.0, RSI(w, 4))
}

func TestRSIKnownValue(t *testing.T) {
	// chronological closes 105, 100, 110 with period 2:
	// changes: -5 (loss), +10 (gain)
	// avgGain = 5, avgLoss = 2.5, rs = 2, rsi = 100 - 100/3 = 66.67
	w := candlesFromCloses(105, 100, 110)

	assert.InDelta(t, 66.67, RSI(w, 2), 1e-9)
}

func TestRSIStaysInRange(t *testing.T) {
	w := candlesFromCloses(100, 98, 103, 97, 105, 101, 99, 104)
	rsi := RSI(w, 5)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestBullishCrossoverFiresOnce(t *testing.T) {
	// flat series, then a spike on the newest candle: the fast EMA
	// crosses above the slow one exactly there
	w := candlesFromCloses(100, 100, 100, 100, 120)
	require.True(t, IsBullishEmaCrossover(w, 2, 4))

	// one more candle later the fast EMA is already above: no refire
	next := candlesFromCloses(100, 100, 100, 100, 120, 121)
	assert.False(t, IsBullishEmaCrossover(next, 2, 4))
}

func TestBullishCrossoverIgnoresDownwardCross(t *testing.T) {
	w := candlesFromCloses(120, 120, 120, 120, 80)
	assert.False(t, IsBullishEmaCrossover(w, 2, 4))
}

func TestBullishCrossoverInsufficientWindow(t *testing.T) {
	w := candlesFromCloses(100, 100, 120)
	assert.False(t, IsBullishEmaCrossover(w, 2, 4))
}

func TestThresholds(t *testing.T) {
	assert.True(t, IsOversold(29.9, 30))
	assert.False(t, IsOversold(30, 30))
	assert.True(t, IsOverbought(70.1, 70))
	assert.False(t, IsOverbought(70, 70))
}
