package service

import (
	"math/rand"
	"sync"
	"time"

	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
)

// basePrices seed the random walk for symbols with no history yet.
var basePrices = map[string]float64{
	"NIFTY":     21800,
	"BANKNIFTY": 46200,
	"SENSEX":    72400,
	"RELIANCE":  2450,
	"TCS":       3650,
	"INFY":      1580,
}

const defaultBasePrice = 1000

// Feed generates one synthetic candle per symbol per tick and commits it
// to the store. The RNG is injected so tests can replay a walk
// deterministically.
type Feed struct {
	cfg   *config.Config
	store *Store

	mu  sync.Mutex // rng is not safe for concurrent use
	rng *rand.Rand

	now func() time.Time
}

func NewFeed(cfg *config.Config, store *Store, rng *rand.Rand) *Feed {
	return &Feed{
		cfg:   cfg,
		store: store,
		rng:   rng,
		now:   time.Now,
	}
}

// NewRand builds the feed RNG from config; seed 0 means time-based.
func NewRand(cfg *config.Config) *rand.Rand {
	seed := cfg.Feed.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Tick produces the next candle for every configured symbol.
// Each symbol walks independently.
func (f *Feed) Tick() {
	now := f.now()
	for _, symbol := range f.cfg.Feed.Symbols {
		f.store.Append(f.nextCandle(symbol, now))
	}
}

// Backfill walks n candles for one symbol, spaced by the feed interval and
// ending just before now. Gives the indicators a usable window before the
// first live tick.
func (f *Feed) Backfill(symbol string, n int) {
	if n <= 0 {
		return
	}
	step := f.cfg.Feed.Interval
	start := f.now().Add(-time.Duration(n) * step)
	for i := 0; i < n; i++ {
		f.store.Append(f.nextCandle(symbol, start.Add(time.Duration(i)*step)))
	}
}

func (f *Feed) nextCandle(symbol string, ts time.Time) models.Candle {
	tf := f.cfg.DefaultTimeframe

	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}
	open := base
	if last, found := f.store.Latest(symbol, tf); found {
		base = last.Close
		open = last.Close
	}

	f.mu.Lock()
	changePct := f.rng.NormFloat64() * f.cfg.Feed.NoiseStddevPct
	highOff := f.rng.Float64() * 0.01
	lowOff := f.rng.Float64() * 0.01
	volume := int64(f.rng.Intn(1000000) + 500000)
	f.mu.Unlock()

	closePx := base + base*changePct/100
	if closePx <= 0 {
		// the walk never goes through zero
		closePx = base * 0.99
	}

	return models.Candle{
		Symbol:    symbol,
		Timeframe: tf,
		Open:      open,
		High:      closePx + closePx*highOff,
		Low:       closePx - closePx*lowOff,
		Close:     closePx,
		Volume:    volume,
		Timestamp: ts,
	}
}
