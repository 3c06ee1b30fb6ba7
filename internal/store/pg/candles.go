package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

// Candles archives committed candles. Writes happen off the store's read
// path; history beyond the in-memory retention lives here.
type Candles struct {
	tm *db.PgTxManager
}

func NewCandles(tm *db.PgTxManager) *Candles {
	return &Candles{tm: tm}
}

func (s *Candles) ArchiveCandle(ctx context.Context, c models.Candle) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.ArchiveCandle: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO candles (symbol, timeframe, open, high, low, close, volume, ts)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (symbol, timeframe, ts) DO NOTHING`,
			c.Symbol, c.Timeframe, c.Open, c.High, c.Low, c.Close, c.Volume, c.Timestamp,
		)
		return err
	})
}
