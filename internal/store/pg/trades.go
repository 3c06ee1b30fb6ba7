package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
	execservice "trade_engine/internal/modules/execution/service"
	"trade_engine/pkg/db"
)

// Trades implements the execution TradeStore on postgres.
type Trades struct {
	tm *db.PgTxManager
}

func NewTrades(tm *db.PgTxManager) *Trades {
	return &Trades{tm: tm}
}

func (s *Trades) Save(ctx context.Context, t *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Save: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if t.ID == 0 {
			return tx.QueryRow(ctx, `
				INSERT INTO trades
					(owner_id, strategy_id, symbol, side, quantity, price, current_price,
					 status, stop_loss, take_profit, broker_order_id, pnl,
					 created_at, executed_at, closed_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
				RETURNING id`,
				t.OwnerID, t.StrategyID, t.Symbol, t.Side, t.Quantity, t.Price, t.CurrentPrice,
				t.Status, t.StopLoss, t.TakeProfit, t.BrokerOrderID, t.PnL,
				t.CreatedAt, t.ExecutedAt, t.ClosedAt,
			).Scan(&t.ID)
		}

		_, err := tx.Exec(ctx, `
			UPDATE trades SET
				current_price = $2, status = $3, broker_order_id = $4, pnl = $5,
				executed_at = $6, closed_at = $7
			WHERE id = $1`,
			t.ID, t.CurrentPrice, t.Status, t.BrokerOrderID, t.PnL, t.ExecutedAt, t.ClosedAt,
		)
		return err
	})
}

func (s *Trades) FindByID(ctx context.Context, id int64) (t *models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.FindByID: %w", err)
		}
	}()

	row := s.tm.Conn().QueryRow(ctx, `
		SELECT id, owner_id, strategy_id, symbol, side, quantity, price, current_price,
		       status, stop_loss, take_profit, broker_order_id, pnl,
		       created_at, executed_at, closed_at
		FROM trades WHERE id = $1`, id)

	t = &models.Trade{}
	err = row.Scan(
		&t.ID, &t.OwnerID, &t.StrategyID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.CurrentPrice,
		&t.Status, &t.StopLoss, &t.TakeProfit, &t.BrokerOrderID, &t.PnL,
		&t.CreatedAt, &t.ExecutedAt, &t.ClosedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, execservice.ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Trades) FindOpenFor(ctx context.Context, ownerID int64) (out []*models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.FindOpenFor: %w", err)
		}
	}()

	rows, err := s.tm.Conn().Query(ctx, `
		SELECT id, owner_id, strategy_id, symbol, side, quantity, price, current_price,
		       status, stop_loss, take_profit, broker_order_id, pnl,
		       created_at, executed_at, closed_at
		FROM trades
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC`, ownerID, models.TradeOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.Trade{}
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.StrategyID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.CurrentPrice,
			&t.Status, &t.StopLoss, &t.TakeProfit, &t.BrokerOrderID, &t.PnL,
			&t.CreatedAt, &t.ExecutedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
