package pg

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

// Strategies mirrors registry mutations into postgres. Indicator and risk
// parameters travel as one JSON blob next to the indexed columns.
type Strategies struct {
	tm *db.PgTxManager
}

func NewStrategies(tm *db.PgTxManager) *Strategies {
	return &Strategies{tm: tm}
}

type strategyParams struct {
	Ema  models.EmaCrossoverParams `json:"ema"`
	Rsi  models.RsiParams          `json:"rsi"`
	Risk models.RiskParams         `json:"risk"`
	Perf models.Performance        `json:"perf"`
}

func (s *Strategies) SaveStrategy(ctx context.Context, st *models.Strategy) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.SaveStrategy: %w", err)
		}
	}()

	var data []byte
	data, err = sonic.Marshal(strategyParams{
		Ema:  st.Ema,
		Rsi:  st.Rsi,
		Risk: st.Risk,
		Perf: st.Perf,
	})
	if err != nil {
		return err
	}

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO strategies (id, owner_id, name, kind, symbol, timeframe, active, params, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO UPDATE SET
				name = $3, kind = $4, symbol = $5, timeframe = $6,
				active = $7, params = $8, updated_at = $10`,
			st.ID, st.OwnerID, st.Name, st.Kind, st.Symbol, st.Timeframe,
			st.Active, data, st.CreatedAt, st.UpdatedAt,
		)
		return err
	})
}

func (s *Strategies) DeleteStrategy(ctx context.Context, id int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.DeleteStrategy: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
		return err
	})
}

// LoadAll restores persisted strategies, e.g. to re-seed the registry on
// startup.
func (s *Strategies) LoadAll(ctx context.Context) (out []models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.LoadAll: %w", err)
		}
	}()

	rows, err := s.tm.Conn().Query(ctx, `
		SELECT id, owner_id, name, kind, symbol, timeframe, active, params, created_at, updated_at
		FROM strategies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st   models.Strategy
			data []byte
		)
		if err := rows.Scan(
			&st.ID, &st.OwnerID, &st.Name, &st.Kind, &st.Symbol, &st.Timeframe,
			&st.Active, &data, &st.CreatedAt, &st.UpdatedAt,
		); err != nil {
			return nil, err
		}

		var p strategyParams
		if err := sonic.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		st.Ema, st.Rsi, st.Risk, st.Perf = p.Ema, p.Rsi, p.Risk, p.Perf
		out = append(out, st)
	}
	return out, rows.Err()
}
