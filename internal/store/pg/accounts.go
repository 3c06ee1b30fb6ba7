package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

// Accounts implements the execution AccountStore on postgres. A missing
// account row is created with the default balance on first read.
type Accounts struct {
	tm             *db.PgTxManager
	defaultBalance float64
}

func NewAccounts(tm *db.PgTxManager, defaultBalance float64) *Accounts {
	return &Accounts{tm: tm, defaultBalance: defaultBalance}
}

func (s *Accounts) Get(ctx context.Context, ownerID int64) (acct *models.Account, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Accounts.Get: %w", err)
		}
	}()

	acct = &models.Account{}
	err = s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO accounts (owner_id, balance, total_pnl, updated_at)
			VALUES ($1, $2, 0, $3)
			ON CONFLICT (owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
			RETURNING owner_id, balance, total_pnl, updated_at`,
			ownerID, s.defaultBalance, time.Now(),
		).Scan(&acct.OwnerID, &acct.Balance, &acct.TotalPnL, &acct.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Accounts) ApplyPnL(ctx context.Context, ownerID int64, pnl float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Accounts.ApplyPnL: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE accounts SET
				balance = balance + $2,
				total_pnl = total_pnl + $2,
				updated_at = $3
			WHERE owner_id = $1`,
			ownerID, pnl, time.Now(),
		)
		return err
	})
}
