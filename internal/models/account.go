package models

import "time"

// Account balance is read-only for the evaluator (sizing input);
// only the execution engine mutates it, on trade close.
type Account struct {
	OwnerID   int64     `json:"owner_id"`
	Balance   float64   `json:"balance"`
	TotalPnL  float64   `json:"total_pnl"`
	UpdatedAt time.Time `json:"updated_at"`
}
