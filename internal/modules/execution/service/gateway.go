package service

import (
	"context"
	"errors"

	"trade_engine/internal/models"
)

// ErrBroker marks recoverable broker failures: network, auth, timeout.
// At placement time the engine falls back to simulation; at close time the
// error surfaces to the caller and the trade stays open.
var ErrBroker = errors.New("broker error")

// Gateway is the external order-placement service.
type Gateway interface {
	PlaceOrder(ctx context.Context, trade *models.Trade) (orderID string, err error)
	CloseOrder(ctx context.Context, trade *models.Trade) error
	GetPrice(ctx context.Context, symbol string) (float64, error)
}
