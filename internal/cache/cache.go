package cache

import (
	"context"
	"errors"

	"github.com/dinehall/ordering/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	Set(ctx context.Context, customerID int64, cart *domain.Cart) error
	Delete(ctx context.Context, customerID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
