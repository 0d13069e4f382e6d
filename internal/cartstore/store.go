package cartstore

import (
	"context"
	"errors"

	"github.com/dinehall/ordering/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStore is the durable copy of a customer's cart. Mutations always write
// the full line list; the store never flushes a cart partially.
type CartStore interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	Upsert(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, customerID int64) error
}
