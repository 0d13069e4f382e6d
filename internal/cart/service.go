package cart

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/dinehall/ordering/internal/cache"
	"github.com/dinehall/ordering/internal/cartstore"
	"github.com/dinehall/ordering/internal/domain"
	"golang.org/x/sync/singleflight"
)

var ErrLineNotFound = errors.New("line not found in cart")

// Service maintains the working set of items a customer intends to order,
// independent of any table or order. Merge and totals semantics live on
// domain.Cart; the service wraps them with a load-modify-persist cycle
// against the durable store and an invalidate-on-write cache.
type Service struct {
	store cartstore.CartStore
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(store cartstore.CartStore, cache cache.CartCache) *Service {
	return &Service{
		store: store,
		cache: cache,
	}
}

// Get returns the customer's cart. A missing or unreadable cart is an empty
// cart, never an error.
func (s *Service) Get(ctx context.Context, customerID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(key(customerID), func() (interface{}, error) {

		c, err := s.cache.Get(ctx, customerID)
		if err == nil {
			return c, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		c, errGet := s.load(ctx, customerID)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), customerID, c)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return c, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddLine merges by (item id, notes) identity, summing quantities.
func (s *Service) AddLine(ctx context.Context, customerID int64, item domain.MenuItemRef, quantity int, notes string) (*domain.Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	c.AddLine(item, quantity, notes)
	return s.persist(ctx, c)
}

// UpdateQuantity adjusts the first line matching itemID by delta. A resulting
// quantity of zero or below drops the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID int64, itemID int64, delta int) (*domain.Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !c.UpdateQuantity(itemID, delta) {
		return nil, ErrLineNotFound
	}
	return s.persist(ctx, c)
}

// RemoveLine removes all lines matching itemID.
func (s *Service) RemoveLine(ctx context.Context, customerID int64, itemID int64) (*domain.Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !c.RemoveLine(itemID) {
		return nil, ErrLineNotFound
	}
	return s.persist(ctx, c)
}

// Subtract removes the given lines from the cart by (item id, notes)
// identity, leaving any other lines in place. An already-missing cart is not
// an error. A cart left empty is deleted rather than stored empty.
func (s *Service) Subtract(ctx context.Context, customerID int64, lines []domain.CartLine) error {
	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, cartstore.ErrCartNotFound) {
			return nil
		}
		return err
	}

	c.Subtract(lines)
	if len(c.Lines) == 0 {
		return s.Clear(ctx, customerID)
	}

	_, err = s.persist(ctx, c)
	return err
}

// Clear empties the cart unconditionally.
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	errDelete := s.store.Delete(ctx, customerID)
	if errDelete != nil && !errors.Is(errDelete, cartstore.ErrCartNotFound) {
		log.Printf("store delete cart error: %v \n", errDelete)
		return errDelete
	}

	s.invalidate(customerID)
	return nil
}

func (s *Service) load(ctx context.Context, customerID int64) (*domain.Cart, error) {
	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, cartstore.ErrCartNotFound) {
			return &domain.Cart{
				CustomerID: customerID,
				Lines:      nil,
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) persist(ctx context.Context, c *domain.Cart) (*domain.Cart, error) {
	if err := s.store.Upsert(ctx, c); err != nil {
		log.Printf("store upsert cart error: %v \n", err)
		return nil, err
	}

	s.invalidate(c.CustomerID)
	return c, nil
}

func (s *Service) invalidate(customerID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, customerID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}

func key(customerID int64) string {
	return strconv.FormatInt(customerID, 10)
}
