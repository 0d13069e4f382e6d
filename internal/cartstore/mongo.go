package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dinehall/ordering/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) CartStore {
	return &mongoStore{
		collection: db.Collection("carts"),
	}
}

func (m *mongoStore) Get(ctx context.Context, customerID int64) (*domain.Cart, error) {
	filter := bson.M{"customer_id": customerID}
	raw, err := m.collection.FindOne(ctx, filter).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var cart domain.Cart
	if err := bson.Unmarshal(raw, &cart); err != nil {
		// A structurally incompatible document is discarded, not upgraded.
		log.Printf("discarding unreadable cart for customer %d: %v", customerID, err)
		return nil, ErrCartNotFound
	}

	return &cart, nil
}

func (m *mongoStore) Upsert(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"customer_id": cart.CustomerID}
	update := bson.M{"$set": bson.M{
		"customer_id": cart.CustomerID,
		"lines":       cart.Lines,
		"created_at":  cart.CreatedAt,
		"updated_at":  cart.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoStore) Delete(ctx context.Context, customerID int64) error {
	filter := bson.M{"customer_id": customerID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
