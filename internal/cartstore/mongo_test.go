package cartstore

import (
	"context"
	"testing"

	"github.com/dinehall/ordering/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (CartStore, *mongo.Database, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	// Get connection string
	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Connect to MongoDB
	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)

	mongoStore := store.(*mongoStore)
	err = mongoStore.CreateIndexes(ctx)
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, db, cleanup
}

func testCart(customerID int64) *domain.Cart {
	c := &domain.Cart{CustomerID: customerID}
	c.AddLine(domain.MenuItemRef{ID: 1, Name: "Pad Thai", UnitPrice: 12.50}, 2, "spicy")
	c.AddLine(domain.MenuItemRef{ID: 2, Name: "Iced Tea", UnitPrice: 3.00}, 1, "")
	return c
}

func TestGet_NotFound(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.Get(context.Background(), 404)

	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestUpsertAndGet_RoundTrip(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := store.Upsert(ctx, testCart(1))
	require.NoError(t, err)

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CustomerID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "spicy", got.Lines[0].Notes)
	assert.Equal(t, 28.0, got.Total())
}

func TestUpsert_ReplacesFullLineList(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	c := testCart(1)
	require.NoError(t, store.Upsert(ctx, c))

	c.RemoveLine(1)
	require.NoError(t, store.Upsert(ctx, c))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(2), got.Lines[0].Item.ID)
}

func TestDelete_RemovesCart(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testCart(1)))
	require.NoError(t, store.Delete(ctx, 1))

	_, err := store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := store.Delete(context.Background(), 404)

	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGet_CorruptDocumentIsDiscarded(t *testing.T) {
	store, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Plant a document whose lines field has the wrong shape.
	_, err := db.Collection("carts").InsertOne(ctx, bson.M{
		"customer_id": int64(7),
		"lines":       "not an array",
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCartNotFound)
}
