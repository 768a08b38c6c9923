// internal/repository/cart_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-reconciler/internal/models"
)

const cartsCollection = "carts"

// ConnectMongoDB opens the cart database and verifies it answers.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection(cartsCollection)}
}

// NewCartRepositoryFromCollection is used by tests against a mock deployment.
func NewCartRepositoryFromCollection(coll *mongo.Collection) *CartRepository {
	return &CartRepository{collection: coll}
}

// GetByID returns nil when the cart does not exist.
func (r *CartRepository) GetByID(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"_id": cartID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// Clear empties the cart. Clearing an empty or missing cart is a no-op.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	update := bson.M{
		"$set": bson.M{
			"items": []models.CartItem{},
			"discount_summary": models.DiscountSummary{
				TotalDiscount:  "0",
				CouponsApplied: []string{},
			},
			"totals":     models.CartTotals{Subtotal: "0", Total: "0"},
			"updated_at": time.Now().UTC(),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
