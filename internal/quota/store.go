package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// Store coordinates preorder allocation buckets. Every reserve is a single
// conditional UpdateOne that proves sold + qty <= quota and applies the
// increment in the same operation, so two concurrent reservations can never
// both win the last unit.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection("preorder_allocations")}
}

var ErrNoAllocation = errors.New("no preorder allocation for this product")

// ExceededError reports a reservation that did not fit the bucket.
type ExceededError struct {
	ProductID primitive.ObjectID
	VariantID string
	Requested int
}

func (e ExceededError) Error() string {
	return fmt.Sprintf("preorder quota exceeded for product %s (requested %d)", e.ProductID.Hex(), e.Requested)
}

func bucketFilter(productID primitive.ObjectID, variantID string) bson.M {
	return bson.M{"productId": productID, "variantId": variantID}
}

// capacityFilter only matches the bucket while sold + qty still fits the
// quota, so the paired $inc can never oversell it.
func capacityFilter(productID primitive.ObjectID, variantID string, qty int) bson.M {
	filter := bucketFilter(productID, variantID)
	filter["$expr"] = bson.M{"$lte": []interface{}{
		bson.M{"$add": []interface{}{"$sold", qty}},
		"$quota",
	}}
	return filter
}

// releasePipeline returns qty units, flooring sold at zero.
func releasePipeline(qty int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"sold":      bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$sold", qty}}}},
			"updatedAt": "$$NOW",
		}}},
	}
}

// Reserve consumes qty units from the variant bucket, falling back to the
// product-level bucket when no variant bucket exists.
func (s *Store) Reserve(ctx context.Context, productID primitive.ObjectID, variantID string, qty int) error {
	if qty <= 0 {
		return ExceededError{ProductID: productID, VariantID: variantID, Requested: qty}
	}

	bucket, err := s.resolveBucket(ctx, productID, variantID)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx, capacityFilter(productID, bucket, qty), bson.M{
		"$inc": bson.M{"sold": qty},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ExceededError{ProductID: productID, VariantID: bucket, Requested: qty}
	}
	return nil
}

// Release returns qty units to the bucket, flooring sold at zero. Used on
// cancellation; failures here are tolerated by callers (quota drift beats
// blocking the cancel).
func (s *Store) Release(ctx context.Context, productID primitive.ObjectID, variantID string, qty int) error {
	if qty <= 0 {
		return nil
	}

	bucket, err := s.resolveBucket(ctx, productID, variantID)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx, bucketFilter(productID, bucket), releasePipeline(qty))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoAllocation
	}
	return nil
}

// Get returns the allocation bucket a reservation for this variant would hit.
func (s *Store) Get(ctx context.Context, productID primitive.ObjectID, variantID string) (*models.PreorderAllocation, error) {
	bucket, err := s.resolveBucket(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	var alloc models.PreorderAllocation
	if err := s.coll.FindOne(ctx, bucketFilter(productID, bucket)).Decode(&alloc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNoAllocation
		}
		return nil, err
	}
	return &alloc, nil
}

// Upsert creates or resizes a bucket. Sold is preserved on resize.
func (s *Store) Upsert(ctx context.Context, productID primitive.ObjectID, variantID string, quotaUnits int) error {
	update := bson.M{
		"$set":         bson.M{"quota": quotaUnits, "updatedAt": time.Now()},
		"$setOnInsert": bson.M{"sold": 0},
	}
	_, err := s.coll.UpdateOne(ctx, bucketFilter(productID, variantID), update, options.Update().SetUpsert(true))
	return err
}

// resolveBucket prefers the variant-level bucket and falls back to the
// product-level one (empty variantId).
func (s *Store) resolveBucket(ctx context.Context, productID primitive.ObjectID, variantID string) (string, error) {
	if variantID != "" {
		n, err := s.coll.CountDocuments(ctx, bucketFilter(productID, variantID))
		if err != nil {
			return "", err
		}
		if n > 0 {
			return variantID, nil
		}
	}
	n, err := s.coll.CountDocuments(ctx, bucketFilter(productID, ""))
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrNoAllocation
	}
	return "", nil
}
