package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreorderAllocation is one quota bucket. VariantID is empty for the
// product-level bucket. Invariant: 0 <= sold <= quota, enforced by
// conditional updates in the quota store.
type PreorderAllocation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	VariantID string             `bson:"variantId" json:"variantId"`
	Quota     int                `bson:"quota" json:"quota"`
	Sold      int                `bson:"sold" json:"sold"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Remaining units reservable from this bucket.
func (a PreorderAllocation) Remaining() int {
	if a.Sold >= a.Quota {
		return 0
	}
	return a.Quota - a.Sold
}
