package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductVariant is a sellable weight/ripeness combination with its own price.
type ProductVariant struct {
	VariantID   string `bson:"variantId" json:"variantId"`
	WeightGrams int    `bson:"weightGrams" json:"weightGrams"`
	Ripeness    string `bson:"ripeness,omitempty" json:"ripeness,omitempty"`
	Price       int64  `bson:"price" json:"price"`
}

// CancellationPolicy: the fee applies unless now is on or before UntilDate;
// a missing UntilDate means the fee always applies.
type CancellationPolicy struct {
	FeePercent int        `bson:"feePercent" json:"feePercent"`
	UntilDate  *time.Time `bson:"untilDate,omitempty" json:"untilDate,omitempty"`
}

// PreorderSettings enables the deposit workflow for a not-yet-stocked product.
type PreorderSettings struct {
	Enabled            bool                `bson:"enabled" json:"enabled"`
	WindowStart        *time.Time          `bson:"windowStart,omitempty" json:"windowStart,omitempty"`
	WindowEnd          *time.Time          `bson:"windowEnd,omitempty" json:"windowEnd,omitempty"`
	DepositPercent     int                 `bson:"depositPercent" json:"depositPercent"`
	CancellationPolicy *CancellationPolicy `bson:"cancellationPolicy,omitempty" json:"cancellationPolicy,omitempty"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       int64              `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   int64              `bson:"salePrice" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	Category    StringList         `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Origin      string             `bson:"origin,omitempty" json:"origin,omitempty"`
	Variants    []ProductVariant   `bson:"variants,omitempty" json:"variants,omitempty"`
	Preorder    *PreorderSettings  `bson:"preorder,omitempty" json:"preorder,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsCampaign  bool               `bson:"isCampaign" json:"isCampaign"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// VariantByID returns the matching variant, or nil.
func (p *Product) VariantByID(variantID string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// VariantByAttributes matches on (weightGrams, ripeness), or nil.
func (p *Product) VariantByAttributes(weightGrams int, ripeness string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].WeightGrams == weightGrams && p.Variants[i].Ripeness == ripeness {
			return &p.Variants[i]
		}
	}
	return nil
}
