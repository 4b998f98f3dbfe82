package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/preorder"
)

func preorderableProduct() *models.Product {
	return &models.Product{
		ID:    primitive.NewObjectID(),
		Name:  "Musang King Durian",
		Price: 100000,
		Preorder: &models.PreorderSettings{
			Enabled:        true,
			DepositPercent: 20,
		},
		Variants: []models.ProductVariant{
			{VariantID: "v-1kg", WeightGrams: 1000, Ripeness: "ripe", Price: 120000},
			{VariantID: "v-2kg", WeightGrams: 2000, Ripeness: "ripe", Price: 230000},
		},
	}
}

func TestNewPreorderCode(t *testing.T) {
	code := newPreorderCode()
	assert.True(t, strings.HasPrefix(code, "PO-"))
	assert.Len(t, code, 13)
	assert.Equal(t, strings.ToUpper(code), code)
	assert.NotEqual(t, code, newPreorderCode())
}

func TestBuildPreorderLocksTerms(t *testing.T) {
	product := preorderableProduct()
	userID := primitive.NewObjectID()
	now := time.Now()

	p, err := buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 2}, "deposit", userID, now)
	require.NoError(t, err)

	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, product.ID, p.ProductID)
	assert.Equal(t, "v-1kg", p.Variant.VariantID)
	assert.Equal(t, int64(120000), p.UnitPrice)
	assert.Equal(t, int64(240000), p.Subtotal)
	assert.Equal(t, 20, p.DepositPercent)
	assert.Equal(t, int64(48000), p.DepositDue)
	assert.Equal(t, int64(240000), p.RemainingDue)
	assert.Equal(t, models.PreorderPendingPayment, p.Status)
}

func TestBuildPreorderVariantByAttributes(t *testing.T) {
	product := preorderableProduct()
	now := time.Now()

	p, err := buildPreorder(product, createPreorderRequest{WeightGrams: 2000, Ripeness: "ripe", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	require.NoError(t, err)
	assert.Equal(t, "v-2kg", p.Variant.VariantID)
	assert.Equal(t, int64(230000), p.UnitPrice)

	_, err = buildPreorder(product, createPreorderRequest{WeightGrams: 3000, Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, preorder.ErrVariantNotFound)
}

func TestBuildPreorderFullPayment(t *testing.T) {
	product := preorderableProduct()

	p, err := buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "full", primitive.NewObjectID(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 100, p.DepositPercent)
	assert.Equal(t, p.Subtotal, p.DepositDue)
}

func TestBuildPreorderWindow(t *testing.T) {
	product := preorderableProduct()
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	product.Preorder.WindowStart = &future
	_, err := buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, preorder.ErrOutsideWindow)

	product.Preorder.WindowStart = &past
	product.Preorder.WindowEnd = &past
	_, err = buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, preorder.ErrOutsideWindow)

	product.Preorder.WindowEnd = &future
	_, err = buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.NoError(t, err)
}

func TestBuildPreorderDisabled(t *testing.T) {
	product := preorderableProduct()
	now := time.Now()

	product.Preorder.Enabled = false
	_, err := buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, preorder.ErrPreorderDisabled)

	product.Preorder = nil
	_, err = buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, preorder.ErrPreorderDisabled)
}

func TestBuildPreorderBasePriceWithoutVariants(t *testing.T) {
	product := preorderableProduct()
	product.Variants = nil
	product.SaleEnabled = true
	product.SalePrice = 90000

	p, err := buildPreorder(product, createPreorderRequest{Qty: 3}, "deposit", primitive.NewObjectID(), time.Now())
	require.NoError(t, err)

	// sale price is what gets locked in
	assert.Equal(t, int64(90000), p.UnitPrice)
	assert.Equal(t, int64(270000), p.Subtotal)
	assert.Empty(t, p.Variant.VariantID)
}

func TestBuildPreorderRejectsZeroDepositPercent(t *testing.T) {
	product := preorderableProduct()
	product.Preorder.DepositPercent = 0

	// no-deposit preorders are not offered: a 0% deposit could never clear
	// the confirmation gate, so full payers go through payMethod "full"
	_, err := buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), time.Now())
	assert.ErrorIs(t, err, preorder.ErrInvalidDepositPercent)

	product.Preorder.DepositPercent = 101
	_, err = buildPreorder(product, createPreorderRequest{VariantID: "v-1kg", Qty: 1}, "deposit", primitive.NewObjectID(), time.Now())
	assert.ErrorIs(t, err, preorder.ErrInvalidDepositPercent)
}
