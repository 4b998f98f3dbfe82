package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

/* =======================
   REQUEST DTOs
======================= */

type productVariantRequest struct {
	VariantID   string `json:"variantId"`
	WeightGrams int    `json:"weightGrams"`
	Ripeness    string `json:"ripeness"`
	Price       int64  `json:"price"`
}

type cancellationPolicyRequest struct {
	FeePercent int        `json:"feePercent"`
	UntilDate  *time.Time `json:"untilDate"`
}

type preorderSettingsRequest struct {
	Enabled            bool                       `json:"enabled"`
	WindowStart        *time.Time                 `json:"windowStart"`
	WindowEnd          *time.Time                 `json:"windowEnd"`
	DepositPercent     int                        `json:"depositPercent"`
	CancellationPolicy *cancellationPolicyRequest `json:"cancellationPolicy"`
}

type productCreateRequest struct {
	Name        string                   `json:"name" binding:"required"`
	Price       int64                    `json:"price"`
	SaleEnabled bool                     `json:"saleEnabled"`
	SalePrice   int64                    `json:"salePrice"`
	CategoryIDs []string                 `json:"category_id" binding:"required"`
	Description string                   `json:"description"`
	Origin      string                   `json:"origin"`
	Variants    []productVariantRequest  `json:"variants"`
	Preorder    *preorderSettingsRequest `json:"preorder"`
	Stock       *int                     `json:"stock" binding:"required"`
	IsActive    *bool                    `json:"isActive"`
	IsCampaign  bool                     `json:"isCampaign"`
}

type productUpdateRequest struct {
	Name        *string                  `json:"name"`
	Price       *int64                   `json:"price"`
	SaleEnabled *bool                    `json:"saleEnabled"`
	SalePrice   *int64                   `json:"salePrice"`
	CategoryIDs *[]string                `json:"category_id"`
	Description *string                  `json:"description"`
	Origin      *string                  `json:"origin"`
	Variants    *[]productVariantRequest `json:"variants"`
	Preorder    *preorderSettingsRequest `json:"preorder"`
	Stock       *int                     `json:"stock"`
	InStock     *bool                    `json:"inStock"`
	IsActive    *bool                    `json:"isActive"`
	IsCampaign  *bool                    `json:"isCampaign"`
}

/* =======================
   HELPERS
======================= */

func resolveCategoryNamesByIDs(ctx context.Context, db *mongo.Database, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("category_id required")
	}

	seen := map[primitive.ObjectID]struct{}{}
	ordered := make([]primitive.ObjectID, 0, len(ids))

	for _, raw := range ids {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		objectID, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, fmt.Errorf("invalid category_id: %s", value)
		}
		if _, ok := seen[objectID]; ok {
			continue
		}
		seen[objectID] = struct{}{}
		ordered = append(ordered, objectID)
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("category_id required")
	}

	cursor, err := db.Collection("categories").Find(ctx, bson.M{"_id": bson.M{"$in": ordered}})
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}

	nameByID := make(map[primitive.ObjectID]string, len(categories))
	for _, category := range categories {
		nameByID[category.ID] = category.Name
	}

	names := make([]string, 0, len(ordered))
	for _, objectID := range ordered {
		name, ok := nameByID[objectID]
		if !ok {
			return nil, fmt.Errorf("category not found: %s", objectID.Hex())
		}
		names = append(names, name)
	}

	return names, nil
}

func buildVariants(reqs []productVariantRequest) ([]models.ProductVariant, error) {
	variants := make([]models.ProductVariant, 0, len(reqs))
	seenID := map[string]struct{}{}
	seenAttrs := map[string]struct{}{}

	for _, r := range reqs {
		if r.WeightGrams <= 0 {
			return nil, fmt.Errorf("variant weightGrams must be greater than zero")
		}
		if r.Price <= 0 {
			return nil, fmt.Errorf("variant price must be greater than zero")
		}

		id := strings.TrimSpace(r.VariantID)
		if id == "" {
			id = uuid.NewString()
		}
		if _, ok := seenID[id]; ok {
			return nil, fmt.Errorf("duplicate variantId: %s", id)
		}
		seenID[id] = struct{}{}

		ripeness := strings.TrimSpace(r.Ripeness)
		attrKey := fmt.Sprintf("%d|%s", r.WeightGrams, ripeness)
		if _, ok := seenAttrs[attrKey]; ok {
			return nil, fmt.Errorf("duplicate variant attributes: %s", attrKey)
		}
		seenAttrs[attrKey] = struct{}{}

		variants = append(variants, models.ProductVariant{
			VariantID:   id,
			WeightGrams: r.WeightGrams,
			Ripeness:    ripeness,
			Price:       r.Price,
		})
	}
	return variants, nil
}

func buildPreorderSettings(req *preorderSettingsRequest) (*models.PreorderSettings, error) {
	if req == nil {
		return nil, nil
	}

	if req.DepositPercent < 1 || req.DepositPercent > 100 {
		return nil, fmt.Errorf("depositPercent must be between 1 and 100")
	}
	if req.WindowStart != nil && req.WindowEnd != nil && req.WindowEnd.Before(*req.WindowStart) {
		return nil, fmt.Errorf("windowEnd must not be before windowStart")
	}

	settings := &models.PreorderSettings{
		Enabled:        req.Enabled,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		DepositPercent: req.DepositPercent,
	}

	if req.CancellationPolicy != nil {
		if req.CancellationPolicy.FeePercent < 0 || req.CancellationPolicy.FeePercent > 100 {
			return nil, fmt.Errorf("cancellation feePercent must be between 0 and 100")
		}
		settings.CancellationPolicy = &models.CancellationPolicy{
			FeePercent: req.CancellationPolicy.FeePercent,
			UntilDate:  req.CancellationPolicy.UntilDate,
		}
	}

	return settings, nil
}

/* =======================
   GET (ADMIN) – LIST
======================= */

func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(
			c.Query("page"),
			c.Query("limit"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := bson.M{
			"isDeleted": bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = bson.M{"$in": []string{category}}
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"origin": bson.M{"$regex": search, "$options": "i"}},
				{"description": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		if isActive := strings.TrimSpace(c.Query("isActive")); isActive != "" {
			filter["isActive"] = strings.EqualFold(isActive, "true")
		}

		if preorder := strings.TrimSpace(c.Query("preorder")); preorder != "" {
			filter["preorder.enabled"] = strings.EqualFold(preorder, "true")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": products,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

/* =======================
   CREATE
======================= */

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}

		if req.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}

		if err := validateSaleFields(req.Price, req.SaleEnabled, req.SalePrice, req.SalePrice > 0); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		categoryNames, err := resolveCategoryNamesByIDs(ctx, db, req.CategoryIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		categories := models.StringList(categoryNames).Normalized()

		if req.Stock == nil || *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
			return
		}

		variants, err := buildVariants(req.Variants)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		preorder, err := buildPreorderSettings(req.Preorder)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		product := models.Product{
			Name:        name,
			Price:       req.Price,
			SaleEnabled: req.SaleEnabled,
			SalePrice:   req.SalePrice,
			IsOnSale:    isProductOnSale(req.Price, req.SaleEnabled, req.SalePrice),
			Category:    categories,
			Description: strings.TrimSpace(req.Description),
			Origin:      strings.TrimSpace(req.Origin),
			Variants:    variants,
			Preorder:    preorder,
			Stock:       *req.Stock,
			InStock:     *req.Stock > 0,
			IsActive:    isActive,
			IsCampaign:  req.IsCampaign,
			IsDeleted:   false,
			CreatedAt:   time.Now(),
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		product.ID = res.InsertedID.(primitive.ObjectID)
		c.JSON(http.StatusCreated, product)
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req productUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updateSet := bson.M{}
		updateUnset := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
				return
			}
			updateSet["name"] = name
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
				return
			}
			updateSet["price"] = *req.Price
		}

		var saleInput saleUpdateInput
		saleInput.Price = req.Price
		saleInput.SaleEnabled = req.SaleEnabled
		saleInput.SalePrice = req.SalePrice

		saleUpdate, err := resolveSaleUpdate(existing.Price, existing.SaleEnabled, existing.SalePrice, saleInput)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if saleUpdate.SetSaleEnabled {
			updateSet["saleEnabled"] = saleUpdate.SaleEnabled
		}
		if saleUpdate.SetSalePrice {
			updateSet["salePrice"] = saleUpdate.SalePrice
		}

		if req.CategoryIDs != nil {
			categoryNames, err := resolveCategoryNamesByIDs(ctx, db, *req.CategoryIDs)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updateSet["category"] = models.StringList(categoryNames).Normalized()
		}
		if req.Description != nil {
			updateSet["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Origin != nil {
			origin := strings.TrimSpace(*req.Origin)
			if origin == "" {
				updateUnset["origin"] = ""
			} else {
				updateSet["origin"] = origin
			}
		}
		if req.Variants != nil {
			variants, err := buildVariants(*req.Variants)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if len(variants) == 0 {
				updateUnset["variants"] = ""
			} else {
				updateSet["variants"] = variants
			}
		}
		if req.Preorder != nil {
			preorder, err := buildPreorderSettings(req.Preorder)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updateSet["preorder"] = preorder
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
				return
			}
			updateSet["stock"] = *req.Stock
		}
		if req.IsActive != nil {
			updateSet["isActive"] = *req.IsActive
		}
		if req.IsCampaign != nil {
			updateSet["isCampaign"] = *req.IsCampaign
		}

		if len(updateSet) == 0 && len(updateUnset) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		update := bson.M{}
		if len(updateSet) > 0 {
			update["$set"] = updateSet
		}
		if len(updateUnset) > 0 {
			update["$unset"] = updateUnset
		}
		result, err := db.Collection("products").UpdateOne(ctx, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		}, update)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if result.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		var updated models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated.InStock = updated.Stock > 0
		updated.IsOnSale = isProductOnSale(updated.Price, updated.SaleEnabled, updated.SalePrice)
		c.JSON(http.StatusOK, updated)
	}
}

/* =======================
   DELETE (SOFT)
======================= */

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").UpdateOne(
			ctx,
			bson.M{
				"_id":       id,
				"isDeleted": bson.M{"$ne": true},
			},
			bson.M{"$set": bson.M{
				"isDeleted": true,
				"deletedAt": time.Now(),
				"isActive":  false,
			}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
