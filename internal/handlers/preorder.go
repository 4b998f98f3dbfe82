package handlers

import (
	"context"
	"errors"
	"log"
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
	"backend/internal/preorder"
	"backend/internal/quota"
	"backend/internal/scheduler"
)

type createPreorderRequest struct {
	ProductID   string `json:"productId" binding:"required"`
	VariantID   string `json:"variantId"`
	WeightGrams int    `json:"weightGrams"`
	Ripeness    string `json:"ripeness"`
	Qty         int    `json:"qty" binding:"required"`
	PayMethod   string `json:"payMethod"`
}

func userIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}

func newPreorderCode() string {
	return "PO-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// POST /preorders
func CreatePreorder(db *mongo.Database, q *quota.Store, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /preorders"
		defer handlePanic(c, route)

		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createPreorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}
		if req.Qty < 1 {
			respondPreorderError(c, route, preorder.ErrInvalidQuantity)
			return
		}
		payMethod := req.PayMethod
		if payMethod == "" {
			payMethod = "deposit"
		}
		if payMethod != "deposit" && payMethod != "full" {
			respondWithError(c, http.StatusBadRequest, route, "payMethod must be deposit or full")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       productID,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		now := time.Now()
		p, err := buildPreorder(&product, req, payMethod, userID, now)
		if err != nil {
			respondPreorderError(c, route, err)
			return
		}

		if err := q.Reserve(ctx, productID, p.Variant.VariantID, p.Quantity); err != nil {
			var exceeded quota.ExceededError
			if errors.As(err, &exceeded) || errors.Is(err, quota.ErrNoAllocation) {
				respondWithError(c, http.StatusConflict, route, "preorder quota exceeded")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		res, err := db.Collection("preorders").InsertOne(ctx, p)
		if err != nil {
			// the reservation must not leak when the insert fails
			if relErr := q.Release(ctx, productID, p.Variant.VariantID, p.Quantity); relErr != nil {
				log.Println("[PREORDER] [WARN] quota release after failed insert:", relErr)
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			p.ID = id
			ac.Schedule(id)
		}

		log.Println("[PREORDER] [INFO] preorder created:", p.Code, "user:", userID.Hex())
		c.JSON(http.StatusCreated, p)
	}
}

// buildPreorder validates the commercial terms against the product and
// assembles the aggregate with its derived fields already computed.
func buildPreorder(product *models.Product, req createPreorderRequest, payMethod string, userID primitive.ObjectID, now time.Time) (*models.Preorder, error) {
	settings := product.Preorder
	if settings == nil || !settings.Enabled {
		return nil, preorder.ErrPreorderDisabled
	}
	if settings.WindowStart != nil && now.Before(*settings.WindowStart) {
		return nil, preorder.ErrOutsideWindow
	}
	if settings.WindowEnd != nil && now.After(*settings.WindowEnd) {
		return nil, preorder.ErrOutsideWindow
	}

	unitPrice := effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
	snapshot := models.VariantSnapshot{}
	if len(product.Variants) > 0 {
		var variant *models.ProductVariant
		if req.VariantID != "" {
			variant = product.VariantByID(req.VariantID)
		} else {
			variant = product.VariantByAttributes(req.WeightGrams, req.Ripeness)
		}
		if variant == nil {
			return nil, preorder.ErrVariantNotFound
		}
		unitPrice = variant.Price
		snapshot = models.VariantSnapshot{
			VariantID:   variant.VariantID,
			WeightGrams: variant.WeightGrams,
			Ripeness:    variant.Ripeness,
		}
	}
	if unitPrice <= 0 {
		return nil, preorder.ErrInvalidPrice
	}

	depositPercent := settings.DepositPercent
	if payMethod == "full" {
		depositPercent = 100
	}
	if depositPercent < 1 || depositPercent > 100 {
		return nil, preorder.ErrInvalidDepositPercent
	}

	p := &models.Preorder{
		Code:           newPreorderCode(),
		UserID:         userID,
		ProductID:      product.ID,
		ProductName:    product.Name,
		Variant:        snapshot,
		Quantity:       req.Qty,
		UnitPrice:      unitPrice,
		Subtotal:       unitPrice * int64(req.Qty),
		DepositPercent: depositPercent,
		Payments:       []models.PaymentRecord{},
		Status:         models.PreorderPendingPayment,
		History:        []models.HistoryEntry{},
		Timeline:       map[string]time.Time{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	preorder.Recompute(p)
	return p, nil
}

func respondPreorderError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, preorder.ErrPreorderDisabled),
		errors.Is(err, preorder.ErrOutsideWindow),
		errors.Is(err, preorder.ErrVariantNotFound),
		errors.Is(err, preorder.ErrInvalidPrice),
		errors.Is(err, preorder.ErrInvalidQuantity),
		errors.Is(err, preorder.ErrInvalidDepositPercent):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, preorder.ErrLocked),
		errors.Is(err, preorder.ErrWrongStatus),
		errors.Is(err, preorder.ErrNothingDue):
		respondWithError(c, http.StatusConflict, route, err.Error())
	default:
		var transition preorder.TransitionError
		var flow preorder.FlowTransitionError
		if errors.As(err, &transition) || errors.As(err, &flow) {
			respondWithError(c, http.StatusConflict, route, err.Error())
			return
		}
		respondWithError(c, http.StatusInternalServerError, route, "db error")
	}
}

// GET /preorders
func GetMyPreorders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{
			"userId":     userID,
			"isDeleted":  bson.M{"$ne": true},
			"userHidden": bson.M{"$ne": true},
		}
		cursor, err := db.Collection("preorders").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		preorders := []models.Preorder{}
		if err := cursor.All(ctx, &preorders); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, preorders)
	}
}

// GET /preorders/:id
func GetMyPreorder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /preorders/:id"

		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadOwnedPreorder(ctx, db, c.Param("id"), userID)
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

// DELETE /preorders/:id: hides the preorder from the owner's view only.
func HideMyPreorder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /preorders/:id"

		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("preorders").UpdateOne(ctx,
			bson.M{"_id": id, "userId": userID, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"userHidden": true, "updatedAt": time.Now()}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "preorder not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "preorder hidden"})
	}
}

// POST /preorders/:id/cancel
func CancelMyPreorder(db *mongo.Database, q *quota.Store, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /preorders/:id/cancel"
		defer handlePanic(c, route)

		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadOwnedPreorder(ctx, db, c.Param("id"), userID)
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		if p.Status != models.PreorderPendingPayment && p.Status != models.PreorderConfirmed {
			respondWithError(c, http.StatusConflict, route, "preorder can no longer be cancelled")
			return
		}

		refund, err := cancelPreorder(ctx, db, q, p, "cancelled by buyer")
		if err != nil {
			respondPreorderError(c, route, err)
			return
		}
		ac.Stop(p.ID)

		c.JSON(http.StatusOK, gin.H{"preorder": p, "refundAmount": refund})
	}
}

/* =========================
   SHARED PREORDER PLUMBING
========================= */

var errPreorderNotFound = errors.New("preorder not found")

func loadPreorder(ctx context.Context, db *mongo.Database, idHex string) (*models.Preorder, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, errPreorderNotFound
	}
	var p models.Preorder
	err = db.Collection("preorders").FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, errPreorderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadOwnedPreorder(ctx context.Context, db *mongo.Database, idHex string, userID primitive.ObjectID) (*models.Preorder, error) {
	p, err := loadPreorder(ctx, db, idHex)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted || p.UserID != userID {
		return nil, errPreorderNotFound
	}
	return p, nil
}

func respondLoadError(c *gin.Context, route string, err error) {
	if errors.Is(err, errPreorderNotFound) {
		respondWithError(c, http.StatusNotFound, route, "preorder not found")
		return
	}
	respondWithError(c, http.StatusInternalServerError, route, "db error")
}

// persistPreorder writes back an in-memory mutation. Derived fields, status,
// timeline and the sub-flows are $set (last write wins); new ledger and
// history entries are appended with $push so concurrent appends are never
// overwritten. newPayments/newHistory are the tails appended since load.
func persistPreorder(ctx context.Context, db *mongo.Database, p *models.Preorder, newPayments []models.PaymentRecord, newHistory []models.HistoryEntry) error {
	p.UpdatedAt = time.Now()

	set := bson.M{
		"status":          p.Status,
		"timeline":        p.Timeline,
		"depositDue":      p.DepositDue,
		"depositPaid":     p.DepositPaid,
		"remainingDue":    p.RemainingDue,
		"totalPaid":       p.TotalPaid,
		"feeAdjustment":   p.FeeAdjustment,
		"cancellationFee": p.CancellationFee,
		"shipping":        p.Shipping,
		"return":          p.Return,
		"dispute":         p.Dispute,
		"updatedAt":       p.UpdatedAt,
	}
	update := bson.M{"$set": set}

	push := bson.M{}
	if len(newPayments) > 0 {
		push["payments"] = bson.M{"$each": newPayments}
	}
	if len(newHistory) > 0 {
		push["history"] = bson.M{"$each": newHistory}
	}
	if len(push) > 0 {
		update["$push"] = push
	}

	_, err := db.Collection("preorders").UpdateByID(ctx, p.ID, update)
	return err
}

// cancelPreorder is the one cancellation path shared by the buyer endpoint,
// the admin endpoint and the auto-cancel timer: compute fee and refund, move
// to cancelled, persist, then release quota. A failed quota release is logged
// and tolerated; the status change is already committed.
func cancelPreorder(ctx context.Context, db *mongo.Database, q *quota.Store, p *models.Preorder, reason string) (int64, error) {
	var policy *models.CancellationPolicy
	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{"_id": p.ProductID}).Decode(&product)
	if err == nil && product.Preorder != nil {
		policy = product.Preorder.CancellationPolicy
	} else if err != nil && err != mongo.ErrNoDocuments {
		return 0, err
	}

	preorder.Recompute(p)
	ledgerLen := len(p.Payments)
	refund, err := preorder.Cancel(p, policy, reason, time.Now())
	if err != nil {
		return 0, err
	}

	if err := persistPreorder(ctx, db, p, p.Payments[ledgerLen:], nil); err != nil {
		return 0, err
	}

	if err := q.Release(ctx, p.ProductID, p.Variant.VariantID, p.Quantity); err != nil {
		log.Println("[PREORDER] [WARN] quota release failed for", p.Code+":", err)
	}

	log.Println("[PREORDER] [INFO] preorder cancelled:", p.Code, "refund:", refund)
	return refund, nil
}

// NewAutoCancelFire builds the timer callback: re-validate against the
// persisted state, and only cancel a preorder that is still awaiting its
// deposit. Everything else is a no-op.
func NewAutoCancelFire(db *mongo.Database, q *quota.Store) func(id primitive.ObjectID) {
	return func(id primitive.ObjectID) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, id.Hex())
		if err != nil {
			log.Println("[PREORDER] [WARN] auto-cancel load failed:", err)
			return
		}

		preorder.Recompute(p)
		if p.Status != models.PreorderPendingPayment || p.DepositPaid >= p.DepositDue {
			return
		}

		if _, err := cancelPreorder(ctx, db, q, p, "deposit not received in time"); err != nil {
			log.Println("[PREORDER] [WARN] auto-cancel failed for", p.Code+":", err)
		}
	}
}
