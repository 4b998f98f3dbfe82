package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
	"backend/internal/preorder"
	"backend/internal/quota"
	"backend/internal/scheduler"
)

func adminIDFromContext(c *gin.Context) primitive.ObjectID {
	value, ok := c.Get("claims")
	if !ok {
		return primitive.NilObjectID
	}
	claims, ok := value.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID
	}
	sub, _ := claims["sub"].(string)
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

// GET /admin/api/preorders
func GetAllPreorders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/preorders"
		defer handlePanic(c, route)

		filter := bson.M{}
		if c.Query("includeDeleted") != "true" {
			filter["isDeleted"] = bson.M{"$ne": true}
		}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}
		if code := strings.TrimSpace(c.Query("code")); code != "" {
			filter["code"] = bson.M{"$regex": code, "$options": "i"}
		}
		if userHex := strings.TrimSpace(c.Query("userId")); userHex != "" {
			userID, err := primitive.ObjectIDFromHex(userHex)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid userId")
				return
			}
			filter["userId"] = userID
		}

		findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		pageStr, limitStr := c.Query("page"), c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}
			findOptions.SetSkip((page - 1) * limit).SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("preorders").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		preorders := []models.Preorder{}
		if err := cursor.All(ctx, &preorders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, preorders)
	}
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PUT /admin/api/preorders/:id/status: manual forward transition, same
// rules as the automatic ones. Cancellation goes through the cancel endpoint
// so its fee/refund/quota side effects run.
func AdminSetPreorderStatus(db *mongo.Database, q *quota.Store, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/preorders/:id/status"
		defer handlePanic(c, route)

		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		target := models.PreorderStatus(req.Status)
		if target == models.PreorderCancelled {
			refund, err := cancelPreorder(ctx, db, q, p, "cancelled by admin")
			if err != nil {
				respondPreorderError(c, route, err)
				return
			}
			ac.Stop(p.ID)
			c.JSON(http.StatusOK, gin.H{"preorder": p, "refundAmount": refund})
			return
		}

		preorder.Recompute(p)
		if err := preorder.Transition(p, target, time.Now()); err != nil {
			respondPreorderError(c, route, err)
			return
		}
		if err := persistPreorder(ctx, db, p, nil, nil); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if p.Status != models.PreorderPendingPayment {
			ac.Stop(p.ID)
		}

		c.JSON(http.StatusOK, p)
	}
}

// POST /admin/api/preorders/:id/force-delivered is the explicit override that
// skips the remaining-due gate.
func AdminForceDelivered(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/force-delivered"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		preorder.Recompute(p)
		if err := preorder.ForceDelivered(p, time.Now()); err != nil {
			respondPreorderError(c, route, err)
			return
		}
		history := models.HistoryEntry{
			Action:    "force_delivered",
			AdminID:   adminIDFromContext(c),
			CreatedAt: time.Now(),
		}
		p.History = append(p.History, history)
		if err := persistPreorder(ctx, db, p, nil, []models.HistoryEntry{history}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[PREORDER] [INFO] force-delivered:", p.Code)
		c.JSON(http.StatusOK, p)
	}
}

type addPaymentRequest struct {
	Kind          string `json:"kind" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	TransactionID string `json:"transactionId"`
	Note          string `json:"note"`
}

// POST /admin/api/preorders/:id/payments: manual ledger append. Runs
// through the same recompute + auto-advance path as webhook payments.
func AdminAddPreorderPayment(db *mongo.Database, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/payments"
		defer handlePanic(c, route)

		var req addPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		kind := models.PaymentKind(req.Kind)
		switch kind {
		case models.PaymentKindDeposit, models.PaymentKindRemaining, models.PaymentKindRefund, models.PaymentKindAdjustment:
		default:
			respondWithError(c, http.StatusBadRequest, route, "invalid payment kind")
			return
		}
		if req.Amount <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "amount must be positive")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}
		if preorder.Locked(p.Status) && kind != models.PaymentKindRefund {
			respondPreorderError(c, route, preorder.ErrLocked)
			return
		}

		record := models.PaymentRecord{
			Kind:          kind,
			Provider:      "manual",
			TransactionID: req.TransactionID,
			Amount:        req.Amount,
			Status:        models.PaymentSucceeded,
			CreatedAt:     time.Now(),
		}
		if req.Note != "" {
			record.Metadata = map[string]string{"note": req.Note}
		}

		if record.TransactionID != "" && hasSucceededTransaction(p, record.TransactionID) {
			c.JSON(http.StatusOK, gin.H{"result": "duplicate", "preorder": p})
			return
		}

		if err := appendAdminPayment(ctx, db, p, record, adminIDFromContext(c)); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if p.Status != models.PreorderPendingPayment {
			ac.Stop(p.ID)
		}

		c.JSON(http.StatusOK, p)
	}
}

func appendAdminPayment(ctx context.Context, db *mongo.Database, p *models.Preorder, record models.PaymentRecord, adminID primitive.ObjectID) error {
	p.Payments = append(p.Payments, record)
	preorder.Recompute(p)
	preorder.AutoAdvance(p, record.CreatedAt)

	history := models.HistoryEntry{
		Action:    "payment_recorded",
		Note:      string(record.Kind),
		AdminID:   adminID,
		CreatedAt: record.CreatedAt,
	}
	p.History = append(p.History, history)

	return persistPreorder(ctx, db, p, []models.PaymentRecord{record}, []models.HistoryEntry{history})
}

// POST /admin/api/preorders/:id/deposit-paid records the outstanding
// deposit as collected out-of-band (cash, bank transfer).
func AdminMarkDepositPaid(db *mongo.Database, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/deposit-paid"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		preorder.Recompute(p)
		outstanding := p.DepositDue - p.DepositPaid
		if outstanding <= 0 || p.Status != models.PreorderPendingPayment {
			respondPreorderError(c, route, preorder.ErrNothingDue)
			return
		}

		record := models.PaymentRecord{
			Kind:      models.PaymentKindDeposit,
			Provider:  "manual",
			Amount:    outstanding,
			Status:    models.PaymentSucceeded,
			CreatedAt: time.Now(),
		}
		if err := appendAdminPayment(ctx, db, p, record, adminIDFromContext(c)); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		ac.Stop(p.ID)

		c.JSON(http.StatusOK, p)
	}
}

// POST /admin/api/preorders/:id/paid-in-full
func AdminMarkPaidInFull(db *mongo.Database, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/paid-in-full"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}
		if preorder.Locked(p.Status) {
			respondPreorderError(c, route, preorder.ErrLocked)
			return
		}

		preorder.Recompute(p)
		if p.RemainingDue <= 0 {
			respondPreorderError(c, route, preorder.ErrNothingDue)
			return
		}

		record := models.PaymentRecord{
			Kind:      models.PaymentKindRemaining,
			Provider:  "manual",
			Amount:    p.RemainingDue,
			Status:    models.PaymentSucceeded,
			CreatedAt: time.Now(),
		}
		if err := appendAdminPayment(ctx, db, p, record, adminIDFromContext(c)); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		ac.Stop(p.ID)

		c.JSON(http.StatusOK, p)
	}
}

type feeAdjustmentRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// PUT /admin/api/preorders/:id/fee-adjustment: signed amount, raises or
// lowers the gross obligation; totals are recomputed immediately.
func AdminSetFeeAdjustment(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/preorders/:id/fee-adjustment"
		defer handlePanic(c, route)

		var req feeAdjustmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}
		if preorder.Locked(p.Status) {
			respondPreorderError(c, route, preorder.ErrLocked)
			return
		}

		p.FeeAdjustment = req.Amount
		preorder.Recompute(p)
		preorder.AutoAdvance(p, time.Now())

		history := models.HistoryEntry{
			Action:    "fee_adjustment",
			Note:      req.Note,
			AdminID:   adminIDFromContext(c),
			CreatedAt: time.Now(),
		}
		p.History = append(p.History, history)

		if err := persistPreorder(ctx, db, p, nil, []models.HistoryEntry{history}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

type cancelPreorderRequest struct {
	Reason string `json:"reason"`
}

// POST /admin/api/preorders/:id/cancel
func AdminCancelPreorder(db *mongo.Database, q *quota.Store, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/cancel"
		defer handlePanic(c, route)

		var req cancelPreorderRequest
		_ = c.ShouldBindJSON(&req)
		reason := req.Reason
		if reason == "" {
			reason = "cancelled by admin"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		refund, err := cancelPreorder(ctx, db, q, p, reason)
		if err != nil {
			respondPreorderError(c, route, err)
			return
		}
		ac.Stop(p.ID)

		c.JSON(http.StatusOK, gin.H{"preorder": p, "refundAmount": refund})
	}
}

type shippingUpdateRequest struct {
	Status       string `json:"status" binding:"required"`
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"trackingCode"`
}

// PUT /admin/api/preorders/:id/shipping: records a carrier milestone and
// lets the automatic transitions follow (confirmed -> shipping, and the
// delivery gate once the balance is zero).
func AdminUpdateShipping(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/preorders/:id/shipping"
		defer handlePanic(c, route)

		var req shippingUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		now := time.Now()
		preorder.Recompute(p)

		target := models.ShippingStatus(req.Status)
		if p.Shipping == nil {
			if target != models.ShippingAwaitingPickup {
				respondPreorderError(c, route, preorder.ErrWrongStatus)
				return
			}
			err = preorder.StartShipping(p, req.Carrier, req.TrackingCode, now)
		} else {
			err = preorder.AdvanceShipping(p, target, now)
		}
		if err != nil {
			respondPreorderError(c, route, err)
			return
		}

		preorder.AutoAdvance(p, now)

		if err := persistPreorder(ctx, db, p, nil, nil); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

// POST and DELETE /admin/api/preorders/:id/dispute open and close a dispute.
// An open dispute suppresses the automatic move to delivered.
func AdminSetDispute(db *mongo.Database, open bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/dispute"
		defer handlePanic(c, route)

		var req disputeRequest
		_ = c.ShouldBindJSON(&req)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		now := time.Now()
		if open {
			if p.Dispute != nil && p.Dispute.Open {
				respondPreorderError(c, route, preorder.ErrDisputeOpen)
				return
			}
			p.Dispute = &models.Dispute{Open: true, Reason: req.Reason, OpenedAt: &now}
		} else {
			if p.Dispute == nil || !p.Dispute.Open {
				respondPreorderError(c, route, preorder.ErrDisputeClosed)
				return
			}
			p.Dispute.Open = false
			p.Dispute.ClosedAt = &now
			// closing may unblock the delivery gate
			preorder.Recompute(p)
			preorder.AutoAdvance(p, now)
		}

		if err := persistPreorder(ctx, db, p, nil, nil); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

type returnActionRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
	Amount int64  `json:"amount"`
}

// POST /admin/api/preorders/:id/return: drives the post-delivery return
// flow; issuing the refund appends a refund ledger record.
func AdminReturnAction(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/return"
		defer handlePanic(c, route)

		var req returnActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, c.Param("id"))
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		now := time.Now()
		preorder.Recompute(p)
		ledgerLen := len(p.Payments)

		switch req.Action {
		case "request":
			err = preorder.RequestReturn(p, req.Reason, now)
		case "approve":
			err = preorder.AdvanceReturn(p, models.ReturnApproved, now)
		case "reject":
			err = preorder.AdvanceReturn(p, models.ReturnRejected, now)
		case "ship":
			err = preorder.AdvanceReturn(p, models.ReturnShipped, now)
		case "receive":
			err = preorder.AdvanceReturn(p, models.ReturnReceived, now)
		case "refund":
			err = preorder.IssueReturnRefund(p, req.Amount, "manual", now)
		default:
			respondWithError(c, http.StatusBadRequest, route, "invalid return action")
			return
		}
		if err != nil {
			respondPreorderError(c, route, err)
			return
		}

		preorder.Recompute(p)
		if err := persistPreorder(ctx, db, p, p.Payments[ledgerLen:], nil); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

type historyNoteRequest struct {
	Action string `json:"action" binding:"required"`
	Note   string `json:"note"`
}

// POST /admin/api/preorders/:id/history: audit entries for administrative
// actions that do not change status ("marked ready", "converted to external
// order").
func AdminAddPreorderHistory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/preorders/:id/history"
		defer handlePanic(c, route)

		var req historyNoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		entry := models.HistoryEntry{
			Action:    strings.TrimSpace(req.Action),
			Note:      strings.TrimSpace(req.Note),
			AdminID:   adminIDFromContext(c),
			CreatedAt: time.Now(),
		}

		res, err := db.Collection("preorders").UpdateByID(ctx, id, bson.M{
			"$push": bson.M{"history": entry},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "preorder not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "history recorded"})
	}
}

// DELETE /admin/api/preorders/:id: soft delete; the document stays, hidden
// from all default listings.
func AdminDeletePreorder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/preorders/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		res, err := db.Collection("preorders").UpdateOne(ctx,
			bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "preorder not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "preorder deleted"})
	}
}

type setQuotaRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
	Quota     int    `json:"quota" binding:"required"`
}

// PUT /admin/api/preorder-quotas creates or resizes an allocation bucket.
func AdminSetPreorderQuota(q *quota.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/preorder-quotas"
		defer handlePanic(c, route)

		var req setQuotaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.Quota < 0 {
			respondWithError(c, http.StatusBadRequest, route, "quota must not be negative")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := q.Upsert(ctx, productID, req.VariantID, req.Quota); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "quota updated"})
	}
}
