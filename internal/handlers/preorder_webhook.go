package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
	"backend/internal/payment"
	"backend/internal/preorder"
	"backend/internal/scheduler"
)

// POST /payments/webhook: the provider IPN. Signature failures are the only
// non-200 outcome; every other rejection is acknowledged with 200 so the
// provider stops retrying, with the body stating what happened.
func PaymentWebhook(db *mongo.Database, gw *payment.Gateway, ac *scheduler.AutoCancel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/webhook"
		defer handlePanic(c, route)

		var cb payment.Callback
		if err := c.ShouldBindJSON(&cb); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid payload")
			return
		}

		if !gw.VerifySignature(cb) {
			log.Println("[WEBHOOK] [SECURITY] signature mismatch for transaction:", cb.TransactionID)
			c.JSON(http.StatusUnauthorized, gin.H{"result": "rejected"})
			return
		}

		preorderID, kind, err := payment.ParseReference(cb.Reference)
		if err != nil {
			log.Println("[WEBHOOK] [ERROR] bad reference:", cb.Reference)
			c.JSON(http.StatusOK, gin.H{"result": "rejected"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		p, err := loadPreorder(ctx, db, preorderID)
		if err != nil {
			log.Println("[WEBHOOK] [ERROR] preorder not resolved:", preorderID)
			c.JSON(http.StatusOK, gin.H{"result": "rejected"})
			return
		}

		status := models.PaymentFailed
		if cb.Code == 0 {
			status = models.PaymentSucceeded
		}
		record := models.PaymentRecord{
			Kind:          kind,
			Provider:      "wallet",
			TransactionID: cb.TransactionID,
			Amount:        cb.Amount,
			Status:        status,
			Metadata:      map[string]string{"providerCode": strconv.Itoa(cb.Code)},
			CreatedAt:     time.Now(),
		}

		if status == models.PaymentSucceeded {
			if hasSucceededTransaction(p, cb.TransactionID) {
				c.JSON(http.StatusOK, gin.H{"result": "duplicate"})
				return
			}
			result, err := applySucceededPayment(ctx, db, p, record)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if result == "accepted" && p.Status != models.PreorderPendingPayment {
				ac.Stop(p.ID)
			}
			log.Println("[WEBHOOK] [INFO]", result, "payment for", p.Code, "txn:", cb.TransactionID)
			c.JSON(http.StatusOK, gin.H{"result": result})
			return
		}

		// failed attempts are recorded as-is; they never affect totals
		if _, err := db.Collection("preorders").UpdateByID(ctx, p.ID, bson.M{
			"$push": bson.M{"payments": record},
			"$set":  bson.M{"updatedAt": time.Now()},
		}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		log.Println("[WEBHOOK] [INFO] failed payment recorded for", p.Code, "txn:", cb.TransactionID)
		c.JSON(http.StatusOK, gin.H{"result": "failed"})
	}
}

// dedupPaymentFilter matches the preorder only while no succeeded payment
// with this transaction id exists, so the guarded $push can never apply twice.
func dedupPaymentFilter(id primitive.ObjectID, transactionID string) bson.M {
	return bson.M{
		"_id": id,
		"payments": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"transactionId": transactionID,
			"status":        models.PaymentSucceeded,
		}}},
	}
}

func hasSucceededTransaction(p *models.Preorder, transactionID string) bool {
	for _, rec := range p.Payments {
		if rec.TransactionID == transactionID && rec.Status == models.PaymentSucceeded {
			return true
		}
	}
	return false
}

// applySucceededPayment appends the record, recomputes totals and runs the
// automatic transitions on the in-memory state that already includes the new
// entry, then persists everything in one conditional update. The filter
// excludes documents that already hold a succeeded record with this
// transaction id, so a concurrent duplicate delivery leaves exactly one
// record behind.
func applySucceededPayment(ctx context.Context, db *mongo.Database, p *models.Preorder, record models.PaymentRecord) (string, error) {
	p.Payments = append(p.Payments, record)
	preorder.Recompute(p)
	preorder.AutoAdvance(p, record.CreatedAt)
	p.UpdatedAt = time.Now()

	filter := dedupPaymentFilter(p.ID, record.TransactionID)
	update := bson.M{
		"$push": bson.M{"payments": record},
		"$set": bson.M{
			"status":       p.Status,
			"timeline":     p.Timeline,
			"depositDue":   p.DepositDue,
			"depositPaid":  p.DepositPaid,
			"remainingDue": p.RemainingDue,
			"totalPaid":    p.TotalPaid,
			"updatedAt":    p.UpdatedAt,
		},
	}

	res, err := db.Collection("preorders").UpdateOne(ctx, filter, update)
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return "duplicate", nil
	}
	return "accepted", nil
}
