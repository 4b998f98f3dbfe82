package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
	"backend/internal/payment"
	"backend/internal/preorder"
)

type createPreorderPaymentRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// POST /preorders/:id/payment: requests a wallet-provider payment URL for
// the deposit or the remaining balance of an owned preorder. Nothing is
// persisted here; the ledger only moves when the provider calls back.
func CreatePreorderPayment(db *mongo.Database, gw *payment.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /preorders/:id/payment"
		defer handlePanic(c, route)

		userID, ok := userIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createPreorderPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		kind := models.PaymentKind(req.Kind)
		if kind != models.PaymentKindDeposit && kind != models.PaymentKindRemaining {
			respondWithError(c, http.StatusBadRequest, route, "kind must be deposit or remaining")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		p, err := loadOwnedPreorder(ctx, db, c.Param("id"), userID)
		if err != nil {
			respondLoadError(c, route, err)
			return
		}

		preorder.Recompute(p)
		intent, err := gw.CreateIntent(c.Request.Context(), p, kind)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrWrongStatus):
				respondWithError(c, http.StatusConflict, route, "current status does not permit this payment")
			case errors.Is(err, payment.ErrNothingDue):
				respondWithError(c, http.StatusConflict, route, "nothing due")
			case errors.Is(err, payment.ErrGateway):
				log.Println("[PAYMENT] [ERROR] create intent failed:", err)
				respondWithError(c, http.StatusBadGateway, route, "payment gateway unavailable, try again later")
			default:
				respondWithError(c, http.StatusInternalServerError, route, "payment error")
			}
			return
		}

		log.Println("[PAYMENT] [INFO] payment intent created for", p.Code, "kind:", kind, "amount:", intent.Amount)
		c.JSON(http.StatusOK, gin.H{
			"payUrl": intent.PayURL,
			"amount": intent.Amount,
		})
	}
}
