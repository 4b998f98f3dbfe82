package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

func TestHasSucceededTransactionEmptyLedger(t *testing.T) {
	p := &models.Preorder{}
	assert.False(t, hasSucceededTransaction(p, "txn-1"))
}

func TestHasSucceededTransactionIgnoresFailedRecords(t *testing.T) {
	p := &models.Preorder{Payments: []models.PaymentRecord{
		{TransactionID: "txn-1", Status: models.PaymentFailed},
	}}
	assert.False(t, hasSucceededTransaction(p, "txn-1"))
}

func TestHasSucceededTransactionFindsDuplicate(t *testing.T) {
	p := &models.Preorder{Payments: []models.PaymentRecord{
		{TransactionID: "txn-1", Status: models.PaymentFailed},
		{TransactionID: "txn-1", Status: models.PaymentSucceeded},
	}}
	assert.True(t, hasSucceededTransaction(p, "txn-1"))
	assert.False(t, hasSucceededTransaction(p, "txn-2"))
}

func TestDedupPaymentFilterGuardsSucceededTransaction(t *testing.T) {
	id := primitive.NewObjectID()

	filter := dedupPaymentFilter(id, "txn-1")

	assert.Equal(t, id, filter["_id"])
	// the filter must stop matching once a succeeded record with this
	// transaction id exists, so the guarded $push applies at most once
	assert.Equal(t, bson.M{"$not": bson.M{"$elemMatch": bson.M{
		"transactionId": "txn-1",
		"status":        models.PaymentSucceeded,
	}}}, filter["payments"])
}
