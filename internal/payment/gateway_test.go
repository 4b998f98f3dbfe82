package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

func testGateway(baseURL string) *Gateway {
	return New(Config{
		BaseURL:    baseURL,
		MerchantID: "FRESHFRUIT",
		Secret:     "test-secret",
		NotifyURL:  "https://shop.example/payments/webhook",
		ReturnURL:  "https://shop.example/return",
		Timeout:    2 * time.Second,
	})
}

func pendingPreorder() *models.Preorder {
	return &models.Preorder{
		ID:             primitive.NewObjectID(),
		Code:           "PO-ABC123",
		Subtotal:       100000,
		DepositPercent: 20,
		DepositDue:     20000,
		RemainingDue:   100000,
		Status:         models.PreorderPendingPayment,
	}
}

func TestAmountDue(t *testing.T) {
	p := pendingPreorder()

	due, err := AmountDue(p, models.PaymentKindDeposit)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), due)

	// partial deposit already collected
	p.DepositPaid = 5000
	due, err = AmountDue(p, models.PaymentKindDeposit)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), due)

	_, err = AmountDue(p, models.PaymentKindRemaining)
	assert.ErrorIs(t, err, ErrWrongStatus)

	p.Status = models.PreorderConfirmed
	p.RemainingDue = 80000
	due, err = AmountDue(p, models.PaymentKindRemaining)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), due)

	_, err = AmountDue(p, models.PaymentKindDeposit)
	assert.ErrorIs(t, err, ErrWrongStatus)

	p.Status = models.PreorderShipping
	_, err = AmountDue(p, models.PaymentKindRemaining)
	assert.NoError(t, err)

	_, err = AmountDue(p, models.PaymentKindRefund)
	assert.ErrorIs(t, err, ErrWrongStatus)
}

func TestCreateIntent(t *testing.T) {
	var received createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(createResponse{Code: 0, PayURL: "https://pay.example/session/1"})
	}))
	defer srv.Close()

	gw := testGateway(srv.URL)
	p := pendingPreorder()

	intent, err := gw.CreateIntent(context.Background(), p, models.PaymentKindDeposit)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/session/1", intent.PayURL)
	assert.Equal(t, int64(20000), intent.Amount)
	assert.Equal(t, "FRESHFRUIT", received.MerchantID)
	assert.Equal(t, int64(20000), received.Amount)
	assert.NotEmpty(t, received.RequestID)

	// the outbound signature covers the declared field order
	expected := sign("test-secret",
		received.MerchantID,
		received.Reference,
		strconv.FormatInt(received.Amount, 10),
		received.OrderInfo,
		received.ReturnURL,
		received.NotifyURL,
	)
	assert.Equal(t, expected, received.Signature)

	id, kind, err := ParseReference(intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, p.ID.Hex(), id)
	assert.Equal(t, models.PaymentKindDeposit, kind)
}

func TestCreateIntentNothingDue(t *testing.T) {
	gw := testGateway("http://unreachable.invalid")
	p := pendingPreorder()
	p.DepositPaid = p.DepositDue

	_, err := gw.CreateIntent(context.Background(), p, models.PaymentKindDeposit)
	assert.ErrorIs(t, err, ErrNothingDue)
}

func TestCreateIntentProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createResponse{Code: 42, Message: "merchant suspended"})
	}))
	defer srv.Close()

	gw := testGateway(srv.URL)
	_, err := gw.CreateIntent(context.Background(), pendingPreorder(), models.PaymentKindDeposit)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestCreateIntentNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := testGateway(srv.URL)
	_, err := gw.CreateIntent(context.Background(), pendingPreorder(), models.PaymentKindDeposit)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestCreateIntentUnreachable(t *testing.T) {
	gw := testGateway("http://127.0.0.1:1")
	_, err := gw.CreateIntent(context.Background(), pendingPreorder(), models.PaymentKindDeposit)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestVerifySignatureCurrentOrder(t *testing.T) {
	gw := testGateway("")
	cb := Callback{
		MerchantID:    "FRESHFRUIT",
		Reference:     "deadbeefdeadbeefdeadbeef|deposit|a1b2c3d4",
		TransactionID: "TX-1001",
		Amount:        20000,
		Code:          0,
		OrderInfo:     "FreshFruit preorder PO-ABC123 (deposit)",
	}
	cb.Signature = sign("test-secret",
		cb.MerchantID,
		cb.Reference,
		cb.TransactionID,
		strconv.FormatInt(cb.Amount, 10),
		strconv.Itoa(cb.Code),
		cb.OrderInfo,
	)

	assert.True(t, gw.VerifySignature(cb))
}

func TestVerifySignatureLegacyOrder(t *testing.T) {
	gw := testGateway("")
	cb := Callback{
		Reference:     "deadbeefdeadbeefdeadbeef|remaining|a1b2c3d4",
		TransactionID: "TX-1002",
		Amount:        80000,
		Code:          0,
	}
	cb.Signature = sign("test-secret",
		cb.Reference,
		strconv.FormatInt(cb.Amount, 10),
		strconv.Itoa(cb.Code),
		cb.TransactionID,
	)

	assert.True(t, gw.VerifySignature(cb))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	gw := testGateway("")
	cb := Callback{
		MerchantID:    "FRESHFRUIT",
		Reference:     "deadbeefdeadbeefdeadbeef|deposit|a1b2c3d4",
		TransactionID: "TX-1003",
		Amount:        20000,
		Code:          0,
	}
	cb.Signature = sign("test-secret",
		cb.MerchantID,
		cb.Reference,
		cb.TransactionID,
		strconv.FormatInt(cb.Amount, 10),
		strconv.Itoa(cb.Code),
		cb.OrderInfo,
	)

	cb.Amount = 1
	assert.False(t, gw.VerifySignature(cb))

	cb.Amount = 20000
	cb.Signature = "not-a-signature"
	assert.False(t, gw.VerifySignature(cb))
}

func TestReferenceRoundTrip(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	ref := EncodeReference(id, models.PaymentKindRemaining)
	assert.Equal(t, 3, len(strings.Split(ref, "|")))

	gotID, gotKind, err := ParseReference(ref)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, models.PaymentKindRemaining, gotKind)

	// nonce keeps retried references distinct
	assert.NotEqual(t, ref, EncodeReference(id, models.PaymentKindRemaining))
}

func TestParseReferenceRejectsGarbage(t *testing.T) {
	for _, ref := range []string{
		"",
		"justonefield",
		"id|deposit",
		"id|refund|nonce",
		"|deposit|nonce",
	} {
		_, _, err := ParseReference(ref)
		assert.ErrorIs(t, err, ErrBadReference, ref)
	}
}
