package preorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/models"
)

func confirmedPreorder(t *testing.T) *models.Preorder {
	t.Helper()
	p := pendingPreorder()
	payDeposit(p, 20000)
	AutoAdvance(p, time.Now())
	require.Equal(t, models.PreorderConfirmed, p.Status)
	return p
}

func TestStartShippingOnlyFromConfirmed(t *testing.T) {
	now := time.Now()

	p := pendingPreorder()
	assert.ErrorIs(t, StartShipping(p, "ghtk", "T1", now), ErrWrongStatus)

	p = confirmedPreorder(t)
	require.NoError(t, StartShipping(p, "ghtk", "T1", now))
	assert.Equal(t, models.ShippingAwaitingPickup, p.Shipping.Status)
	assert.Equal(t, "ghtk", p.Shipping.Carrier)
	assert.Contains(t, p.Shipping.Milestones, string(models.ShippingAwaitingPickup))

	// second open is rejected
	err := StartShipping(p, "ghtk", "T1", now)
	var flowErr FlowTransitionError
	assert.ErrorAs(t, err, &flowErr)
}

func TestAdvanceShippingTransitionTable(t *testing.T) {
	now := time.Now()
	p := confirmedPreorder(t)
	require.NoError(t, StartShipping(p, "ghtk", "T2", now))
	AutoAdvance(p, now)

	// skipping steps is rejected
	err := AdvanceShipping(p, models.ShippingOutForDelivery, now)
	var flowErr FlowTransitionError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "shipping", flowErr.Flow)

	require.NoError(t, AdvanceShipping(p, models.ShippingPickedUp, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingInTransit, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingOutForDelivery, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingDeliveredFailed, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingReturningToSeller, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingReturnedToSeller, now))

	// terminal
	err = AdvanceShipping(p, models.ShippingPickedUp, now)
	assert.ErrorAs(t, err, &flowErr)
}

func TestAdvanceShippingMilestonesWriteOnce(t *testing.T) {
	first := time.Now()
	later := first.Add(time.Hour)
	p := confirmedPreorder(t)
	require.NoError(t, StartShipping(p, "ghtk", "T3", first))
	require.NoError(t, AdvanceShipping(p, models.ShippingPickedUp, first))

	// an out-of-order duplicate step is rejected and leaves the stamp alone
	err := AdvanceShipping(p, models.ShippingPickedUp, later)
	assert.Error(t, err)
	assert.Equal(t, first, p.Shipping.Milestones[string(models.ShippingPickedUp)])
}

func deliveredPreorder(t *testing.T) *models.Preorder {
	t.Helper()
	now := time.Now()
	p := confirmedPreorder(t)
	payRemaining(p, 80000)
	require.NoError(t, StartShipping(p, "ghtk", "T4", now))
	AutoAdvance(p, now)
	require.NoError(t, AdvanceShipping(p, models.ShippingPickedUp, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingInTransit, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingOutForDelivery, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingDeliveredSuccess, now))
	AutoAdvance(p, now)
	require.Equal(t, models.PreorderDelivered, p.Status)
	return p
}

func TestRequestReturnOnlyAfterDelivery(t *testing.T) {
	now := time.Now()

	p := confirmedPreorder(t)
	assert.ErrorIs(t, RequestReturn(p, "bruised", now), ErrWrongStatus)

	p = deliveredPreorder(t)
	require.NoError(t, RequestReturn(p, "bruised", now))
	assert.Equal(t, models.ReturnRequested, p.Return.Status)
	assert.Equal(t, "bruised", p.Return.Reason)
}

func TestReturnFlowToRefund(t *testing.T) {
	now := time.Now()
	p := deliveredPreorder(t)
	require.NoError(t, RequestReturn(p, "overripe", now))

	// refund step must go through IssueReturnRefund
	assert.ErrorIs(t, AdvanceReturn(p, models.RefundIssued, now), ErrWrongStatus)

	require.NoError(t, AdvanceReturn(p, models.ReturnApproved, now))
	require.NoError(t, AdvanceReturn(p, models.ReturnShipped, now))
	require.NoError(t, AdvanceReturn(p, models.ReturnReceived, now))

	ledgerBefore := len(p.Payments)
	require.NoError(t, IssueReturnRefund(p, 100000, "manual", now))

	assert.Equal(t, models.RefundIssued, p.Return.Status)
	assert.Len(t, p.Payments, ledgerBefore+1)
	last := p.Payments[len(p.Payments)-1]
	assert.Equal(t, models.PaymentKindRefund, last.Kind)
	assert.Equal(t, models.PaymentSucceeded, last.Status)
	assert.Equal(t, "return", last.Metadata["reason"])

	// primary status stays delivered
	assert.Equal(t, models.PreorderDelivered, p.Status)
}

func TestReturnRejectedIsTerminal(t *testing.T) {
	now := time.Now()
	p := deliveredPreorder(t)
	require.NoError(t, RequestReturn(p, "changed my mind", now))
	require.NoError(t, AdvanceReturn(p, models.ReturnRejected, now))

	var flowErr FlowTransitionError
	assert.ErrorAs(t, AdvanceReturn(p, models.ReturnApproved, now), &flowErr)
	assert.ErrorIs(t, IssueReturnRefund(p, 1000, "manual", now), ErrWrongStatus)
}

func TestIssueReturnRefundValidation(t *testing.T) {
	now := time.Now()
	p := deliveredPreorder(t)
	require.NoError(t, RequestReturn(p, "damaged", now))
	require.NoError(t, AdvanceReturn(p, models.ReturnApproved, now))

	// not yet received
	assert.ErrorIs(t, IssueReturnRefund(p, 1000, "manual", now), ErrWrongStatus)

	require.NoError(t, AdvanceReturn(p, models.ReturnShipped, now))
	require.NoError(t, AdvanceReturn(p, models.ReturnReceived, now))
	assert.ErrorIs(t, IssueReturnRefund(p, 0, "manual", now), ErrNothingDue)
}
