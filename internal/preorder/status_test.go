package preorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/models"
)

func pendingPreorder() *models.Preorder {
	p := &models.Preorder{
		Subtotal:       100000,
		DepositPercent: 20,
		Status:         models.PreorderPendingPayment,
	}
	Recompute(p)
	return p
}

func payDeposit(p *models.Preorder, amount int64) {
	p.Payments = append(p.Payments, models.PaymentRecord{
		Kind:   models.PaymentKindDeposit,
		Amount: amount,
		Status: models.PaymentSucceeded,
	})
	Recompute(p)
}

func payRemaining(p *models.Preorder, amount int64) {
	p.Payments = append(p.Payments, models.PaymentRecord{
		Kind:   models.PaymentKindRemaining,
		Amount: amount,
		Status: models.PaymentSucceeded,
	})
	Recompute(p)
}

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.NoError(t, CanTransition(models.PreorderPendingPayment, models.PreorderConfirmed))
	assert.NoError(t, CanTransition(models.PreorderConfirmed, models.PreorderShipping))
	assert.NoError(t, CanTransition(models.PreorderConfirmed, models.PreorderDelivered))

	assert.Error(t, CanTransition(models.PreorderConfirmed, models.PreorderPendingPayment))
	assert.Error(t, CanTransition(models.PreorderShipping, models.PreorderConfirmed))
	assert.Error(t, CanTransition(models.PreorderConfirmed, models.PreorderConfirmed))
}

func TestCanTransitionCancelled(t *testing.T) {
	assert.NoError(t, CanTransition(models.PreorderPendingPayment, models.PreorderCancelled))
	assert.NoError(t, CanTransition(models.PreorderConfirmed, models.PreorderCancelled))
	assert.NoError(t, CanTransition(models.PreorderShipping, models.PreorderCancelled))

	assert.ErrorIs(t, CanTransition(models.PreorderDelivered, models.PreorderCancelled), ErrLocked)
	assert.ErrorIs(t, CanTransition(models.PreorderCancelled, models.PreorderConfirmed), ErrLocked)
	assert.ErrorIs(t, CanTransition(models.PreorderCancelled, models.PreorderCancelled), ErrLocked)
}

func TestAutoAdvanceConfirmsOnFullDeposit(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()

	payDeposit(p, 10000)
	entered := AutoAdvance(p, now)
	assert.Empty(t, entered)
	assert.Equal(t, models.PreorderPendingPayment, p.Status)

	payDeposit(p, 10000)
	entered = AutoAdvance(p, now)
	assert.Equal(t, []models.PreorderStatus{models.PreorderConfirmed}, entered)
	assert.Equal(t, models.PreorderConfirmed, p.Status)
	assert.Contains(t, p.Timeline, MilestoneDepositPaid)
	assert.Contains(t, p.Timeline, MilestoneConfirmed)
}

func TestAutoAdvanceDeliveredRequiresZeroBalance(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()

	payDeposit(p, 20000)
	AutoAdvance(p, now)
	require.NoError(t, StartShipping(p, "ghtk", "TRACK1", now))
	AutoAdvance(p, now)
	require.Equal(t, models.PreorderShipping, p.Status)

	payRemaining(p, 75000)
	require.NoError(t, AdvanceShipping(p, models.ShippingPickedUp, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingInTransit, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingOutForDelivery, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingDeliveredSuccess, now))

	// 5000 still owed, so the carrier's success does not flip the status
	entered := AutoAdvance(p, now)
	assert.Empty(t, entered)
	assert.Equal(t, models.PreorderShipping, p.Status)

	payRemaining(p, 5000)
	entered = AutoAdvance(p, now)
	assert.Equal(t, []models.PreorderStatus{models.PreorderDelivered}, entered)
	assert.Equal(t, models.PreorderDelivered, p.Status)
}

func TestAutoAdvanceOpenDisputeBlocksDelivered(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()

	payDeposit(p, 20000)
	AutoAdvance(p, now)
	require.NoError(t, StartShipping(p, "ghtk", "TRACK2", now))
	AutoAdvance(p, now)
	payRemaining(p, 80000)
	require.NoError(t, AdvanceShipping(p, models.ShippingPickedUp, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingInTransit, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingOutForDelivery, now))
	require.NoError(t, AdvanceShipping(p, models.ShippingDeliveredSuccess, now))

	p.Dispute = &models.Dispute{Open: true, OpenedAt: &now}
	assert.Empty(t, AutoAdvance(p, now))
	assert.Equal(t, models.PreorderShipping, p.Status)

	p.Dispute.Open = false
	entered := AutoAdvance(p, now)
	assert.Equal(t, []models.PreorderStatus{models.PreorderDelivered}, entered)
}

func TestAutoAdvanceIsIdempotent(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()

	payDeposit(p, 20000)
	first := AutoAdvance(p, now)
	assert.NotEmpty(t, first)

	second := AutoAdvance(p, now.Add(time.Minute))
	assert.Empty(t, second)
	assert.Equal(t, models.PreorderConfirmed, p.Status)
}

func TestStampTimelineFirstWriteWins(t *testing.T) {
	p := pendingPreorder()
	first := time.Now()
	later := first.Add(time.Hour)

	StampTimeline(p, MilestoneConfirmed, first)
	StampTimeline(p, MilestoneConfirmed, later)

	assert.Equal(t, first, p.Timeline[MilestoneConfirmed])
}

func TestTransitionDeliveredGate(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()
	payDeposit(p, 20000)
	AutoAdvance(p, now)

	err := Transition(p, models.PreorderDelivered, now)
	assert.ErrorIs(t, err, ErrWrongStatus)

	payRemaining(p, 80000)
	assert.NoError(t, Transition(p, models.PreorderDelivered, now))
	assert.Equal(t, models.PreorderDelivered, p.Status)
}

func TestForceDelivered(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()
	payDeposit(p, 20000)
	AutoAdvance(p, now)
	require.Positive(t, p.RemainingDue)

	require.NoError(t, ForceDelivered(p, now))
	assert.Equal(t, models.PreorderDelivered, p.Status)
	assert.Contains(t, p.Timeline, MilestoneDelivered)

	assert.ErrorIs(t, ForceDelivered(p, now), ErrLocked)
}
