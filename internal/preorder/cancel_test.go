package preorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/models"
)

func TestCancellationFee(t *testing.T) {
	now := time.Now()
	before := now.Add(24 * time.Hour)
	after := now.Add(-24 * time.Hour)

	assert.Equal(t, int64(0), CancellationFee(nil, 100000, now))
	assert.Equal(t, int64(0), CancellationFee(&models.CancellationPolicy{FeePercent: 0}, 100000, now))

	// grace period still running: free
	assert.Equal(t, int64(0), CancellationFee(&models.CancellationPolicy{FeePercent: 20, UntilDate: &before}, 100000, now))

	// grace period over: fee applies
	assert.Equal(t, int64(20000), CancellationFee(&models.CancellationPolicy{FeePercent: 20, UntilDate: &after}, 100000, now))

	// no grace date at all: fee always applies
	assert.Equal(t, int64(20000), CancellationFee(&models.CancellationPolicy{FeePercent: 20}, 100000, now))
}

func TestRefundAmount(t *testing.T) {
	assert.Equal(t, int64(30000), RefundAmount(50000, 20000))
	assert.Equal(t, int64(0), RefundAmount(20000, 20000))
	assert.Equal(t, int64(0), RefundAmount(10000, 20000))
	assert.Equal(t, int64(0), RefundAmount(0, 0))
}

func TestCancelRecordsFeeAndRefund(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()
	payDeposit(p, 50000)
	p.DepositPercent = 50
	Recompute(p)
	AutoAdvance(p, now)
	require.Equal(t, models.PreorderConfirmed, p.Status)

	policy := &models.CancellationPolicy{FeePercent: 20}
	refund, err := Cancel(p, policy, "buyer_cancelled", now)
	require.NoError(t, err)

	assert.Equal(t, int64(30000), refund)
	assert.Equal(t, int64(20000), p.CancellationFee)
	assert.Equal(t, models.PreorderCancelled, p.Status)
	assert.Contains(t, p.Timeline, MilestoneCancelled)

	last := p.Payments[len(p.Payments)-1]
	assert.Equal(t, models.PaymentKindRefund, last.Kind)
	assert.Equal(t, models.PaymentPending, last.Status)
	assert.Equal(t, int64(30000), last.Amount)
	assert.Equal(t, "buyer_cancelled", last.Metadata["reason"])
}

func TestCancelNoRefundWhenNothingPaid(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()

	refund, err := Cancel(p, nil, "auto_cancel", now)
	require.NoError(t, err)

	assert.Equal(t, int64(0), refund)
	assert.Empty(t, p.Payments)
	assert.Equal(t, models.PreorderCancelled, p.Status)
}

func TestCancelRejectedWhenLocked(t *testing.T) {
	p := pendingPreorder()
	now := time.Now()
	payDeposit(p, 20000)
	payRemaining(p, 80000)
	AutoAdvance(p, now)
	require.NoError(t, Transition(p, models.PreorderDelivered, now))

	_, err := Cancel(p, nil, "too_late", now)
	assert.ErrorIs(t, err, ErrLocked)

	p2 := pendingPreorder()
	_, err = Cancel(p2, nil, "first", now)
	require.NoError(t, err)
	_, err = Cancel(p2, nil, "second", now)
	assert.ErrorIs(t, err, ErrLocked)
}
