package preorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backend/internal/models"
)

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, int64(20000), roundPercent(100000, 20))
	assert.Equal(t, int64(333), roundPercent(1000, 33))
	// half rounds up
	assert.Equal(t, int64(3), roundPercent(5, 50))
	assert.Equal(t, int64(0), roundPercent(0, 20))
	assert.Equal(t, int64(100000), roundPercent(100000, 100))
}

func TestComputeTotalsEmptyLedger(t *testing.T) {
	got := ComputeTotals(100000, 20, 0, nil)

	assert.Equal(t, int64(20000), got.DepositDue)
	assert.Equal(t, int64(0), got.DepositPaid)
	assert.Equal(t, int64(0), got.TotalPaid)
	assert.Equal(t, int64(100000), got.RemainingDue)
}

func TestComputeTotalsCountsOnlySucceeded(t *testing.T) {
	payments := []models.PaymentRecord{
		{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentSucceeded},
		{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentFailed},
		{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentPending},
	}

	got := ComputeTotals(100000, 20, 0, payments)

	assert.Equal(t, int64(20000), got.DepositPaid)
	assert.Equal(t, int64(20000), got.TotalPaid)
	assert.Equal(t, int64(80000), got.RemainingDue)
}

func TestComputeTotalsRefundsDoNotReduceTotals(t *testing.T) {
	payments := []models.PaymentRecord{
		{Kind: models.PaymentKindDeposit, Amount: 50000, Status: models.PaymentSucceeded},
		{Kind: models.PaymentKindRefund, Amount: 30000, Status: models.PaymentSucceeded},
	}

	got := ComputeTotals(100000, 50, 0, payments)

	assert.Equal(t, int64(50000), got.DepositPaid)
	assert.Equal(t, int64(50000), got.TotalPaid)
	assert.Equal(t, int64(50000), got.RemainingDue)
}

func TestComputeTotalsFeeAdjustment(t *testing.T) {
	payments := []models.PaymentRecord{
		{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentSucceeded},
		{Kind: models.PaymentKindRemaining, Amount: 80000, Status: models.PaymentSucceeded},
	}

	// surcharge reopens a balance
	got := ComputeTotals(100000, 20, 5000, payments)
	assert.Equal(t, int64(5000), got.RemainingDue)

	// discount can never push remaining below zero
	got = ComputeTotals(100000, 20, -10000, payments)
	assert.Equal(t, int64(0), got.RemainingDue)
}

func TestComputeTotalsAdjustmentPaymentsCountTowardTotal(t *testing.T) {
	payments := []models.PaymentRecord{
		{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentSucceeded},
		{Kind: models.PaymentKindRemaining, Amount: 80000, Status: models.PaymentSucceeded},
		{Kind: models.PaymentKindAdjustment, Amount: 5000, Status: models.PaymentSucceeded},
	}

	got := ComputeTotals(100000, 20, 5000, payments)

	assert.Equal(t, int64(20000), got.DepositPaid)
	assert.Equal(t, int64(105000), got.TotalPaid)
	assert.Equal(t, int64(0), got.RemainingDue)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	p := &models.Preorder{
		Subtotal:       100000,
		DepositPercent: 20,
		Payments: []models.PaymentRecord{
			{Kind: models.PaymentKindDeposit, Amount: 20000, Status: models.PaymentSucceeded, CreatedAt: time.Now()},
		},
	}

	Recompute(p)
	first := *p
	Recompute(p)

	assert.Equal(t, first.DepositDue, p.DepositDue)
	assert.Equal(t, first.DepositPaid, p.DepositPaid)
	assert.Equal(t, first.RemainingDue, p.RemainingDue)
	assert.Equal(t, first.TotalPaid, p.TotalPaid)
}
