package preorder

import (
	"time"

	"backend/internal/models"
)

// CancellationFee computes the fee owed for cancelling now. One rule: the fee
// applies unless now is on or before the policy's UntilDate; a missing
// UntilDate means the fee always applies. Missing policy means no fee.
func CancellationFee(policy *models.CancellationPolicy, subtotal int64, now time.Time) int64 {
	if policy == nil || policy.FeePercent <= 0 {
		return 0
	}
	if policy.UntilDate != nil && !now.After(*policy.UntilDate) {
		return 0
	}
	return roundPercent(subtotal, policy.FeePercent)
}

// RefundAmount is what the buyer gets back on cancellation.
func RefundAmount(depositPaid, fee int64) int64 {
	if refund := depositPaid - fee; refund > 0 {
		return refund
	}
	return 0
}

// Cancel moves the preorder to the terminal cancelled state: computes the
// cancellation fee, records a pending refund ledger entry when anything is
// owed back, and stamps cancelledAt. Quota release is the caller's follow-up
// (it is a non-fatal side effect, tolerated to drift). Assumes Recompute has
// run; returns the refund amount.
func Cancel(p *models.Preorder, policy *models.CancellationPolicy, reason string, now time.Time) (int64, error) {
	if err := CanTransition(p.Status, models.PreorderCancelled); err != nil {
		return 0, err
	}

	fee := CancellationFee(policy, p.Subtotal, now)
	refund := RefundAmount(p.DepositPaid, fee)

	p.CancellationFee = fee
	if refund > 0 {
		p.Payments = append(p.Payments, models.PaymentRecord{
			Kind:      models.PaymentKindRefund,
			Provider:  "manual",
			Amount:    refund,
			Status:    models.PaymentPending,
			Metadata:  map[string]string{"reason": reason},
			CreatedAt: now,
		})
	}
	enter(p, models.PreorderCancelled, MilestoneCancelled, now)
	return refund, nil
}
