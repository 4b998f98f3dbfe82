package preorder

import (
	"time"

	"backend/internal/models"
)

// Timeline milestone keys, one per status value reached. Write-once.
const (
	MilestoneDepositPaid = "depositPaidAt"
	MilestoneConfirmed   = "confirmedAt"
	MilestoneShipping    = "shippingAt"
	MilestoneDelivered   = "deliveredAt"
	MilestoneCancelled   = "cancelledAt"
)

var statusRank = map[models.PreorderStatus]int{
	models.PreorderPendingPayment: 0,
	models.PreorderConfirmed:      1,
	models.PreorderShipping:       2,
	models.PreorderDelivered:      3,
}

// Locked reports whether the lifecycle is terminal. Once locked, no forward
// transition (and no cancellation) is possible.
func Locked(s models.PreorderStatus) bool {
	return s == models.PreorderDelivered || s == models.PreorderCancelled
}

// CanTransition validates a primary-status transition: strictly forward along
// the ranking, except cancelled, which is reachable from any state below
// delivered.
func CanTransition(from, to models.PreorderStatus) error {
	if from == to {
		return TransitionError{From: from, To: to}
	}
	if from == models.PreorderCancelled {
		return ErrLocked
	}
	if to == models.PreorderCancelled {
		if statusRank[from] >= statusRank[models.PreorderDelivered] {
			return ErrLocked
		}
		return nil
	}
	if from == models.PreorderDelivered {
		return ErrLocked
	}
	toRank, ok := statusRank[to]
	if !ok {
		return TransitionError{From: from, To: to}
	}
	if toRank <= statusRank[from] {
		return TransitionError{From: from, To: to}
	}
	return nil
}

// StampTimeline records a milestone timestamp, first write wins.
func StampTimeline(p *models.Preorder, key string, now time.Time) {
	if p.Timeline == nil {
		p.Timeline = map[string]time.Time{}
	}
	if _, ok := p.Timeline[key]; !ok {
		p.Timeline[key] = now
	}
}

func enter(p *models.Preorder, to models.PreorderStatus, milestone string, now time.Time) {
	p.Status = to
	StampTimeline(p, milestone, now)
}

// AutoAdvance runs the automatic transitions after a ledger or flow mutation.
// It assumes Recompute has already been called on p and returns the statuses
// entered, in order. An open dispute suppresses the automatic move to
// delivered; full payment is always a hard gate for delivered.
func AutoAdvance(p *models.Preorder, now time.Time) []models.PreorderStatus {
	var entered []models.PreorderStatus
	if Locked(p.Status) {
		return entered
	}

	if p.Status == models.PreorderPendingPayment && p.DepositPaid >= p.DepositDue && p.DepositDue > 0 {
		StampTimeline(p, MilestoneDepositPaid, now)
		enter(p, models.PreorderConfirmed, MilestoneConfirmed, now)
		entered = append(entered, models.PreorderConfirmed)
	}

	if p.Status == models.PreorderConfirmed && p.Shipping != nil {
		enter(p, models.PreorderShipping, MilestoneShipping, now)
		entered = append(entered, models.PreorderShipping)
	}

	disputeOpen := p.Dispute != nil && p.Dispute.Open
	if !disputeOpen && ShippingSucceeded(p) && p.RemainingDue == 0 &&
		statusRank[p.Status] < statusRank[models.PreorderDelivered] {
		enter(p, models.PreorderDelivered, MilestoneDelivered, now)
		entered = append(entered, models.PreorderDelivered)
	}

	return entered
}

// Transition applies a manual (admin-invoked) status change, subject to the
// same forward-only rules as the automatic ones. Transitioning to cancelled
// must go through Cancel so the fee and refund side effects run.
func Transition(p *models.Preorder, to models.PreorderStatus, now time.Time) error {
	if err := CanTransition(p.Status, to); err != nil {
		return err
	}
	switch to {
	case models.PreorderConfirmed:
		enter(p, to, MilestoneConfirmed, now)
	case models.PreorderShipping:
		enter(p, to, MilestoneShipping, now)
	case models.PreorderDelivered:
		if p.RemainingDue > 0 {
			return ErrWrongStatus
		}
		enter(p, to, MilestoneDelivered, now)
	case models.PreorderCancelled:
		enter(p, to, MilestoneCancelled, now)
	default:
		return TransitionError{From: p.Status, To: to}
	}
	return nil
}

// ForceDelivered is the explicit admin override that marks a preorder
// delivered without the remaining-due gate. Kept separate from Transition so
// the bypass is always a deliberate call.
func ForceDelivered(p *models.Preorder, now time.Time) error {
	if Locked(p.Status) {
		return ErrLocked
	}
	enter(p, models.PreorderDelivered, MilestoneDelivered, now)
	return nil
}
