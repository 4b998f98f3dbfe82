package preorder

import (
	"time"

	"backend/internal/models"
)

var returnNext = map[models.ReturnStatus][]models.ReturnStatus{
	models.ReturnRequested: {models.ReturnApproved, models.ReturnRejected},
	models.ReturnApproved:  {models.ReturnShipped},
	models.ReturnShipped:   {models.ReturnReceived},
	models.ReturnReceived:  {models.RefundIssued},
}

// RequestReturn opens the post-delivery return flow.
func RequestReturn(p *models.Preorder, reason string, now time.Time) error {
	if p.Status != models.PreorderDelivered {
		return ErrWrongStatus
	}
	if p.Return != nil {
		return FlowTransitionError{Flow: "return", From: string(p.Return.Status), To: string(models.ReturnRequested)}
	}
	p.Return = &models.ReturnFlow{
		Status:     models.ReturnRequested,
		Reason:     reason,
		Milestones: map[string]time.Time{string(models.ReturnRequested): now},
	}
	return nil
}

// AdvanceReturn moves the return flow one step. Issuing the refund is done
// through IssueReturnRefund so the ledger entry and the flow step stay
// together.
func AdvanceReturn(p *models.Preorder, to models.ReturnStatus, now time.Time) error {
	if p.Return == nil {
		return ErrWrongStatus
	}
	if to == models.RefundIssued {
		return ErrWrongStatus
	}
	allowed := false
	for _, next := range returnNext[p.Return.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return FlowTransitionError{Flow: "return", From: string(p.Return.Status), To: string(to)}
	}
	p.Return.Status = to
	if _, ok := p.Return.Milestones[string(to)]; !ok {
		p.Return.Milestones[string(to)] = now
	}
	return nil
}

// IssueReturnRefund marks the return flow refunded and appends the refund to
// the payments ledger. amount must be positive and is recorded exactly; the
// primary status stays delivered (locked).
func IssueReturnRefund(p *models.Preorder, amount int64, provider string, now time.Time) error {
	if p.Return == nil || p.Return.Status != models.ReturnReceived {
		return ErrWrongStatus
	}
	if amount <= 0 {
		return ErrNothingDue
	}
	p.Return.Status = models.RefundIssued
	if _, ok := p.Return.Milestones[string(models.RefundIssued)]; !ok {
		p.Return.Milestones[string(models.RefundIssued)] = now
	}
	p.Payments = append(p.Payments, models.PaymentRecord{
		Kind:      models.PaymentKindRefund,
		Provider:  provider,
		Amount:    amount,
		Status:    models.PaymentSucceeded,
		Metadata:  map[string]string{"reason": "return"},
		CreatedAt: now,
	})
	return nil
}
