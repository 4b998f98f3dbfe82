package preorder

import (
	"time"

	"backend/internal/models"
)

var shippingNext = map[models.ShippingStatus][]models.ShippingStatus{
	models.ShippingAwaitingPickup:    {models.ShippingPickedUp},
	models.ShippingPickedUp:          {models.ShippingInTransit},
	models.ShippingInTransit:         {models.ShippingOutForDelivery},
	models.ShippingOutForDelivery:    {models.ShippingDeliveredSuccess, models.ShippingDeliveredFailed},
	models.ShippingDeliveredFailed:   {models.ShippingReturningToSeller},
	models.ShippingReturningToSeller: {models.ShippingReturnedToSeller},
}

// StartShipping opens the shipping flow at awaiting_pickup. The first
// recorded milestone is what moves the primary status from confirmed to
// shipping (via AutoAdvance).
func StartShipping(p *models.Preorder, carrier, trackingCode string, now time.Time) error {
	if Locked(p.Status) {
		return ErrLocked
	}
	if p.Status != models.PreorderConfirmed {
		return ErrWrongStatus
	}
	if p.Shipping != nil {
		return FlowTransitionError{Flow: "shipping", From: string(p.Shipping.Status), To: string(models.ShippingAwaitingPickup)}
	}
	p.Shipping = &models.ShippingFlow{
		Status:       models.ShippingAwaitingPickup,
		Carrier:      carrier,
		TrackingCode: trackingCode,
		Milestones:   map[string]time.Time{string(models.ShippingAwaitingPickup): now},
	}
	return nil
}

// AdvanceShipping records a carrier-reported milestone. Milestone timestamps
// are write-once per step.
func AdvanceShipping(p *models.Preorder, to models.ShippingStatus, now time.Time) error {
	if p.Status == models.PreorderCancelled {
		return ErrLocked
	}
	if p.Shipping == nil {
		return ErrWrongStatus
	}
	allowed := false
	for _, next := range shippingNext[p.Shipping.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return FlowTransitionError{Flow: "shipping", From: string(p.Shipping.Status), To: string(to)}
	}
	p.Shipping.Status = to
	if p.Shipping.Milestones == nil {
		p.Shipping.Milestones = map[string]time.Time{}
	}
	if _, ok := p.Shipping.Milestones[string(to)]; !ok {
		p.Shipping.Milestones[string(to)] = now
	}
	return nil
}

// ShippingSucceeded reports terminal carrier success; together with a zero
// remaining balance it gates the delivered status.
func ShippingSucceeded(p *models.Preorder) bool {
	return p.Shipping != nil && p.Shipping.Status == models.ShippingDeliveredSuccess
}
