package preorder

import "backend/internal/models"

// Totals are the derived payment figures of a preorder. They are never
// stored authoritatively; Recompute derives them from the ledger before
// every persist so they cannot go stale.
type Totals struct {
	DepositDue   int64
	DepositPaid  int64
	RemainingDue int64
	TotalPaid    int64
}

// roundPercent rounds pct% of amount to the nearest integer currency unit
// (half up). Rounding happens here, at the point the due amount is computed;
// ledger amounts are exact and summed as-is.
func roundPercent(amount int64, pct int) int64 {
	return (amount*int64(pct) + 50) / 100
}

// ComputeTotals derives deposit-due, deposit-paid, remaining-due and
// total-paid from the price-locked terms and the full payment ledger.
// Pure and idempotent.
func ComputeTotals(subtotal int64, depositPercent int, feeAdjustment int64, payments []models.PaymentRecord) Totals {
	t := Totals{DepositDue: roundPercent(subtotal, depositPercent)}

	for _, rec := range payments {
		if rec.Status != models.PaymentSucceeded {
			continue
		}
		switch rec.Kind {
		case models.PaymentKindDeposit:
			t.DepositPaid += rec.Amount
			t.TotalPaid += rec.Amount
		case models.PaymentKindRemaining, models.PaymentKindAdjustment:
			t.TotalPaid += rec.Amount
		}
	}

	t.RemainingDue = subtotal + feeAdjustment - t.TotalPaid
	if t.RemainingDue < 0 {
		t.RemainingDue = 0
	}
	return t
}

// Recompute patches the derived fields on p. Callers must invoke it after
// every ledger mutation and before every persist.
func Recompute(p *models.Preorder) {
	t := ComputeTotals(p.Subtotal, p.DepositPercent, p.FeeAdjustment, p.Payments)
	p.DepositDue = t.DepositDue
	p.DepositPaid = t.DepositPaid
	p.RemainingDue = t.RemainingDue
	p.TotalPaid = t.TotalPaid
}
