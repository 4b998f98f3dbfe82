package preorder

import (
	"errors"
	"fmt"

	"backend/internal/models"
)

// Rejection reasons surfaced across the handler boundary. Validation-style
// reasons mean "fix your input"; the rest mean "this can't be done right now".
var (
	ErrPreorderDisabled      = errors.New("preorder not enabled for this product")
	ErrOutsideWindow         = errors.New("outside the preorder window")
	ErrVariantNotFound       = errors.New("variant not found")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidDepositPercent = errors.New("deposit percent must be between 1 and 100")
	ErrLocked                = errors.New("status is locked")
	ErrNothingDue            = errors.New("nothing due for this payment kind")
	ErrWrongStatus           = errors.New("current status does not permit this action")
	ErrDisputeOpen           = errors.New("dispute already open")
	ErrDisputeClosed         = errors.New("no open dispute")
)

// TransitionError reports a rejected primary-status transition.
type TransitionError struct {
	From models.PreorderStatus
	To   models.PreorderStatus
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// FlowTransitionError reports a rejected shipping- or return-flow step.
type FlowTransitionError struct {
	Flow string
	From string
	To   string
}

func (e FlowTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Flow, e.From, e.To)
}
