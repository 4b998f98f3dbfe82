package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreorderStatus is the primary, forward-only lifecycle status.
type PreorderStatus string

const (
	PreorderPendingPayment PreorderStatus = "pending_payment"
	PreorderConfirmed      PreorderStatus = "confirmed"
	PreorderShipping       PreorderStatus = "shipping"
	PreorderDelivered      PreorderStatus = "delivered"
	PreorderCancelled      PreorderStatus = "cancelled"
)

type PaymentKind string

const (
	PaymentKindDeposit    PaymentKind = "deposit"
	PaymentKindRemaining  PaymentKind = "remaining"
	PaymentKindRefund     PaymentKind = "refund"
	PaymentKindAdjustment PaymentKind = "adjustment"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
)

// PaymentRecord is an append-only ledger entry. Succeeded records are never
// edited or removed; corrections are new refund/adjustment entries.
type PaymentRecord struct {
	Kind          PaymentKind       `bson:"kind" json:"kind"`
	Provider      string            `bson:"provider" json:"provider"`
	TransactionID string            `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Amount        int64             `bson:"amount" json:"amount"`
	Status        PaymentStatus     `bson:"status" json:"status"`
	Metadata      map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt" json:"createdAt"`
}

type ShippingStatus string

const (
	ShippingAwaitingPickup    ShippingStatus = "awaiting_pickup"
	ShippingPickedUp          ShippingStatus = "picked_up"
	ShippingInTransit         ShippingStatus = "in_transit"
	ShippingOutForDelivery    ShippingStatus = "out_for_delivery"
	ShippingDeliveredSuccess  ShippingStatus = "delivered_success"
	ShippingDeliveredFailed   ShippingStatus = "delivered_failed"
	ShippingReturningToSeller ShippingStatus = "returning_to_seller"
	ShippingReturnedToSeller  ShippingStatus = "returned_to_seller"
)

// ShippingFlow is the carrier-reported sub-state; it informs but never
// replaces the primary status.
type ShippingFlow struct {
	Status       ShippingStatus       `bson:"status" json:"status"`
	Carrier      string               `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingCode string               `bson:"trackingCode,omitempty" json:"trackingCode,omitempty"`
	Milestones   map[string]time.Time `bson:"milestones" json:"milestones"`
}

type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "return_requested"
	ReturnApproved  ReturnStatus = "return_approved"
	ReturnRejected  ReturnStatus = "return_rejected"
	ReturnShipped   ReturnStatus = "return_shipped"
	ReturnReceived  ReturnStatus = "return_received"
	RefundIssued    ReturnStatus = "refund_issued"
)

type ReturnFlow struct {
	Status     ReturnStatus         `bson:"status" json:"status"`
	Reason     string               `bson:"reason,omitempty" json:"reason,omitempty"`
	Milestones map[string]time.Time `bson:"milestones" json:"milestones"`
}

type Dispute struct {
	Open     bool       `bson:"open" json:"open"`
	Reason   string     `bson:"reason,omitempty" json:"reason,omitempty"`
	OpenedAt *time.Time `bson:"openedAt,omitempty" json:"openedAt,omitempty"`
	ClosedAt *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}

// HistoryEntry records administrative actions that do not change status.
type HistoryEntry struct {
	Action    string             `bson:"action" json:"action"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	AdminID   primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// VariantSnapshot freezes the chosen variant at creation time.
type VariantSnapshot struct {
	VariantID   string `bson:"variantId" json:"variantId"`
	WeightGrams int    `bson:"weightGrams" json:"weightGrams"`
	Ripeness    string `bson:"ripeness,omitempty" json:"ripeness,omitempty"`
}

// Preorder is the central aggregate: a reservation-and-installment order
// against future stock. Commercial terms are price-locked at creation;
// depositDue/depositPaid/remainingDue/totalPaid are always recomputed from
// the payments ledger before every save, never set by callers.
type Preorder struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"code" json:"code"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`

	ProductName string          `bson:"productName" json:"productName"`
	Variant     VariantSnapshot `bson:"variant" json:"variant"`
	Quantity    int             `bson:"quantity" json:"quantity"`

	UnitPrice      int64 `bson:"unitPrice" json:"unitPrice"`
	Subtotal       int64 `bson:"subtotal" json:"subtotal"`
	DepositPercent int   `bson:"depositPercent" json:"depositPercent"`

	FeeAdjustment   int64 `bson:"feeAdjustment" json:"feeAdjustment"`
	CancellationFee int64 `bson:"cancellationFee" json:"cancellationFee"`

	DepositDue   int64 `bson:"depositDue" json:"depositDue"`
	DepositPaid  int64 `bson:"depositPaid" json:"depositPaid"`
	RemainingDue int64 `bson:"remainingDue" json:"remainingDue"`
	TotalPaid    int64 `bson:"totalPaid" json:"totalPaid"`

	Payments []PaymentRecord `bson:"payments" json:"payments"`

	Status   PreorderStatus `bson:"status" json:"status"`
	Shipping *ShippingFlow  `bson:"shipping,omitempty" json:"shipping,omitempty"`
	Return   *ReturnFlow    `bson:"return,omitempty" json:"return,omitempty"`
	Dispute  *Dispute       `bson:"dispute,omitempty" json:"dispute,omitempty"`

	History  []HistoryEntry       `bson:"history" json:"history"`
	Timeline map[string]time.Time `bson:"timeline" json:"timeline"`

	IsDeleted  bool       `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt  *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	UserHidden bool       `bson:"userHidden" json:"userHidden,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
