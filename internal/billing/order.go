// Package billing processes payment-capture webhooks: signature
// verification, idempotent order state transitions, and entitlement grants.
// Order creation and plan pricing live in the checkout service; this package
// only consumes its outcomes.
package billing

import "time"

// OrderStatus is the payment order lifecycle. Orders are created externally
// and transition to paid exactly once here.
type OrderStatus string

const (
	StatusCreated OrderStatus = "created"
	StatusPaid    OrderStatus = "paid"
)

// Order mirrors a checkout order as the payment provider knows it. ID is the
// provider's order identifier, which is what webhook payloads reference.
type Order struct {
	ID        string      `json:"id" dynamodbav:"-"`
	UserID    string      `json:"userId" dynamodbav:"userId"`
	PlanID    string      `json:"planId" dynamodbav:"planId"`
	Amount    int64       `json:"amount" dynamodbav:"amount"` // minor units
	Currency  string      `json:"currency" dynamodbav:"currency"`
	Status    OrderStatus `json:"status" dynamodbav:"status"`
	ReceiptID string      `json:"receiptId,omitempty" dynamodbav:"receiptId,omitempty"`
	CreatedAt time.Time   `json:"createdAt" dynamodbav:"createdAt"`
	PaidAt    time.Time   `json:"paidAt,omitempty" dynamodbav:"paidAt,omitempty"`
}

// Grant is one entitlement credited to a user for a paid order: either a
// credit pack or a timed subscription tier.
type Grant struct {
	UserID    string    `json:"userId" dynamodbav:"userId"`
	OrderID   string    `json:"orderId" dynamodbav:"orderId"`
	PlanID    string    `json:"planId" dynamodbav:"planId"`
	Credits   int       `json:"credits,omitempty" dynamodbav:"credits,omitempty"`
	Tier      string    `json:"tier,omitempty" dynamodbav:"tier,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty" dynamodbav:"expiresAt,omitempty"`
	GrantedAt time.Time `json:"grantedAt" dynamodbav:"grantedAt"`
}
