package models

import "time"

// PaymentMethod enumerates how a customer paid.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentUPI   PaymentMethod = "upi"
	PaymentOther PaymentMethod = "other"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentOther:
		return true
	default:
		return false
	}
}

// Payment is money received from a customer. Payments are never edited, only deleted.
type Payment struct {
	ID         string        `bson:"_id" json:"id"`
	UserID     string        `bson:"user_id" json:"userId"`
	CustomerID string        `bson:"customer_id" json:"customerId"`
	Amount     float64       `bson:"amount" json:"amount"`
	Method     PaymentMethod `bson:"method" json:"method"`
	Note       *string       `bson:"note,omitempty" json:"note,omitempty"`
	Date       string        `bson:"date" json:"date"` // YYYY-MM-DD
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
}
