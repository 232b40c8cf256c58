package models

import (
	"strings"
	"time"
)

// Customer is a household receiving milk deliveries.
type Customer struct {
	ID              string    `bson:"_id" json:"id"`
	UserID          string    `bson:"user_id" json:"userId"`
	Name            string    `bson:"name" json:"name"`
	DefaultQuantity float64   `bson:"default_quantity" json:"defaultQuantity"`
	PricePerUnit    float64   `bson:"price_per_unit" json:"pricePerUnit"`
	Phone           *string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Address         *string   `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// CustomerPatch carries the mutable customer fields; nil means unchanged.
type CustomerPatch struct {
	Name            *string  `json:"name"`
	DefaultQuantity *float64 `json:"defaultQuantity"`
	PricePerUnit    *float64 `json:"pricePerUnit"`
	Phone           *string  `json:"phone"`
	Address         *string  `json:"address"`
}

// Apply copies the patched fields onto c. Identity and creation time are never touched.
func (p CustomerPatch) Apply(c *Customer) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.DefaultQuantity != nil {
		c.DefaultQuantity = *p.DefaultQuantity
	}
	if p.PricePerUnit != nil {
		c.PricePerUnit = *p.PricePerUnit
	}
	if p.Phone != nil {
		c.Phone = OptionalString(*p.Phone)
	}
	if p.Address != nil {
		c.Address = OptionalString(*p.Address)
	}
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StringValue dereferences an optional string, returning "" when absent.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
