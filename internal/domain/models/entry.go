package models

// MilkQuality enumerates the kinds of milk a delivery can carry.
type MilkQuality string

const (
	MilkCow     MilkQuality = "cow"
	MilkBuffalo MilkQuality = "buffalo"
	MilkMixed   MilkQuality = "mixed"
	MilkOther   MilkQuality = "other"
)

// Valid reports whether q is one of the known qualities.
func (q MilkQuality) Valid() bool {
	switch q {
	case MilkCow, MilkBuffalo, MilkMixed, MilkOther:
		return true
	default:
		return false
	}
}

// DiaryEntry records one delivery of milk to a customer on a calendar date.
type DiaryEntry struct {
	ID          string       `bson:"_id" json:"id"`
	UserID      string       `bson:"user_id" json:"userId"`
	CustomerID  string       `bson:"customer_id" json:"customerId"`
	Date        string       `bson:"date" json:"date"` // YYYY-MM-DD
	Quantity    float64      `bson:"quantity" json:"quantity"`
	Amount      float64      `bson:"amount" json:"amount"`
	Notes       *string      `bson:"notes,omitempty" json:"notes,omitempty"`
	MilkQuality *MilkQuality `bson:"milk_quality,omitempty" json:"milkQuality,omitempty"`
	Delivered   bool         `bson:"delivered" json:"delivered"`
}

// EntryPatch carries the fields of an entry that may change after creation.
// Amount is only set by a unit price correction.
type EntryPatch struct {
	Delivered *bool    `json:"delivered"`
	Notes     *string  `json:"notes"`
	Amount    *float64 `json:"-"`
}

// Apply copies the patched fields onto e.
func (p EntryPatch) Apply(e *DiaryEntry) {
	if p.Delivered != nil {
		e.Delivered = *p.Delivered
	}
	if p.Notes != nil {
		e.Notes = OptionalString(*p.Notes)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Delivered == nil && p.Notes == nil && p.Amount == nil
}
