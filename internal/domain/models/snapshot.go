package models

// Snapshot is the complete, consistent record set of one account.
type Snapshot struct {
	UserID       string        `json:"userId"`
	Customers    []Customer    `json:"customers"`
	Entries      []DiaryEntry  `json:"entries"`
	Payments     []Payment     `json:"payments"`
	Subscription *Subscription `json:"subscription"`
}

// CustomerByID returns the customer with the given id, if present.
func (s Snapshot) CustomerByID(id string) (Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}

// EntryByID returns the entry with the given id, if present.
func (s Snapshot) EntryByID(id string) (DiaryEntry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return DiaryEntry{}, false
}

// EntriesByDate returns the entries recorded on date.
func (s Snapshot) EntriesByDate(date string) []DiaryEntry {
	var out []DiaryEntry
	for _, e := range s.Entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

// EntriesByCustomer returns the entries of one customer.
func (s Snapshot) EntriesByCustomer(customerID string) []DiaryEntry {
	var out []DiaryEntry
	for _, e := range s.Entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out
}

// PaymentsByCustomer returns the payments of one customer.
func (s Snapshot) PaymentsByCustomer(customerID string) []Payment {
	var out []Payment
	for _, p := range s.Payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out
}
