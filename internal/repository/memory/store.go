// Package memory is a Store kept entirely in process memory, used by tests and
// by local runs without MongoDB.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository"
)

// Store implements repository.Store. Collections keep insertion order.
type Store struct {
	mu sync.RWMutex

	customers     []models.Customer
	entries       []models.DiaryEntry
	payments      []models.Payment
	subscriptions map[string]models.Subscription
	reports       []models.MonthlyReport
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{subscriptions: make(map[string]models.Subscription)}
}

// LoadSnapshot copies out the records of userID.
func (s *Store) LoadSnapshot(_ context.Context, userID string) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		UserID:    userID,
		Customers: make([]models.Customer, 0),
		Entries:   make([]models.DiaryEntry, 0),
		Payments:  make([]models.Payment, 0),
	}
	for _, c := range s.customers {
		if c.UserID == userID {
			snap.Customers = append(snap.Customers, c)
		}
	}
	for _, e := range s.entries {
		if e.UserID == userID {
			snap.Entries = append(snap.Entries, e)
		}
	}
	for _, p := range s.payments {
		if p.UserID == userID {
			snap.Payments = append(snap.Payments, p)
		}
	}
	if sub, ok := s.subscriptions[userID]; ok {
		snap.Subscription = &sub
	}
	return snap, nil
}

// ListAccounts returns the sorted ids of accounts owning customers.
func (s *Store) ListAccounts(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.customers {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// CountEntries counts the entries of userID.
func (s *Store) CountEntries(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// InsertCustomer appends a customer.
func (s *Store) InsertCustomer(_ context.Context, customer models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.ID == customer.ID {
			return fmt.Errorf("customer %s already exists", customer.ID)
		}
	}
	s.customers = append(s.customers, customer)
	return nil
}

// UpdateCustomer applies patch to one customer.
func (s *Store) UpdateCustomer(_ context.Context, userID, id string, patch models.CustomerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.customers {
		if s.customers[i].ID == id && s.customers[i].UserID == userID {
			patch.Apply(&s.customers[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

// DeleteCustomer removes a customer and every entry and payment referencing it.
func (s *Store) DeleteCustomer(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	customers := s.customers[:0]
	for _, c := range s.customers {
		if c.ID == id && c.UserID == userID {
			found = true
			continue
		}
		customers = append(customers, c)
	}
	if !found {
		return repository.ErrNotFound
	}
	s.customers = customers

	entries := s.entries[:0]
	for _, e := range s.entries {
		if e.CustomerID == id && e.UserID == userID {
			continue
		}
		entries = append(entries, e)
	}
	s.entries = entries

	payments := s.payments[:0]
	for _, p := range s.payments {
		if p.CustomerID == id && p.UserID == userID {
			continue
		}
		payments = append(payments, p)
	}
	s.payments = payments

	return nil
}

// InsertEntry appends an entry.
func (s *Store) InsertEntry(_ context.Context, entry models.DiaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// UpdateEntry applies patch to one entry.
func (s *Store) UpdateEntry(_ context.Context, userID, id string, patch models.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id && s.entries[i].UserID == userID {
			patch.Apply(&s.entries[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

// DeleteEntry removes one entry.
func (s *Store) DeleteEntry(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id && e.UserID == userID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// InsertPayment appends a payment.
func (s *Store) InsertPayment(_ context.Context, payment models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = append(s.payments, payment)
	return nil
}

// DeletePayment removes one payment.
func (s *Store) DeletePayment(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.payments {
		if p.ID == id && p.UserID == userID {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// GetSubscription returns the subscription of userID or nil.
func (s *Store) GetSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// UpsertSubscription replaces the subscription of sub.UserID.
func (s *Store) UpsertSubscription(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.subscriptions[sub.UserID]; ok {
		sub.ID = existing.ID
	}
	s.subscriptions[sub.UserID] = sub
	return nil
}

// SaveMonthlyReport records a closed month.
func (s *Store) SaveMonthlyReport(_ context.Context, report models.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, report)
	return nil
}

// MonthlyReports returns the reports saved so far.
func (s *Store) MonthlyReports() []models.MonthlyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MonthlyReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }
