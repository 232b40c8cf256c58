package diary

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository/memory"
)

// flakyReloadStore fails every snapshot load once an update has been written.
type flakyReloadStore struct {
	*memory.Store
	broken bool
}

func (s *flakyReloadStore) LoadSnapshot(ctx context.Context, userID string) (models.Snapshot, error) {
	if s.broken {
		return models.Snapshot{}, errors.New("connection reset")
	}
	return s.Store.LoadSnapshot(ctx, userID)
}

func (s *flakyReloadStore) UpdateCustomer(ctx context.Context, userID, id string, patch models.CustomerPatch) error {
	err := s.Store.UpdateCustomer(ctx, userID, id, patch)
	s.broken = err == nil
	return err
}

func (s *flakyReloadStore) UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) error {
	err := s.Store.UpdateEntry(ctx, userID, id, patch)
	s.broken = err == nil
	return err
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, time.UTC, nil)
	svc.now = func() time.Time { return time.Date(2024, time.March, 15, 8, 30, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, store
}

func floatPtr(v float64) *float64 { return &v }

func addCustomer(t *testing.T, svc *Service, account models.Account, name string, price float64) models.Customer {
	t.Helper()
	c, err := svc.AddCustomer(context.Background(), account, CustomerInput{Name: name, DefaultQuantity: 1, PricePerUnit: price})
	require.NoError(t, err)
	return c
}

func TestAddCustomer_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}

	tests := []struct {
		name  string
		in    CustomerInput
		field string
	}{
		{name: "blank name", in: CustomerInput{Name: "  ", DefaultQuantity: 1, PricePerUnit: 60}, field: "name"},
		{name: "zero quantity", in: CustomerInput{Name: "Asha", DefaultQuantity: 0, PricePerUnit: 60}, field: "defaultQuantity"},
		{name: "negative price", in: CustomerInput{Name: "Asha", DefaultQuantity: 1, PricePerUnit: -1}, field: "pricePerUnit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddCustomer(context.Background(), account, tt.in)
			var verr *billing.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	snap, err := svc.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Customers)
}

func TestAddCustomer_NormalisesOptionalFields(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.AddCustomer(context.Background(), models.Account{ID: "u1"}, CustomerInput{
		Name: " Asha ", DefaultQuantity: 2, PricePerUnit: 60, Phone: "+91 98765 43210", Address: "   ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Asha", c.Name)
	assert.Equal(t, "+91 98765 43210", models.StringValue(c.Phone))
	assert.Nil(t, c.Address)
	assert.Equal(t, "u1", c.UserID)
}

func TestAddEntry_ComputesAmountAndDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c, err := svc.AddCustomer(context.Background(), account, CustomerInput{Name: "Asha", DefaultQuantity: 1.5, PricePerUnit: 60})
	require.NoError(t, err)

	entry, decision, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, MilkQuality: "Buffalo"})
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.True(t, decision.Allowed)
	assert.Equal(t, "2024-03-15", entry.Date)
	assert.Equal(t, 1.5, entry.Quantity)
	assert.Equal(t, 90.0, entry.Amount)
	assert.True(t, entry.Delivered)
	require.NotNil(t, entry.MilkQuality)
	assert.Equal(t, models.MilkBuffalo, *entry.MilkQuality)
}

func TestAddEntry_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)

	_, _, err := svc.AddEntry(context.Background(), account, EntryInput{})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, _, err = svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, Date: "15-03-2024"})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, _, err = svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, Quantity: floatPtr(0)})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, _, err = svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, MilkQuality: "goat"})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, _, err = svc.AddEntry(context.Background(), account, EntryInput{CustomerID: "nope"})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestAddEntry_DemoLimit(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)

	for i := 0; i < billing.DemoEntryLimit; i++ {
		entry, decision, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, decision.Allowed)
	}

	entry, decision, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.False(t, decision.Allowed)
	assert.Equal(t, billing.ReasonLimitReached, decision.Reason)

	snap, err := svc.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Entries, billing.DemoEntryLimit)

	exempt := models.Account{ID: "u1", ExemptFromLimits: true}
	entry, decision, err = svc.AddEntry(context.Background(), exempt, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)
	assert.NotNil(t, entry)
	assert.True(t, decision.Allowed)
}

func TestAddEntry_UsesStoredSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)

	_, err := svc.ChangePlan(context.Background(), models.Account{ID: "owner", IsAdmin: true}, "u1", models.PlanMonthly)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
		require.NoError(t, err)
		require.NotNil(t, entry)
	}
}

func TestUpdateCustomer_DoesNotRepriceEntries(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)
	entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, Quantity: floatPtr(2)})
	require.NoError(t, err)

	updated, err := svc.UpdateCustomer(context.Background(), account, c.ID, models.CustomerPatch{PricePerUnit: floatPtr(70)})
	require.NoError(t, err)
	assert.Equal(t, 70.0, updated.PricePerUnit)

	snap, err := svc.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	stored, ok := snap.EntryByID(entry.ID)
	require.True(t, ok)
	assert.Equal(t, 120.0, stored.Amount)

	_, err = svc.UpdateCustomer(context.Background(), account, c.ID, models.CustomerPatch{PricePerUnit: floatPtr(0)})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = svc.UpdateCustomer(context.Background(), account, "nope", models.CustomerPatch{PricePerUnit: floatPtr(10)})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestCorrectEntryPrice(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)
	entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, Quantity: floatPtr(1.5)})
	require.NoError(t, err)

	updated, err := svc.CorrectEntryPrice(context.Background(), account, entry.ID, 55.5)
	require.NoError(t, err)
	assert.Equal(t, 83.25, updated.Amount)

	_, err = svc.CorrectEntryPrice(context.Background(), account, entry.ID, 0)
	assert.ErrorIs(t, err, billing.ErrValidation)

	snap, err := svc.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	stored, _ := snap.EntryByID(entry.ID)
	assert.Equal(t, 83.25, stored.Amount)

	_, err = svc.CorrectEntryPrice(context.Background(), account, "missing", 50)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestUpdateEntry(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)
	entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)

	delivered := false
	sneaky := 1.0
	updated, err := svc.UpdateEntry(context.Background(), account, entry.ID, models.EntryPatch{Delivered: &delivered, Amount: &sneaky})
	require.NoError(t, err)
	assert.False(t, updated.Delivered)
	assert.Equal(t, 60.0, updated.Amount)

	_, err = svc.UpdateEntry(context.Background(), account, entry.ID, models.EntryPatch{})
	assert.ErrorIs(t, err, billing.ErrValidation)
}

func TestAddPayment(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)

	p, err := svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 50, Note: "   "})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, p.Method)
	assert.Equal(t, "2024-03-15", p.Date)
	assert.Nil(t, p.Note)

	p, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 20, Method: "UPI", Note: " gpay ", Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUPI, p.Method)
	assert.Equal(t, "gpay", models.StringValue(p.Note))

	_, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 0})
	assert.ErrorIs(t, err, billing.ErrValidation)
	_, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 10, Method: "cheque"})
	assert.ErrorIs(t, err, billing.ErrValidation)
	_, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: "ghost", Amount: 10})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestDeleteCustomer_Cascades(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1", ExemptFromLimits: true}
	c1 := addCustomer(t, svc, account, "Asha", 60)
	c2 := addCustomer(t, svc, account, "Bala", 50)

	for _, id := range []string{c1.ID, c2.ID, c1.ID} {
		_, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: id})
		require.NoError(t, err)
		_, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: id, Amount: 10})
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteCustomer(context.Background(), account, c1.ID))

	snap, err := svc.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range snap.Customers {
		ids[c.ID] = true
	}
	for _, e := range snap.Entries {
		assert.True(t, ids[e.CustomerID], "orphaned entry %s", e.ID)
	}
	for _, p := range snap.Payments {
		assert.True(t, ids[p.CustomerID], "orphaned payment %s", p.ID)
	}
	assert.Len(t, snap.Entries, 1)
	assert.Len(t, snap.Payments, 1)

	assert.ErrorIs(t, svc.DeleteCustomer(context.Background(), account, c1.ID), billing.ErrNotFound)
}

func TestDeleteEntryAndPayment(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)
	entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)
	p, err := svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 10})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(context.Background(), account, entry.ID))
	require.NoError(t, svc.DeletePayment(context.Background(), account, p.ID))

	assert.ErrorIs(t, svc.DeleteEntry(context.Background(), account, entry.ID), billing.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePayment(context.Background(), account, p.ID), billing.ErrNotFound)
}

func TestChangePlan(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.ChangePlan(context.Background(), models.Account{ID: "u1"}, "u2", models.PlanYearly)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := models.Account{ID: "owner", IsAdmin: true}
	sub, err := svc.ChangePlan(context.Background(), admin, "u2", models.PlanHalfYearly)
	require.NoError(t, err)
	assert.Equal(t, models.PlanHalfYearly, sub.Plan)
	assert.Nil(t, sub.EntryLimit)
	assert.Equal(t, "2024-03-15", sub.StartDate)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, "2024-09-15", *sub.EndDate)

	sub, err = svc.ChangePlan(context.Background(), admin, "u2", models.PlanDemo)
	require.NoError(t, err)
	require.NotNil(t, sub.EntryLimit)
	assert.Equal(t, 3, *sub.EntryLimit)
	assert.Nil(t, sub.EndDate)

	stored, err := store.GetSubscription(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, models.PlanDemo, stored.Plan)

	_, err = svc.ChangePlan(context.Background(), admin, "u2", "forever")
	assert.ErrorIs(t, err, billing.ErrValidation)
}

func TestUsage(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}
	c := addCustomer(t, svc, account, "Asha", 60)
	_, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)

	usage, err := svc.Usage(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
	require.NotNil(t, usage.Remaining)
	assert.Equal(t, 2, *usage.Remaining)
}

func TestSubscribe_ReceivesSnapshotsAfterMutations(t *testing.T) {
	svc, _ := newTestService(t)
	account := models.Account{ID: "u1"}

	var got []models.Snapshot
	cancel := svc.Subscribe("u1", func(s models.Snapshot) { got = append(got, s) })

	c := addCustomer(t, svc, account, "Asha", 60)
	_, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Len(t, got[0].Customers, 1)
	assert.Empty(t, got[0].Entries)
	assert.Len(t, got[1].Entries, 1)

	cancel()
	_, err = svc.AddPayment(context.Background(), account, PaymentInput{CustomerID: c.ID, Amount: 5})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdate_ReloadFailureKeepsResult(t *testing.T) {
	store := &flakyReloadStore{Store: memory.New()}
	svc := NewService(store, time.UTC, nil)
	account := models.Account{ID: "u1"}

	c := addCustomer(t, svc, account, "Ravi", 60)
	entry, _, err := svc.AddEntry(context.Background(), account, EntryInput{CustomerID: c.ID, Date: "2024-03-05"})
	require.NoError(t, err)
	require.NotNil(t, entry)

	name := "Ravi K"
	updated, err := svc.UpdateCustomer(context.Background(), account, c.ID, models.CustomerPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", updated.Name)
	assert.Equal(t, 60.0, updated.PricePerUnit)

	store.broken = false
	delivered := false
	got, err := svc.UpdateEntry(context.Background(), account, entry.ID, models.EntryPatch{Delivered: &delivered})
	require.NoError(t, err)
	assert.False(t, got.Delivered)
	assert.Equal(t, 60.0, got.Amount)

	store.broken = false
	snap, err := store.LoadSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", snap.Customers[0].Name)
	assert.False(t, snap.Entries[0].Delivered)
}

func TestListAccountPlans(t *testing.T) {
	svc, _ := newTestService(t)
	addCustomer(t, svc, models.Account{ID: "u1"}, "Asha", 60)
	addCustomer(t, svc, models.Account{ID: "u2"}, "Bala", 60)

	_, err := svc.ListAccountPlans(context.Background(), models.Account{ID: "u1"})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := models.Account{ID: "owner", IsAdmin: true}
	_, err = svc.ChangePlan(context.Background(), admin, "u2", models.PlanYearly)
	require.NoError(t, err)

	plans, err := svc.ListAccountPlans(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "u1", plans[0].AccountID)
	assert.Equal(t, models.PlanDemo, plans[0].Plan)
	assert.True(t, plans[0].Default)
	assert.Nil(t, plans[0].Subscription)

	assert.Equal(t, "u2", plans[1].AccountID)
	assert.Equal(t, models.PlanYearly, plans[1].Plan)
	assert.False(t, plans[1].Default)
	require.NotNil(t, plans[1].Subscription)
	assert.Equal(t, "2024-03-15", plans[1].Subscription.StartDate)
}
