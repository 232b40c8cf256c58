package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/milkman/internal/config"
	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository/memory"
	"github.com/mamadbah2/milkman/internal/service/diary"
	"github.com/mamadbah2/milkman/internal/service/reporting"
	"github.com/mamadbah2/milkman/internal/service/whatsapp"
)

type recordingMessenger struct {
	reminders []models.ShareMessage
}

func (m *recordingMessenger) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

func (m *recordingMessenger) SendShare(_ context.Context, msg models.ShareMessage) error {
	m.reminders = append(m.reminders, msg)
	return nil
}

func (m *recordingMessenger) SendReminders(ctx context.Context, msgs []models.ShareMessage) (int, error) {
	for _, msg := range msgs {
		_ = m.SendShare(ctx, msg)
	}
	return len(msgs), nil
}

type failingLister struct{}

func (failingLister) ListAccounts(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	customers := []models.Customer{
		{ID: "c1", UserID: "u1", Name: "Ravi", PricePerUnit: 60, Phone: strPtr("+91 98765 43210")},
		{ID: "c2", UserID: "u1", Name: "Meena", PricePerUnit: 60},
		{ID: "c3", UserID: "u1", Name: "Kiran", PricePerUnit: 60, Phone: strPtr("9999")},
		{ID: "c4", UserID: "u2", Name: "Sunil", PricePerUnit: 50, Phone: strPtr("8888")},
	}
	for _, c := range customers {
		require.NoError(t, store.InsertCustomer(ctx, c))
	}

	entries := []models.DiaryEntry{
		{ID: "e1", UserID: "u1", CustomerID: "c1", Date: "2024-03-05", Quantity: 2, Amount: 120, Delivered: true},
		{ID: "e2", UserID: "u1", CustomerID: "c2", Date: "2024-03-06", Quantity: 1, Amount: 60, Delivered: true},
		{ID: "e3", UserID: "u1", CustomerID: "c3", Date: "2024-03-07", Quantity: 1, Amount: 60, Delivered: true},
		{ID: "e4", UserID: "u2", CustomerID: "c4", Date: "2024-04-01", Quantity: 1, Amount: 50, Delivered: true},
	}
	for _, e := range entries {
		require.NoError(t, store.InsertEntry(ctx, e))
	}

	payments := []models.Payment{
		{ID: "p1", UserID: "u1", CustomerID: "c1", Amount: 50, Date: "2024-03-10", Method: models.PaymentCash},
		{ID: "p2", UserID: "u1", CustomerID: "c3", Amount: 60, Date: "2024-03-20", Method: models.PaymentUPI},
	}
	for _, p := range payments {
		require.NoError(t, store.InsertPayment(ctx, p))
	}
}

func newTestScheduler(t *testing.T, lister AccountLister, messenger *recordingMessenger) (*Scheduler, *memory.Store) {
	t.Helper()
	store := memory.New()
	seed(t, store)

	records := diary.NewService(store, time.UTC, nil)
	reports := reporting.NewService(records, store, nil, time.UTC, nil)
	if lister == nil {
		lister = store
	}

	var m whatsapp.Messenger
	if messenger != nil {
		m = messenger
	}

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 9 1 * *", Timezone: "UTC"}, lister, reports, m, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC) }
	return s, store
}

func TestRunMonthlyClose_ArchivesAndReminds(t *testing.T) {
	messenger := &recordingMessenger{}
	s, store := newTestScheduler(t, nil, messenger)

	summary, err := s.RunMonthlyClose(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03", summary.Month)
	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 1, summary.Reminders)

	archived := store.MonthlyReports()
	require.Len(t, archived, 2)
	assert.Equal(t, "u1", archived[0].UserID)
	assert.Equal(t, 240.0, archived[0].Summary.TotalRevenue)
	assert.Equal(t, 110.0, archived[0].TotalPaid)
	assert.Equal(t, "u2", archived[1].UserID)
	assert.Equal(t, 0.0, archived[1].Summary.TotalRevenue)

	require.Len(t, messenger.reminders, 1)
	assert.Equal(t, "c1", messenger.reminders[0].CustomerID)
	assert.Equal(t, "919876543210", messenger.reminders[0].Phone)
	assert.Contains(t, messenger.reminders[0].Text, "Balance: ₹70.00")
}

func TestRunMonthlyClose_WithoutMessenger(t *testing.T) {
	s, store := newTestScheduler(t, nil, nil)

	summary, err := s.RunMonthlyClose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reminders)
	assert.Len(t, store.MonthlyReports(), 2)
}

func TestRunMonthlyClose_ListFailure(t *testing.T) {
	s, _ := newTestScheduler(t, failingLister{}, nil)

	_, err := s.RunMonthlyClose(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestNewScheduler_InvalidTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 9 1 * *", Timezone: "Mars/Olympus"}, memory.New(), nil, nil, nil)
	assert.Error(t, err)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "not a schedule", Timezone: "UTC"}, memory.New(), nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}
