// Package repository declares the record store used by the diary services.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

// ErrNotFound is returned when a keyed record does not exist for the account.
var ErrNotFound = errors.New("record not found")

// Store persists the records of every account. All methods are scoped by userID;
// records of other accounts are invisible.
type Store interface {
	// LoadSnapshot reads the full record set of one account.
	LoadSnapshot(ctx context.Context, userID string) (models.Snapshot, error)
	// ListAccounts returns every account id that owns at least one customer.
	ListAccounts(ctx context.Context) ([]string, error)
	CountEntries(ctx context.Context, userID string) (int, error)

	InsertCustomer(ctx context.Context, customer models.Customer) error
	UpdateCustomer(ctx context.Context, userID, id string, patch models.CustomerPatch) error
	// DeleteCustomer removes the customer together with its entries and payments.
	DeleteCustomer(ctx context.Context, userID, id string) error

	InsertEntry(ctx context.Context, entry models.DiaryEntry) error
	UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) error
	DeleteEntry(ctx context.Context, userID, id string) error

	InsertPayment(ctx context.Context, payment models.Payment) error
	DeletePayment(ctx context.Context, userID, id string) error

	// GetSubscription returns nil and no error when the account has no subscription.
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) error

	SaveMonthlyReport(ctx context.Context, report models.MonthlyReport) error
	Close(ctx context.Context) error
}
