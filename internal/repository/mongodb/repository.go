package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository"
)

const (
	customersColl     = "customers"
	entriesColl       = "diary_entries"
	paymentsColl      = "payments"
	subscriptionsColl = "subscriptions"
	reportsColl       = "monthly_reports"
)

// MongoDBRepository implements repository.Store on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB and makes sure the lookup indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, db: client.Database(dbName)}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	byUser := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}
	byCustomer := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "customer_id", Value: 1}}}

	for coll, indexes := range map[string][]mongo.IndexModel{
		customersColl:     {byUser},
		entriesColl:       {byUser, byCustomer},
		paymentsColl:      {byUser, byCustomer},
		subscriptionsColl: {{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		reportsColl:       {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "month", Value: 1}}}},
	} {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// LoadSnapshot reads every collection of userID.
func (r *MongoDBRepository) LoadSnapshot(ctx context.Context, userID string) (models.Snapshot, error) {
	snap := models.Snapshot{
		UserID:    userID,
		Customers: make([]models.Customer, 0),
		Entries:   make([]models.DiaryEntry, 0),
		Payments:  make([]models.Payment, 0),
	}

	filter := bson.M{"user_id": userID}
	if err := findAll(ctx, r.db.Collection(customersColl), filter, bson.D{{Key: "created_at", Value: 1}}, &snap.Customers); err != nil {
		return models.Snapshot{}, fmt.Errorf("load customers: %w", err)
	}
	if err := findAll(ctx, r.db.Collection(entriesColl), filter, bson.D{{Key: "date", Value: 1}}, &snap.Entries); err != nil {
		return models.Snapshot{}, fmt.Errorf("load diary entries: %w", err)
	}
	if err := findAll(ctx, r.db.Collection(paymentsColl), filter, bson.D{{Key: "created_at", Value: 1}}, &snap.Payments); err != nil {
		return models.Snapshot{}, fmt.Errorf("load payments: %w", err)
	}

	sub, err := r.GetSubscription(ctx, userID)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Subscription = sub

	return snap, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, out *[]T) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		*out = append(*out, doc)
	}
	return cursor.Err()
}

// ListAccounts returns the distinct owners of customers.
func (r *MongoDBRepository) ListAccounts(ctx context.Context) ([]string, error) {
	values, err := r.db.Collection(customersColl).Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

// CountEntries counts the diary entries of userID.
func (r *MongoDBRepository) CountEntries(ctx context.Context, userID string) (int, error) {
	n, err := r.db.Collection(entriesColl).CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count diary entries: %w", err)
	}
	return int(n), nil
}

// InsertCustomer stores a new customer.
func (r *MongoDBRepository) InsertCustomer(ctx context.Context, customer models.Customer) error {
	if _, err := r.db.Collection(customersColl).InsertOne(ctx, customer); err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// UpdateCustomer applies the non-nil fields of patch.
func (r *MongoDBRepository) UpdateCustomer(ctx context.Context, userID, id string, patch models.CustomerPatch) error {
	return r.updateOne(ctx, customersColl, userID, id, customerUpdate(patch))
}

// DeleteCustomer removes the customer, then its entries and payments.
func (r *MongoDBRepository) DeleteCustomer(ctx context.Context, userID, id string) error {
	res, err := r.db.Collection(customersColl).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}

	related := bson.M{"user_id": userID, "customer_id": id}
	if _, err := r.db.Collection(entriesColl).DeleteMany(ctx, related); err != nil {
		return fmt.Errorf("failed to delete diary entries of customer %s: %w", id, err)
	}
	if _, err := r.db.Collection(paymentsColl).DeleteMany(ctx, related); err != nil {
		return fmt.Errorf("failed to delete payments of customer %s: %w", id, err)
	}
	return nil
}

// InsertEntry stores a new diary entry.
func (r *MongoDBRepository) InsertEntry(ctx context.Context, entry models.DiaryEntry) error {
	if _, err := r.db.Collection(entriesColl).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert diary entry: %w", err)
	}
	return nil
}

// UpdateEntry applies the non-nil fields of patch.
func (r *MongoDBRepository) UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) error {
	return r.updateOne(ctx, entriesColl, userID, id, entryUpdate(patch))
}

// DeleteEntry removes one diary entry.
func (r *MongoDBRepository) DeleteEntry(ctx context.Context, userID, id string) error {
	return r.deleteOne(ctx, entriesColl, userID, id)
}

// InsertPayment stores a new payment.
func (r *MongoDBRepository) InsertPayment(ctx context.Context, payment models.Payment) error {
	if _, err := r.db.Collection(paymentsColl).InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// DeletePayment removes one payment.
func (r *MongoDBRepository) DeletePayment(ctx context.Context, userID, id string) error {
	return r.deleteOne(ctx, paymentsColl, userID, id)
}

// GetSubscription returns the subscription of userID, or nil when none exists.
func (r *MongoDBRepository) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Collection(subscriptionsColl).FindOne(ctx, bson.M{"user_id": userID}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &sub, nil
}

// UpsertSubscription writes the single subscription of sub.UserID.
func (r *MongoDBRepository) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	update := bson.M{
		"$set": bson.M{
			"plan":        sub.Plan,
			"entry_limit": sub.EntryLimit,
			"start_date":  sub.StartDate,
			"end_date":    sub.EndDate,
		},
		"$setOnInsert": bson.M{"_id": sub.ID},
	}
	_, err := r.db.Collection(subscriptionsColl).UpdateOne(ctx, bson.M{"user_id": sub.UserID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// SaveMonthlyReport stores a closed month, replacing an earlier close of the same month.
func (r *MongoDBRepository) SaveMonthlyReport(ctx context.Context, report models.MonthlyReport) error {
	filter := bson.M{"user_id": report.UserID, "month": report.Month}
	_, err := r.db.Collection(reportsColl).ReplaceOne(ctx, filter, report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save monthly report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) updateOne(ctx context.Context, coll, userID, id string, update bson.M) error {
	filter := bson.M{"_id": id, "user_id": userID}
	if len(update) == 0 {
		n, err := r.db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", coll, err)
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	}

	res, err := r.db.Collection(coll).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) deleteOne(ctx context.Context, coll, userID, id string) error {
	res, err := r.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// customerUpdate builds the update document of a customer patch. An empty document
// means nothing changes.
func customerUpdate(patch models.CustomerPatch) bson.M {
	set := bson.M{}
	unset := bson.M{}
	if patch.Name != nil {
		set["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.DefaultQuantity != nil {
		set["default_quantity"] = *patch.DefaultQuantity
	}
	if patch.PricePerUnit != nil {
		set["price_per_unit"] = *patch.PricePerUnit
	}
	optionalField(set, unset, "phone", patch.Phone)
	optionalField(set, unset, "address", patch.Address)
	return updateDoc(set, unset)
}

func entryUpdate(patch models.EntryPatch) bson.M {
	set := bson.M{}
	unset := bson.M{}
	if patch.Delivered != nil {
		set["delivered"] = *patch.Delivered
	}
	if patch.Amount != nil {
		set["amount"] = *patch.Amount
	}
	optionalField(set, unset, "notes", patch.Notes)
	return updateDoc(set, unset)
}

func updateDoc(set, unset bson.M) bson.M {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// optionalField sets field when value is non-blank and unsets it when blank.
func optionalField(set, unset bson.M, field string, value *string) {
	if value == nil {
		return
	}
	if v := models.OptionalString(*value); v != nil {
		set[field] = *v
		return
	}
	unset[field] = ""
}
