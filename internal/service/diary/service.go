package diary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository"
)

// ErrForbidden is returned when the account may not perform an admin operation.
var ErrForbidden = errors.New("operation not permitted for this account")

// CustomerInput is the form data of a new customer.
type CustomerInput struct {
	Name            string  `json:"name"`
	DefaultQuantity float64 `json:"defaultQuantity"`
	PricePerUnit    float64 `json:"pricePerUnit"`
	Phone           string  `json:"phone"`
	Address         string  `json:"address"`
}

// EntryInput is the form data of a new delivery. A nil Quantity falls back to the
// customer's default quantity, an empty Date to today, a nil Delivered to true.
type EntryInput struct {
	CustomerID  string   `json:"customerId"`
	Date        string   `json:"date"`
	Quantity    *float64 `json:"quantity"`
	Notes       string   `json:"notes"`
	MilkQuality string   `json:"milkQuality"`
	Delivered   *bool    `json:"delivered"`
}

// PaymentInput is the form data of a payment. An empty Method means cash and an empty
// Date means today.
type PaymentInput struct {
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	Note       string  `json:"note"`
	Date       string  `json:"date"`
}

// Service owns every mutation of the record store and pushes fresh snapshots to
// subscribers after each one.
type Service struct {
	store  repository.Store
	hub    *Hub
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a diary service. A nil location means UTC.
func NewService(store repository.Store, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:  store,
		hub:    NewHub(),
		loc:    loc,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Today returns the current calendar date in the service location.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(billing.DateLayout)
}

// Snapshot loads the full record set of userID.
func (s *Service) Snapshot(ctx context.Context, userID string) (models.Snapshot, error) {
	snap, err := s.store.LoadSnapshot(ctx, userID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Subscribe registers fn for every snapshot of userID produced after a mutation.
func (s *Service) Subscribe(userID string, fn func(models.Snapshot)) (cancel func()) {
	return s.hub.Subscribe(userID, fn)
}

// ResolveAccount attaches the stored subscription to an account whose flags were
// resolved by the caller.
func (s *Service) ResolveAccount(ctx context.Context, id string, exempt, admin bool) (models.Account, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return models.Account{}, fmt.Errorf("resolve account: %w", err)
	}
	return models.Account{ID: id, ExemptFromLimits: exempt, IsAdmin: admin, Subscription: sub}, nil
}

// Usage reports how many entries the account used and how many remain.
func (s *Service) Usage(ctx context.Context, account models.Account) (billing.Decision, error) {
	count, err := s.store.CountEntries(ctx, account.ID)
	if err != nil {
		return billing.Decision{}, fmt.Errorf("count entries: %w", err)
	}
	return billing.CanRecordEntry(account, count), nil
}

// AddCustomer validates and stores a new customer.
func (s *Service) AddCustomer(ctx context.Context, account models.Account, in CustomerInput) (models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Customer{}, billing.NewValidationError("name", "is required")
	}
	if err := positive("defaultQuantity", in.DefaultQuantity); err != nil {
		return models.Customer{}, err
	}
	if err := positive("pricePerUnit", in.PricePerUnit); err != nil {
		return models.Customer{}, err
	}

	customer := models.Customer{
		ID:              s.newID(),
		UserID:          account.ID,
		Name:            name,
		DefaultQuantity: in.DefaultQuantity,
		PricePerUnit:    in.PricePerUnit,
		Phone:           models.OptionalString(in.Phone),
		Address:         models.OptionalString(in.Address),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.InsertCustomer(ctx, customer); err != nil {
		return models.Customer{}, fmt.Errorf("add customer: %w", err)
	}

	s.mutated(ctx, account.ID, "customer", "create")
	return customer, nil
}

// UpdateCustomer applies patch to a customer. Existing entries keep their amounts.
func (s *Service) UpdateCustomer(ctx context.Context, account models.Account, id string, patch models.CustomerPatch) (models.Customer, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Customer{}, billing.NewValidationError("name", "is required")
	}
	if patch.DefaultQuantity != nil {
		if err := positive("defaultQuantity", *patch.DefaultQuantity); err != nil {
			return models.Customer{}, err
		}
	}
	if patch.PricePerUnit != nil {
		if err := positive("pricePerUnit", *patch.PricePerUnit); err != nil {
			return models.Customer{}, err
		}
	}

	before, err := s.Snapshot(ctx, account.ID)
	if err != nil {
		return models.Customer{}, err
	}
	customer, ok := before.CustomerByID(id)
	if !ok {
		return models.Customer{}, billing.NewNotFoundError("customer", id)
	}

	if err := s.store.UpdateCustomer(ctx, account.ID, id, patch); err != nil {
		return models.Customer{}, notFound(err, "customer", id, "update customer")
	}

	if snap, ok := s.mutated(ctx, account.ID, "customer", "update"); ok {
		if stored, found := snap.CustomerByID(id); found {
			return stored, nil
		}
	}
	patch.Apply(&customer)
	return customer, nil
}

// DeleteCustomer removes a customer with all of its entries and payments.
func (s *Service) DeleteCustomer(ctx context.Context, account models.Account, id string) error {
	if err := s.store.DeleteCustomer(ctx, account.ID, id); err != nil {
		return notFound(err, "customer", id, "delete customer")
	}
	s.mutated(ctx, account.ID, "customer", "delete")
	return nil
}

// AddEntry records a delivery if the subscription gate admits it. A denied request
// returns a nil entry, the decision, and no error.
func (s *Service) AddEntry(ctx context.Context, account models.Account, in EntryInput) (*models.DiaryEntry, billing.Decision, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, billing.Decision{}, billing.NewValidationError("customerId", "is required")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.Today()
	}
	if err := billing.ValidateDate("date", date); err != nil {
		return nil, billing.Decision{}, err
	}
	var quality *models.MilkQuality
	if q := models.MilkQuality(strings.ToLower(strings.TrimSpace(in.MilkQuality))); q != "" {
		if !q.Valid() {
			return nil, billing.Decision{}, billing.NewValidationError("milkQuality", "must be cow, buffalo, mixed or other")
		}
		quality = &q
	}

	snap, err := s.Snapshot(ctx, account.ID)
	if err != nil {
		return nil, billing.Decision{}, err
	}

	customer, ok := snap.CustomerByID(in.CustomerID)
	if !ok {
		return nil, billing.Decision{}, billing.NewNotFoundError("customer", in.CustomerID)
	}

	quantity := customer.DefaultQuantity
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	if err := positive("quantity", quantity); err != nil {
		return nil, billing.Decision{}, err
	}

	account.Subscription = snap.Subscription
	decision := billing.CanRecordEntry(account, len(snap.Entries))
	if !decision.Allowed {
		gateDecisions.WithLabelValues("denied").Inc()
		s.logger.Info("entry denied by subscription gate",
			zap.String("account", account.ID),
			zap.Int("used", decision.Used),
			zap.String("reason", decision.Reason))
		return nil, decision, nil
	}
	gateDecisions.WithLabelValues("admitted").Inc()

	delivered := true
	if in.Delivered != nil {
		delivered = *in.Delivered
	}

	entry := models.DiaryEntry{
		ID:          s.newID(),
		UserID:      account.ID,
		CustomerID:  customer.ID,
		Date:        date,
		Quantity:    quantity,
		Amount:      quantity * customer.PricePerUnit,
		Notes:       models.OptionalString(in.Notes),
		MilkQuality: quality,
		Delivered:   delivered,
	}
	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, decision, fmt.Errorf("add diary entry: %w", err)
	}

	s.mutated(ctx, account.ID, "entry", "create")
	return &entry, decision, nil
}

// UpdateEntry toggles delivery or edits notes. Amounts only change through
// CorrectEntryPrice.
func (s *Service) UpdateEntry(ctx context.Context, account models.Account, id string, patch models.EntryPatch) (models.DiaryEntry, error) {
	patch.Amount = nil
	if patch.IsEmpty() {
		return models.DiaryEntry{}, billing.NewValidationError("", "nothing to update")
	}
	before, err := s.Snapshot(ctx, account.ID)
	if err != nil {
		return models.DiaryEntry{}, err
	}
	entry, ok := before.EntryByID(id)
	if !ok {
		return models.DiaryEntry{}, billing.NewNotFoundError("entry", id)
	}

	if err := s.store.UpdateEntry(ctx, account.ID, id, patch); err != nil {
		return models.DiaryEntry{}, notFound(err, "entry", id, "update diary entry")
	}

	if snap, ok := s.mutated(ctx, account.ID, "entry", "update"); ok {
		if stored, found := snap.EntryByID(id); found {
			return stored, nil
		}
	}
	patch.Apply(&entry)
	return entry, nil
}

// CorrectEntryPrice re-prices one entry at newUnitPrice per litre.
func (s *Service) CorrectEntryPrice(ctx context.Context, account models.Account, id string, newUnitPrice float64) (models.DiaryEntry, error) {
	snap, err := s.Snapshot(ctx, account.ID)
	if err != nil {
		return models.DiaryEntry{}, err
	}
	entry, ok := snap.EntryByID(id)
	if !ok {
		return models.DiaryEntry{}, billing.NewNotFoundError("entry", id)
	}

	amount, err := billing.ApplyUnitPriceCorrection(entry, newUnitPrice)
	if err != nil {
		return models.DiaryEntry{}, err
	}

	if err := s.store.UpdateEntry(ctx, account.ID, id, models.EntryPatch{Amount: &amount}); err != nil {
		return models.DiaryEntry{}, notFound(err, "entry", id, "correct entry price")
	}

	s.logger.Debug("entry re-priced",
		zap.String("entry", id),
		zap.Float64("old_amount", entry.Amount),
		zap.Float64("new_amount", amount))

	s.mutated(ctx, account.ID, "entry", "reprice")
	entry.Amount = amount
	return entry, nil
}

// DeleteEntry removes one diary entry.
func (s *Service) DeleteEntry(ctx context.Context, account models.Account, id string) error {
	if err := s.store.DeleteEntry(ctx, account.ID, id); err != nil {
		return notFound(err, "entry", id, "delete diary entry")
	}
	s.mutated(ctx, account.ID, "entry", "delete")
	return nil
}

// AddPayment records money received from a customer.
func (s *Service) AddPayment(ctx context.Context, account models.Account, in PaymentInput) (models.Payment, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return models.Payment{}, billing.NewValidationError("customerId", "is required")
	}
	if err := positive("amount", in.Amount); err != nil {
		return models.Payment{}, err
	}
	method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(in.Method)))
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		return models.Payment{}, billing.NewValidationError("method", "must be cash, upi or other")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.Today()
	}
	if err := billing.ValidateDate("date", date); err != nil {
		return models.Payment{}, err
	}

	snap, err := s.Snapshot(ctx, account.ID)
	if err != nil {
		return models.Payment{}, err
	}
	if _, ok := snap.CustomerByID(in.CustomerID); !ok {
		return models.Payment{}, billing.NewNotFoundError("customer", in.CustomerID)
	}

	payment := models.Payment{
		ID:         s.newID(),
		UserID:     account.ID,
		CustomerID: in.CustomerID,
		Amount:     in.Amount,
		Method:     method,
		Note:       models.OptionalString(in.Note),
		Date:       date,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.InsertPayment(ctx, payment); err != nil {
		return models.Payment{}, fmt.Errorf("add payment: %w", err)
	}

	s.mutated(ctx, account.ID, "payment", "create")
	return payment, nil
}

// DeletePayment removes one payment.
func (s *Service) DeletePayment(ctx context.Context, account models.Account, id string) error {
	if err := s.store.DeletePayment(ctx, account.ID, id); err != nil {
		return notFound(err, "payment", id, "delete payment")
	}
	s.mutated(ctx, account.ID, "payment", "delete")
	return nil
}

// AccountPlan is an account with the subscription it currently runs on. Accounts
// without a stored subscription report the demo plan with Default set.
type AccountPlan struct {
	AccountID    string               `json:"accountId"`
	Plan         models.Plan          `json:"plan"`
	Label        string               `json:"label"`
	Default      bool                 `json:"default"`
	Subscription *models.Subscription `json:"subscription"`
}

// ListAccountPlans lists every account with its subscription. Only admins may call it.
func (s *Service) ListAccountPlans(ctx context.Context, admin models.Account) ([]AccountPlan, error) {
	if !admin.IsAdmin {
		return nil, ErrForbidden
	}

	ids, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]AccountPlan, 0, len(ids))
	for _, id := range ids {
		sub, err := s.store.GetSubscription(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("subscription of %s: %w", id, err)
		}

		row := AccountPlan{AccountID: id, Plan: models.PlanDemo, Default: sub == nil, Subscription: sub}
		if sub != nil {
			row.Plan = sub.Plan
		}
		if cfg, err := billing.PlanConfigFor(row.Plan); err == nil {
			row.Label = cfg.Label
		}
		out = append(out, row)
	}
	return out, nil
}

// ChangePlan switches targetUserID to plan starting today. Only admins may call it.
func (s *Service) ChangePlan(ctx context.Context, admin models.Account, targetUserID string, plan models.Plan) (models.Subscription, error) {
	if !admin.IsAdmin {
		return models.Subscription{}, ErrForbidden
	}
	if strings.TrimSpace(targetUserID) == "" {
		return models.Subscription{}, billing.NewValidationError("accountId", "is required")
	}

	cfg, err := billing.PlanConfigFor(plan)
	if err != nil {
		return models.Subscription{}, err
	}
	period, err := billing.ApplyPlanChange(plan, s.now().In(s.loc))
	if err != nil {
		return models.Subscription{}, err
	}

	sub := models.Subscription{
		ID:         s.newID(),
		UserID:     targetUserID,
		Plan:       plan,
		EntryLimit: cfg.EntryLimit,
		StartDate:  period.StartDate.Format(billing.DateLayout),
	}
	if period.EndDate != nil {
		end := period.EndDate.Format(billing.DateLayout)
		sub.EndDate = &end
	}

	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("change plan: %w", err)
	}

	s.logger.Info("subscription plan changed",
		zap.String("admin", admin.ID),
		zap.String("account", targetUserID),
		zap.String("plan", string(plan)))

	s.mutated(ctx, targetUserID, "subscription", "upsert")

	stored, err := s.store.GetSubscription(ctx, targetUserID)
	if err != nil || stored == nil {
		return sub, nil
	}
	return *stored, nil
}

// mutated counts the mutation and publishes a fresh snapshot. A failed reload is
// logged and reported through ok; the mutation itself already succeeded.
func (s *Service) mutated(ctx context.Context, userID, kind, op string) (snap models.Snapshot, ok bool) {
	mutations.WithLabelValues(kind, op).Inc()

	snap, err := s.store.LoadSnapshot(ctx, userID)
	if err != nil {
		s.logger.Warn("snapshot reload after mutation failed",
			zap.String("account", userID),
			zap.String("kind", kind),
			zap.Error(err))
		return models.Snapshot{}, false
	}
	s.hub.Publish(userID, snap)
	return snap, true
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return billing.NewValidationError(field, "must be greater than 0")
	}
	return nil
}

func notFound(err error, kind, id, action string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return billing.NewNotFoundError(kind, id)
	}
	return fmt.Errorf("%s: %w", action, err)
}
