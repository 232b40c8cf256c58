package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	sheetsrepo "github.com/mamadbah2/milkman/internal/repository/sheets"
)

const recentEntriesLimit = 5

// ErrSheetsDisabled is returned by ExportToSheet when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// SnapshotSource yields the full record set of an account.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID string) (models.Snapshot, error)
}

// Archive persists closed months.
type Archive interface {
	SaveMonthlyReport(ctx context.Context, report models.MonthlyReport) error
}

// Query selects and orders the rows of a monthly report.
type Query struct {
	Month  string
	Search string
	SortBy billing.SortBy
}

// Row is a breakdown row together with what the customer paid and still owes that month.
type Row struct {
	models.CustomerMonthlyData
	Paid    float64 `json:"paid"`
	Balance float64 `json:"balance"`
}

// MonthlyReport is the month view rendered by clients.
type MonthlyReport struct {
	Month         string                `json:"month"`
	Label         string                `json:"label"`
	PreviousMonth string                `json:"previousMonth"`
	NextMonth     string                `json:"nextMonth"`
	Summary       models.MonthlySummary `json:"summary"`
	Rows          []Row                 `json:"rows"`
	TotalPaid     float64               `json:"totalPaid"`
	TotalBalance  float64               `json:"totalBalance"`
}

// EntryLine is an entry with its effective price per litre.
type EntryLine struct {
	models.DiaryEntry
	UnitPrice float64 `json:"unitPrice"`
}

// CustomerMonthDetail lists what one customer received and paid in a month.
type CustomerMonthDetail struct {
	Customer models.Customer  `json:"customer"`
	Month    string           `json:"month"`
	Row      Row              `json:"row"`
	Entries  []EntryLine      `json:"entries"`
	Payments []models.Payment `json:"payments"`
}

// CustomerLedgerView is the lifetime account of one customer.
type CustomerLedgerView struct {
	Customer models.Customer       `json:"customer"`
	Ledger   models.CustomerLedger `json:"ledger"`
	Entries  []EntryLine           `json:"entries"`
	Payments []models.Payment      `json:"payments"`
}

// Dashboard is the landing page summary of an account.
type Dashboard struct {
	Month             string              `json:"month"`
	MonthlyRevenue    float64             `json:"monthlyRevenue"`
	MonthlyQuantity   float64             `json:"monthlyQuantity"`
	MonthlyDeliveries int                 `json:"monthlyDeliveries"`
	Today             string              `json:"today"`
	TodayRevenue      float64             `json:"todayRevenue"`
	TodayEntries      int                 `json:"todayEntries"`
	CustomerCount     int                 `json:"customerCount"`
	RecentEntries     []models.DiaryEntry `json:"recentEntries"`
	PlanLabel         string              `json:"planLabel"`
	Usage             billing.Decision    `json:"usage"`
}

// Service builds read models and exports from account snapshots.
type Service struct {
	source  SnapshotSource
	archive Archive
	sheets  sheetsrepo.Repository
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new reporting service instance. sheets may be nil.
func NewService(source SnapshotSource, archive Archive, sheets sheetsrepo.Repository, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:  source,
		archive: archive,
		sheets:  sheets,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// CurrentMonth returns the YYYY-MM month of now in the service location.
func (s *Service) CurrentMonth() string {
	return billing.MonthOf(s.now().In(s.loc))
}

// MonthlyReport builds the report of q.Month for userID.
func (s *Service) MonthlyReport(ctx context.Context, userID string, q Query) (MonthlyReport, error) {
	snap, err := s.source.Snapshot(ctx, userID)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("load snapshot: %w", err)
	}
	return BuildReport(snap, q)
}

// BuildReport summarises q.Month of snap, filters rows by q.Search against customer
// name, phone and address, and orders them by q.SortBy. Totals always cover the whole
// month regardless of the search.
func BuildReport(snap models.Snapshot, q Query) (MonthlyReport, error) {
	label, err := billing.MonthLabel(q.Month)
	if err != nil {
		return MonthlyReport{}, err
	}
	prev, _ := billing.PreviousMonth(q.Month)
	next, _ := billing.NextMonth(q.Month)

	summary := billing.SummarizeMonth(snap.Customers, snap.Entries, snap.Payments, q.Month)

	report := MonthlyReport{
		Month:         q.Month,
		Label:         label,
		PreviousMonth: prev,
		NextMonth:     next,
		Summary:       summary,
		Rows:          make([]Row, 0, len(summary.CustomerBreakdown)),
	}

	for _, r := range summary.CustomerBreakdown {
		paid := billing.PaidInMonth(r.CustomerID, snap.Payments, q.Month)
		report.TotalPaid += paid
		report.TotalBalance += r.TotalAmount - paid
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	var visible []models.CustomerMonthlyData
	for _, r := range summary.CustomerBreakdown {
		if needle == "" || matches(snap, r, needle) {
			visible = append(visible, r)
		}
	}

	for _, r := range billing.SortBreakdown(visible, q.SortBy, snap.Payments, q.Month) {
		report.Rows = append(report.Rows, rowFor(r, snap.Payments, q.Month))
	}

	return report, nil
}

func matches(snap models.Snapshot, row models.CustomerMonthlyData, needle string) bool {
	haystack := row.CustomerName
	if c, ok := snap.CustomerByID(row.CustomerID); ok {
		haystack = strings.Join([]string{row.CustomerName, models.StringValue(c.Phone), models.StringValue(c.Address)}, " ")
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

func rowFor(r models.CustomerMonthlyData, payments []models.Payment, month string) Row {
	paid := billing.PaidInMonth(r.CustomerID, payments, month)
	return Row{CustomerMonthlyData: r, Paid: paid, Balance: r.TotalAmount - paid}
}

// CustomerMonthDetail lists the entries and payments of one customer in month, oldest first.
func (s *Service) CustomerMonthDetail(ctx context.Context, userID, month, customerID string) (CustomerMonthDetail, error) {
	if _, err := billing.ParseMonth(month); err != nil {
		return CustomerMonthDetail{}, err
	}
	snap, err := s.source.Snapshot(ctx, userID)
	if err != nil {
		return CustomerMonthDetail{}, fmt.Errorf("load snapshot: %w", err)
	}
	customer, ok := snap.CustomerByID(customerID)
	if !ok {
		return CustomerMonthDetail{}, billing.NewNotFoundError("customer", customerID)
	}

	detail := CustomerMonthDetail{
		Customer: customer,
		Month:    month,
		Row:      Row{CustomerMonthlyData: models.CustomerMonthlyData{CustomerID: customer.ID, CustomerName: customer.Name}},
		Entries:  make([]EntryLine, 0),
		Payments: make([]models.Payment, 0),
	}

	for _, e := range snap.EntriesByCustomer(customerID) {
		if !billing.InMonth(e.Date, month) {
			continue
		}
		detail.Entries = append(detail.Entries, EntryLine{DiaryEntry: e, UnitPrice: billing.DerivedUnitPrice(e)})
		detail.Row.TotalQuantity += e.Quantity
		detail.Row.TotalAmount += e.Amount
		detail.Row.DeliveryCount++
	}
	for _, p := range snap.PaymentsByCustomer(customerID) {
		if billing.InMonth(p.Date, month) {
			detail.Payments = append(detail.Payments, p)
		}
	}
	detail.Row = rowFor(detail.Row.CustomerMonthlyData, snap.Payments, month)

	sort.SliceStable(detail.Entries, func(i, j int) bool { return detail.Entries[i].Date < detail.Entries[j].Date })
	sort.SliceStable(detail.Payments, func(i, j int) bool { return detail.Payments[i].Date < detail.Payments[j].Date })

	return detail, nil
}

// CustomerLedger returns the lifetime ledger of one customer, newest records first.
func (s *Service) CustomerLedger(ctx context.Context, userID, customerID string) (CustomerLedgerView, error) {
	snap, err := s.source.Snapshot(ctx, userID)
	if err != nil {
		return CustomerLedgerView{}, fmt.Errorf("load snapshot: %w", err)
	}
	customer, ok := snap.CustomerByID(customerID)
	if !ok {
		return CustomerLedgerView{}, billing.NewNotFoundError("customer", customerID)
	}

	entries := snap.EntriesByCustomer(customerID)
	payments := snap.PaymentsByCustomer(customerID)

	view := CustomerLedgerView{
		Customer: customer,
		Ledger:   billing.SummarizeCustomer(customerID, entries, payments),
		Entries:  make([]EntryLine, 0, len(entries)),
		Payments: make([]models.Payment, 0, len(payments)),
	}
	for _, e := range entries {
		view.Entries = append(view.Entries, EntryLine{DiaryEntry: e, UnitPrice: billing.DerivedUnitPrice(e)})
	}
	view.Payments = append(view.Payments, payments...)

	sort.SliceStable(view.Entries, func(i, j int) bool { return view.Entries[i].Date > view.Entries[j].Date })
	sort.SliceStable(view.Payments, func(i, j int) bool { return view.Payments[i].Date > view.Payments[j].Date })

	return view, nil
}

// Dashboard summarises the current month, today and plan usage of account.
func (s *Service) Dashboard(ctx context.Context, account models.Account) (Dashboard, error) {
	snap, err := s.source.Snapshot(ctx, account.ID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load snapshot: %w", err)
	}

	now := s.now().In(s.loc)
	dash := Dashboard{
		Month:         billing.MonthOf(now),
		Today:         now.Format(billing.DateLayout),
		CustomerCount: len(snap.Customers),
	}

	for _, e := range snap.Entries {
		if billing.InMonth(e.Date, dash.Month) {
			dash.MonthlyRevenue += e.Amount
			dash.MonthlyQuantity += e.Quantity
			if e.Delivered {
				dash.MonthlyDeliveries++
			}
		}
		if e.Date == dash.Today {
			dash.TodayRevenue += e.Amount
			dash.TodayEntries++
		}
	}

	recent := make([]models.DiaryEntry, len(snap.Entries))
	copy(recent, snap.Entries)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date > recent[j].Date })
	if len(recent) > recentEntriesLimit {
		recent = recent[:recentEntriesLimit]
	}
	dash.RecentEntries = recent

	account.Subscription = snap.Subscription
	dash.Usage = billing.CanRecordEntry(account, len(snap.Entries))
	dash.PlanLabel = planLabel(snap.Subscription)

	return dash, nil
}

func planLabel(sub *models.Subscription) string {
	if sub == nil {
		cfg, _ := billing.PlanConfigFor(models.PlanDemo)
		return cfg.Label + " (default)"
	}
	cfg, err := billing.PlanConfigFor(sub.Plan)
	if err != nil {
		return string(sub.Plan)
	}
	return cfg.Label
}

// CloseMonth builds and archives the report of month for userID.
func (s *Service) CloseMonth(ctx context.Context, userID, month string) (MonthlyReport, error) {
	report, err := s.MonthlyReport(ctx, userID, Query{Month: month})
	if err != nil {
		return MonthlyReport{}, err
	}

	record := models.MonthlyReport{
		UserID:       userID,
		Month:        month,
		Summary:      report.Summary,
		TotalPaid:    report.TotalPaid,
		TotalBalance: report.TotalBalance,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.archive.SaveMonthlyReport(ctx, record); err != nil {
		return MonthlyReport{}, fmt.Errorf("archive month %s: %w", month, err)
	}

	s.logger.Info("month closed",
		zap.String("account", userID),
		zap.String("month", month),
		zap.Float64("revenue", report.Summary.TotalRevenue),
		zap.Float64("balance", report.TotalBalance))

	return report, nil
}
