package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/config"
	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/service/reporting"
	"github.com/mamadbah2/milkman/internal/service/whatsapp"
)

const closeTimeout = 5 * time.Minute

// AccountLister enumerates every account that owns records.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]string, error)
}

// MonthCloser archives a month and prepares per-customer summaries.
type MonthCloser interface {
	CloseMonth(ctx context.Context, userID, month string) (reporting.MonthlyReport, error)
	ShareMessage(ctx context.Context, userID, month, customerID string) (models.ShareMessage, error)
}

// CloseSummary describes one run of the monthly close.
type CloseSummary struct {
	Month     string
	Accounts  int
	Reminders int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	accounts  AccountLister
	reports   MonthCloser
	messenger whatsapp.Messenger
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. messenger may be nil, in which case
// months are archived without sending reminders.
func NewScheduler(cfg config.ReportingConfig, accounts AccountLister, reports MonthCloser, messenger whatsapp.Messenger, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  cfg.CronSchedule,
		accounts:  accounts,
		reports:   reports,
		messenger: messenger,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the monthly close and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.String("timezone", s.loc.String()))

	if _, err := s.cron.AddFunc(s.schedule, s.runMonthlyClose); err != nil {
		return fmt.Errorf("schedule monthly close %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runMonthlyClose() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	summary, err := s.RunMonthlyClose(ctx)
	if err != nil {
		s.logger.Error("monthly close finished with errors", zap.Error(err), zap.String("month", summary.Month))
		return
	}
	s.logger.Info("monthly close finished",
		zap.String("month", summary.Month),
		zap.Int("accounts", summary.Accounts),
		zap.Int("reminders", summary.Reminders))
}

// RunMonthlyClose archives the previous month of every account and, when a messenger
// is configured, reminds customers who still owe money. A failing account does not stop
// the others; the first error is returned.
func (s *Scheduler) RunMonthlyClose(ctx context.Context) (CloseSummary, error) {
	month, err := billing.PreviousMonth(billing.MonthOf(s.now().In(s.loc)))
	if err != nil {
		return CloseSummary{}, err
	}
	summary := CloseSummary{Month: month}

	ids, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return summary, fmt.Errorf("list accounts: %w", err)
	}

	var firstErr error
	for _, id := range ids {
		sent, err := s.closeAccount(ctx, id, month)
		summary.Reminders += sent
		if err != nil {
			s.logger.Error("failed to close month", zap.Error(err), zap.String("account", id), zap.String("month", month))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		summary.Accounts++
	}

	return summary, firstErr
}

func (s *Scheduler) closeAccount(ctx context.Context, userID, month string) (int, error) {
	report, err := s.reports.CloseMonth(ctx, userID, month)
	if err != nil {
		return 0, err
	}
	if s.messenger == nil {
		return 0, nil
	}

	var msgs []models.ShareMessage
	for _, row := range report.Rows {
		if billing.Round2(row.Balance) <= 0 {
			continue
		}
		msg, err := s.reports.ShareMessage(ctx, userID, month, row.CustomerID)
		if err != nil {
			if errors.Is(err, billing.ErrValidation) || errors.Is(err, billing.ErrNotFound) {
				continue
			}
			return 0, err
		}
		msgs = append(msgs, msg)
	}

	return s.messenger.SendReminders(ctx, msgs)
}
