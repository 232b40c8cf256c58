package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
)

// DayLine is a delivery of the day with the customer it went to.
type DayLine struct {
	models.DiaryEntry
	CustomerName string `json:"customerName"`
}

// DiaryDay is the delivery sheet of one calendar date.
type DiaryDay struct {
	Date          string           `json:"date"`
	Label         string           `json:"label"`
	PreviousDate  string           `json:"previousDate"`
	NextDate      string           `json:"nextDate"`
	Today         string           `json:"today"`
	Entries       []DayLine        `json:"entries"`
	TotalQuantity float64          `json:"totalQuantity"`
	TotalRevenue  float64          `json:"totalRevenue"`
	Delivered     int              `json:"delivered"`
	Usage         billing.Decision `json:"usage"`
}

// Day lists the entries recorded on date, in insertion order. An empty date means today.
func (s *Service) Day(ctx context.Context, account models.Account, date string) (DiaryDay, error) {
	today := s.now().In(s.loc).Format(billing.DateLayout)
	date = strings.TrimSpace(date)
	if date == "" || date == "today" {
		date = today
	}

	label, err := billing.DayLabel(date)
	if err != nil {
		return DiaryDay{}, err
	}
	prev, err := billing.ShiftDate(date, -1)
	if err != nil {
		return DiaryDay{}, err
	}
	next, err := billing.ShiftDate(date, 1)
	if err != nil {
		return DiaryDay{}, err
	}

	snap, err := s.source.Snapshot(ctx, account.ID)
	if err != nil {
		return DiaryDay{}, fmt.Errorf("load snapshot: %w", err)
	}

	day := DiaryDay{
		Date:         date,
		Label:        label,
		PreviousDate: prev,
		NextDate:     next,
		Today:        today,
		Entries:      []DayLine{},
	}
	for _, e := range snap.EntriesByDate(date) {
		name := billing.UnknownCustomerName
		if c, ok := snap.CustomerByID(e.CustomerID); ok {
			name = c.Name
		}
		day.Entries = append(day.Entries, DayLine{DiaryEntry: e, CustomerName: name})
		day.TotalQuantity += e.Quantity
		day.TotalRevenue += e.Amount
		if e.Delivered {
			day.Delivered++
		}
	}

	account.Subscription = snap.Subscription
	day.Usage = billing.CanRecordEntry(account, len(snap.Entries))
	return day, nil
}
