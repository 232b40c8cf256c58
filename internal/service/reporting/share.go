package reporting

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	whatsappclient "github.com/mamadbah2/milkman/pkg/clients/whatsapp"
)

// ShareText renders the month summary sent to a customer.
func ShareText(customerName, monthLabel string, row Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Milk Report for %s (%s)\n\n", customerName, monthLabel)
	fmt.Fprintf(&b, "Total Milk: %s L\n", billing.FormatFixed2(row.TotalQuantity))
	fmt.Fprintf(&b, "Total Billed: ₹%s\n", billing.FormatFixed2(row.TotalAmount))
	fmt.Fprintf(&b, "Total Paid: ₹%s\n", billing.FormatFixed2(row.Paid))
	fmt.Fprintf(&b, "Balance: ₹%s", billing.FormatFixed2(row.Balance))
	return b.String()
}

// ShareLink builds a wa.me link opening a chat with phone prefilled with text.
func ShareLink(phone, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", whatsappclient.NormalizeRecipient(phone), escaped)
}

// ShareMessage prepares the month summary of one customer for sending.
func (s *Service) ShareMessage(ctx context.Context, userID, month, customerID string) (models.ShareMessage, error) {
	label, err := billing.MonthLabel(month)
	if err != nil {
		return models.ShareMessage{}, err
	}
	detail, err := s.CustomerMonthDetail(ctx, userID, month, customerID)
	if err != nil {
		return models.ShareMessage{}, err
	}

	phone := whatsappclient.NormalizeRecipient(models.StringValue(detail.Customer.Phone))
	if phone == "" {
		return models.ShareMessage{}, billing.NewValidationError("phone", "customer has no phone number saved")
	}

	text := ShareText(detail.Customer.Name, label, detail.Row)
	return models.ShareMessage{
		CustomerID: customerID,
		Phone:      phone,
		Text:       text,
		Link:       ShareLink(phone, text),
	}, nil
}
