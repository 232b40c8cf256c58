package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/service/reporting"
	"github.com/mamadbah2/milkman/internal/service/whatsapp"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler exposes monthly reports, exports and sharing.
type ReportsHandler struct {
	reports   *reporting.Service
	messenger whatsapp.Messenger
	logger    *zap.Logger
}

// NewReportsHandler constructs the HTTP handler adapter. messenger may be nil.
func NewReportsHandler(reports *reporting.Service, messenger whatsapp.Messenger, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{reports: reports, messenger: messenger, logger: logger}
}

// Dashboard summarises the current month and plan usage.
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	dash, err := h.reports.Dashboard(c.Request.Context(), accountFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// Day lists the deliveries of one date; without a date it shows today.
func (h *ReportsHandler) Day(c *gin.Context) {
	day, err := h.reports.Day(c.Request.Context(), accountFrom(c), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// Monthly renders the month report; q filters customers and sort orders them.
func (h *ReportsHandler) Monthly(c *gin.Context) {
	sortBy, err := billing.ParseSortBy(c.Query("sort"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	report, err := h.reports.MonthlyReport(c.Request.Context(), accountFrom(c).ID, reporting.Query{
		Month:  c.Param("month"),
		Search: c.Query("q"),
		SortBy: sortBy,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CustomerMonth lists one customer's entries and payments in the month.
func (h *ReportsHandler) CustomerMonth(c *gin.Context) {
	detail, err := h.reports.CustomerMonthDetail(c.Request.Context(), accountFrom(c).ID, c.Param("month"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CustomerLedger returns a customer's lifetime ledger.
func (h *ReportsHandler) CustomerLedger(c *gin.Context) {
	view, err := h.reports.CustomerLedger(c.Request.Context(), accountFrom(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Share returns the month summary text and wa.me link of a customer.
func (h *ReportsHandler) Share(c *gin.Context) {
	msg, err := h.reports.ShareMessage(c.Request.Context(), accountFrom(c).ID, c.Param("month"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// SendShare delivers the month summary through the WhatsApp Cloud API.
func (h *ReportsHandler) SendShare(c *gin.Context) {
	if h.messenger == nil {
		respondError(c, h.logger, whatsapp.ErrNotConfigured)
		return
	}

	msg, err := h.reports.ShareMessage(c.Request.Context(), accountFrom(c).ID, c.Param("month"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.messenger.SendShare(c.Request.Context(), msg); err != nil {
		h.logger.Error("failed sending share message", zap.Error(err), zap.String("customer", msg.CustomerID))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// ExportCSV downloads the month as CSV.
func (h *ReportsHandler) ExportCSV(c *gin.Context) {
	month := c.Param("month")
	data, err := h.reports.ExportCSV(c.Request.Context(), accountFrom(c).ID, month)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	attachment(c, reporting.ExportFilename(month, "csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportXLSX downloads the month as a workbook.
func (h *ReportsHandler) ExportXLSX(c *gin.Context) {
	month := c.Param("month")
	data, err := h.reports.ExportXLSX(c.Request.Context(), accountFrom(c).ID, month)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	attachment(c, reporting.ExportFilename(month, "xlsx"))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportSheet appends the month to the configured spreadsheet.
func (h *ReportsHandler) ExportSheet(c *gin.Context) {
	rows, err := h.reports.ExportToSheet(c.Request.Context(), accountFrom(c).ID, c.Param("month"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
