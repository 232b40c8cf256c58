package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/service/diary"
)

// RecordsHandler exposes customers, entries and payments of the calling account.
type RecordsHandler struct {
	svc    *diary.Service
	logger *zap.Logger
}

// NewRecordsHandler constructs the HTTP handler adapter.
func NewRecordsHandler(svc *diary.Service, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{svc: svc, logger: logger}
}

type priceCorrectionRequest struct {
	UnitPrice float64 `json:"unitPrice"`
}

// Snapshot returns every record of the account.
func (h *RecordsHandler) Snapshot(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context(), accountFrom(c).ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Stream pushes a fresh snapshot as a server-sent event after every mutation.
func (h *RecordsHandler) Stream(c *gin.Context) {
	account := accountFrom(c)

	updates := make(chan models.Snapshot, 1)
	cancel := h.svc.Subscribe(account.ID, latestOnly(updates))
	defer cancel()

	initial, err := h.svc.Snapshot(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("snapshot", initial)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}

// latestOnly feeds a one-slot channel, replacing a snapshot the reader has not
// taken yet.
func latestOnly(updates chan models.Snapshot) func(models.Snapshot) {
	return func(snap models.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}
}

// Usage reports the entry gate state of the account.
func (h *RecordsHandler) Usage(c *gin.Context) {
	decision, err := h.svc.Usage(c.Request.Context(), accountFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// CreateCustomer adds a customer.
func (h *RecordsHandler) CreateCustomer(c *gin.Context) {
	var in diary.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	customer, err := h.svc.AddCustomer(c.Request.Context(), accountFrom(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer patches a customer. Existing entries keep their amounts.
func (h *RecordsHandler) UpdateCustomer(c *gin.Context) {
	var patch models.CustomerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	customer, err := h.svc.UpdateCustomer(c.Request.Context(), accountFrom(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer with their entries and payments.
func (h *RecordsHandler) DeleteCustomer(c *gin.Context) {
	if err := h.svc.DeleteCustomer(c.Request.Context(), accountFrom(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateEntry records a delivery. A request refused by the plan limit answers 402 with
// the gate decision.
func (h *RecordsHandler) CreateEntry(c *gin.Context) {
	var in diary.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	entry, decision, err := h.svc.AddEntry(c.Request.Context(), accountFrom(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": decision.Reason, "usage": decision})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry, "usage": decision})
}

// UpdateEntry patches the delivered flag and notes of an entry.
func (h *RecordsHandler) UpdateEntry(c *gin.Context) {
	var patch models.EntryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	entry, err := h.svc.UpdateEntry(c.Request.Context(), accountFrom(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CorrectEntryPrice recomputes an entry amount from a new unit price.
func (h *RecordsHandler) CorrectEntryPrice(c *gin.Context) {
	var req priceCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	entry, err := h.svc.CorrectEntryPrice(c.Request.Context(), accountFrom(c), c.Param("id"), req.UnitPrice)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteEntry removes an entry.
func (h *RecordsHandler) DeleteEntry(c *gin.Context) {
	if err := h.svc.DeleteEntry(c.Request.Context(), accountFrom(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreatePayment records money received from a customer.
func (h *RecordsHandler) CreatePayment(c *gin.Context) {
	var in diary.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	payment, err := h.svc.AddPayment(c.Request.Context(), accountFrom(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// DeletePayment removes a payment.
func (h *RecordsHandler) DeletePayment(c *gin.Context) {
	if err := h.svc.DeletePayment(c.Request.Context(), accountFrom(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
