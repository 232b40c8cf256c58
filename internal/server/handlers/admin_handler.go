package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/service/diary"
)

// AdminHandler exposes the plan table, account subscriptions and plan changes.
type AdminHandler struct {
	svc    *diary.Service
	logger *zap.Logger
}

// NewAdminHandler constructs the HTTP handler adapter.
func NewAdminHandler(svc *diary.Service, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{svc: svc, logger: logger}
}

type changePlanRequest struct {
	Plan models.Plan `json:"plan" binding:"required"`
}

// Plans lists every subscription tier.
func (h *AdminHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, billing.PlanConfigs())
}

// Accounts lists every account with its current subscription.
func (h *AdminHandler) Accounts(c *gin.Context) {
	plans, err := h.svc.ListAccountPlans(c.Request.Context(), accountFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ChangePlan moves an account onto a plan starting today.
func (h *AdminHandler) ChangePlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	sub, err := h.svc.ChangePlan(c.Request.Context(), accountFrom(c), c.Param("accountId"), req.Plan)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
