package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type EscrowRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateEscrow handles POST /api/v1/tasks/:id/escrow
func (h *Handler) CreateEscrow(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req EscrowRequest
	if !bind(c, &req) {
		return
	}

	escrow, err := h.svc.Escrow.CreateEscrowPayment(c.Request.Context(), c.Param("id"), req.Amount, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, escrow)
}

// GetEscrow handles GET /api/v1/tasks/:id/escrow
func (h *Handler) GetEscrow(c *gin.Context) {
	escrow, err := h.svc.Escrow.GetByTaskID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// ReleaseEscrow handles POST /api/v1/tasks/:id/release
func (h *Handler) ReleaseEscrow(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	escrow, err := h.svc.Escrow.ReleasePayment(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// RefundEscrow handles POST /api/v1/tasks/:id/refund
func (h *Handler) RefundEscrow(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	escrow, err := h.svc.Escrow.RefundPayment(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// GetHeldAmount handles GET /api/v1/escrow/held
func (h *Handler) GetHeldAmount(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	total, err := h.svc.Escrow.GetHeldAmountForUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amountHeld": total})
}

// GetEscrowPayments handles GET /api/v1/escrow/payments
func (h *Handler) GetEscrowPayments(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	rows, err := h.svc.Escrow.GetUserEscrowPayments(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": rows, "count": len(rows)})
}
