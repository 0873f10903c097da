package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/ledger"
	"go.uber.org/zap"
)

// TransferHandler exposes the protected funds-movement endpoints.
type TransferHandler struct {
	ledger ledger.Ledger
	logger *zap.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(l ledger.Ledger, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{ledger: l, logger: logger}
}

// Register mounts the transfer routes on rg behind the authorization gate.
// Every route in this group requires a verified identity; gate aborts with
// 401 before any handler here runs.
func (h *TransferHandler) Register(rg *gin.RouterGroup, gate gin.HandlerFunc) {
	protected := rg.Group("", gate)
	{
		protected.POST("/transfer", h.Transfer)
		protected.GET("/balance", h.Balance)
		protected.GET("/transfers", h.History)
	}
}

// transferRequest is the allow-list of payload fields the handler reads.
// The acting identity is deliberately absent: any identity-shaped field a
// client includes (attemptedUserId, sender_id, ...) has nowhere to bind and
// is ignored. Its presence is not an error; trusting it would be.
type transferRequest struct {
	Amount      float64 `json:"amount"       binding:"required,gt=0"`
	RecipientID string  `json:"recipient_id" binding:"required"`
}

// Transfer handles POST /transfer — moves funds from the authenticated
// account to the recipient named in the payload.
//
// The sender is always the verified token subject. Amount and recipient come
// from the payload; nothing else does.
func (h *TransferHandler) Transfer(c *gin.Context) {
	id, ok := identity.IdentityFromCtx(c)
	if !ok {
		// Unreachable when routed through the gate; fail closed regardless.
		h.logger.Error("transfer handler entered without identity", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "access denied"})
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "amount must be a positive number and recipient_id is required"})
		return
	}

	cents, err := ledger.ToMinorUnits(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	tr, err := h.ledger.Transfer(c.Request.Context(), id.SubjectID, req.RecipientID, cents)
	if err != nil {
		h.respondTransferError(c, err)
		return
	}

	RecordTransfer("ok")
	h.logger.Info("transfer executed",
		zap.String("transfer_id", tr.ID.String()),
		zap.String("subject_id", id.SubjectID),
		zap.String("recipient_id", tr.RecipientID),
		zap.Int64("amount_cents", tr.Amount),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"executed_by":  id.SubjectID,
		"recipient_id": tr.RecipientID,
		"amount":       ledger.FromMinorUnits(tr.Amount),
		"transfer_id":  tr.ID.String(),
		"balance":      ledger.FromMinorUnits(tr.SenderBalance),
	})
}

// respondTransferError maps ledger sentinels to client-facing statuses.
// Business rejections surface their sentinel text; anything unexpected stays
// generic so internal detail never reaches the caller.
func (h *TransferHandler) respondTransferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		RecordTransfer("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, ledger.ErrNoAccount),
		errors.Is(err, ledger.ErrUnknownRecipient),
		errors.Is(err, ledger.ErrInsufficientFunds):
		RecordTransfer("rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	default:
		RecordTransfer("failed")
		h.logger.Error("ledger transfer failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "transfer failed"})
	}
}

// Balance handles GET /balance — returns the authenticated account's balance.
func (h *TransferHandler) Balance(c *gin.Context) {
	id, ok := identity.IdentityFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "access denied"})
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), id.SubjectID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		h.logger.Error("ledger balance lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "balance unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owner_id": id.SubjectID,
		"balance":  ledger.FromMinorUnits(balance),
	})
}

// History handles GET /transfers — lists the authenticated account's
// transfers, newest first. Only the caller's own history is visible.
func (h *TransferHandler) History(c *gin.Context) {
	id, ok := identity.IdentityFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "access denied"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	transfers, err := h.ledger.History(c.Request.Context(), id.SubjectID, limit)
	if err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		h.logger.Error("ledger history lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "history unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owner_id":  id.SubjectID,
		"transfers": transfers,
	})
}
