package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/middleware"
	"github.com/gin-gonic/gin"
)

type transferHandler struct {
	transferService portssvc.TransferSvc
}

func registerTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvc) {
	h := &transferHandler{transferService: transferService}

	transfers := rg.Group("/transfers")
	{
		transfers.POST("", h.createTransfer)
		transfers.GET("/:id", h.getTransfer)
		transfers.DELETE("/:id", h.deleteTransfer)
	}
}

// createTransfer handles POST /transfers.
func (h *transferHandler) createTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received transfer request",
		slog.String("source_account_id", req.SourceAccountID),
		slog.String("dest_account_id", req.DestAccountID),
		slog.String("amount", req.Amount.String()))

	transfer, err := h.transferService.Transfer(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Transfer applied", slog.String("transfer_id", transfer.TransferID))
	c.JSON(http.StatusCreated, dto.ToTransferResponse(transfer))
}

// getTransfer handles GET /transfers/:id.
func (h *transferHandler) getTransfer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	transfer, err := h.transferService.GetTransfer(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransferResponse(transfer))
}

// deleteTransfer handles DELETE /transfers/:id.
func (h *transferHandler) deleteTransfer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.transferService.DeleteTransfer(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
