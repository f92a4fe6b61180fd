package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests related to the transaction log.
type transactionHandler struct {
	transactionService portssvc.TransactionSvc
}

func registerTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvc) {
	h := &transactionHandler{transactionService: transactionService}

	txns := rg.Group("/transactions")
	{
		txns.POST("", h.recordTransaction)
		txns.GET("", h.listTransactions)
		txns.GET("/:id", h.getTransaction)
		txns.DELETE("/:id", h.deleteTransaction)
	}
}

// recordTransaction handles POST /transactions.
func (h *transactionHandler) recordTransaction(c *gin.Context) {
	var req dto.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	txn, err := h.transactionService.RecordTransaction(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Transaction recorded",
		slog.String("transaction_id", txn.TransactionID), slog.String("account_id", txn.AccountID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// listTransactions handles GET /transactions with keyset pagination.
func (h *transactionHandler) listTransactions(c *gin.Context) {
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, err := h.transactionService.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(page))
}

// getTransaction handles GET /transactions/:id.
func (h *transactionHandler) getTransaction(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	txn, err := h.transactionService.GetTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// deleteTransaction handles DELETE /transactions/:id.
func (h *transactionHandler) deleteTransaction(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
