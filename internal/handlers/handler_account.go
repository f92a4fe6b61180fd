package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/middleware"
	"github.com/SscSPs/ledger_core/internal/utils/money"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvc
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvc) *accountHandler {
	return &accountHandler{
		accountService: as,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvc) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.PUT("/:id", h.updateAccount)
		accounts.DELETE("/:id", h.deleteAccount)
		accounts.GET("/:id/balance", h.getBalance)
		accounts.GET("/:id/reconcile", h.reconcile)
		accounts.POST("/:id/adjustments", h.adjustBalance)
		accounts.GET("/:id/adjustments", h.listAdjustments)
	}
}

// createAccount handles POST /accounts.
func (h *accountHandler) createAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received request to create account", slog.String("account_name", req.Name), slog.String("currency_code", req.CurrencyCode))

	account, err := h.accountService.CreateAccount(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// getAccount handles GET /accounts/:id.
func (h *accountHandler) getAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	account, err := h.accountService.GetAccount(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listAccounts handles GET /accounts.
func (h *accountHandler) listAccounts(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	accounts, err := h.accountService.ListAccounts(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	totals, err := h.accountService.TotalBalances(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListAccountsResponse(accounts, totals))
}

// updateAccount handles PUT /accounts/:id. Display fields and a balance
// override are applied together or not at all.
func (h *accountHandler) updateAccount(c *gin.Context) {
	var req dto.EditAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	account, err := h.accountService.EditAccount(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deleteAccount handles DELETE /accounts/:id.
func (h *accountHandler) deleteAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.accountService.DeleteAccount(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getBalance handles GET /accounts/:id/balance.
func (h *accountHandler) getBalance(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	accountID := c.Param("id")

	balance, err := h.accountService.GetBalance(ctx, userID, accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	account, err := h.accountService.GetAccount(ctx, userID, accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccountBalanceResponse{
		AccountID:    accountID,
		Balance:      balance,
		CurrencyCode: account.CurrencyCode,
		Formatted:    money.Format(balance, account.CurrencyCode),
	})
}

// reconcile handles GET /accounts/:id/reconcile.
func (h *accountHandler) reconcile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	rec, err := h.accountService.Reconcile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !rec.Consistent() {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Account balance drifted from history",
			slog.String("account_id", rec.AccountID), slog.String("drift", rec.Drift.String()))
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(*rec))
}

// adjustBalance handles POST /accounts/:id/adjustments.
func (h *accountHandler) adjustBalance(c *gin.Context) {
	var req dto.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	account, err := h.accountService.AdjustBalance(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listAdjustments handles GET /accounts/:id/adjustments.
func (h *accountHandler) listAdjustments(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	adjs, err := h.accountService.ListBalanceAdjustments(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustments": dto.ToBalanceAdjustmentResponses(adjs)})
}
