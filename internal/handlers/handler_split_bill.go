package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/middleware"
	"github.com/gin-gonic/gin"
)

// splitBillHandler handles HTTP requests related to split bills and their settlement.
type splitBillHandler struct {
	splitBillService portssvc.SplitBillSvc
}

func registerSplitBillRoutes(rg *gin.RouterGroup, splitBillService portssvc.SplitBillSvc) {
	h := &splitBillHandler{splitBillService: splitBillService}

	bills := rg.Group("/split-bills")
	{
		bills.POST("", h.createSplitBill)
		bills.GET("", h.listSplitBills)
		bills.GET("/:id", h.getSplitBill)
		bills.GET("/:id/status", h.billStatus)
		bills.POST("/:id/pay", h.markPaid)
	}
}

// createSplitBill handles POST /split-bills.
func (h *splitBillHandler) createSplitBill(c *gin.Context) {
	var req dto.CreateSplitBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	bill, err := h.splitBillService.CreateSplitBill(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Split bill created",
		slog.String("split_bill_id", bill.SplitBillID), slog.Int("participants", len(bill.Participants)))
	c.JSON(http.StatusCreated, dto.ToSplitBillResponse(bill))
}

// listSplitBills handles GET /split-bills.
func (h *splitBillHandler) listSplitBills(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	bills, err := h.splitBillService.ListSplitBills(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListSplitBillsResponse(bills))
}

// getSplitBill handles GET /split-bills/:id.
func (h *splitBillHandler) getSplitBill(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	bill, err := h.splitBillService.GetSplitBill(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSplitBillResponse(bill))
}

// billStatus handles GET /split-bills/:id/status.
func (h *splitBillHandler) billStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	status, err := h.splitBillService.BillStatus(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBillStatusResponse(*status))
}

// markPaid handles POST /split-bills/:id/pay. Paying an already paid share returns the bill unchanged.
func (h *splitBillHandler) markPaid(c *gin.Context) {
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	bill, err := h.splitBillService.MarkParticipantPaid(c.Request.Context(), userID, c.Param("id"), req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSplitBillResponse(bill))
}
