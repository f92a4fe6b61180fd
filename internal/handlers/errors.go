package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Field    string `json:"field,omitempty"`
	EntityID string `json:"entityId,omitempty"`
}

// statusFor maps a ledger error kind to an HTTP status code.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apperrors.KindOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrValidation, apperrors.ErrInvalidAmount, apperrors.ErrInvalidTransfer, apperrors.ErrAmountMismatch:
		return http.StatusBadRequest
	case apperrors.ErrReferentialConflict, apperrors.ErrConcurrencyConflict, apperrors.ErrDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an errorResponse. Server-side failures are logged
// at error level and their details are not exposed.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusFor(err)

	resp := errorResponse{Error: err.Error(), Kind: apperrors.KindName(err)}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
		resp.EntityID = appErr.EntityID
	}

	switch {
	case status == http.StatusGatewayTimeout:
		logger.Warn("Ledger operation timed out", slog.String("error", err.Error()))
		resp.Error = "operation timed out"
		resp.Kind = "timeout"
	case status >= http.StatusInternalServerError:
		logger.Error("Ledger operation failed", slog.String("error", err.Error()))
		resp.Error = http.StatusText(status)
	default:
		logger.Warn("Ledger operation rejected", slog.String("kind", resp.Kind), slog.String("error", err.Error()))
	}
	c.JSON(status, resp)
}

// respondBindError reports a request that could not be decoded or failed binding rules.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request", slog.String("error", err.Error()))
	resp := errorResponse{Error: "Invalid request format: " + err.Error(), Kind: apperrors.KindName(apperrors.ErrValidation)}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		resp.Field = verrs[0].Field()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// requireUserID returns the authenticated user or writes 401.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Kind: "unauthorized"})
		return "", false
	}
	return userID, true
}
