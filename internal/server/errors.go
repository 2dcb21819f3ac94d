package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/serenatalabs/serenata/internal/checkout"
	notifdomain "github.com/serenatalabs/serenata/internal/notification/domain"
	orderdomain "github.com/serenatalabs/serenata/internal/order/domain"
	webhookdomain "github.com/serenatalabs/serenata/internal/webhook/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, webhookdomain.ErrBadSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid webhook credentials",
		}
	case errors.Is(err, webhookdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_payload",
			Message: "body is not a JSON object",
		}
	case errors.Is(err, webhookdomain.ErrMissingIdentifiers):
		return http.StatusBadRequest, errorPayload{
			Type:    "missing_identifiers",
			Message: "event carries no usable order identifiers",
		}
	case errors.Is(err, webhookdomain.ErrIdentityMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "identity_mismatch",
			Message: "matched order does not belong to the event's customer",
		}
	case errors.Is(err, checkout.ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "order_not_found",
			Message: "no order matches this event",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog labels request-log entries so 4xx noise is
// distinguishable from real faults.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case errors.Is(err, webhookdomain.ErrBadSignature):
		return "warn", "bad_signature"
	case errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrMissingIdentifiers),
		errors.Is(err, webhookdomain.ErrIdentityMismatch),
		errors.Is(err, checkout.ErrInvalidRequest):
		return "warn", "bad_request"
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return "warn", "order_not_found"
	case errors.Is(err, notifdomain.ErrNoRecipient):
		return "warn", "no_recipient"
	default:
		return "error", "internal"
	}
}
