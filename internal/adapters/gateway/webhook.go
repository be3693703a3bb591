package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bnema/beright/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleStripeWebhook applies succeeded payments reported by the processor.
// Verified events that can never be applied are acknowledged so the
// processor stops redelivering them; transient failures are not.
func (s *Server) handleStripeWebhook(c *gin.Context) {
	if s.deps.Notifications == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: APIError{CodeInvalidRequest, "webhooks are not configured"}})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("%w: read webhook body: %v", domain.ErrInvalidRequest, err))
		return
	}

	notification, ok, err := s.deps.Notifications.ParseSucceeded(payload, c.GetHeader(headerSignature))
	if err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := s.deps.Reconciler.Reconcile(c.Request.Context(), notification.DeviceID, notification.TransactionID, domain.SourceWebhook)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": result.Applied})
	case errors.Is(err, domain.ErrIntegrity),
		errors.Is(err, domain.ErrMissingDeviceID),
		errors.Is(err, domain.ErrPaymentNotSucceeded),
		errors.Is(err, domain.ErrPaymentNotFound):
		s.logger.Warn("webhook payment not applied",
			zap.String("request_id", requestID(c)),
			zap.String("event_id", notification.EventID),
			zap.String("transaction_id", string(notification.TransactionID)),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
	default:
		s.abortWithError(c, fmt.Errorf("webhook %s: %w", notification.EventID, err))
	}
}
