package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/bnema/beright/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CodeNoCredits           = "NO_CREDITS"
	CodeMissingDeviceID     = "MISSING_DEVICE_ID"
	CodeRateLimit           = "RATE_LIMIT"
	CodePaymentRejected     = "PAYMENT_REJECTED"
	CodePaymentNotComplete  = "PAYMENT_NOT_COMPLETE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamMalformed   = "UPSTREAM_MALFORMED"
	CodeRevocationDisabled  = "SESSION_REVOCATION_DISABLED"
	CodeInternal            = "INTERNAL"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// describeError maps an error to its HTTP status and client-facing body.
// Integrity details and internal causes never reach the client.
func describeError(err error) (int, APIError) {
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, domain.ErrMissingDeviceID):
		return http.StatusBadRequest, APIError{CodeMissingDeviceID, "a device id is required"}
	case errors.Is(err, errDeviceRateLimited):
		return http.StatusTooManyRequests, APIError{CodeRateLimit, "too many requests, slow down"}
	case errors.Is(err, domain.ErrNoCredits):
		return http.StatusPaymentRequired, APIError{CodeNoCredits, "no credits left, top up to continue"}
	case errors.Is(err, domain.ErrIntegrity), errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusUnprocessableEntity, APIError{CodePaymentRejected, "payment could not be verified"}
	case errors.Is(err, domain.ErrPaymentNotSucceeded):
		return http.StatusConflict, APIError{CodePaymentNotComplete, "payment has not completed yet"}
	case errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest, APIError{CodeUnknownAction, err.Error()}
	case errors.Is(err, domain.ErrRevocationDisabled):
		return http.StatusForbidden, APIError{CodeRevocationDisabled, "conversation sessions cannot be ended early"}
	case errors.Is(err, domain.ErrInvalidSession):
		return http.StatusBadRequest, APIError{CodeInvalidRequest, "session is invalid or expired"}
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}
	case errors.As(err, &upstream):
		switch upstream.Kind {
		case domain.UpstreamRateLimited:
			return http.StatusTooManyRequests, APIError{CodeRateLimit, "provider rate limit reached, retry later"}
		case domain.UpstreamMalformed:
			return http.StatusBadGateway, APIError{CodeUpstreamMalformed, "provider returned an unusable response"}
		default:
			return http.StatusServiceUnavailable, APIError{CodeUpstreamUnavailable, "provider is unavailable, retry later"}
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, APIError{CodeUpstreamUnavailable, "request timed out"}
	default:
		return http.StatusInternalServerError, APIError{CodeInternal, "internal error"}
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status, body := describeError(err)

	fields := []zap.Field{
		zap.String("request_id", requestID(c)),
		zap.String("code", body.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}
