package gateway

import (
	"fmt"
	"net/http"

	"github.com/bnema/beright/internal/application"
	"github.com/bnema/beright/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	eventProgress = "progress"
	eventResult   = "result"
	eventError    = "error"
)

type streamRequest struct {
	domain.Debate
	DeviceID     string `json:"deviceId"`
	SessionToken string `json:"sessionToken"`
}

// handleStream authorizes one conversation and runs the whole pipeline,
// sending progress as server-sent events. A client disconnect cancels the
// request context and the run stops at the next stage boundary.
func (s *Server) handleStream(c *gin.Context) {
	var req streamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidRequest, err))
		return
	}

	deviceID := resolveDeviceID(c, req.DeviceID)
	if err := deviceID.Validate(); err != nil {
		s.abortWithError(c, err)
		return
	}
	if !s.limiter.Allow(deviceID) {
		s.abortWithError(c, errDeviceRateLimited)
		return
	}
	if err := req.Debate.Validate(); err != nil {
		s.abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	auth, err := s.deps.Sessions.Authorize(ctx, deviceID, resolveSessionToken(c, req.SessionToken))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header(headerSessionToken, string(auth.Session.Token))
	c.Status(http.StatusOK)
	c.Writer.Flush()

	req.Debate.Mode = auth.Mode
	analysis, err := s.deps.Orchestrator.Run(ctx, req.Debate, func(p application.Progress) {
		c.SSEvent(eventProgress, p)
		c.Writer.Flush()
	})
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("conversation abandoned",
				zap.String("request_id", requestID(c)),
				zap.String("device_id", string(deviceID)),
			)
			return
		}

		_, body := describeError(err)
		s.logger.Warn("conversation failed",
			zap.String("request_id", requestID(c)),
			zap.String("device_id", string(deviceID)),
			zap.String("code", body.Code),
			zap.Error(err),
		)
		c.SSEvent(eventError, errorResponse{Error: body})
		c.Writer.Flush()
		return
	}

	c.SSEvent(eventResult, analysis)
	c.Writer.Flush()
}
