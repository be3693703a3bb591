package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDKey = "request_id"

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		s.logger.Debug("request",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				s.abortWithError(c, fmt.Errorf("panic: %v", recovered))
			}
		}()
		c.Next()
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		c.Next()
	}
}

// deviceLimiter keeps one token bucket per device id. Device ids are chosen
// by clients, so at most maxDevices buckets are tracked and the least
// recently seen device loses its bucket first. A device coming back after
// eviction starts from a full bucket.
type deviceLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *lru.Cache[domain.DeviceID, *rate.Limiter]
}

func newDeviceLimiter(perSecond float64, burst, maxDevices int) *deviceLimiter {
	if perSecond <= 0 {
		return nil
	}
	if maxDevices <= 0 {
		maxDevices = DefaultMaxTrackedDevices
	}

	// lru.New only fails for a non-positive size.
	buckets, _ := lru.New[domain.DeviceID, *rate.Limiter](maxDevices)

	return &deviceLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: buckets,
	}
}

func (l *deviceLimiter) Allow(id domain.DeviceID) bool {
	if l == nil {
		return true
	}

	bucket, ok := l.buckets.Get(id)
	if !ok {
		fresh := rate.NewLimiter(l.limit, l.burst)
		previous, found, _ := l.buckets.PeekOrAdd(id, fresh)
		bucket = fresh
		if found {
			bucket = previous
		}
	}

	return bucket.Allow()
}

func (l *deviceLimiter) tracked() int {
	if l == nil {
		return 0
	}

	return l.buckets.Len()
}
