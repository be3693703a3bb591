package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/beright/internal/application"
	"github.com/bnema/beright/internal/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultAddr              = "127.0.0.1:8080"
	DefaultMaxBodyBytes      = 12 << 20
	DefaultDeviceRate        = 2.0
	DefaultDeviceBurst       = 20
	DefaultMaxTrackedDevices = 10000

	headerDeviceID     = "X-Device-ID"
	headerSessionToken = "X-Session-Token"
	headerRequestID    = "X-Request-ID"
	headerSignature    = "Stripe-Signature"
)

type Config struct {
	Addr         string
	MaxBodyBytes int64
	// DeviceRate is the sustained number of requests per second one device
	// may send; DeviceBurst is the bucket size. A zero rate disables limiting.
	DeviceRate  float64
	DeviceBurst int
	// MaxTrackedDevices bounds the number of token buckets kept in memory.
	MaxTrackedDevices int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.DeviceBurst <= 0 {
		c.DeviceBurst = DefaultDeviceBurst
	}
	if c.MaxTrackedDevices <= 0 {
		c.MaxTrackedDevices = DefaultMaxTrackedDevices
	}

	return c
}

type Deps struct {
	Ledger        *application.Ledger
	Reconciler    *application.Reconciler
	Sessions      *application.SessionManager
	Orchestrator  *application.Orchestrator
	Notifications ports.PaymentNotifications
}

// Server exposes the action envelope, the streamed conversation and the
// payment webhook over HTTP.
type Server struct {
	deps    Deps
	cfg     Config
	logger  *zap.Logger
	router  *gin.Engine
	limiter *deviceLimiter
	actions map[string]actionHandler
}

func NewServer(deps Deps, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()
	s := &Server{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		router:  gin.New(),
		limiter: newDeviceLimiter(cfg.DeviceRate, cfg.DeviceBurst, cfg.MaxTrackedDevices),
	}
	s.actions = s.actionTable()

	s.router.Use(s.recovery(), s.requestID(), s.accessLog(), s.limitBody())

	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/actions", s.handleAction)
		v1.POST("/conversations/stream", s.handleStream)
		v1.POST("/webhooks/stripe", s.handleStripeWebhook)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown gateway: %w", err)
	}
	<-errCh

	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
