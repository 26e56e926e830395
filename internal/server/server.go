package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/averros/invopipe/internal/common"
)

// Server wires the per-kind handlers into one gin engine.
type Server struct {
	cfg    common.ServerConfig
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger
}

type Deps struct {
	Invoices       *Handler
	PurchaseOrders *Handler
	Limiter        RateLimiter
	RateLimit      common.RateLimitConfig
	Logger         *slog.Logger
}

func New(cfg common.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}
	s.routes(deps)
	return s
}

func (s *Server) routes(deps Deps) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	uploadLimit := rateLimit(deps.Limiter, deps.RateLimit.UploadLimit, deps.RateLimit.UploadWindow, s.logger)
	uploadDeadline := uploadTimeout(s.cfg.UploadTimeout)

	v1 := s.engine.Group("/v1", partnerAuth())
	{
		register := func(path string, h *Handler) {
			g := v1.Group(path)
			g.POST("", uploadLimit, uploadDeadline, h.HandleUpload)
			g.GET("/export", h.HandleExport)
			g.GET("/:id", h.HandleGetDocument)
			g.GET("/:id/status", h.HandleGetStatus)
			g.DELETE("/:id", h.HandleDelete)
		}

		register("/invoices", deps.Invoices)
		register("/purchase-orders", deps.PurchaseOrders)
	}
}

// Run blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", "addr", addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
