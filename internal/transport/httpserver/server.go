package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/metrics"
	"github.com/sandevgo/kbqa/pkg/log"
)

type Server struct {
	cfg    *config.HTTPConfig
	router *gin.Engine
	srv    *http.Server
}

func NewServer(ctx context.Context, cfg *config.HTTPConfig, engine Engine) *Server {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID(*log.FromCtx(ctx)))
	router.Use(RequestLogger())
	router.Use(MetricsRecorder())
	router.Use(Timeout(cfg.RequestTimeout))

	s := &Server{
		cfg:    cfg,
		router: router,
	}
	s.routes(&handlers{engine: engine})

	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(h *handlers) {
	s.router.POST("/ask", h.ask)
	s.router.GET("/history/:id", h.history)

	s.router.POST("/conversation", h.createConversation)
	s.router.POST("/conversation/import", h.importConversation)
	s.router.DELETE("/conversation/:id", h.deleteConversation)
	s.router.POST("/conversation/:id/clear", h.clearConversation)
	s.router.GET("/conversation/:id/export", h.exportConversation)

	s.router.GET("/health", h.health)
	if s.cfg.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, Envelope{
			Success:   false,
			Error:     "route not found",
			RequestID: requestIDFrom(c),
			Timestamp: time.Now().UTC(),
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests. ctx is usually already cancelled, so
// the drain gets its own deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	log.FromCtx(ctx).Info().Msg("stopping http server")
	return s.srv.Shutdown(drainCtx)
}
