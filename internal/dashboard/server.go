// server.go — HTTP data feed for dashboard panels.
// Panels pull the export and per-component reports as JSON and follow bus
// events over Server-Sent Events; Prometheus scrapes /metrics.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/telemetry"
)

// Options configures the feed.
type Options struct {
	AllowedOrigins []string
	Collector      *telemetry.Collector // optional; enables /metrics
	Logger         *log.Logger
}

// Server serves one engine over HTTP.
type Server struct {
	eng       *engine.Engine
	collector *telemetry.Collector
	router    *gin.Engine
	logger    *log.Entry
}

// New builds the router for eng.
func New(eng *engine.Engine, opts Options) *Server {
	s := &Server{
		eng:       eng,
		collector: opts.Collector,
		router:    gin.New(),
		logger:    logging.Component(opts.Logger, "dashboard"),
	}
	s.routes(opts.AllowedOrigins)
	return s
}

func (s *Server) routes(origins []string) {
	r := s.router
	r.Use(gin.Recovery(), s.requestLogger())
	if len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
			ExposeHeaders: []string{"X-Renderlens-Cursor"},
			MaxAge:        12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/export", s.export)
		api.GET("/history", s.history)
		api.GET("/slow", s.slow)
		api.GET("/events", s.events)
		api.POST("/reset", s.reset)

		components := api.Group("/components")
		{
			components.GET("/:id", s.component)
			components.GET("/:id/suggestions", s.suggestions)
		}
	}

	if s.collector != nil {
		r.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		// Request contexts derive from ctx so open SSE streams end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.WithField("addr", addr).Info("dashboard feed listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
