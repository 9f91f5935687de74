package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/infrastructure"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	v1 "jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1"
)

type HTTPServer struct {
	engine  *gin.Engine
	infra   *infrastructure.Infrastructure
	v1Route *v1.V1Route
	config  *config.Config
	log     zerolog.Logger
}

func NewHTTPServer(
	v1Route *v1.V1Route,
	infra *infrastructure.Infrastructure,
	cfg *config.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:  gin.New(),
		infra:   infra,
		v1Route: v1Route,
		config:  cfg,
		log:     infra.Logger.With().Str("component", "http-server").Logger(),
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(infra.Logger))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", server.readyz)

	server.registerRoutes()
	return server
}

// Handler exposes the gin engine, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) registerRoutes() {
	s.v1Route.RegisterPublicRouter(s.engine)

	protected := s.engine.Group("/")
	protected.Use(
		middleware.GatewayAuthMiddleware(s.infra.Logger),
		middleware.SessionMiddleware(),
	)
	s.v1Route.RegisterRouter(protected)
}

func (s *HTTPServer) readyz(c *gin.Context) {
	if err := s.infra.Ready(c.Request.Context()); err != nil {
		s.log.Warn().Err(err).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HTTPServer) Run(ctx context.Context) error {
	return serve(ctx, &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.engine,
	}, s.config, s.log)
}

func serve(ctx context.Context, server *http.Server, cfg *config.Config, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
