package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/config"
)

// MetricsServer serves the prometheus registry on its own port.
type MetricsServer struct {
	engine *gin.Engine
	config *config.Config
	log    zerolog.Logger
}

func NewMetricsServer(cfg *config.Config, logger zerolog.Logger) *MetricsServer {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return &MetricsServer{
		engine: engine,
		config: cfg,
		log:    logger.With().Str("component", "metrics-server").Logger(),
	}
}

func (s *MetricsServer) Run(ctx context.Context) error {
	return serve(ctx, &http.Server{
		Addr:    s.config.MetricsAddr(),
		Handler: s.engine,
	}, s.config, s.log)
}
