package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/api/handlers"
	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/services/monitor"
	"safesite-worker-go/internal/services/stream"
	"safesite-worker-go/internal/services/violation"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler    *handlers.HealthHandler
	channelHandler   *handlers.ChannelHandler
	violationHandler *handlers.ViolationHandler
	systemHandler    *handlers.SystemHandler
}

func NewServer(cfg *config.Config, manager *stream.Manager, mon *monitor.Service, store violation.EventStore) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:           cfg,
		router:           router,
		healthHandler:    handlers.NewHealthHandler(cfg.WorkerID, cfg.Version),
		channelHandler:   handlers.NewChannelHandler(manager, mon),
		violationHandler: handlers.NewViolationHandler(store),
		systemHandler:    handlers.NewSystemHandler(cfg.WorkerID, manager),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting worker API")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping worker API")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}
