package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"drishti-worker-go/internal/api/handlers"
	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/services"
)

type Server struct {
	config    *config.Config
	container *services.ServiceContainer
	router    *gin.Engine
	server    *http.Server

	healthHandler   *handlers.HealthHandler
	ingestHandler   *handlers.IngestHandler
	logsHandler     *handlers.LogsHandler
	summaryHandler  *handlers.SummaryHandler
	unitHandler     *handlers.UnitHandler
	dispatchHandler *handlers.DispatchHandler
	notifyHandler   *handlers.NotifyHandler
	feedHandler     *handlers.FeedHandler
	systemHandler   *handlers.SystemHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	return &Server{
		config:          cfg,
		container:       container,
		router:          router,
		healthHandler:   handlers.NewHealthHandler(cfg, container.Fabric),
		ingestHandler:   handlers.NewIngestHandler(container.Ingest, cfg.MaxUploadSize),
		logsHandler:     handlers.NewLogsHandler(container.Store, container.Dispatch),
		summaryHandler:  handlers.NewSummaryHandler(container.Summary),
		unitHandler:     handlers.NewUnitHandler(container.Dispatch.Pool()),
		dispatchHandler: handlers.NewDispatchHandler(container.Dispatch),
		notifyHandler:   handlers.NewNotifyHandler(container.Notifier),
		feedHandler:     handlers.NewFeedHandler(container.Hub),
		systemHandler:   handlers.NewSystemHandler(container),
	}
}

func (s *Server) Setup() {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting Drishti API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("🛑 Stopping Drishti API...")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
