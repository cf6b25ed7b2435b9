package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/api/handlers"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
)

// Services bundles everything the HTTP layer exposes
type Services struct {
	Deals        *service.DealService
	Parties      *service.PartyService
	Stages       *service.StageService
	Conditions   *service.ConditionService
	Requisitions *service.RequisitionService
	Drawdowns    *service.DrawdownService
	Providers    *service.ProviderService
	Messages     *service.MessageService
	Readiness    *service.ReadinessService
	Audit        *service.AuditRecorder
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, svcs Services, tracer tracing.Tracer, m *metrics.Metrics) *Server {
	server := &Server{
		config:   cfg,
		services: svcs,
		tracer:   tracer,
		metrics:  m,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.Default()
	registerValidations()

	// Recovery middleware
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())

	v1 := router.Group("/api/v1")

	dealHandler := handlers.NewDealHandler(s.services.Deals, s.services.Parties, s.services.Readiness, s.services.Audit, s.tracer)
	dealHandler.RegisterRoutes(v1)

	workflowHandler := handlers.NewWorkflowHandler(s.services.Stages, s.tracer)
	workflowHandler.RegisterRoutes(v1)

	legalHandler := handlers.NewLegalHandler(s.services.Conditions, s.services.Requisitions)
	legalHandler.RegisterRoutes(v1)

	drawdownHandler := handlers.NewDrawdownHandler(s.services.Drawdowns, s.tracer)
	drawdownHandler.RegisterRoutes(v1)

	threadHandler := handlers.NewThreadHandler(s.services.Messages)
	threadHandler.RegisterRoutes(v1)

	providerHandler := handlers.NewProviderHandler(s.services.Providers)
	providerHandler.RegisterRoutes(v1)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})

	return router
}

// requestIDMiddleware assigns every request an ID for log correlation
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
