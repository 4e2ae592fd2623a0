// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/jobs"
	"coach_admin_backend/internal/middleware"
	"coach_admin_backend/internal/platform/metrics"
	"coach_admin_backend/internal/platform/tracing"
	"coach_admin_backend/internal/profile"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	profileHandler *profile.Handler

	// Jobs
	orphanJob *jobs.OrphanReconcileJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	profileHandler *profile.Handler,
	orphanJob *jobs.OrphanReconcileJob,
	prom *metrics.Prom,
	verifier middleware.TokenVerifier,
	redisClient *redis.Client,
	tracer *tracing.Tracer,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", "Retry-After", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	if tracer != nil && tracer.Enabled {
		router.Use(otelgin.Middleware(tracer.ServiceName))
	}

	// --- Setup Routes ---
	// Registered ahead of the metrics middleware so liveness probes stay out of the request metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Coach admin API is healthy!"})
	})

	if cfg.MetricsEnabled && prom != nil {
		router.Use(prom.GinHandleMiddleware())
		router.GET("/metrics", gin.WrapH(prom.Handler()))
	}

	api := router.Group("/api")
	if cfg.RequireAdminAuth {
		if verifier == nil {
			return nil, errors.New("REQUIRE_ADMIN_AUTH is set but no token verifier is available")
		}
		api.Use(middleware.AdminAuthMiddleware(verifier, cfg, logger.Named("AdminAuth")))
	}

	var createMW []gin.HandlerFunc
	if limiter := middleware.NewRateLimiter(cfg, redisClient); limiter != nil {
		logger.Info("Create-coach rate limiting enabled",
			zap.String("limiter", limiter.Name()),
			zap.Int("per_minute", cfg.CreateCoachRatePerMinute),
			zap.Int("burst", cfg.CreateCoachBurst))
		createMW = append(createMW, middleware.RateLimit(limiter, prom, logger.Named("RateLimit")))
	}
	profileHandler.RegisterRoutes(api, createMW...)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:     httpServer,
		router:         router,
		cfg:            cfg,
		logger:         logger,
		profileHandler: profileHandler,
		orphanJob:      orphanJob,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.orphanJob != nil {
		if err := s.orphanJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start orphan reconciliation job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.orphanJob != nil {
		s.orphanJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
