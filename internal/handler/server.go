package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tracklog/gpx-backend/internal/auth"
	"github.com/tracklog/gpx-backend/internal/config"
	"github.com/tracklog/gpx-backend/internal/metrics"
	"github.com/tracklog/gpx-backend/internal/repository"
	"github.com/tracklog/gpx-backend/pkg/utils"
	"golang.org/x/time/rate"
)

// Server HTTP сервер
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	logger       *utils.Logger
	config       *config.Config
	trackHandler *TrackHandler
	authMW       *auth.Middleware
}

// NewServer создает новый HTTP сервер. authMW может быть nil — тогда
// защищённые маршруты работают без проверки токена (режим разработки).
func NewServer(cfg *config.Config, repo repository.TrackRepository, cache repository.StatsCache, authMW *auth.Middleware, logger *utils.Logger) *Server {
	// Production mode для Gin
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	if cfg.Monitoring.MetricsEnabled {
		router.Use(metrics.HTTPMetricsMiddleware())
	}

	trackHandler := NewTrackHandler(cfg, repo, cache, logger)

	server := &Server{
		router:       router,
		logger:       logger,
		config:       cfg,
		trackHandler: trackHandler,
		authMW:       authMW,
	}

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// Метрики для Prometheus
	if s.config.Monitoring.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API v1 группа
	v1 := s.router.Group("/api/v1")
	{
		// Чтение: публичные треки доступны без токена, свои приватные
		// видны после опциональной аутентификации
		read := v1.Group("/")
		read.Use(s.optionalAuthenticate())
		{
			read.GET("/tracks", s.trackHandler.ListTracks)
			read.GET("/tracks/:id", s.trackHandler.GetTrack)
			read.GET("/tracks/:id/speeds", s.trackHandler.GetTrackSpeeds)
		}

		// Запись: требует Bearer token и попадает под лимит загрузок
		protected := v1.Group("/")
		protected.Use(s.authenticate())
		protected.Use(UploadRateLimitMiddleware(s.config.Upload.RatePerSecond, s.config.Upload.RateBurst))
		{
			protected.POST("/tracks", s.trackHandler.UploadTrack)
			protected.POST("/tracks/:id/process", s.trackHandler.ReprocessTrack)
		}
	}
}

// authenticate возвращает middleware обязательной аутентификации либо
// dev-заглушку, когда внешний сервис аккаунтов не настроен
func (s *Server) authenticate() gin.HandlerFunc {
	if s.authMW != nil {
		return s.authMW.Authenticate()
	}
	return func(c *gin.Context) {
		c.Set("user_id", int64(0))
		c.Next()
	}
}

func (s *Server) optionalAuthenticate() gin.HandlerFunc {
	if s.authMW != nil {
		return s.authMW.OptionalAuthenticate()
	}
	return func(c *gin.Context) {
		c.Next()
	}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"address": s.config.Server.Address,
		"mode":    gin.Mode(),
	}).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown корректное завершение сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router возвращает gin.Engine (для тестов)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

// ==================== Middleware ====================

// LoggerMiddleware логирование запросов
func LoggerMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		logger.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}).Info("HTTP request completed")
	}
}

// CORSMiddleware настройка CORS
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // В production указать конкретные домены
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// UploadRateLimitMiddleware ограничение частоты загрузок
func UploadRateLimitMiddleware(perSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    "rate_limit_exceeded",
				"message": "Too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
