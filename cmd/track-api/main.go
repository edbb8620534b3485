package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tracklog/gpx-backend/internal/auth"
	"github.com/tracklog/gpx-backend/internal/config"
	"github.com/tracklog/gpx-backend/internal/handler"
	"github.com/tracklog/gpx-backend/internal/repository"
	"github.com/tracklog/gpx-backend/pkg/utils"
)

var (
	// Version будет установлен при сборке через ldflags
	Version = "dev"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логирование
	logger := utils.NewLogger(config.LogLevel(), config.LogFormat())
	logger.WithField("version", Version).Info("Starting GPX Track Backend")

	// Создаем контекст приложения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем MySQL репозиторий
	mysqlRepo, err := repository.NewMySQLRepository(&cfg.MySQL, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize MySQL repository")
	}
	defer mysqlRepo.Close()

	if err := mysqlRepo.Ping(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to connect to MySQL")
	}
	if err := mysqlRepo.EnsureSchema(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to ensure MySQL schema")
	}
	logger.Info("Connected to MySQL")

	// Инициализируем Redis кеш статистики
	statsCache, err := repository.NewRedisCache(&cfg.Redis, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize Redis cache")
	}
	defer statsCache.Close()

	if err := statsCache.Ping(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to connect to Redis")
	}
	logger.Info("Connected to Redis")

	// Аутентификация через внешний сервис аккаунтов (опционально)
	var authMW *auth.Middleware
	if cfg.Auth.Endpoint != "" {
		authLogger := logrus.New()
		authCache := auth.NewCache(statsCache.GetClient(), cfg.Auth.CacheTTL)
		validator := auth.NewValidator(cfg.Auth.Endpoint, authCache, authLogger)
		authMW = auth.NewMiddleware(validator, authLogger)
		logger.WithField("endpoint", cfg.Auth.Endpoint).Info("Token authentication enabled")
	} else {
		logger.Warn("AUTH_ENDPOINT is not set, protected endpoints are open")
	}

	// Создаем HTTP сервер
	server := handler.NewServer(cfg, mysqlRepo, statsCache, authMW, logger)

	// Запускаем HTTP сервер в горутине
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err).Fatal("Failed to start HTTP server")
		}
	}()

	// Ждем сигнала остановки
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig).Info("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Error("HTTP server shutdown error")
	}

	logger.Info("Server stopped gracefully")
}
