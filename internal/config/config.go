package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tracklog/gpx-backend/internal/models"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	MySQL       MySQLConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Upload      UploadConfig
	Processing  ProcessingConfig
	Monitoring  MonitoringConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// MySQLConfig конфигурация MySQL
type MySQLConfig struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	URL          string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	StatsTTL     time.Duration
}

// AuthConfig конфигурация аутентификации через внешний API
type AuthConfig struct {
	Endpoint string
	CacheTTL time.Duration
}

// UploadConfig ограничения на загрузку файлов
type UploadConfig struct {
	MaxFileSizeBytes int64
	RatePerSecond    float64
	RateBurst        int
}

// ProcessingConfig параметры обработки треков по умолчанию; применяются при
// первичной загрузке, повторная обработка получает параметры от пользователя
type ProcessingConfig struct {
	UseIQROutlierRemoval bool
	UseMovingAverage     bool
	WindowSize           int
	InterpolationMethod  string
	IQRMultiplier        float64
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Address:      getEnv("SERVER_ADDRESS", ":8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		MySQL: MySQLConfig{
			DSN:          getEnv("MYSQL_DSN", ""),
			MaxIdleConns: getInt("MYSQL_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getInt("MYSQL_MAX_OPEN_CONNS", 100),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getInt("REDIS_DB", 0),
			PoolSize:     getInt("REDIS_POOL_SIZE", 50),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 5),
			StatsTTL:     getDuration("REDIS_STATS_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			Endpoint: getEnv("AUTH_ENDPOINT", ""),
			CacheTTL: getDuration("AUTH_CACHE_TTL", 5*time.Minute),
		},
		Upload: UploadConfig{
			MaxFileSizeBytes: int64(getInt("UPLOAD_MAX_FILE_SIZE", 16*1024*1024)),
			RatePerSecond:    getFloat("UPLOAD_RATE_PER_SECOND", 2),
			RateBurst:        getInt("UPLOAD_RATE_BURST", 5),
		},
		Processing: ProcessingConfig{
			UseIQROutlierRemoval: getBool("PROCESSING_USE_IQR", true),
			UseMovingAverage:     getBool("PROCESSING_USE_MOVING_AVERAGE", false),
			WindowSize:           getInt("PROCESSING_WINDOW_SIZE", 3),
			InterpolationMethod:  getEnv("PROCESSING_INTERPOLATION", "linear"),
			IQRMultiplier:        getFloat("PROCESSING_IQR_MULTIPLIER", models.DefaultIQRMultiplier),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Upload.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if err := c.DefaultProcessingConfig().Validate(); err != nil {
		return fmt.Errorf("invalid default processing config: %w", err)
	}
	return nil
}

// DefaultProcessingConfig переводит секцию Processing в доменную
// конфигурацию пайплайна
func (c *Config) DefaultProcessingConfig() models.ProcessingConfig {
	return models.ProcessingConfig{
		UseIQROutlierRemoval: c.Processing.UseIQROutlierRemoval,
		UseMovingAverage:     c.Processing.UseMovingAverage,
		WindowSize:           c.Processing.WindowSize,
		InterpolationMethod:  models.InterpolationMethod(c.Processing.InterpolationMethod),
		IQRMultiplier:        c.Processing.IQRMultiplier,
	}
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// LogLevel возвращает уровень логирования
func LogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

// LogFormat возвращает формат логирования
func LogFormat() string {
	return getEnv("LOG_FORMAT", "json")
}
