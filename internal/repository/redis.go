package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tracklog/gpx-backend/internal/config"
	"github.com/tracklog/gpx-backend/internal/metrics"
	"github.com/tracklog/gpx-backend/internal/models"
	"github.com/tracklog/gpx-backend/pkg/utils"
)

// RedisCache кеш записей статистики поверх Redis. Хранит только текущую
// версию; новая запись вытесняет предыдущую по тому же ключу.
type RedisCache struct {
	client *redis.Client
	logger *utils.Logger
	ttl    time.Duration
}

// NewRedisCache создает новый Redis кеш
func NewRedisCache(cfg *config.RedisConfig, logger *utils.Logger) (*RedisCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	opt.DB = cfg.DB
	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opt)

	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    cfg.StatsTTL,
	}, nil
}

func statsKey(trackID int64) string {
	return fmt.Sprintf("track:stats:%d", trackID)
}

// Ping проверяет соединение с Redis
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetClient возвращает низкоуровневый клиент для смежных подсистем (auth кеш)
func (c *RedisCache) GetClient() *redis.Client {
	return c.client
}

// GetStatistics возвращает закешированную запись статистики или nil при промахе
func (c *RedisCache) GetStatistics(ctx context.Context, trackID int64) (*models.StatisticsRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("get_statistics").Observe(time.Since(start).Seconds())
	}()

	data, err := c.client.Get(ctx, statsKey(trackID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.StatsCacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues("get_statistics").Inc()
		return nil, fmt.Errorf("failed to get cached statistics: %w", err)
	}

	var stats models.StatisticsRecord
	if err := json.Unmarshal(data, &stats); err != nil {
		// битая запись не должна ронять запрос, просто промах
		c.logger.WithField("track_id", trackID).Warn("Dropping corrupted statistics cache entry")
		c.client.Del(ctx, statsKey(trackID))
		metrics.StatsCacheMisses.Inc()
		return nil, nil
	}

	metrics.StatsCacheHits.Inc()
	return &stats, nil
}

// SetStatistics сохраняет текущую запись статистики с TTL
func (c *RedisCache) SetStatistics(ctx context.Context, trackID int64, stats *models.StatisticsRecord) error {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("set_statistics").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	if err := c.client.Set(ctx, statsKey(trackID), data, c.ttl).Err(); err != nil {
		metrics.RedisOperationErrors.WithLabelValues("set_statistics").Inc()
		return fmt.Errorf("failed to cache statistics: %w", err)
	}

	return nil
}

// InvalidateStatistics удаляет закешированную запись
func (c *RedisCache) InvalidateStatistics(ctx context.Context, trackID int64) error {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("invalidate_statistics").Observe(time.Since(start).Seconds())
	}()

	if err := c.client.Del(ctx, statsKey(trackID)).Err(); err != nil {
		metrics.RedisOperationErrors.WithLabelValues("invalidate_statistics").Inc()
		return fmt.Errorf("failed to invalidate statistics cache: %w", err)
	}
	return nil
}
