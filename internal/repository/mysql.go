package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/tracklog/gpx-backend/internal/config"
	"github.com/tracklog/gpx-backend/internal/metrics"
	"github.com/tracklog/gpx-backend/internal/models"
	"github.com/tracklog/gpx-backend/pkg/utils"
)

// MySQLRepository хранилище треков в MySQL. Схема повторяет трёхполевую
// структуру: сырой документ + waypoints/metadata/statistics как JSON-колонки.
type MySQLRepository struct {
	db     *sql.DB
	logger *utils.Logger
	config *config.MySQLConfig
}

const createTracksTable = `
CREATE TABLE IF NOT EXISTS tracks (
	id          BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	name        VARCHAR(255) NOT NULL,
	description TEXT,
	is_public   TINYINT(1) NOT NULL DEFAULT 0,
	gpx_file    MEDIUMBLOB NOT NULL,
	file_hash   CHAR(32) NOT NULL,
	start_lat   DOUBLE NULL,
	start_lon   DOUBLE NULL,
	waypoints   JSON NOT NULL,
	metadata    JSON NOT NULL,
	statistics  JSON NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_tracks_user (user_id),
	INDEX idx_tracks_user_hash (user_id, file_hash)
)`

// NewMySQLRepository создает новый MySQL репозиторий
func NewMySQLRepository(cfg *config.MySQLConfig, logger *utils.Logger) (*MySQLRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql DSN is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	return &MySQLRepository{
		db:     db,
		logger: logger,
		config: cfg,
	}, nil
}

// EnsureSchema создает таблицу треков, если её ещё нет
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTracksTable); err != nil {
		return fmt.Errorf("failed to ensure tracks schema: %w", err)
	}
	return nil
}

// Ping проверяет соединение с MySQL
func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с MySQL
func (r *MySQLRepository) Close() error {
	return r.db.Close()
}

// CreateTrack сохраняет новый трек целиком
func (r *MySQLRepository) CreateTrack(ctx context.Context, track *models.Track) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.MySQLOperationDuration.WithLabelValues("create_track").Observe(time.Since(start).Seconds())
	}()

	waypointsJSON, err := json.Marshal(track.Waypoints)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal waypoints: %w", err)
	}
	metadataJSON, err := json.Marshal(track.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	var statisticsJSON []byte
	if track.Statistics != nil {
		if statisticsJSON, err = json.Marshal(track.Statistics); err != nil {
			return 0, fmt.Errorf("failed to marshal statistics: %w", err)
		}
	}

	var startLat, startLon sql.NullFloat64
	if len(track.Waypoints) > 0 {
		startLat = sql.NullFloat64{Float64: track.Waypoints[0].Latitude, Valid: true}
		startLon = sql.NullFloat64{Float64: track.Waypoints[0].Longitude, Valid: true}
	}

	query := `
		INSERT INTO tracks
			(user_id, name, description, is_public, gpx_file, file_hash,
			 start_lat, start_lon, waypoints, metadata, statistics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		track.UserID, track.Name, track.Description, track.IsPublic,
		track.GPXFile, track.FileHash, startLat, startLon,
		waypointsJSON, metadataJSON, statisticsJSON,
	)
	if err != nil {
		metrics.MySQLOperationErrors.WithLabelValues("create_track").Inc()
		return 0, fmt.Errorf("failed to insert track: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted track id: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"track_id":  id,
		"user_id":   track.UserID,
		"waypoints": len(track.Waypoints),
	}).Info("Track created")

	return id, nil
}

// GetTrack возвращает трек со всеми извлечёнными данными
func (r *MySQLRepository) GetTrack(ctx context.Context, id int64) (*models.Track, error) {
	start := time.Now()
	defer func() {
		metrics.MySQLOperationDuration.WithLabelValues("get_track").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT id, user_id, name, COALESCE(description, ''), is_public,
		       gpx_file, file_hash, waypoints, metadata, statistics, created_at
		FROM tracks
		WHERE id = ?
	`
	var (
		track          models.Track
		waypointsJSON  []byte
		metadataJSON   []byte
		statisticsJSON sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&track.ID, &track.UserID, &track.Name, &track.Description, &track.IsPublic,
		&track.GPXFile, &track.FileHash, &waypointsJSON, &metadataJSON,
		&statisticsJSON, &track.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		metrics.MySQLOperationErrors.WithLabelValues("get_track").Inc()
		return nil, fmt.Errorf("failed to query track %d: %w", id, err)
	}

	if err := json.Unmarshal(waypointsJSON, &track.Waypoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waypoints for track %d: %w", id, err)
	}
	if err := json.Unmarshal(metadataJSON, &track.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for track %d: %w", id, err)
	}
	if statisticsJSON.Valid && statisticsJSON.String != "" {
		var stats models.StatisticsRecord
		if err := json.Unmarshal([]byte(statisticsJSON.String), &stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics for track %d: %w", id, err)
		}
		track.Statistics = &stats
	}

	return &track, nil
}

// GetTrackSummaries возвращает сводки треков пользователя без тяжёлых колонок
func (r *MySQLRepository) GetTrackSummaries(ctx context.Context, userID int64) ([]*models.TrackSummary, error) {
	start := time.Now()
	defer func() {
		metrics.MySQLOperationDuration.WithLabelValues("get_summaries").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT id, user_id, name, COALESCE(description, ''), is_public,
		       start_lat, start_lon, statistics, created_at
		FROM tracks
		WHERE user_id = ? OR is_public = 1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		metrics.MySQLOperationErrors.WithLabelValues("get_summaries").Inc()
		return nil, fmt.Errorf("failed to query track summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.TrackSummary
	for rows.Next() {
		var (
			summary        models.TrackSummary
			startLat       sql.NullFloat64
			startLon       sql.NullFloat64
			statisticsJSON sql.NullString
		)
		if err := rows.Scan(
			&summary.ID, &summary.UserID, &summary.Name, &summary.Description,
			&summary.IsPublic, &startLat, &startLon, &statisticsJSON, &summary.CreatedAt,
		); err != nil {
			r.logger.WithField("error", err).Warn("Failed to scan track summary row")
			continue
		}

		if startLat.Valid && startLon.Valid {
			point := models.Waypoint{Latitude: startLat.Float64, Longitude: startLon.Float64}
			summary.StartGeohash = point.Geohash(6)
		}

		if statisticsJSON.Valid && statisticsJSON.String != "" {
			var stats models.StatisticsRecord
			if err := json.Unmarshal([]byte(statisticsJSON.String), &stats); err == nil {
				summary.TotalDistanceKm = stats.BasicMetrics.TotalDistanceKm
				summary.AvgSpeedKmh = stats.BasicMetrics.AvgSpeedKmh
			}
		}

		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track summary rows: %w", err)
	}

	return summaries, nil
}

// UpdateStatistics заменяет текущую запись статистики трека
func (r *MySQLRepository) UpdateStatistics(ctx context.Context, id int64, stats *models.StatisticsRecord) error {
	start := time.Now()
	defer func() {
		metrics.MySQLOperationDuration.WithLabelValues("update_statistics").Observe(time.Since(start).Seconds())
	}()

	statisticsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE tracks SET statistics = ? WHERE id = ?`, statisticsJSON, id)
	if err != nil {
		metrics.MySQLOperationErrors.WithLabelValues("update_statistics").Inc()
		return fmt.Errorf("failed to update statistics for track %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return ErrTrackNotFound
	}

	r.logger.WithField("track_id", id).Info("Track statistics updated")
	return nil
}

// HasDuplicate проверяет, загружал ли пользователь файл с тем же хешем
func (r *MySQLRepository) HasDuplicate(ctx context.Context, userID int64, fileHash string) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.MySQLOperationDuration.WithLabelValues("has_duplicate").Observe(time.Since(start).Seconds())
	}()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracks WHERE user_id = ? AND file_hash = ?`,
		userID, fileHash,
	).Scan(&count)
	if err != nil {
		metrics.MySQLOperationErrors.WithLabelValues("has_duplicate").Inc()
		return false, fmt.Errorf("failed to check duplicate hash: %w", err)
	}

	return count > 0, nil
}
