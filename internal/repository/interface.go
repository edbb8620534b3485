package repository

import (
	"context"
	"errors"

	"github.com/tracklog/gpx-backend/internal/models"
)

// ErrTrackNotFound трек с указанным идентификатором отсутствует в хранилище
var ErrTrackNotFound = errors.New("repository: track not found")

// TrackRepository персистентное хранилище треков. Пайплайн сам никогда не
// выполняет I/O: сохранение сырого документа, извлечённых waypoints/metadata
// и текущей записи статистики — обязанность этого коллаборатора.
type TrackRepository interface {
	// CreateTrack сохраняет новый трек целиком: сырой документ, точки,
	// метаданные и первичную статистику
	CreateTrack(ctx context.Context, track *models.Track) (int64, error)

	// GetTrack возвращает трек со всеми извлечёнными данными
	GetTrack(ctx context.Context, id int64) (*models.Track, error)

	// GetTrackSummaries возвращает облегчённые сводки треков пользователя
	GetTrackSummaries(ctx context.Context, userID int64) ([]*models.TrackSummary, error)

	// UpdateStatistics заменяет текущую запись статистики трека; предыдущая
	// версия вытесняется новой (версионирование по processing_timestamp)
	UpdateStatistics(ctx context.Context, id int64, stats *models.StatisticsRecord) error

	// HasDuplicate проверяет, загружал ли пользователь файл с тем же хешем
	HasDuplicate(ctx context.Context, userID int64, fileHash string) (bool, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close освобождает соединения
	Close() error
}

// StatsCache кеш текущей записи статистики, чтобы не поднимать строку трека
// ради одной сводки
type StatsCache interface {
	GetStatistics(ctx context.Context, trackID int64) (*models.StatisticsRecord, error)
	SetStatistics(ctx context.Context, trackID int64, stats *models.StatisticsRecord) error
	InvalidateStatistics(ctx context.Context, trackID int64) error
}
