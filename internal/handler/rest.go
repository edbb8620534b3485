package handler

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tracklog/gpx-backend/internal/auth"
	"github.com/tracklog/gpx-backend/internal/config"
	"github.com/tracklog/gpx-backend/internal/gpx"
	"github.com/tracklog/gpx-backend/internal/metrics"
	"github.com/tracklog/gpx-backend/internal/models"
	"github.com/tracklog/gpx-backend/internal/pipeline"
	"github.com/tracklog/gpx-backend/internal/repository"
	"github.com/tracklog/gpx-backend/pkg/utils"
)

// TrackHandler обработчики REST API для треков
type TrackHandler struct {
	config *config.Config
	repo   repository.TrackRepository
	cache  repository.StatsCache
	logger *utils.Logger
}

// NewTrackHandler создает новый обработчик треков
func NewTrackHandler(cfg *config.Config, repo repository.TrackRepository, cache repository.StatsCache, logger *utils.Logger) *TrackHandler {
	return &TrackHandler{
		config: cfg,
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// processRequest параметры повторной обработки; неуказанные поля наследуют
// конфигурацию по умолчанию
type processRequest struct {
	UseIQROutlierRemoval *bool    `json:"use_iqr_outlier_removal"`
	UseMovingAverage     *bool    `json:"use_moving_average"`
	WindowSize           *int     `json:"window_size"`
	InterpolationMethod  *string  `json:"interpolation_method"`
	IQRMultiplier        *float64 `json:"iqr_multiplier"`
}

func (r *processRequest) apply(base models.ProcessingConfig) models.ProcessingConfig {
	cfg := base
	if r.UseIQROutlierRemoval != nil {
		cfg.UseIQROutlierRemoval = *r.UseIQROutlierRemoval
	}
	if r.UseMovingAverage != nil {
		cfg.UseMovingAverage = *r.UseMovingAverage
	}
	if r.WindowSize != nil {
		cfg.WindowSize = *r.WindowSize
	}
	if r.InterpolationMethod != nil {
		cfg.InterpolationMethod = models.InterpolationMethod(*r.InterpolationMethod)
	}
	if r.IQRMultiplier != nil {
		cfg.IQRMultiplier = *r.IQRMultiplier
	}
	return cfg
}

// UploadTrack загружает GPX файл, разбирает его, считает статистику и
// сохраняет трек целиком
// POST /api/v1/tracks
func (h *TrackHandler) UploadTrack(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "missing_file",
			"message": "GPX file is required (multipart field 'file')",
		})
		return
	}
	if fileHeader.Size > h.config.Upload.MaxFileSizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"code":    "file_too_large",
			"message": fmt.Sprintf("file exceeds maximum size of %d bytes", h.config.Upload.MaxFileSizeBytes),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "unreadable_file",
			"message": "Failed to open uploaded file",
		})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.config.Upload.MaxFileSizeBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "unreadable_file",
			"message": "Failed to read uploaded file",
		})
		return
	}
	if int64(len(raw)) > h.config.Upload.MaxFileSizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"code":    "file_too_large",
			"message": fmt.Sprintf("file exceeds maximum size of %d bytes", h.config.Upload.MaxFileSizeBytes),
		})
		return
	}

	hash := md5.Sum(raw)
	fileHash := hex.EncodeToString(hash[:])

	duplicate, err := h.repo.HasDuplicate(c.Request.Context(), userID, fileHash)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to check duplicate upload")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to check for duplicate upload",
		})
		return
	}
	if duplicate {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "duplicate_track",
			"message": "A track with identical content was already uploaded",
		})
		return
	}

	waypoints, metadata, err := gpx.Parse(raw)
	if err != nil {
		h.respondParseError(c, err)
		return
	}
	metrics.WaypointsParsed.Observe(float64(len(waypoints)))

	processingCfg := h.config.DefaultProcessingConfig()
	stats, err := h.runPipeline(c, waypoints, processingCfg, "upload")
	if err != nil {
		return // ответ уже отправлен
	}
	appendCountWarning(stats, metadata, len(waypoints))

	name := c.PostForm("name")
	if name == "" {
		name = metadata.Name
	}
	if name == "" {
		name = fileHeader.Filename
	}
	description := c.PostForm("description")
	if description == "" {
		description = metadata.Description
	}
	isPublic, _ := strconv.ParseBool(c.PostForm("is_public"))

	track := &models.Track{
		UserID:      userID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		FileHash:    fileHash,
		GPXFile:     raw,
		Waypoints:   waypoints,
		Metadata:    metadata,
		Statistics:  stats,
	}

	id, err := h.repo.CreateTrack(c.Request.Context(), track)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to persist track")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to store track",
		})
		return
	}

	if err := h.cache.SetStatistics(c.Request.Context(), id, stats); err != nil {
		h.logger.WithField("error", err).Warn("Failed to cache statistics")
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         id,
		"name":       name,
		"waypoints":  len(waypoints),
		"metadata":   metadata,
		"statistics": stats,
	})
}

// GetTrack возвращает трек с текущей записью статистики
// GET /api/v1/tracks/:id
func (h *TrackHandler) GetTrack(c *gin.Context) {
	track, ok := h.loadAccessibleTrack(c)
	if !ok {
		return
	}

	// Свежая запись статистики может лежать в кеше
	if stats, err := h.cache.GetStatistics(c.Request.Context(), track.ID); err != nil {
		h.logger.WithField("error", err).Warn("Failed to read statistics cache")
	} else if stats != nil {
		track.Statistics = stats
	} else if track.Statistics != nil {
		if err := h.cache.SetStatistics(c.Request.Context(), track.ID, track.Statistics); err != nil {
			h.logger.WithField("error", err).Warn("Failed to cache statistics")
		}
	}

	c.JSON(http.StatusOK, track)
}

// ListTracks возвращает сводки треков: публичные плюс собственные
// GET /api/v1/tracks
func (h *TrackHandler) ListTracks(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	summaries, err := h.repo.GetTrackSummaries(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to list tracks")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to list tracks",
		})
		return
	}

	if summaries == nil {
		summaries = []*models.TrackSummary{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tracks": summaries,
		"count":  len(summaries),
	})
}

// ReprocessTrack повторно прогоняет пайплайн с пользовательскими параметрами
// и заменяет текущую запись статистики
// POST /api/v1/tracks/:id/process
func (h *TrackHandler) ReprocessTrack(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	track, ok := h.loadAccessibleTrack(c)
	if !ok {
		return
	}
	if track.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "forbidden",
			"message": "Only the track owner can reprocess it",
		})
		return
	}

	var req processRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "invalid_request",
				"message": "Invalid processing parameters: " + err.Error(),
			})
			return
		}
	}
	processingCfg := req.apply(h.config.DefaultProcessingConfig())
	if err := processingCfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": err.Error(),
		})
		return
	}

	waypoints := track.Waypoints
	metadata := track.Metadata
	if len(waypoints) == 0 && len(track.GPXFile) > 0 {
		// Старые строки без извлечённых точек: поднимаем их из сырого документа
		var err error
		waypoints, metadata, err = gpx.Parse(track.GPXFile)
		if err != nil {
			h.respondParseError(c, err)
			return
		}
	}

	stats, err := h.runPipeline(c, waypoints, processingCfg, "reprocess")
	if err != nil {
		return
	}
	appendCountWarning(stats, metadata, len(waypoints))

	if err := h.repo.UpdateStatistics(c.Request.Context(), track.ID, stats); err != nil {
		h.logger.WithField("error", err).Error("Failed to update statistics")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to store statistics",
		})
		return
	}
	if err := h.cache.SetStatistics(c.Request.Context(), track.ID, stats); err != nil {
		h.logger.WithField("error", err).Warn("Failed to cache statistics")
		// Кеш не должен пережить запись, которую не удалось в него положить
		if err := h.cache.InvalidateStatistics(c.Request.Context(), track.ID); err != nil {
			h.logger.WithField("error", err).Warn("Failed to invalidate statistics cache")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         track.ID,
		"statistics": stats,
	})
}

// GetTrackSpeeds возвращает сырой и обработанный ряды скоростей для графиков
// GET /api/v1/tracks/:id/speeds
func (h *TrackHandler) GetTrackSpeeds(c *gin.Context) {
	track, ok := h.loadAccessibleTrack(c)
	if !ok {
		return
	}

	// Ряды строятся с теми параметрами, с которыми считалась текущая запись
	processingCfg := h.config.DefaultProcessingConfig()
	if track.Statistics != nil {
		processingCfg = track.Statistics.ProcessingMethods
	}

	waypoints := track.Waypoints
	if len(waypoints) == 0 && len(track.GPXFile) > 0 {
		var err error
		waypoints, _, err = gpx.Parse(track.GPXFile)
		if err != nil {
			h.respondParseError(c, err)
			return
		}
	}

	raw, processed, err := pipeline.SpeedSeries(waypoints, processingCfg)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	// Метка сегмента — timestamp его конечной точки; без timestamp'а пустая
	labels := make([]string, len(raw))
	for i := range labels {
		if ts := waypoints[i+1].Timestamp; ts != nil {
			labels[i] = ts.UTC().Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               track.ID,
		"labels":           labels,
		"raw_speeds":       raw,
		"processed_speeds": processed,
	})
}

// runPipeline прогоняет пайплайн с метриками; при ошибке сам отвечает клиенту
func (h *TrackHandler) runPipeline(c *gin.Context, waypoints []models.Waypoint, cfg models.ProcessingConfig, trigger string) (*models.StatisticsRecord, error) {
	start := time.Now()
	stats, err := pipeline.ProcessTrack(waypoints, cfg)
	if err != nil {
		h.respondPipelineError(c, err)
		return nil, err
	}
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	metrics.TracksProcessedTotal.WithLabelValues(trigger).Inc()
	metrics.OutliersDetectedTotal.Add(float64(stats.Results.OutliersDetected))
	return stats, nil
}

// loadAccessibleTrack извлекает трек из пути и проверяет доступ. Чужой
// приватный трек отдаёт 404, не раскрывая его существование.
func (h *TrackHandler) loadAccessibleTrack(c *gin.Context) (*models.Track, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_track_id",
			"message": "Track id must be an integer",
		})
		return nil, false
	}

	track, err := h.repo.GetTrack(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTrackNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "track_not_found",
			"message": fmt.Sprintf("Track %d not found", id),
		})
		return nil, false
	}
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to load track")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to load track",
		})
		return nil, false
	}

	userID, _ := auth.GetUserID(c)
	if !track.IsPublic && track.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "track_not_found",
			"message": fmt.Sprintf("Track %d not found", id),
		})
		return nil, false
	}

	return track, true
}

// respondParseError переводит ошибки разбора GPX в HTTP ответы
func (h *TrackHandler) respondParseError(c *gin.Context, err error) {
	var malformed *gpx.MalformedWaypointError
	switch {
	case errors.As(err, &malformed):
		metrics.ParseErrorsTotal.WithLabelValues("malformed_waypoint").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "malformed_waypoint",
			"message": err.Error(),
		})
	case errors.Is(err, gpx.ErrEmptyTrack):
		metrics.ParseErrorsTotal.WithLabelValues("empty_track").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "empty_track",
			"message": "Document contains no waypoints",
		})
	default:
		metrics.ParseErrorsTotal.WithLabelValues("invalid_xml").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_gpx",
			"message": err.Error(),
		})
	}
}

// respondPipelineError переводит ошибки пайплайна в HTTP ответы
func (h *TrackHandler) respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    "insufficient_data",
			"message": "At least 2 waypoints are required to compute statistics",
		})
	case strings.Contains(err.Error(), "window_size"),
		strings.Contains(err.Error(), "iqr_multiplier"),
		strings.Contains(err.Error(), "interpolation method"):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": err.Error(),
		})
	default:
		h.logger.WithField("error", err).Error("Pipeline failure")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to process track",
		})
	}
}
