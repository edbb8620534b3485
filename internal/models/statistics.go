package models

import (
	"fmt"
	"time"
)

// Предупреждения пайплайна. Деградация на этих стадиях не фатальна: вместо
// ошибки в запись попадает информационный флаг, чтобы один вырожденный трек
// не блокировал обработку остальных.
const (
	// WarningDegenerateOutlierBounds меньше 4 валидных сэмплов скорости,
	// оценка квартилей ненадёжна, детектор ничего не пометил
	WarningDegenerateOutlierBounds = "degenerate_outlier_bounds"
	// WarningUninterpolableRun весь ряд помечен выбросами, интерполировать
	// не от чего, обработанный ряд равен сырому
	WarningUninterpolableRun = "uninterpolable_run"
)

// BasicMetrics базовые метрики трека. Указательные поля остаются nil, когда
// ни одна точка не несёт timestamp: в записи это null, а не ноль.
type BasicMetrics struct {
	StartTime            *time.Time `json:"start_time,omitempty"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	TotalDistanceKm      float64    `json:"total_distance_km"`
	TotalDurationSeconds *int64     `json:"total_duration_seconds,omitempty"`
	TotalDuration        string     `json:"total_duration,omitempty"`
	AvgSpeedKmh          *float64   `json:"avg_speed_kmh,omitempty"`
}

// ProcessingResults результаты обработки ряда скоростей до и после
type ProcessingResults struct {
	RawMaxSpeedKmh       float64  `json:"raw_max_speed"`
	ProcessedMaxSpeedKmh float64  `json:"processed_max_speed"`
	OutliersDetected     int      `json:"outliers_detected"`
	OutliersInterpolated int      `json:"outliers_interpolated"`
	DataPointsRemaining  int      `json:"data_points_remaining"`
	Warnings             []string `json:"warnings,omitempty"`
}

// OptionalMetrics метрики высоты; присутствуют только когда данные высоты
// есть минимум у двух точек
type OptionalMetrics struct {
	ElevationGainM float64 `json:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m"`
}

// StatisticsRecord единственный артефакт пайплайна, пересекающий его границу.
// Версионируется полем processing_timestamp; всё остальное детерминировано
// входом и конфигурацией.
type StatisticsRecord struct {
	ProcessingTimestamp time.Time         `json:"processing_timestamp"`
	BasicMetrics        BasicMetrics      `json:"basic_metrics"`
	ProcessingMethods   ProcessingConfig  `json:"processing_methods"`
	Results             ProcessingResults `json:"results"`
	OptionalMetrics     *OptionalMetrics  `json:"optional_metrics,omitempty"`
}

// FormatDuration форматирует длительность в секундах как HH:MM:SS
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
