package models

import (
	"fmt"
	"time"
)

// TrackMetadata информационные поля трека, извлекаются один раз при разборе
// документа и дальше не пересчитываются. Отсутствующие в источнике поля
// остаются пустыми, ничего не выдумывается.
type TrackMetadata struct {
	Creator               string `json:"creator,omitempty"`
	Device                string `json:"device,omitempty"`
	Software              string `json:"software,omitempty"`
	DeclaredWaypointCount int    `json:"declared_waypoint_count"`
	Name                  string `json:"name,omitempty"`
	Description           string `json:"description,omitempty"`
}

// Segment интервал между двумя соседними точками; N точек дают ровно N-1
// сегментов. SpeedValid=false означает, что скорость не определена (нет
// timestamp'а у одной из точек либо delta_t <= 0) — это не то же самое, что
// нулевая скорость стоящей на месте записи.
type Segment struct {
	DistanceM   float64 `json:"distance_m"`
	DeltaTS     float64 `json:"delta_t_s"`
	RawSpeedKmh float64 `json:"raw_speed_kmh"`
	SpeedValid  bool    `json:"speed_valid"`
}

// InterpolationMethod способ замены выброшенных сэмплов скорости
type InterpolationMethod string

const (
	InterpolationLinear InterpolationMethod = "linear"
	InterpolationNone   InterpolationMethod = "none"
)

// DefaultIQRMultiplier множитель IQR по умолчанию
const DefaultIQRMultiplier = 1.5

// ProcessingConfig параметры одного прогона пайплайна. Передаётся на каждый
// вызов и в ходе прогона не мутируется.
type ProcessingConfig struct {
	UseIQROutlierRemoval bool                `json:"use_iqr_outlier_removal"`
	UseMovingAverage     bool                `json:"use_moving_average"`
	WindowSize           int                 `json:"window_size"`
	InterpolationMethod  InterpolationMethod `json:"interpolation_method"`
	IQRMultiplier        float64             `json:"iqr_multiplier"`
}

// DefaultProcessingConfig конфигурация, применяемая при первичной загрузке
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		UseIQROutlierRemoval: true,
		UseMovingAverage:     false,
		WindowSize:           3,
		InterpolationMethod:  InterpolationLinear,
		IQRMultiplier:        DefaultIQRMultiplier,
	}
}

// Validate проверяет корректность параметров обработки
func (c ProcessingConfig) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be >= 1, got %d", c.WindowSize)
	}
	if c.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr_multiplier must be positive, got %f", c.IQRMultiplier)
	}
	switch c.InterpolationMethod {
	case InterpolationLinear, InterpolationNone:
	default:
		return fmt.Errorf("unknown interpolation method: %q", c.InterpolationMethod)
	}
	return nil
}

// Track строка трека, как её хранит репозиторий: сырой документ плюс
// извлечённые waypoints/metadata и текущая запись статистики. Ядро пайплайна
// после первичного разбора сырой документ больше не трогает.
type Track struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	IsPublic    bool              `json:"is_public"`
	FileHash    string            `json:"file_hash"`
	GPXFile     []byte            `json:"-"`
	Waypoints   []Waypoint        `json:"waypoints,omitempty"`
	Metadata    TrackMetadata     `json:"metadata"`
	Statistics  *StatisticsRecord `json:"statistics,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TrackSummary облегчённое представление трека для списков
type TrackSummary struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	IsPublic        bool      `json:"is_public"`
	StartGeohash    string    `json:"start_geohash,omitempty"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	AvgSpeedKmh     *float64  `json:"avg_speed_kmh,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
