package pipeline

import (
	"time"

	"github.com/tracklog/gpx-backend/internal/models"
)

// Aggregate сворачивает результаты всех стадий в единую запись статистики.
// Чистая агрегация без I/O; вся недетерминированность — явный параметр now,
// который становится processing_timestamp записи.
func Aggregate(
	waypoints []models.Waypoint,
	segments []models.Segment,
	flags []bool,
	processed ProcessedSeries,
	cfg models.ProcessingConfig,
	degenerateBounds bool,
	now time.Time,
) *models.StatisticsRecord {
	record := &models.StatisticsRecord{
		ProcessingTimestamp: now,
		ProcessingMethods:   cfg,
	}

	// Дистанция включает сегменты с неопределённой скоростью: путь физически
	// пройден, даже если скорость не вычислима. Итог не зависит от
	// конфигурации обработки.
	var totalKm float64
	for _, seg := range segments {
		totalKm += seg.DistanceM / 1000
	}
	record.BasicMetrics.TotalDistanceKm = totalKm

	// Длительность — по первой и последней точке с определённым timestamp.
	// Средняя скорость выводится из дистанции и длительности, а не из
	// среднего посегментных скоростей: неравномерная дискретизация смещала
	// бы такое среднее.
	if start, end := firstLastTimestamps(waypoints); start != nil && end != nil {
		record.BasicMetrics.StartTime = start
		record.BasicMetrics.EndTime = end
		seconds := int64(end.Sub(*start).Seconds())
		record.BasicMetrics.TotalDurationSeconds = &seconds
		record.BasicMetrics.TotalDuration = models.FormatDuration(seconds)
		if seconds > 0 {
			avg := totalKm / (float64(seconds) / 3600)
			record.BasicMetrics.AvgSpeedKmh = &avg
		}
	}

	// Максимумы — только по определённым значениям каждого ряда.
	// processed_max > raw_max возможен, если интерполяция породила новый
	// локальный максимум; это допустимо и не проверяется.
	for i, seg := range segments {
		if seg.SpeedValid && seg.RawSpeedKmh > record.Results.RawMaxSpeedKmh {
			record.Results.RawMaxSpeedKmh = seg.RawSpeedKmh
		}
		if processed.Defined[i] && processed.Speeds[i] > record.Results.ProcessedMaxSpeedKmh {
			record.Results.ProcessedMaxSpeedKmh = processed.Speeds[i]
		}
	}

	for _, flagged := range flags {
		if flagged {
			record.Results.OutliersDetected++
		}
	}
	record.Results.OutliersInterpolated = processed.Interpolated
	for _, defined := range processed.Defined {
		if defined {
			record.Results.DataPointsRemaining++
		}
	}

	if degenerateBounds {
		record.Results.Warnings = append(record.Results.Warnings, models.WarningDegenerateOutlierBounds)
	}
	if processed.Uninterpolable {
		record.Results.Warnings = append(record.Results.Warnings, models.WarningUninterpolableRun)
	}

	record.OptionalMetrics = elevationMetrics(waypoints)

	return record
}

// firstLastTimestamps первая и последняя точки с определённым timestamp
func firstLastTimestamps(waypoints []models.Waypoint) (*time.Time, *time.Time) {
	var start, end *time.Time
	for i := range waypoints {
		if waypoints[i].Timestamp == nil {
			continue
		}
		if start == nil {
			start = waypoints[i].Timestamp
		}
		end = waypoints[i].Timestamp
	}
	return start, end
}

// elevationMetrics суммы положительных и отрицательных дельт по
// подпоследовательности точек с определённой высотой; nil, когда высоту
// несут меньше двух точек
func elevationMetrics(waypoints []models.Waypoint) *models.OptionalMetrics {
	var elevations []float64
	for i := range waypoints {
		if waypoints[i].Elevation != nil {
			elevations = append(elevations, *waypoints[i].Elevation)
		}
	}
	if len(elevations) < 2 {
		return nil
	}

	metrics := &models.OptionalMetrics{}
	for i := 1; i < len(elevations); i++ {
		delta := elevations[i] - elevations[i-1]
		if delta > 0 {
			metrics.ElevationGainM += delta
		} else {
			metrics.ElevationLossM += -delta
		}
	}
	return metrics
}
