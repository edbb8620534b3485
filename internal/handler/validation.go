package handler

import (
	"fmt"

	"github.com/tracklog/gpx-backend/internal/models"
)

// appendCountWarning сверяет заявленное в метаданных число точек с фактическим.
// Расхождение не фатально: источники нередко врут в заголовке, поэтому в запись
// добавляется предупреждение, а обработка продолжается по фактическим точкам.
func appendCountWarning(stats *models.StatisticsRecord, metadata models.TrackMetadata, actual int) {
	if stats == nil {
		return
	}
	if metadata.DeclaredWaypointCount > 0 && metadata.DeclaredWaypointCount != actual {
		stats.Results.Warnings = append(stats.Results.Warnings, fmt.Sprintf(
			"waypoint_count_mismatch: declared %d, parsed %d",
			metadata.DeclaredWaypointCount, actual,
		))
	}
}
