package pipeline

import (
	"errors"

	"github.com/tracklog/gpx-backend/internal/models"
)

// ErrInsufficientData меньше двух точек: сегменты и скорости невозможны.
// Извлечение waypoints/metadata при этом могло пройти успешно — фатальна
// только часть с дистанцией и скоростью.
var ErrInsufficientData = errors.New("pipeline: at least 2 waypoints required to compute segments")

// ComputeSegments превращает последовательность точек в N-1 сегментов с
// дистанцией, дельтой времени и сырой скоростью. Детерминированная чистая
// функция: вход не мутируется, порядок входа определяет порядок выхода.
//
// delta_t — абсолютная разница timestamp'ов соседних точек. Если timestamp
// отсутствует у любой из точек или delta_t <= 0, скорость сегмента
// не определена (SpeedValid=false), а не молчаливый ноль: детектор выбросов
// обязан отличать её от честной нулевой скорости.
func ComputeSegments(waypoints []models.Waypoint) ([]models.Segment, error) {
	if len(waypoints) < 2 {
		return nil, ErrInsufficientData
	}

	segments := make([]models.Segment, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		prev, curr := waypoints[i-1], waypoints[i]
		seg := models.Segment{
			DistanceM: prev.DistanceTo(curr) * 1000,
		}

		if prev.Timestamp != nil && curr.Timestamp != nil {
			dt := curr.Timestamp.Sub(*prev.Timestamp).Seconds()
			if dt < 0 {
				dt = -dt
			}
			seg.DeltaTS = dt
			if dt > 0 {
				seg.RawSpeedKmh = (seg.DistanceM / 1000) / (dt / 3600)
				seg.SpeedValid = true
			}
		}

		segments = append(segments, seg)
	}

	return segments, nil
}
