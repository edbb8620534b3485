// Package pipeline превращает разобранный трек в запись статистики:
// сегментные дистанции и скорости, IQR-детекция выбросов, интерполяция и
// сглаживание, агрегация. Все стадии — чистые функции над явными
// последовательностями: без I/O, без логирования, без разделяемого
// состояния, поэтому параллельные вызовы полностью независимы.
package pipeline

import (
	"time"

	"github.com/tracklog/gpx-backend/internal/models"
)

// ProcessTrack прогоняет трек через все стадии и возвращает запись
// статистики. Вызывается и при первичной загрузке (конфигурация по
// умолчанию), и при повторной обработке с пользовательскими параметрами —
// во втором случае точки поднимаются из хранилища, сырой документ заново
// не разбирается.
//
// Ошибки разбора и нехватки данных терминальны: частичная запись никогда
// не возвращается. Краевые случаи детектора и сглаживателя не фатальны и
// попадают в запись предупреждениями.
func ProcessTrack(waypoints []models.Waypoint, cfg models.ProcessingConfig) (*models.StatisticsRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	segments, err := ComputeSegments(waypoints)
	if err != nil {
		return nil, err
	}

	flags := make([]bool, len(segments))
	degenerate := false
	if cfg.UseIQROutlierRemoval {
		flags, degenerate = DetectOutliers(segments, cfg.IQRMultiplier)
	}

	processed := Smooth(segments, flags, cfg)

	return Aggregate(waypoints, segments, flags, processed, cfg, degenerate, time.Now().UTC()), nil
}

// SpeedSeries сырой и обработанный ряды скоростей для построения графиков.
// Неопределённые значения отдаются нулями: потребитель — чартовый JSON,
// которому NaN противопоказан.
func SpeedSeries(waypoints []models.Waypoint, cfg models.ProcessingConfig) (raw []float64, processedOut []float64, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	segments, err := ComputeSegments(waypoints)
	if err != nil {
		return nil, nil, err
	}

	flags := make([]bool, len(segments))
	if cfg.UseIQROutlierRemoval {
		flags, _ = DetectOutliers(segments, cfg.IQRMultiplier)
	}
	processed := Smooth(segments, flags, cfg)

	raw = make([]float64, len(segments))
	for i, seg := range segments {
		if seg.SpeedValid {
			raw[i] = seg.RawSpeedKmh
		}
	}

	processedOut = make([]float64, len(processed.Speeds))
	for i, speed := range processed.Speeds {
		if processed.Defined[i] {
			processedOut[i] = speed
		}
	}

	return raw, processedOut, nil
}
