package pipeline

import (
	"math"
	"sort"

	"github.com/tracklog/gpx-backend/internal/models"
)

// minQuartileSamples ниже этого порога оценка квартилей вырождается
const minQuartileSamples = 4

// Quantile линейно-интерполированная порядковая статистика по уже
// отсортированному массиву: позиция (n-1)*p, значение — линейная смесь двух
// соседних порядковых статистик
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	pos := float64(n-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// DetectOutliers помечает сэмплы скорости за пределами
// [Q1 - m*IQR, Q3 + m*IQR]. Сегменты с неопределённой скоростью исключаются
// из популяции для квартилей, но помечаются всегда: неопределённая скорость —
// выброс по определению.
//
// При менее чем minQuartileSamples валидных сэмплах границы вырождены:
// детектор не помечает ничего (включая неопределённые скорости) и возвращает
// degenerate=true; результат остаётся пригодным. Вход не мутируется.
func DetectOutliers(segments []models.Segment, multiplier float64) (flags []bool, degenerate bool) {
	flags = make([]bool, len(segments))

	valid := make([]float64, 0, len(segments))
	for _, seg := range segments {
		if seg.SpeedValid {
			valid = append(valid, seg.RawSpeedKmh)
		}
	}

	if len(valid) < minQuartileSamples {
		return flags, true
	}

	sort.Float64s(valid)
	q1 := Quantile(valid, 0.25)
	q3 := Quantile(valid, 0.75)
	iqr := q3 - q1
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	for i, seg := range segments {
		if !seg.SpeedValid {
			flags[i] = true
			continue
		}
		if seg.RawSpeedKmh < lower || seg.RawSpeedKmh > upper {
			flags[i] = true
		}
	}

	return flags, false
}
