package pipeline

import (
	"github.com/tracklog/gpx-backend/internal/models"
)

// ProcessedSeries результат сглаживания: значения, маска определённости и
// счётчики для агрегатора. Defined[i]=true означает, что Speeds[i] несёт
// осмысленное значение (валидная сырая скорость либо интерполированная
// замена выброса).
type ProcessedSeries struct {
	Speeds         []float64
	Defined        []bool
	Interpolated   int
	Uninterpolable bool
}

// Smooth применяет к ряду скоростей два независимых шага согласно
// конфигурации: замену помеченных выбросов и скользящее среднее по уже
// интерполированному ряду. Любой из шагов может быть выключен;
// window_size=1 — тождественное преобразование. Детерминированно, вход
// не мутируется.
func Smooth(segments []models.Segment, flags []bool, cfg models.ProcessingConfig) ProcessedSeries {
	n := len(segments)
	series := ProcessedSeries{
		Speeds:  make([]float64, n),
		Defined: make([]bool, n),
	}
	for i, seg := range segments {
		series.Speeds[i] = seg.RawSpeedKmh
		series.Defined[i] = seg.SpeedValid
	}

	if cfg.InterpolationMethod == models.InterpolationLinear {
		interpolateOutliers(&series, flags)
	}

	if cfg.UseMovingAverage && cfg.WindowSize > 1 {
		movingAverage(&series, cfg.WindowSize)
	}

	return series
}

// interpolateOutliers заменяет каждый помеченный сэмпл линейной смесью
// ближайших непомеченных соседей по позиции в ряду (не по времени). Краевая
// серия выбросов копирует значение единственного существующего соседа. Ряд
// из одних выбросов оставляется без изменений: интерполировать не от чего,
// это предупреждение, а не ошибка.
func interpolateOutliers(series *ProcessedSeries, flags []bool) {
	n := len(series.Speeds)

	flagged := 0
	for i := 0; i < n; i++ {
		if flags[i] {
			flagged++
		}
	}
	if flagged == 0 {
		return
	}
	if flagged == n {
		series.Uninterpolable = true
		return
	}

	// Ближайший непомеченный сосед слева/справа для каждого индекса,
	// предвычисляется за один проход в каждую сторону
	left := make([]int, n)
	last := -1
	for i := 0; i < n; i++ {
		if !flags[i] {
			last = i
		}
		left[i] = last
	}
	right := make([]int, n)
	next := -1
	for i := n - 1; i >= 0; i-- {
		if !flags[i] {
			next = i
		}
		right[i] = next
	}

	for i := 0; i < n; i++ {
		if !flags[i] {
			continue
		}
		l, r := left[i], right[i]
		switch {
		case l >= 0 && r >= 0:
			frac := float64(i-l) / float64(r-l)
			series.Speeds[i] = series.Speeds[l]*(1-frac) + series.Speeds[r]*frac
		case l >= 0:
			series.Speeds[i] = series.Speeds[l]
		default:
			series.Speeds[i] = series.Speeds[r]
		}
		series.Defined[i] = true
		series.Interpolated++
	}
}

// movingAverage заменяет каждое определённое значение средним по
// центрированному окну из window сэмплов. Окно усекается на границах ряда:
// без заворачивания и без дополнения нулями. Неопределённые сэмплы
// не участвуют в среднем и сами не изменяются.
func movingAverage(series *ProcessedSeries, window int) {
	n := len(series.Speeds)
	smoothed := make([]float64, n)

	for i := 0; i < n; i++ {
		if !series.Defined[i] {
			smoothed[i] = series.Speeds[i]
			continue
		}

		lo := i - (window-1)/2
		hi := i + window/2
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}

		sum := 0.0
		count := 0
		for j := lo; j <= hi; j++ {
			if series.Defined[j] {
				sum += series.Speeds[j]
				count++
			}
		}
		smoothed[i] = sum / float64(count) // count >= 1: сам сэмпл определён
	}

	series.Speeds = smoothed
}
