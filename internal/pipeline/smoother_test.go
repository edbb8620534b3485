package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracklog/gpx-backend/internal/models"
)

func linearConfig() models.ProcessingConfig {
	cfg := models.DefaultProcessingConfig()
	cfg.UseMovingAverage = false
	return cfg
}

func TestSmooth_InteriorOutlierInterpolated(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 500, 20})
	flags := []bool{false, true, false}

	series := Smooth(segments, flags, linearConfig())

	require.Len(t, series.Speeds, 3)
	assert.InDelta(t, 10, series.Speeds[0], 1e-9)
	assert.InDelta(t, 15, series.Speeds[1], 1e-9)
	assert.InDelta(t, 20, series.Speeds[2], 1e-9)
	assert.Equal(t, 1, series.Interpolated)
	assert.False(t, series.Uninterpolable)
	assert.Equal(t, []bool{true, true, true}, series.Defined)
}

func TestSmooth_ConsecutiveOutliersBlended(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 999, 999, 999, 50})
	flags := []bool{false, true, true, true, false}

	series := Smooth(segments, flags, linearConfig())

	// Равномерная смесь между анкерами 10 (i=0) и 50 (i=4)
	assert.InDelta(t, 20, series.Speeds[1], 1e-9)
	assert.InDelta(t, 30, series.Speeds[2], 1e-9)
	assert.InDelta(t, 40, series.Speeds[3], 1e-9)
	assert.Equal(t, 3, series.Interpolated)
}

func TestSmooth_EdgeRunCopiesNearestNeighbor(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{999, 999, 10, 20, 888})
	flags := []bool{true, true, false, false, true}

	series := Smooth(segments, flags, linearConfig())

	assert.InDelta(t, 10, series.Speeds[0], 1e-9)
	assert.InDelta(t, 10, series.Speeds[1], 1e-9)
	assert.InDelta(t, 20, series.Speeds[4], 1e-9)
	assert.Equal(t, 3, series.Interpolated)
}

func TestSmooth_AllOutliersLeftUnchanged(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{100, 200, 300})
	flags := []bool{true, true, true}

	series := Smooth(segments, flags, linearConfig())

	assert.True(t, series.Uninterpolable)
	assert.Equal(t, 0, series.Interpolated)
	assert.InDelta(t, 100, series.Speeds[0], 1e-9)
	assert.InDelta(t, 200, series.Speeds[1], 1e-9)
	assert.InDelta(t, 300, series.Speeds[2], 1e-9)
}

func TestSmooth_InterpolationNoneKeepsOutliers(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 500, 20})
	flags := []bool{false, true, false}

	cfg := linearConfig()
	cfg.InterpolationMethod = models.InterpolationNone

	series := Smooth(segments, flags, cfg)

	assert.InDelta(t, 500, series.Speeds[1], 1e-9)
	assert.Equal(t, 0, series.Interpolated)
	assert.False(t, series.Uninterpolable)
}

func TestSmooth_UndefinedSpeedGetsInterpolatedWhenFlagged(t *testing.T) {
	// Undefined сэмпл, помеченный детектором, замещается как обычный выброс
	segments := segmentsFromSpeeds([]float64{10, 0, 20})
	segments[1].SpeedValid = false
	flags := []bool{false, true, false}

	series := Smooth(segments, flags, linearConfig())

	assert.InDelta(t, 15, series.Speeds[1], 1e-9)
	assert.True(t, series.Defined[1])
}

func TestMovingAverage_CenteredWindow(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{1, 2, 3, 4, 5})
	flags := make([]bool, 5)

	cfg := linearConfig()
	cfg.UseMovingAverage = true
	cfg.WindowSize = 3

	series := Smooth(segments, flags, cfg)

	expected := []float64{1.5, 2, 3, 4, 4.5}
	for i, want := range expected {
		assert.InDelta(t, want, series.Speeds[i], 1e-9, "index %d", i)
	}
}

func TestMovingAverage_EvenWindowExtendsRight(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{1, 2, 3, 4, 5})
	flags := make([]bool, 5)

	cfg := linearConfig()
	cfg.UseMovingAverage = true
	cfg.WindowSize = 4

	series := Smooth(segments, flags, cfg)

	// Для i=2 окно [1..4]: среднее 2,3,4,5
	assert.InDelta(t, 3.5, series.Speeds[2], 1e-9)
}

func TestMovingAverage_WindowOneIsIdentity(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{5, 10, 15})
	flags := make([]bool, 3)

	cfg := linearConfig()
	cfg.UseMovingAverage = true
	cfg.WindowSize = 1

	series := Smooth(segments, flags, cfg)

	assert.Equal(t, []float64{5, 10, 15}, series.Speeds)
}

func TestMovingAverage_SkipsUndefinedSamples(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 0, 20})
	segments[1].SpeedValid = false
	flags := make([]bool, 3) // детектор выключен, undefined остается как есть

	cfg := linearConfig()
	cfg.InterpolationMethod = models.InterpolationNone
	cfg.UseMovingAverage = true
	cfg.WindowSize = 3

	series := Smooth(segments, flags, cfg)

	// Undefined сосед не участвует в среднем и сам не меняется
	assert.InDelta(t, 10, series.Speeds[0], 1e-9)
	assert.InDelta(t, 0, series.Speeds[1], 1e-9)
	assert.InDelta(t, 20, series.Speeds[2], 1e-9)
	assert.False(t, series.Defined[1])
}
