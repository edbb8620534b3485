package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracklog/gpx-backend/internal/models"
)

// segmentsFromSpeeds строит сегменты с валидными скоростями для тестов
func segmentsFromSpeeds(speeds []float64) []models.Segment {
	segments := make([]models.Segment, len(speeds))
	for i, speed := range speeds {
		segments[i] = models.Segment{RawSpeedKmh: speed, SpeedValid: true}
	}
	return segments
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		sorted   []float64
		p        float64
		expected float64
	}{
		{"empty input", nil, 0.5, 0},
		{"single element", []float64{5}, 0.25, 5},
		{"exact index", []float64{1, 2, 3}, 0.5, 2},
		{"interpolated lower quartile", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"interpolated median", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"minimum", []float64{1, 2, 3, 4}, 0, 1},
		{"maximum", []float64{1, 2, 3, 4}, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Quantile(tt.sorted, tt.p), 1e-9)
		})
	}
}

func TestDetectOutliers_SingleHighOutlier(t *testing.T) {
	// Q1=2.25, Q3=4, IQR=1.75: верхняя граница 6.625 отсекает только 100
	segments := segmentsFromSpeeds([]float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 100})

	flags, degenerate := DetectOutliers(segments, models.DefaultIQRMultiplier)
	require.Len(t, flags, 10)
	assert.False(t, degenerate)

	for i := 0; i < 9; i++ {
		assert.False(t, flags[i], "speed %v should not be flagged", segments[i].RawSpeedKmh)
	}
	assert.True(t, flags[9])
}

func TestDetectOutliers_NoOutliers(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 11, 12, 11, 10, 12})

	flags, degenerate := DetectOutliers(segments, models.DefaultIQRMultiplier)
	assert.False(t, degenerate)
	for i, flagged := range flags {
		assert.False(t, flagged, "index %d", i)
	}
}

func TestDetectOutliers_DegenerateBounds(t *testing.T) {
	// Меньше 4 валидных сэмплов: ничего не помечается, включая выброс
	segments := segmentsFromSpeeds([]float64{10, 11, 1000})

	flags, degenerate := DetectOutliers(segments, models.DefaultIQRMultiplier)
	assert.True(t, degenerate)
	for i, flagged := range flags {
		assert.False(t, flagged, "index %d", i)
	}
}

func TestDetectOutliers_UndefinedSpeedsExcludedButFlagged(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{10, 11, 12, 11})
	segments = append(segments, models.Segment{SpeedValid: false})

	flags, degenerate := DetectOutliers(segments, models.DefaultIQRMultiplier)
	require.Len(t, flags, 5)
	assert.False(t, degenerate)

	// Валидная популяция однородна, помечен только undefined сэмпл
	assert.Equal(t, []bool{false, false, false, false, true}, flags)
}

func TestDetectOutliers_UndefinedDoNotCountTowardsMinimum(t *testing.T) {
	// 3 валидных + 2 undefined: валидных меньше порога, детектор вырожден
	segments := segmentsFromSpeeds([]float64{10, 11, 12})
	segments = append(segments, models.Segment{}, models.Segment{})

	flags, degenerate := DetectOutliers(segments, models.DefaultIQRMultiplier)
	assert.True(t, degenerate)
	for i, flagged := range flags {
		assert.False(t, flagged, "index %d", i)
	}
}

func TestDetectOutliers_MultiplierWidensBounds(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 8})

	// При множителе 1.5 значение 8 за границей 6.625
	flags, _ := DetectOutliers(segments, 1.5)
	assert.True(t, flags[9])

	// При множителе 3.0 граница 4+5.25=9.25 пропускает его
	flags, _ = DetectOutliers(segments, 3.0)
	assert.False(t, flags[9])
}

func TestDetectOutliers_InputNotMutated(t *testing.T) {
	segments := segmentsFromSpeeds([]float64{100, 1, 2, 3, 4, 5})
	original := make([]models.Segment, len(segments))
	copy(original, segments)

	DetectOutliers(segments, models.DefaultIQRMultiplier)
	assert.Equal(t, original, segments)
}
