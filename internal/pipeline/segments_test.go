package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracklog/gpx-backend/internal/models"
)

func ts(value string) *time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &parsed
}

func TestComputeSegments_InsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		waypoints []models.Waypoint
	}{
		{"empty input", nil},
		{"single waypoint", []models.Waypoint{{Latitude: 46.0, Longitude: 8.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSegments(tt.waypoints)
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestComputeSegments_CountAndDistance(t *testing.T) {
	waypoints := []models.Waypoint{
		{Latitude: 46.000, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:00Z")},
		{Latitude: 46.001, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:10Z")},
		{Latitude: 46.002, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:20Z")},
		{Latitude: 46.003, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:30Z")},
	}

	segments, err := ComputeSegments(waypoints)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	// 0.001 градуса широты это примерно 111.195 метров
	for _, seg := range segments {
		assert.InDelta(t, 111.195, seg.DistanceM, 0.01)
		assert.InDelta(t, 10.0, seg.DeltaTS, 1e-9)
		assert.True(t, seg.SpeedValid)
		// v = d/t: ~111.2 м за 10 с это ~40 км/ч
		assert.InDelta(t, seg.DistanceM/1000/(10.0/3600), seg.RawSpeedKmh, 1e-9)
	}
}

func TestComputeSegments_UndefinedSpeed(t *testing.T) {
	base := ts("2024-05-01T06:00:00Z")

	tests := []struct {
		name      string
		waypoints []models.Waypoint
	}{
		{
			"missing timestamp on first point",
			[]models.Waypoint{
				{Latitude: 46.0, Longitude: 8.0},
				{Latitude: 46.001, Longitude: 8.0, Timestamp: base},
			},
		},
		{
			"missing timestamp on second point",
			[]models.Waypoint{
				{Latitude: 46.0, Longitude: 8.0, Timestamp: base},
				{Latitude: 46.001, Longitude: 8.0},
			},
		},
		{
			"identical timestamps",
			[]models.Waypoint{
				{Latitude: 46.0, Longitude: 8.0, Timestamp: base},
				{Latitude: 46.001, Longitude: 8.0, Timestamp: base},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := ComputeSegments(tt.waypoints)
			require.NoError(t, err)
			require.Len(t, segments, 1)
			assert.False(t, segments[0].SpeedValid)
			assert.Zero(t, segments[0].RawSpeedKmh)
			// Дистанция считается всегда, даже без скорости
			assert.Greater(t, segments[0].DistanceM, 0.0)
		})
	}
}

func TestComputeSegments_ReversedTimestamps(t *testing.T) {
	// Непорядок во времени не роняет вычисление: delta_t берется по модулю
	waypoints := []models.Waypoint{
		{Latitude: 46.0, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:30Z")},
		{Latitude: 46.001, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:00Z")},
	}

	segments, err := ComputeSegments(waypoints)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.True(t, segments[0].SpeedValid)
	assert.InDelta(t, 30.0, segments[0].DeltaTS, 1e-9)
}

func TestComputeSegments_ZeroDistance(t *testing.T) {
	// Стоящая на месте запись дает честную нулевую скорость, а не undefined
	waypoints := []models.Waypoint{
		{Latitude: 46.0, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:00Z")},
		{Latitude: 46.0, Longitude: 8.0, Timestamp: ts("2024-05-01T06:00:10Z")},
	}

	segments, err := ComputeSegments(waypoints)
	require.NoError(t, err)
	assert.True(t, segments[0].SpeedValid)
	assert.Zero(t, segments[0].RawSpeedKmh)
	assert.Zero(t, segments[0].DistanceM)
}
