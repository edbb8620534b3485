package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"zero", 0, "00:00:00"},
		{"under a minute", 59, "00:00:59"},
		{"six minutes", 360, "00:06:00"},
		{"mixed", 3661, "01:01:01"},
		{"just under a day", 86399, "23:59:59"},
		{"over a day keeps counting hours", 90000, "25:00:00"},
		{"negative clamped to zero", -5, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
		})
	}
}

func TestStatisticsRecord_JSONOmitsAbsentMetrics(t *testing.T) {
	// Трек без timestamp'ов: временные поля должны отсутствовать в JSON,
	// а не превращаться в нули
	record := StatisticsRecord{
		ProcessingTimestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		BasicMetrics:        BasicMetrics{TotalDistanceKm: 12.5},
		ProcessingMethods:   DefaultProcessingConfig(),
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	basic, ok := decoded["basic_metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, basic, "start_time")
	assert.NotContains(t, basic, "end_time")
	assert.NotContains(t, basic, "total_duration_seconds")
	assert.NotContains(t, basic, "avg_speed_kmh")
	assert.EqualValues(t, 12.5, basic["total_distance_km"])

	assert.NotContains(t, decoded, "optional_metrics")
}

func TestStatisticsRecord_JSONRoundTrip(t *testing.T) {
	seconds := int64(360)
	avg := 10.0
	start := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Minute)

	record := StatisticsRecord{
		ProcessingTimestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		BasicMetrics: BasicMetrics{
			StartTime:            &start,
			EndTime:              &end,
			TotalDistanceKm:      1.0,
			TotalDurationSeconds: &seconds,
			TotalDuration:        FormatDuration(seconds),
			AvgSpeedKmh:          &avg,
		},
		ProcessingMethods: DefaultProcessingConfig(),
		Results: ProcessingResults{
			RawMaxSpeedKmh:       42.0,
			ProcessedMaxSpeedKmh: 40.0,
			OutliersDetected:     2,
			OutliersInterpolated: 2,
			DataPointsRemaining:  99,
			Warnings:             []string{WarningDegenerateOutlierBounds},
		},
		OptionalMetrics: &OptionalMetrics{ElevationGainM: 70, ElevationLossM: 20},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var restored StatisticsRecord
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, record, restored)
}
