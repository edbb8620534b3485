package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpxtrack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpxtrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Метрики пайплайна обработки треков
	TracksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpxtrack_tracks_processed_total",
			Help: "Total number of tracks processed by the statistics pipeline",
		},
		[]string{"trigger"}, // upload, reprocess
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpxtrack_processing_duration_seconds",
			Help:    "Duration of a full pipeline run in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpxtrack_parse_errors_total",
			Help: "Total number of GPX parse failures",
		},
		[]string{"kind"}, // malformed_waypoint, empty_track, invalid_xml
	)

	OutliersDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpxtrack_outliers_detected_total",
			Help: "Total number of speed samples flagged as outliers",
		},
	)

	WaypointsParsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpxtrack_waypoints_parsed",
			Help:    "Number of waypoints extracted per uploaded track",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	// MySQL метрики
	MySQLOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpxtrack_mysql_operation_duration_seconds",
			Help:    "Duration of MySQL operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	MySQLOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpxtrack_mysql_operation_errors_total",
			Help: "Total number of MySQL operation errors",
		},
		[]string{"operation"},
	)

	// Redis метрики
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpxtrack_redis_operation_duration_seconds",
			Help:    "Duration of Redis operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	RedisOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpxtrack_redis_operation_errors_total",
			Help: "Total number of Redis operation errors",
		},
		[]string{"operation"},
	)

	StatsCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpxtrack_stats_cache_hits_total",
			Help: "Total number of statistics cache hits",
		},
	)

	StatsCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpxtrack_stats_cache_misses_total",
			Help: "Total number of statistics cache misses",
		},
	)
)
