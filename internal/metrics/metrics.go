package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors exported by the locator.
type Metrics struct {
	FetchTotal     *prometheus.CounterVec
	FetchSeconds   *prometheus.HistogramVec
	CacheReads     *prometheus.CounterVec
	InFlight       prometheus.Gauge
	ItemsDropped   *prometheus.CounterVec
	CameraActions  *prometheus.CounterVec
	SnapshotErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		FetchTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "branchmap_source_fetches_total",
			Help: "Total number of payload fetches from the upstream source.",
		}, []string{"resource", "status"}),
		FetchSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "branchmap_source_fetch_duration_seconds",
			Help:    "Duration of payload fetches from the upstream source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		CacheReads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "branchmap_query_reads_total",
			Help: "Query cache reads by key and outcome (hit, stale, miss, disabled).",
		}, []string{"key", "result"}),
		InFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "branchmap_query_in_flight",
			Help: "Current number of query fetches in flight.",
		}),
		ItemsDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "branchmap_normalize_dropped_total",
			Help: "Total number of payload items dropped during normalization.",
		}, []string{"resource", "reason"}),
		CameraActions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "branchmap_camera_actions_total",
			Help: "Camera decisions taken by the detail screen.",
		}, []string{"action"}),
		SnapshotErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "branchmap_map_snapshot_errors_total",
			Help: "Total number of errors received from the static map API.",
		}),
	}
}
