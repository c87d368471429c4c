package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
)

var (
	cascadeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deletion_cascade_runs_total",
		Help: "Completed deletion cascade runs by outcome.",
	}, []string{"outcome"})

	cascadeRecordsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deletion_cascade_records_deleted_total",
		Help: "Documents removed by deletion cascades.",
	})

	cascadeRecordsAnonymized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deletion_cascade_records_anonymized_total",
		Help: "Documents anonymized by deletion cascades.",
	})

	cascadeFilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deletion_cascade_files_deleted_total",
		Help: "Blob storage objects removed by deletion cascades.",
	})

	cascadeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deletion_cascade_duration_seconds",
		Help:    "Wall-clock duration of deletion cascade runs.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// RecordCascade publishes the outcome of one cascade run.
func RecordCascade(result deletion.Result) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	cascadeRuns.WithLabelValues(outcome).Inc()
	cascadeRecordsDeleted.Add(float64(result.RecordsDeleted))
	cascadeRecordsAnonymized.Add(float64(result.RecordsAnonymized))
	cascadeFilesDeleted.Add(float64(len(result.FilesDeleted)))
	cascadeDuration.Observe(result.Duration.Seconds())
}
