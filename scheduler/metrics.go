package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readingsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensor_readings_saved_total",
		Help: "Readings persisted to the database.",
	})
	readingsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensor_readings_duplicate_total",
		Help: "Ingestion cycles that hit the per-minute uniqueness constraint.",
	})
	cyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensor_ingest_skipped_total",
		Help: "Ingestion cycles skipped because the device status was incomplete.",
	})
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensor_ingest_failed_total",
		Help: "Ingestion cycles that failed to fetch or persist.",
	})
)
